package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"example.com/server-time/base/logbase"
	"example.com/server-time/base/metrics"

	"example.com/server-time/core/client"
)

var httpReqsServed = promauto.NewCounter(prometheus.CounterOpts{
	Name: metrics.HTTPServerReqsServedN,
	Help: metrics.HTTPServerReqsServedH,
})

// HTTPHandler answers every request with the current time of src in the
// Date and millisecond timestamp headers. GET requests also receive the
// millisecond timestamp as body.
func HTTPHandler(log *zap.Logger, src TimeSource) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := src.Now()
		ms := strconv.FormatInt(now.UnixMilli(), 10)
		h := w.Header()
		h.Set("Cache-Control", "no-store, no-cache, must-revalidate")
		h.Set("Date", now.UTC().Format(http.TimeFormat))
		h.Set(client.HeaderMillisecondTimestamp, ms)
		h.Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			_, err := w.Write([]byte(ms))
			if err != nil {
				log.Debug("failed to write response", zap.Error(err))
			}
		}
		httpReqsServed.Inc()
		log.Debug("served time request",
			zap.String("method", r.Method),
			zap.String("from", r.RemoteAddr),
			zap.Time("at", now),
		)
	})
}

// StartHTTPServer serves HTTPHandler on addr until ctx is done.
func StartHTTPServer(ctx context.Context, log *zap.Logger, src TimeSource, addr string) {
	log.Info("server listening via HTTP", zap.String("address", addr))
	srv := &http.Server{
		Addr:              addr,
		Handler:           HTTPHandler(log, src),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go shutdownOnDone(ctx, log, "http", func() error {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logbase.Fatal(log, "failed to serve HTTP", zap.Error(err))
		}
	}()
}

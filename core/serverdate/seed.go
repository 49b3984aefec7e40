package serverdate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"example.com/server-time/core/client"
	"example.com/server-time/core/offset"
)

// Seed estimates the offset of the remote clock from a single probe, for use
// as the starting point of New. If the probe fails the estimate is an
// unbounded zero offset.
func Seed(ctx context.Context, log *zap.Logger, transport client.Transport,
	timeout time.Duration) offset.Offset {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	s, err := transport.Probe(ctx)
	if err != nil {
		log.Info("failed to estimate initial offset", zap.Error(err))
		return offset.Unbounded(0)
	}
	o := offset.Bootstrap(s.RemoteTime, s.ReceivedAt, s.SentAt)
	log.Debug("initial offset estimated", zap.Object("seed", o))
	return o
}

// Package server answers time requests over HTTP and NTP from a time source,
// either the local clock or a clock following a remote server.
package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	"example.com/server-time/net/ntp"
)

const (
	serverRefID = 0x53525654

	// LocalStratum is announced when serving the local clock; a server that
	// follows a remote clock announces RelayStratum.
	LocalStratum = 1
	RelayStratum = LocalStratum + 1
)

// TimeSource provides the time served to clients.
type TimeSource interface {
	Now() time.Time
}

func handleRequest(src TimeSource, stratum uint8, req *ntp.Packet, rxt time.Time, resp *ntp.Packet) {
	*resp = ntp.Packet{}
	resp.SetLeapIndicator(ntp.LeapIndicatorNoWarning)
	resp.SetVersion(req.Version())
	if req.Version() == 1 {
		resp.SetVersion(ntp.VersionMax)
	}
	resp.SetMode(ntp.ModeServer)
	resp.Stratum = stratum
	resp.Poll = req.Poll
	resp.Precision = -20
	resp.RootDispersion = ntp.Time32{Seconds: 0, Fraction: 10}
	resp.ReferenceID = serverRefID

	txt := src.Now()
	if txt.Before(rxt) {
		txt = rxt
	}
	resp.ReferenceTime = ntp.Time64FromTime(rxt)
	resp.OriginTime = req.TransmitTime
	resp.ReceiveTime = ntp.Time64FromTime(rxt)
	resp.TransmitTime = ntp.Time64FromTime(txt)
}

func shutdownOnDone(ctx context.Context, log *zap.Logger, name string, stop func() error) {
	<-ctx.Done()
	err := stop()
	if err != nil {
		log.Info("failed to shut down server", zap.String("server", name), zap.Error(err))
	}
}

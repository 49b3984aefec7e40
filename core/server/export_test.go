package server

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"example.com/server-time/net/ntp"
)

func HandleRequest(src TimeSource, stratum uint8, req *ntp.Packet, rxt time.Time, resp *ntp.Packet) {
	handleRequest(src, stratum, req, rxt, resp)
}

func ServeIP(ctx context.Context, conn *net.UDPConn, src TimeSource) {
	runIPServer(ctx, zap.NewNop(), ipMetrics, conn, src, LocalStratum)
}

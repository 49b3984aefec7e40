package server

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/libp2p/go-reuseport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"example.com/server-time/base/logbase"
	"example.com/server-time/base/metrics"

	"example.com/server-time/net/ntp"
	"example.com/server-time/net/udp"
)

const (
	ipServerNumGoroutine = 8
)

type ipServerMetrics struct {
	pktsReceived prometheus.Counter
	reqsAccepted prometheus.Counter
	reqsServed   prometheus.Counter
}

func newIPServerMetrics() *ipServerMetrics {
	return &ipServerMetrics{
		pktsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.IPServerPktsReceivedN,
			Help: metrics.IPServerPktsReceivedH,
		}),
		reqsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.IPServerReqsAcceptedN,
			Help: metrics.IPServerReqsAcceptedH,
		}),
		reqsServed: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.IPServerReqsServedN,
			Help: metrics.IPServerReqsServedH,
		}),
	}
}

var ipMetrics = newIPServerMetrics()

func runIPServer(ctx context.Context, log *zap.Logger, mtrcs *ipServerMetrics,
	conn *net.UDPConn, src TimeSource, stratum uint8) {
	go shutdownOnDone(ctx, log, "ntp", conn.Close)
	err := udp.EnableRxTimestamps(conn)
	if err != nil {
		log.Info("failed to enable timestamping", zap.Error(err))
	}

	buf := make([]byte, 2048)
	oob := make([]byte, udp.TimestampLen())
	for {
		buf = buf[:cap(buf)]
		oob = oob[:cap(oob)]
		n, oobn, flags, srcAddr, err := conn.ReadMsgUDPAddrPort(buf, oob)
		sysNow, rxt := time.Now(), src.Now()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Error("failed to read packet", zap.Error(err))
			continue
		}
		if flags != 0 {
			log.Error("failed to read packet", zap.Int("flags", flags))
			continue
		}
		if oobn != 0 {
			kt, err := udp.TimestampFromOOBData(oob[:oobn])
			if err != nil {
				log.Debug("failed to read packet rx timestamp", zap.Error(err))
			} else {
				rxt = udp.ReceiveTime(kt, sysNow, rxt)
			}
		}
		buf = buf[:n]
		mtrcs.pktsReceived.Inc()

		var req ntp.Packet
		err = ntp.DecodePacket(&req, buf)
		if err != nil {
			log.Info("failed to decode packet payload", zap.Error(err))
			continue
		}
		err = ntp.ValidateRequest(&req)
		if err != nil {
			log.Info("failed to validate packet payload", zap.Error(err))
			continue
		}

		mtrcs.reqsAccepted.Inc()
		log.Debug("received request",
			zap.Time("at", rxt),
			zap.Stringer("from", srcAddr),
			zap.Object("data", ntp.PacketMarshaler{Pkt: &req}),
		)

		var resp ntp.Packet
		handleRequest(src, stratum, &req, rxt, &resp)
		ntp.EncodePacket(&buf, &resp)

		n, err = conn.WriteToUDPAddrPort(buf, srcAddr)
		if err != nil || n != len(buf) {
			log.Error("failed to write packet", zap.Error(err))
			continue
		}
		mtrcs.reqsServed.Inc()
	}
}

// StartIPServer answers NTP requests on localHost with the time of src.
func StartIPServer(ctx context.Context, log *zap.Logger, src TimeSource, stratum uint8,
	localHost *net.UDPAddr) {
	log.Info("server listening via IP",
		zap.Stringer("local host", localHost),
	)

	if ipServerNumGoroutine == 1 {
		conn, err := net.ListenUDP("udp", localHost)
		if err != nil {
			logbase.Fatal(log, "failed to listen for packets", zap.Error(err))
		}
		go runIPServer(ctx, log, ipMetrics, conn, src, stratum)
	} else {
		for range ipServerNumGoroutine {
			conn, err := reuseport.ListenPacket("udp",
				net.JoinHostPort(localHost.IP.String(), strconv.Itoa(localHost.Port)))
			if err != nil {
				logbase.Fatal(log, "failed to listen for packets", zap.Error(err))
			}
			go runIPServer(ctx, log, ipMetrics, conn.(*net.UDPConn), src, stratum)
		}
	}
}

package benchmark

import (
	"context"
	"errors"
	"net"
	"time"

	"example.com/server-time/core/client"

	"example.com/server-time/net/ntp"
)

var errUnrelatedPacket = errors.New("unrelated packet received")

// ipTransport sends plain NTP client requests over a connected UDP socket.
// It avoids the per-query socket setup of the library transports so that
// the server, not the client, dominates the measurement.
type ipTransport struct {
	conn *net.UDPConn
	buf  []byte
}

func dialIP(remoteAddr string) (*ipTransport, error) {
	raddr, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, err
	}
	if raddr.Port == 0 {
		raddr.Port = ntp.ServerPort
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, err
	}
	return &ipTransport{conn: conn, buf: make([]byte, 2048)}, nil
}

func (t *ipTransport) Close() error {
	return t.conn.Close()
}

func (t *ipTransport) Probe(ctx context.Context) (client.Sample, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(time.Second)
	}
	err := t.conn.SetDeadline(deadline)
	if err != nil {
		return client.Sample{}, err
	}

	cTxTime := time.Now().Round(0)
	var req ntp.Packet
	req.SetVersion(ntp.VersionMax)
	req.SetMode(ntp.ModeClient)
	req.TransmitTime = ntp.Time64FromTime(cTxTime)
	ntp.EncodePacket(&t.buf, &req)

	_, err = t.conn.Write(t.buf)
	if err != nil {
		return client.Sample{}, err
	}
	t.buf = t.buf[:cap(t.buf)]
	n, err := t.conn.Read(t.buf)
	cRxTime := time.Now().Round(0)
	if err != nil {
		return client.Sample{}, err
	}

	var resp ntp.Packet
	err = ntp.DecodePacket(&resp, t.buf[:n])
	if err != nil {
		return client.Sample{}, err
	}
	if resp.OriginTime != req.TransmitTime {
		return client.Sample{}, errUnrelatedPacket
	}
	err = ntp.ValidateResponseMetadata(&resp)
	if err != nil {
		return client.Sample{}, err
	}

	sRxTime := ntp.TimeFromTime64(resp.ReceiveTime, cTxTime)
	sTxTime := ntp.TimeFromTime64(resp.TransmitTime, cTxTime)
	off := ntp.ClockOffset(cTxTime, sRxTime, sTxTime, cRxTime)
	rtd := ntp.RoundTripDelay(cTxTime, sRxTime, sTxTime, cRxTime)
	if rtd < 0 {
		rtd = 0
	}
	return client.Sample{
		RemoteTime: cRxTime.Add(off - rtd/2),
		SentAt:     cRxTime.Add(-rtd),
		ReceivedAt: cRxTime,
	}, nil
}

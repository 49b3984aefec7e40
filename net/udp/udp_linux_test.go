package udp_test

import (
	"net"
	"testing"
	"time"

	"example.com/server-time/net/udp"
)

func TestRxTimestamp(t *testing.T) {
	rconn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Skipf("cannot listen on loopback: %v", err)
	}
	defer rconn.Close()
	err = udp.EnableRxTimestamps(rconn)
	if err != nil {
		t.Fatalf("EnableRxTimestamps() failed: %v", err)
	}
	sconn, err := net.DialUDP("udp", nil, rconn.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("DialUDP() failed: %v", err)
	}
	defer sconn.Close()

	t0 := time.Now()
	_, err = sconn.Write([]byte("ping"))
	if err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	_ = rconn.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 16)
	oob := make([]byte, udp.TimestampLen())
	_, oobn, _, _, err := rconn.ReadMsgUDPAddrPort(buf, oob)
	if err != nil {
		t.Fatalf("ReadMsgUDPAddrPort() failed: %v", err)
	}
	ts, err := udp.TimestampFromOOBData(oob[:oobn])
	if err != nil {
		t.Fatalf("TimestampFromOOBData() failed: %v", err)
	}
	if d := ts.Sub(t0); d < -time.Second || d > 5*time.Second {
		t.Errorf("rx timestamp %v too far from send time %v", ts, t0)
	}
	if _, err := udp.TimestampFromOOBData(nil); err == nil {
		t.Errorf("TimestampFromOOBData(nil) succeeded")
	}
}

package server_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"example.com/server-time/core/client"
	"example.com/server-time/core/offset"
	"example.com/server-time/core/server"

	"example.com/server-time/net/ntp"
)

type fixedSource struct {
	t time.Time
}

func (s fixedSource) Now() time.Time { return s.t }

type shiftedSource struct {
	d time.Duration
}

func (s shiftedSource) Now() time.Time { return time.Now().Add(s.d) }

func TestHandleRequest(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var req ntp.Packet
	req.SetVersion(ntp.VersionMax)
	req.SetMode(ntp.ModeClient)
	req.Poll = 6
	req.TransmitTime = ntp.Time64{Seconds: 12345, Fraction: 678}

	rxt := now.Add(-time.Millisecond)
	var resp ntp.Packet
	server.HandleRequest(fixedSource{t: now}, server.LocalStratum, &req, rxt, &resp)

	if resp.Mode() != ntp.ModeServer || resp.Version() != ntp.VersionMax {
		t.Errorf("mode/version = %d/%d", resp.Mode(), resp.Version())
	}
	if resp.Poll != 6 || resp.Stratum != server.LocalStratum {
		t.Errorf("poll/stratum = %d/%d", resp.Poll, resp.Stratum)
	}
	if resp.OriginTime != req.TransmitTime {
		t.Errorf("OriginTime = %+v, want %+v", resp.OriginTime, req.TransmitTime)
	}
	if resp.ReceiveTime != ntp.Time64FromTime(rxt) {
		t.Errorf("ReceiveTime = %+v, want %+v", resp.ReceiveTime, ntp.Time64FromTime(rxt))
	}
	if resp.TransmitTime != ntp.Time64FromTime(now) {
		t.Errorf("TransmitTime = %+v, want %+v", resp.TransmitTime, ntp.Time64FromTime(now))
	}
	if err := ntp.ValidateResponseMetadata(&resp); err != nil {
		t.Errorf("ValidateResponseMetadata() = %v", err)
	}
}

func TestHandleRequestRelayStratum(t *testing.T) {
	var req ntp.Packet
	req.SetVersion(ntp.VersionMax)
	req.SetMode(ntp.ModeClient)
	req.TransmitTime = ntp.Time64{Seconds: 1}
	var resp ntp.Packet
	server.HandleRequest(shiftedSource{d: time.Second}, server.RelayStratum, &req, time.Now(), &resp)
	if resp.Stratum != server.LocalStratum+1 {
		t.Errorf("Stratum = %d, want %d", resp.Stratum, server.LocalStratum+1)
	}
	if err := ntp.ValidateResponseMetadata(&resp); err != nil {
		t.Errorf("ValidateResponseMetadata() = %v", err)
	}
}

func TestHandleRequestTransmitNotBeforeReceive(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var req ntp.Packet
	req.SetVersion(ntp.VersionMax)
	req.SetMode(ntp.ModeClient)
	rxt := now.Add(time.Second)
	var resp ntp.Packet
	server.HandleRequest(fixedSource{t: now}, server.LocalStratum, &req, rxt, &resp)
	if resp.TransmitTime.Before(resp.ReceiveTime) {
		t.Errorf("TransmitTime %+v before ReceiveTime %+v", resp.TransmitTime, resp.ReceiveTime)
	}
}

func TestHTTPHandler(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 250*int(time.Millisecond), time.UTC)
	srv := httptest.NewServer(server.HTTPHandler(nil, fixedSource{t: now}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if got, want := string(body), strconv.FormatInt(now.UnixMilli(), 10); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
	if got := resp.Header.Get("Date"); got != "Fri, 01 Mar 2024 12:00:00 GMT" {
		t.Errorf("Date = %q", got)
	}
	if got := resp.Header.Get("Cache-Control"); got == "" {
		t.Errorf("Cache-Control not set")
	}

	tr := &client.HTTPTransport{URL: srv.URL}
	s, err := tr.Probe(context.Background())
	if err != nil {
		t.Fatalf("Probe() failed: %v", err)
	}
	if !s.RemoteTime.Equal(now) {
		t.Errorf("RemoteTime = %v, want %v", s.RemoteTime, now)
	}
}

func TestNTPServer(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Skipf("cannot listen on loopback: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.ServeIP(ctx, conn, shiftedSource{d: 2 * time.Second})

	tr := &client.NTPTransport{Host: conn.LocalAddr().String()}
	pctx, pcancel := context.WithTimeout(ctx, 5*time.Second)
	defer pcancel()
	s, err := tr.Probe(pctx)
	if err != nil {
		t.Fatalf("Probe() failed: %v", err)
	}
	o := offset.FromSample(s.RemoteTime, s.SentAt, s.ReceivedAt)
	if d := o.Value() - 2*time.Second; d < -100*time.Millisecond || d > 100*time.Millisecond {
		t.Errorf("offset = %v, want about 2s", o)
	}
}

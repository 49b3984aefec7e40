package client

import (
	"context"
	"fmt"
	"time"

	"github.com/beevik/ntp"
)

const (
	TransportHTTP = "http"
	TransportNTP  = "ntp"
	TransportNTS  = "nts"
)

// Sample is the outcome of one round trip to the remote clock: the remote
// timestamp and the two local timestamps bracketing the exchange.
type Sample struct {
	RemoteTime time.Time
	SentAt     time.Time
	ReceivedAt time.Time
}

func (s Sample) RoundTripDelay() time.Duration {
	return s.ReceivedAt.Sub(s.SentAt)
}

// Transport issues a single probe. Implementations must honor ctx and must
// not retry internally.
type Transport interface {
	Probe(ctx context.Context) (Sample, error)
}

// NewTransport creates a transport of the given kind. now must read the same
// local clock the samples are later compared against.
func NewTransport(kind, addr string, now func() time.Time) (Transport, error) {
	switch kind {
	case TransportHTTP, "":
		return &HTTPTransport{URL: addr, Now: now}, nil
	case TransportNTP:
		return &NTPTransport{Host: addr, Now: now}, nil
	case TransportNTS:
		return &NTSTransport{Host: addr, Now: now}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownTransport, kind)
	}
}

// sampleFromResponse maps an NTP response onto a sample whose derived
// offset and precision equal the response's clock offset and half its RTT.
func sampleFromResponse(resp *ntp.Response, receivedAt time.Time) Sample {
	rtt := resp.RTT
	if rtt < 0 {
		rtt = 0
	}
	return Sample{
		RemoteTime: receivedAt.Add(resp.ClockOffset - rtt/2),
		SentAt:     receivedAt.Add(-rtt),
		ReceivedAt: receivedAt,
	}
}

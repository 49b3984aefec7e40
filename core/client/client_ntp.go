package client

import (
	"context"
	"fmt"
	"time"

	"github.com/beevik/ntp"
)

const defaultNTPTimeout = 5 * time.Second

type NTPTransport struct {
	Host string
	Now  func() time.Time
}

func (t *NTPTransport) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *NTPTransport) Probe(ctx context.Context) (Sample, error) {
	timeout := defaultNTPTimeout
	deadline, ok := ctx.Deadline()
	if ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return Sample{}, context.DeadlineExceeded
		}
	}
	resp, err := ntp.QueryWithOptions(t.Host, ntp.QueryOptions{Timeout: timeout})
	receivedAt := t.now()
	if err != nil {
		return Sample{}, fmt.Errorf("NTP query failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	err = resp.Validate()
	if err != nil {
		return Sample{}, fmt.Errorf("%w: %w", errInvalidRemoteClock, err)
	}
	return sampleFromResponse(resp, receivedAt), nil
}

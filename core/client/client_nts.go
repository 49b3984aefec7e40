package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/beevik/ntp"
	"github.com/beevik/nts"
)

type ntsQuerier interface {
	Query() (*ntp.Response, error)
}

// ntsSession serializes queries on one key exchange session. A query
// abandoned by a canceled probe still holds mu until it returns.
type ntsSession struct {
	mu sync.Mutex
	q  ntsQuerier
}

func (s *ntsSession) query() (*ntp.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.Query()
}

// NTSTransport probes an NTS secured NTP server. The key exchange session
// is established on first use and again after a failed query.
type NTSTransport struct {
	Host string
	Now  func() time.Time

	dial func(host string) (ntsQuerier, error)

	mu      sync.Mutex
	session *ntsSession
}

type ntsResult struct {
	resp *ntp.Response
	err  error
}

func (t *NTSTransport) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func dialNTS(host string) (ntsQuerier, error) {
	s, err := nts.NewSession(host)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (t *NTSTransport) currentSession() (*ntsSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil {
		dial := t.dial
		if dial == nil {
			dial = dialNTS
		}
		q, err := dial(t.Host)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errNoSession, err)
		}
		t.session = &ntsSession{q: q}
	}
	return t.session, nil
}

func (t *NTSTransport) resetSession(s *ntsSession) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == s {
		t.session = nil
	}
}

func (t *NTSTransport) Probe(ctx context.Context) (Sample, error) {
	s, err := t.currentSession()
	if err != nil {
		return Sample{}, err
	}
	ch := make(chan ntsResult, 1)
	go func() {
		resp, err := s.query()
		ch <- ntsResult{resp: resp, err: err}
	}()
	select {
	case <-ctx.Done():
		return Sample{}, ctx.Err()
	case r := <-ch:
		receivedAt := t.now()
		if r.err != nil {
			t.resetSession(s)
			return Sample{}, fmt.Errorf("NTS query failed: %w", r.err)
		}
		err = r.resp.Validate()
		if err != nil {
			return Sample{}, fmt.Errorf("%w: %w", errInvalidRemoteClock, err)
		}
		return sampleFromResponse(r.resp, receivedAt), nil
	}
}

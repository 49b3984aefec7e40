package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	HeaderMillisecondTimestamp = "X-Date-MillisecondTimestamp"

	noCacheParam = "noCache"
)

// HTTPTransport probes a web server with a HEAD request and reads the
// remote time from its response headers.
type HTTPTransport struct {
	URL    string
	Client *http.Client
	// Now reads the local clock. It defaults to time.Now.
	Now func() time.Time
}

func (t *HTTPTransport) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *HTTPTransport) requestURL() (string, error) {
	u, err := url.Parse(t.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(noCacheParam, uuid.NewString())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (t *HTTPTransport) Probe(ctx context.Context) (Sample, error) {
	var s Sample
	rawURL, err := t.requestURL()
	if err != nil {
		return s, fmt.Errorf("failed to build request URL: %w", err)
	}
	var receivedAt time.Time
	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() {
			receivedAt = t.now()
		},
	}
	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace),
		http.MethodHead, rawURL, nil)
	if err != nil {
		return s, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	c := t.Client
	if c == nil {
		c = http.DefaultClient
	}
	sentAt := t.now()
	resp, err := c.Do(req)
	if err != nil {
		return s, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if receivedAt.IsZero() {
		receivedAt = t.now()
	}
	if resp.StatusCode != http.StatusOK {
		return s, fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}
	remote, err := RemoteTimeFromHeader(resp.Header)
	if err != nil {
		return s, err
	}
	s.RemoteTime = remote
	s.SentAt = sentAt
	s.ReceivedAt = receivedAt
	return s, nil
}

// RemoteTimeFromHeader prefers the millisecond timestamp header and falls
// back to the second resolution Date header.
func RemoteTimeFromHeader(h http.Header) (time.Time, error) {
	if v := h.Get(HeaderMillisecondTimestamp); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err == nil && ms > 0 {
			return time.UnixMilli(ms).UTC(), nil
		}
	}
	if v := h.Get("Date"); v != "" {
		t, err := http.ParseTime(v)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errNoRemoteTimestamp
}

// Package sse implements gamestream.Transport over HTTP server-sent events.
package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tsarna/gamestream/pkg/gamestream"
	"go.uber.org/zap"
)

var (
	// ErrStreamClosed is reported when the server ends the stream cleanly.
	ErrStreamClosed = errors.New("event stream closed by server")
	// ErrConnectTimeout is reported when response headers do not arrive
	// within the connect timeout.
	ErrConnectTimeout = errors.New("timed out waiting for event stream response")
)

// StatusError is reported when the server answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Body)
}

// Transport opens event streams relative to a base URL.
type Transport struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
	header     http.Header
	maxLine    int
	// Zero waits for response headers indefinitely.
	connectTimeout time.Duration
}

// Option configures a Transport.
type Option func(*Transport)

// WithHTTPClient sets a custom HTTP client. It should not set a Timeout,
// which would cut long-lived streams.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Transport) {
		if client != nil {
			t.httpClient = client
		}
	}
}

// WithLogger sets the logger for the transport.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithHeader adds a header sent with every stream request.
func WithHeader(key, value string) Option {
	return func(t *Transport) {
		t.header.Add(key, value)
	}
}

// WithMaxLineSize bounds the length of a single event-stream line.
func WithMaxLineSize(n int) Option {
	return func(t *Transport) {
		if n > 0 {
			t.maxLine = n
		}
	}
}

// WithConnectTimeout bounds how long Open waits for the response headers.
// The stream itself may stay open for any length of time once they arrive.
func WithConnectTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.connectTimeout = d
		}
	}
}

// New creates a Transport for the server at baseURL.
func New(baseURL string, opts ...Option) (*Transport, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	t := &Transport{
		baseURL:    u,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
		header:     http.Header{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Open starts a GET request for path and returns immediately. The response
// is handled on a new goroutine which reports to h.
func (t *Transport) Open(ctx context.Context, path string, header http.Header, h gamestream.StreamHandler) (gamestream.Stream, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid stream path %q: %w", path, err)
	}
	target := t.baseURL.JoinPath(ref.Path)
	target.RawQuery = ref.RawQuery

	streamCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, target.String(), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range t.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	for key, values := range header {
		req.Header[key] = append([]string(nil), values...)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	s := &stream{ctx: streamCtx, cancel: cancel}
	go t.run(s, req, h)

	return s, nil
}

type stream struct {
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (s *stream) Close() error {
	s.closeOnce.Do(s.cancel)
	return nil
}

func (s *stream) closed() bool {
	return s.ctx.Err() != nil
}

func (t *Transport) run(s *stream, req *http.Request, h gamestream.StreamHandler) {
	defer s.Close()

	logger := t.logger.With(zap.String("url", req.URL.String()))

	var timer *time.Timer
	if t.connectTimeout > 0 {
		timer = time.AfterFunc(t.connectTimeout, s.cancel)
	}

	resp, err := t.httpClient.Do(req)
	timedOut := timer != nil && !timer.Stop()
	if err == nil && timedOut {
		// Fired between the headers arriving and Stop.
		resp.Body.Close()
		err = context.Canceled
	}
	if err != nil {
		switch {
		case timedOut:
			logger.Warn("No response to event stream request", zap.Duration("timeout", t.connectTimeout))
			h.OnError(fmt.Errorf("failed to connect: %w", ErrConnectTimeout))
		case !s.closed():
			h.OnError(fmt.Errorf("failed to connect: %w", err))
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if !s.closed() {
			h.OnError(&StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))})
		}
		return
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "text/event-stream") {
		logger.Warn("Unexpected content type for event stream", zap.String("content_type", ct))
	}

	if s.closed() {
		return
	}
	logger.Debug("Event stream response received")
	h.OnOpen()

	reader := NewReader(resp.Body, t.maxLine)
	for {
		event, err := reader.Next()
		if s.closed() {
			return
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				h.OnError(ErrStreamClosed)
			} else {
				h.OnError(fmt.Errorf("error reading stream: %w", err))
			}
			return
		}

		logger.Debug("Event received", zap.String("event", event.Name), zap.Int("bytes", len(event.Data)))
		h.OnEvent(event.Name, event.Data)
	}
}

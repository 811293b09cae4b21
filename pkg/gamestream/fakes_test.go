package gamestream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

type mapCredentials struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func (c *mapCredentials) Get(key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	return c.values[key], nil
}

func (c *mapCredentials) set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

type fakeStream struct {
	mu      sync.Mutex
	path    string
	header  http.Header
	handler StreamHandler
	closed  bool
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeTransport struct {
	mu      sync.Mutex
	streams []*fakeStream
	openErr error
}

func (t *fakeTransport) Open(ctx context.Context, path string, header http.Header, h StreamHandler) (Stream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.openErr != nil {
		return nil, t.openErr
	}
	s := &fakeStream{path: path, header: header, handler: h}
	t.streams = append(t.streams, s)
	return s, nil
}

func (t *fakeTransport) opened() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.streams)
}

func (t *fakeTransport) last() *fakeStream {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.streams) == 0 {
		return nil
	}
	return t.streams[len(t.streams)-1]
}

func (t *fakeTransport) live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, s := range t.streams {
		if !s.isClosed() {
			n++
		}
	}
	return n
}

func (t *fakeTransport) setOpenErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.openErr = err
}

type fakeTimer struct {
	s       *fakeScheduler
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeScheduler records timers instead of running them; tests fire them explicitly.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, delay: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) pending() []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

func (s *fakeScheduler) delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.timers))
	for i, t := range s.timers {
		out[i] = t.delay
	}
	return out
}

// fire runs the single pending timer.
func (s *fakeScheduler) fire() error {
	pending := s.pending()
	if len(pending) != 1 {
		return fmt.Errorf("expected exactly one pending timer, have %d", len(pending))
	}
	t := pending[0]
	s.mu.Lock()
	t.fired = true
	s.mu.Unlock()
	t.f()
	return nil
}

type transitionRecorder struct {
	mu          sync.Mutex
	transitions []string
}

func (r *transitionRecorder) OnStateChange(from, to Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, from.String()+"->"+to.String())
}

func (r *transitionRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.transitions...)
}

// recordingSubscriber keeps every payload it receives.
type recordingSubscriber struct {
	mu       sync.Mutex
	name     string
	order    *[]string
	payloads []Payload
	err      error
}

func (r *recordingSubscriber) OnEvent(ctx context.Context, eventType EventType, payload Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
	if r.order != nil {
		*r.order = append(*r.order, r.name)
	}
	return r.err
}

func (r *recordingSubscriber) received() []Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Payload(nil), r.payloads...)
}

var errBoom = errors.New("boom")

package statecache

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/statekit/logger"
)

// manualClock fires timers only when advanced.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward and runs due timers on the calling goroutine.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	remaining := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.stopped:
		case !t.at.After(c.now):
			t.fired = true
			due = append(due, t)
		default:
			remaining = append(remaining, t)
		}
	}
	c.timers = remaining
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

// Armed returns the number of timers waiting to fire.
func (c *manualClock) Armed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// scriptedStore records calls and can fail or block them.
type scriptedStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	ops      []string
	writes   []map[string][]byte
	getCalls int

	getErr      error
	setErr      error
	clearErr    error
	setFailures int

	// When set, SetMany/GetMany announce on *Started and block until *Gate is closed.
	setGate    chan struct{}
	setStarted chan struct{}
	getGate    chan struct{}
	getStarted chan struct{}
}

func newScriptedStore() *scriptedStore {
	return &scriptedStore{data: make(map[string][]byte)}
}

func (s *scriptedStore) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	s.mu.Lock()
	s.getCalls++
	s.ops = append(s.ops, "get")
	gate, started, err := s.getGate, s.getStarted, s.getErr
	s.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]byte)
	for _, k := range keys {
		if v, ok := s.data[k]; ok {
			out[k] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

func (s *scriptedStore) SetMany(ctx context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	cp := make(map[string][]byte, len(entries))
	for k, v := range entries {
		cp[k] = append([]byte(nil), v...)
	}
	s.writes = append(s.writes, cp)
	s.ops = append(s.ops, "set")
	gate, started := s.setGate, s.setStarted
	s.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setFailures > 0 {
		s.setFailures--
		return errStore
	}
	if s.setErr != nil {
		return s.setErr
	}
	for k, v := range cp {
		s.data[k] = v
	}
	return nil
}

func (s *scriptedStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "clear")
	if s.clearErr != nil {
		return s.clearErr
	}
	s.data = make(map[string][]byte)
	return nil
}

func (s *scriptedStore) Close() error { return nil }

func (s *scriptedStore) put(t *testing.T, key string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	s.mu.Lock()
	s.data[key] = data
	s.mu.Unlock()
}

func (s *scriptedStore) setErrTo(err error) {
	s.mu.Lock()
	s.setErr = err
	s.mu.Unlock()
}

func (s *scriptedStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

// write returns write i with values as strings.
func (s *scriptedStore) write(i int) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.writes[i]))
	for k, v := range s.writes[i] {
		out[k] = string(v)
	}
	return out
}

func (s *scriptedStore) stored(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return string(v), ok
}

func (s *scriptedStore) opLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ops...)
}

type storeError string

func (e storeError) Error() string { return string(e) }

const errStore = storeError("store unavailable")

// newTestCache builds a ready cache over store with a manual clock.
func newTestCache(t *testing.T, store *scriptedStore, opts ...Option) (*Cache, *manualClock) {
	t.Helper()
	clk := newManualClock()
	base := []Option{WithClock(clk), WithLogger(logger.Nop()), WithProvider("scripted")}
	c, err := New(store, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return c, clk
}

// captureLogger returns a JSON logger writing into buf.
func captureLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", buf)
}

func waitResult(t *testing.T, r *Result) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := r.Wait(ctx)
	if err == context.DeadlineExceeded {
		t.Fatal("result did not resolve")
	}
	return err
}

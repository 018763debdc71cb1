package wsconn

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"
)

type receiveResult struct {
	msg Message
	err error
}

// fakeTransport is an in-memory Transport. Frames pushed with push or fail are
// handed out one per Receive call.
type fakeTransport struct {
	OpenFunc       func(ctx context.Context, address string) error
	SendTextFunc   func(ctx context.Context, text string) error
	SendBinaryFunc func(ctx context.Context, data []byte) error
	PingFunc       func(ctx context.Context) error

	frames    chan receiveResult
	closed    chan struct{}
	closeOnce sync.Once
	closeCode atomic.Int32
	opened    atomic.Bool

	receives   atomic.Int32
	pings      atomic.Int32
	closeCalls atomic.Int32

	mu   sync.Mutex
	sent []Message
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		frames: make(chan receiveResult, 1024),
		closed: make(chan struct{}),
	}
}

func (t *fakeTransport) Open(ctx context.Context, address string) error {
	if t.OpenFunc != nil {
		if err := t.OpenFunc(ctx, address); err != nil {
			return err
		}
	}
	t.opened.Store(true)
	return nil
}

func (t *fakeTransport) Close(code CloseCode, _ string) error {
	t.closeCalls.Add(1)
	t.closeOnce.Do(func() {
		t.closeCode.CompareAndSwap(int32(CloseInvalid), int32(code))
		close(t.closed)
	})
	return nil
}

func (t *fakeTransport) SendText(ctx context.Context, text string) error {
	if t.SendTextFunc != nil {
		return t.SendTextFunc(ctx, text)
	}
	return t.record(NewTextMessage(text))
}

func (t *fakeTransport) SendBinary(ctx context.Context, data []byte) error {
	if t.SendBinaryFunc != nil {
		return t.SendBinaryFunc(ctx, data)
	}
	return t.record(NewBinaryMessage(data))
}

func (t *fakeTransport) record(m Message) error {
	if !t.opened.Load() || t.CloseCode() != CloseInvalid {
		return ErrConnectionClosed
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.sent = append(t.sent, m)
	return nil
}

func (t *fakeTransport) Receive(ctx context.Context) (Message, error) {
	t.receives.Add(1)

	select {
	case r := <-t.frames:
		if ce, ok := r.err.(*CloseError); ok {
			t.closeCode.CompareAndSwap(int32(CloseInvalid), int32(ce.Code))
		}
		return r.msg, r.err
	case <-t.closed:
		return nil, ErrConnectionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *fakeTransport) Ping(ctx context.Context) error {
	t.pings.Add(1)
	if t.PingFunc != nil {
		return t.PingFunc(ctx)
	}
	return nil
}

func (t *fakeTransport) CloseCode() CloseCode {
	return CloseCode(t.closeCode.Load())
}

func (t *fakeTransport) push(m Message) {
	t.frames <- receiveResult{msg: m}
}

func (t *fakeTransport) fail(err error) {
	t.frames <- receiveResult{err: err}
}

func (t *fakeTransport) sentMessages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]Message(nil), t.sent...)
}

type sinkEvent struct {
	kind string
	text string
	data []byte
	err  error
}

const (
	evConnected    = "connected"
	evDisconnected = "disconnected"
	evError        = "error"
	evText         = "text"
	evBinary       = "binary"
)

// recordingSink keeps every notification in arrival order.
type recordingSink struct {
	mu     sync.Mutex
	events []sinkEvent

	// onText, when set, runs inside OnTextMessage.
	onText func(c Connection, text string)
}

func (s *recordingSink) add(e sinkEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, e)
}

func (s *recordingSink) OnConnected(Connection) {
	s.add(sinkEvent{kind: evConnected})
}

func (s *recordingSink) OnDisconnected(_ Connection, err error) {
	s.add(sinkEvent{kind: evDisconnected, err: err})
}

func (s *recordingSink) OnError(_ Connection, err error) {
	s.add(sinkEvent{kind: evError, err: err})
}

func (s *recordingSink) OnTextMessage(c Connection, text string) {
	s.add(sinkEvent{kind: evText, text: text})
	if s.onText != nil {
		s.onText(c, text)
	}
}

func (s *recordingSink) OnBinaryMessage(_ Connection, data []byte) {
	s.add(sinkEvent{kind: evBinary, data: data})
}

func (s *recordingSink) snapshot() []sinkEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]sinkEvent(nil), s.events...)
}

func (s *recordingSink) count(kind string) int {
	n := 0
	for _, e := range s.snapshot() {
		if e.kind == kind {
			n++
		}
	}
	return n
}

func (s *recordingSink) first(kind string) (sinkEvent, bool) {
	for _, e := range s.snapshot() {
		if e.kind == kind {
			return e, true
		}
	}
	return sinkEvent{}, false
}

// mockSink records connection ids rather than connections, so assertions
// never format a connection that is still running.
type mockSink struct {
	mock.Mock
}

func (m *mockSink) OnConnected(c Connection) {
	m.Called(c.ID())
}

func (m *mockSink) OnDisconnected(c Connection, err error) {
	m.Called(c.ID(), err)
}

func (m *mockSink) OnError(c Connection, err error) {
	m.Called(c.ID(), err)
}

func (m *mockSink) OnTextMessage(c Connection, text string) {
	m.Called(c.ID(), text)
}

func (m *mockSink) OnBinaryMessage(c Connection, data []byte) {
	m.Called(c.ID(), data)
}

// Package wsconn wraps a WebSocket transport into a long-lived client
// connection that reports frames and lifecycle events to a Sink and keeps the
// link alive with periodic pings.
package wsconn

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// State is the lifecycle stage of a Connection. It only moves forward:
// idle, connecting, open, closing, closed.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Transition is passed to state listeners registered with OnState.
type Transition struct {
	From State
	To   State
}

type (
	// Connection is a single client WebSocket connection. Connect, Disconnect,
	// SendText and SendBinary never block and never fail synchronously: every
	// outcome is reported to the Sink.
	Connection interface {
		// Connect starts the opening handshake. Only the first call has an effect.
		Connect()
		// Disconnect closes the connection with CloseGoingAway. It is idempotent.
		Disconnect()
		SendText(text string)
		SendBinary(data []byte)

		ID() string
		Address() string
		State() State
		Stats() Stats
		// OnState registers fn to run every time the connection enters state.
		// Listeners run synchronously on the goroutine making the transition.
		OnState(state State, fn func(Transition))
		// Done is closed once the connection reaches StateClosed.
		Done() <-chan struct{}
	}

	Stats struct {
		MessagesReceived uint64
		MessagesSent     uint64
		SendFailures     uint64
		PingsSent        uint64
		PingFailures     uint64
		ConnectedAt      time.Time
	}
)

// socketConnection owns one Transport and runs three goroutines on it: the
// handshake + receive loop, the keep-alive loop and the writer.
type socketConnection struct {
	id        string
	address   string
	sink      Sink
	transport Transport
	logger    Logger
	opts      options

	state   atomic.Int32
	emitter *EventEmitterCallback[State, Transition]

	// ctx bounds the handshake and every transport call. It is cancelled
	// after the transport has been closed.
	ctx    context.Context
	cancel context.CancelFunc

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	doneOnce sync.Once

	outbox     chan Message
	writerOnce sync.Once

	// notifyMu serializes sink notifications.
	notifyMu sync.Mutex

	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	sendFailures     atomic.Uint64
	pingsSent        atomic.Uint64
	pingFailures     atomic.Uint64
	connectedAt      atomic.Int64
}

// New creates a connection to address reporting to sink. It does not dial:
// call Connect. A nil sink discards every notification. The only errors
// returned come from invalid options.
func New(address string, sink Sink, opts ...Option) (Connection, error) {
	o := defaultOptions()

	for i, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&o); err != nil {
			return nil, errors.Wrapf(err, "failed to apply option at index %d", i)
		}
	}

	if o.pingTimeout <= 0 {
		o.pingTimeout = o.pingInterval
	}

	if sink == nil {
		sink = SinkFuncs{}
	}

	id := uuid.NewString()
	logger := o.logger.WithField("conn", id)

	if o.transport == nil {
		cfg := DefaultDialConfig()
		cfg.Logger = logger
		o.transport = NewFastHTTPTransport(cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &socketConnection{
		id:        id,
		address:   address,
		sink:      sink,
		transport: o.transport,
		logger:    logger,
		opts:      o,
		emitter:   NewEventEmitter[State, Transition](),
		ctx:       ctx,
		cancel:    cancel,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		outbox:    make(chan Message, o.sendQueueSize),
	}, nil
}

func (c *socketConnection) ID() string { return c.id }

func (c *socketConnection) Address() string { return c.address }

func (c *socketConnection) State() State { return State(c.state.Load()) }

func (c *socketConnection) Done() <-chan struct{} { return c.done }

func (c *socketConnection) OnState(state State, fn func(Transition)) {
	c.emitter.On(state, fn)
}

func (c *socketConnection) Stats() Stats {
	s := Stats{
		MessagesReceived: c.messagesReceived.Load(),
		MessagesSent:     c.messagesSent.Load(),
		SendFailures:     c.sendFailures.Load(),
		PingsSent:        c.pingsSent.Load(),
		PingFailures:     c.pingFailures.Load(),
	}
	if at := c.connectedAt.Load(); at != 0 {
		s.ConnectedAt = time.Unix(0, at)
	}
	return s
}

func (c *socketConnection) Connect() {
	if !c.transition(StateIdle, StateConnecting) {
		c.logger.Warnf("connect ignored in state %s", c.State())
		return
	}

	c.logger.Infof("connecting to %s", c.address)

	go c.run()
}

func (c *socketConnection) Disconnect() {
	for {
		switch from := c.State(); from {
		case StateIdle:
			if c.transition(StateIdle, StateClosed) {
				c.release()
				c.markDone()
				return
			}
		case StateConnecting, StateOpen:
			if c.transition(from, StateClosing) {
				c.logger.Infof("disconnecting from %s", c.address)
				c.halt()
				go c.finishDisconnect()
				return
			}
		default:
			return
		}
	}
}

func (c *socketConnection) SendText(text string) {
	c.enqueue(NewTextMessage(text))
}

func (c *socketConnection) SendBinary(data []byte) {
	c.enqueue(NewBinaryMessage(data))
}

// run performs the handshake and then becomes the receive loop.
func (c *socketConnection) run() {
	if err := c.transport.Open(c.ctx, c.address); err != nil {
		c.failHandshake(err)
		return
	}

	if !c.open() {
		return
	}

	if c.opts.pingInterval > 0 {
		go c.keepAlive()
	}

	c.receiveLoop()
}

// open moves the connection to StateOpen and reports OnConnected while holding
// notifyMu, so no other notification can overtake it. Frames queued before
// this point are written only once OnConnected has returned.
func (c *socketConnection) open() bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	if !c.transition(StateConnecting, StateOpen) {
		// Disconnect won the race; finishDisconnect reports it.
		return false
	}

	c.connectedAt.Store(time.Now().UnixNano())
	c.logger.Infof("connected to %s", c.address)
	c.sink.OnConnected(c)
	c.startWriter()

	return true
}

func (c *socketConnection) failHandshake(err error) {
	if !c.transition(StateConnecting, StateClosed) {
		return
	}

	opErr := newOpError("connect", ErrCannotConnect, err)
	c.logger.Errorf("%s", opErr)

	c.notify(func(s Sink) { s.OnError(c, opErr) })
	c.release()
	c.markDone()
	c.notify(func(s Sink) { s.OnDisconnected(c, opErr) })
}

func (c *socketConnection) receiveLoop() {
	for {
		if c.State() != StateOpen || c.transport.CloseCode() != CloseInvalid {
			c.logger.Debugf("receive loop stopped in state %s", c.State())
			c.transportClosed()
			return
		}

		m, err := c.transport.Receive(c.ctx)
		if err != nil {
			c.receiveFailed(err)
			return
		}

		c.messagesReceived.Add(1)
		c.dispatch(m)
	}
}

func (c *socketConnection) dispatch(m Message) {
	switch m.Type() {
	case TextMessage:
		c.notifyOpen(func(s Sink) { s.OnTextMessage(c, m.Text()) })
	case BinaryMessage:
		c.notifyOpen(func(s Sink) { s.OnBinaryMessage(c, m.Data()) })
	}
}

func (c *socketConnection) receiveFailed(err error) {
	if c.State() != StateOpen {
		// Closed locally while the receive was in flight.
		return
	}

	var ce *CloseError
	if errors.As(err, &ce) {
		c.logger.Infof("connection closed by peer: %d %s", ce.Code, ce.Reason)

		var cause error
		if !ce.Clean() {
			cause = ce
		}

		c.terminate(cause)
		return
	}

	opErr := newOpError("receive", ErrReceiveFailed, err)
	c.logger.Errorf("%s", opErr)

	c.notifyOpen(func(s Sink) { s.OnError(c, opErr) })
	c.terminate(opErr)
}

// terminate ends an open connection after a peer close or a receive failure.
func (c *socketConnection) terminate(cause error) {
	if !c.transition(StateOpen, StateClosed) {
		return
	}

	c.release()
	c.markDone()
	c.notify(func(s Sink) { s.OnDisconnected(c, cause) })
}

// transportClosed ends an open connection whose transport closed without the
// receive loop observing an error. The recorded close code decides the cause.
func (c *socketConnection) transportClosed() {
	var cause error

	if code := c.transport.CloseCode(); code != CloseInvalid {
		if ce := (&CloseError{Code: code}); !ce.Clean() {
			cause = ce
		}
	}

	c.terminate(cause)
}

func (c *socketConnection) finishDisconnect() {
	c.release()

	if !c.transition(StateClosing, StateClosed) {
		return
	}

	c.markDone()
	c.logger.Infof("disconnected from %s", c.address)
	c.notify(func(s Sink) { s.OnDisconnected(c, nil) })
}

// halt stops the keep-alive loop and the writer.
func (c *socketConnection) halt() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// release closes the transport and cancels every pending transport call.
func (c *socketConnection) release() {
	c.halt()

	if err := c.transport.Close(CloseGoingAway, ""); err != nil {
		c.logger.Debugf("closing transport: %s", err)
	}

	c.cancel()
}

func (c *socketConnection) markDone() {
	c.doneOnce.Do(func() {
		close(c.done)
		c.emitter.Close()
	})
}

func (c *socketConnection) transition(from, to State) bool {
	if !c.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}

	c.logger.Debugf("state %s -> %s", from, to)
	c.emitter.Emit(to, Transition{From: from, To: to})

	return true
}

func (c *socketConnection) notify(fn func(Sink)) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	fn(c.sink)
}

// notifyOpen drops the notification unless the connection is still open.
func (c *socketConnection) notifyOpen(fn func(Sink)) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	if c.State() != StateOpen {
		return
	}

	fn(c.sink)
}


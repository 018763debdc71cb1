package wsconn

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ConnectionFactory builds a fresh, unconnected Connection reporting to sink.
type ConnectionFactory func(sink Sink) (Connection, error)

// Redialer keeps a logical session up by building a new Connection every time
// the previous one ends with an error. Connections never reconnect on their
// own; this is the caller-side policy layered on top of them.
//
// Every notification of every connection is forwarded to the wrapped sink.
type Redialer struct {
	factory      ConnectionFactory
	sink         Sink
	calculator   BackoffCalculator
	healthyAfter time.Duration
	logger       Logger

	mu       sync.Mutex
	current  Connection
	attempts int
	openedAt time.Time

	closeC    chan struct{}
	closeOnce sync.Once
}

// NewRedialer returns a Redialer. A connection that stayed open for longer
// than healthyAfter resets the attempt counter fed to calculator.
func NewRedialer(
	logger Logger,
	factory ConnectionFactory,
	sink Sink,
	calculator BackoffCalculator,
	healthyAfter time.Duration,
) *Redialer {
	if logger == nil {
		logger = NopLogger()
	}
	if sink == nil {
		sink = SinkFuncs{}
	}
	return &Redialer{
		factory:      factory,
		sink:         sink,
		calculator:   calculator,
		healthyAfter: healthyAfter,
		logger:       logger.WithField("type", "redialer"),
		closeC:       make(chan struct{}),
	}
}

// Start builds and connects the first connection.
func (r *Redialer) Start() error {
	return r.dial()
}

// Current returns the most recent connection, or nil before Start.
func (r *Redialer) Current() Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.current
}

// Close disconnects the current connection and stops redialing.
func (r *Redialer) Close() {
	r.closeOnce.Do(func() {
		close(r.closeC)

		if c := r.Current(); c != nil {
			c.Disconnect()
		}
	})
}

func (r *Redialer) closed() bool {
	select {
	case <-r.closeC:
		return true
	default:
		return false
	}
}

func (r *Redialer) dial() error {
	if r.closed() {
		return ErrConnectionClosed
	}

	conn, err := r.factory(redialSink{r})
	if err != nil {
		return errors.Wrap(err, "cannot build connection")
	}

	r.mu.Lock()
	r.current = conn
	r.mu.Unlock()

	// Close may have run between the first check and the assignment above.
	if r.closed() {
		conn.Disconnect()
		return ErrConnectionClosed
	}

	conn.Connect()

	return nil
}

func (r *Redialer) connected() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.openedAt = time.Now()
}

func (r *Redialer) disconnected(err error) {
	if err == nil || r.closed() {
		return
	}

	r.mu.Lock()
	if !r.openedAt.IsZero() && time.Since(r.openedAt) > r.healthyAfter {
		r.attempts = 0
	}
	r.attempts++
	r.openedAt = time.Time{}
	ttw := r.calculator(r.attempts)
	attempts := r.attempts
	r.mu.Unlock()

	r.logger.Infof("retrying to connect after %s due to %s (attempt %d)", ttw, err, attempts)

	go func() {
		timer := time.NewTimer(ttw)
		defer timer.Stop()

		select {
		case <-r.closeC:
			return
		case <-timer.C:
		}

		if err := r.dial(); err != nil {
			r.logger.Errorf("redial failed: %s", err)
		}
	}()
}

// redialSink forwards to the user sink and drives the redial policy.
type redialSink struct {
	r *Redialer
}

func (s redialSink) OnConnected(c Connection) {
	s.r.connected()
	s.r.sink.OnConnected(c)
}

func (s redialSink) OnDisconnected(c Connection, err error) {
	s.r.sink.OnDisconnected(c, err)
	s.r.disconnected(err)
}

func (s redialSink) OnError(c Connection, err error) {
	s.r.sink.OnError(c, err)
}

func (s redialSink) OnTextMessage(c Connection, text string) {
	s.r.sink.OnTextMessage(c, text)
}

func (s redialSink) OnBinaryMessage(c Connection, data []byte) {
	s.r.sink.OnBinaryMessage(c, data)
}

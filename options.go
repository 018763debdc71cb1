package wsconn

import (
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultPingInterval is the delay between keep-alive pings.
	DefaultPingInterval = 10 * time.Second
	// DefaultSendQueueSize bounds the number of outbound frames waiting for the writer.
	DefaultSendQueueSize = 64
)

// Option configures a Connection and returns an error if the value is invalid.
type Option func(*options) error

type options struct {
	transport     Transport
	logger        Logger
	pingInterval  time.Duration
	pingTimeout   time.Duration
	sendQueueSize int
}

func defaultOptions() options {
	return options{
		logger:        NopLogger(),
		pingInterval:  DefaultPingInterval,
		sendQueueSize: DefaultSendQueueSize,
	}
}

// WithTransport sets the transport handle the connection will own. The handle
// must be fresh: transports cannot be reopened once closed.
func WithTransport(t Transport) Option {
	return func(o *options) error {
		if t == nil {
			return errors.Wrap(ErrInvalidOption, "transport cannot be nil")
		}

		o.transport = t

		return nil
	}
}

// WithLogger sets the logger. Connections add a "conn" field with their id.
func WithLogger(l Logger) Option {
	return func(o *options) error {
		if l == nil {
			return errors.Wrap(ErrInvalidOption, "logger cannot be nil")
		}

		o.logger = l

		return nil
	}
}

// WithPingInterval sets the keep-alive period. Zero disables keep-alive pings.
func WithPingInterval(interval time.Duration) Option {
	return func(o *options) error {
		if interval < 0 {
			return errors.Wrapf(ErrInvalidOption, "ping interval cannot be negative: %v", interval)
		}

		o.pingInterval = interval

		return nil
	}
}

// WithPingTimeout bounds each ping. It defaults to the ping interval.
func WithPingTimeout(timeout time.Duration) Option {
	return func(o *options) error {
		if timeout <= 0 {
			return errors.Wrapf(ErrInvalidOption, "ping timeout must be positive: %v", timeout)
		}

		o.pingTimeout = timeout

		return nil
	}
}

// WithSendQueueSize sets how many frames SendText and SendBinary may buffer
// before further sends fail with ErrSendQueueFull.
func WithSendQueueSize(size int) Option {
	return func(o *options) error {
		if size <= 0 {
			return errors.Wrapf(ErrInvalidOption, "send queue size must be positive: %d", size)
		}

		o.sendQueueSize = size

		return nil
	}
}

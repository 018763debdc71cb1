package wsconn

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"time"
)

// CloseCode is a WebSocket close status code (RFC 6455 section 7.4).
type CloseCode int

const (
	// CloseInvalid means the transport has not been closed yet.
	CloseInvalid           CloseCode = 0
	CloseNormalClosure     CloseCode = 1000
	CloseGoingAway         CloseCode = 1001
	CloseProtocolError     CloseCode = 1002
	CloseUnsupportedData   CloseCode = 1003
	CloseNoStatusReceived  CloseCode = 1005
	CloseAbnormalClosure   CloseCode = 1006
	CloseInternalServerErr CloseCode = 1011
)

type (
	// Transport is a single full-duplex WebSocket handle. Handshake, framing,
	// masking and TLS live behind it.
	//
	// Receive is called from one goroutine at a time. SendText, SendBinary,
	// Ping and Close may be called concurrently with Receive and with each
	// other; implementations serialize their own writes.
	Transport interface {
		// Open performs the opening handshake against address and blocks until it
		// completes or ctx is done.
		Open(ctx context.Context, address string) error
		// Close sends a close frame with code and reason and releases the
		// underlying connection. Calling it more than once is a no-op.
		Close(code CloseCode, reason string) error
		SendText(ctx context.Context, text string) error
		SendBinary(ctx context.Context, data []byte) error
		// Receive blocks until the next text or binary frame arrives. A close
		// frame from the peer is reported as *CloseError.
		Receive(ctx context.Context) (Message, error)
		// Ping writes a ping control frame.
		Ping(ctx context.Context) error
		// CloseCode returns CloseInvalid until the transport is closed by either side.
		CloseCode() CloseCode
	}

	// DialConfig carries the handshake and I/O settings shared by every
	// Transport implementation. Zero values fall back to library defaults.
	DialConfig struct {
		Header            http.Header                           // Extra handshake headers.
		Params            OpenConnectionParamsRepo              // Resolves URL and headers per handshake; overrides Header.
		HandshakeTimeout  time.Duration                         // Upper bound for the opening handshake.
		WriteTimeout      time.Duration                         // Deadline applied to each write.
		Subprotocols      []string                              // Offered subprotocols.
		ReadLimit         int64                                 // Max inbound message size; 0 for no limit.
		EnableCompression bool                                  // RFC 7692 per-message compression.
		TLSClientConfig   *tls.Config                           // nil uses system defaults.
		Proxy             func(*http.Request) (*url.URL, error) // nil disables proxying.
		PingPayload       []byte                                // Application data carried by pings.
		Logger            Logger
	}
)

const (
	DefaultHandshakeTimeout = 30 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
)

// DefaultDialConfig returns a DialConfig with the default handshake and write
// timeouts, an empty header and a no-op logger.
func DefaultDialConfig() DialConfig {
	return DialConfig{
		Header:           make(http.Header),
		HandshakeTimeout: DefaultHandshakeTimeout,
		WriteTimeout:     DefaultWriteTimeout,
		Logger:           NopLogger(),
	}
}

func (c DialConfig) withDefaults() DialConfig {
	if c.Header == nil {
		c.Header = make(http.Header)
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.Logger == nil {
		c.Logger = NopLogger()
	}
	if c.Params.getter == nil {
		c.Params = NewStaticOpenConnectionParamsRepo(c.Logger, c.Header)
	}
	return c
}

// writeDeadline picks the earlier of the ctx deadline and now+timeout.
func writeDeadline(ctx context.Context, timeout time.Duration) time.Time {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		return d
	}
	return deadline
}

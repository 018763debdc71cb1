package wsconn

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/pkg/errors"
)

// coderTransport implements Transport on top of github.com/coder/websocket.
//
// Ping waits for the matching pong, which coder/websocket only observes while a
// Read is in progress; the receive loop of Connection provides that reader.
type coderTransport struct {
	cfg    DialConfig
	logger Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	closeCode atomic.Int32
	closeOnce sync.Once
}

// NewCoderTransport returns a Transport backed by github.com/coder/websocket.
// A zero ReadLimit keeps the library default of 32 KiB.
func NewCoderTransport(cfg DialConfig) Transport {
	cfg = cfg.withDefaults()
	return &coderTransport{
		cfg:    cfg,
		logger: cfg.Logger.WithField("transport", "coder"),
	}
}

func (t *coderTransport) dialOptions(p OpenConnectionParams) *websocket.DialOptions {
	opts := &websocket.DialOptions{
		HTTPHeader:   p.Header,
		Subprotocols: t.cfg.Subprotocols,
	}

	if t.cfg.EnableCompression {
		opts.CompressionMode = websocket.CompressionContextTakeover
	}

	if t.cfg.TLSClientConfig != nil || t.cfg.Proxy != nil {
		opts.HTTPClient = &http.Client{
			Transport: &http.Transport{
				Proxy:           t.cfg.Proxy,
				TLSClientConfig: t.cfg.TLSClientConfig,
			},
		}
	}

	return opts
}

func (t *coderTransport) Open(ctx context.Context, address string) error {
	if t.CloseCode() != CloseInvalid {
		return ErrConnectionClosed
	}

	p, err := t.cfg.Params.Get(ctx, address)
	if err != nil {
		return errors.Wrap(ErrCannotConnect, err.Error())
	}

	// coder/websocket rejects http.Client timeouts; bound the handshake with ctx.
	dialCtx, cancel := context.WithTimeout(ctx, t.cfg.HandshakeTimeout)
	defer cancel()

	conn, resp, err := websocket.Dial(dialCtx, p.URL.String(), t.dialOptions(p))
	if err = handleDialError(resp, err); err != nil {
		t.logger.Errorf("connection err to %s: %s", p.URL.String(), err)
		return err
	}

	if t.cfg.ReadLimit > 0 {
		conn.SetReadLimit(t.cfg.ReadLimit)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.CloseCode() != CloseInvalid {
		_ = conn.CloseNow()
		return ErrConnectionClosed
	}

	t.conn = conn
	t.logger.Debugf("success opening connection to %s", p.URL.String())

	return nil
}

func (t *coderTransport) Receive(ctx context.Context) (Message, error) {
	conn := t.current()
	if conn == nil {
		return nil, ErrConnectionClosed
	}

	typ, bts, err := conn.Read(ctx)
	if err != nil {
		return nil, t.readError(err)
	}

	if typ == websocket.MessageBinary {
		t.logger.Debugf("<= [BIN] %d bytes", len(bts))
		return newMessage(BinaryMessage, bts), nil
	}

	t.logger.Debugf("<= [TEXT] %s", bts)
	return newMessage(TextMessage, bts), nil
}

func (t *coderTransport) readError(err error) error {
	var ce websocket.CloseError
	if errors.As(err, &ce) {
		t.closeCode.CompareAndSwap(int32(CloseInvalid), int32(ce.Code))
		return &CloseError{Code: CloseCode(ce.Code), Reason: ce.Reason}
	}

	if t.CloseCode() != CloseInvalid {
		return errors.Wrap(ErrConnectionClosed, err.Error())
	}

	t.closeCode.CompareAndSwap(int32(CloseInvalid), int32(CloseAbnormalClosure))
	return err
}

func (t *coderTransport) SendText(ctx context.Context, text string) error {
	t.logger.Debugf("=> [TEXT] %s", text)
	return t.write(ctx, websocket.MessageText, []byte(text))
}

func (t *coderTransport) SendBinary(ctx context.Context, data []byte) error {
	t.logger.Debugf("=> [BIN] %d bytes", len(data))
	return t.write(ctx, websocket.MessageBinary, data)
}

func (t *coderTransport) write(ctx context.Context, typ websocket.MessageType, data []byte) error {
	conn := t.current()
	if conn == nil || t.CloseCode() != CloseInvalid {
		return ErrConnectionClosed
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.WriteTimeout)
	defer cancel()

	return conn.Write(ctx, typ, data)
}

func (t *coderTransport) Ping(ctx context.Context) error {
	conn := t.current()
	if conn == nil || t.CloseCode() != CloseInvalid {
		return ErrConnectionClosed
	}

	t.logger.Debugln("=> [PING]")

	ctx, cancel := context.WithTimeout(ctx, t.cfg.WriteTimeout)
	defer cancel()

	return conn.Ping(ctx)
}

func (t *coderTransport) Close(code CloseCode, reason string) (err error) {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closeCode.CompareAndSwap(int32(CloseInvalid), int32(code))
		conn := t.conn
		t.mu.Unlock()

		if conn == nil {
			return
		}

		t.logger.Debugf("=> [CLOSE] %d %s", code, reason)
		if err = conn.Close(websocket.StatusCode(code), reason); err != nil {
			_ = conn.CloseNow()
		}
	})

	return err
}

func (t *coderTransport) CloseCode() CloseCode {
	return CloseCode(t.closeCode.Load())
}

func (t *coderTransport) current() *websocket.Conn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.conn
}

package wsconn

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// Frame opcodes, identical in every gorilla-derived library.
const (
	opText   = 1
	opBinary = 2
	opClose  = 8
	opPing   = 9
)

const closeWriteTimeout = time.Second

type (
	// frameConn is the *Conn API shared by github.com/gorilla/websocket and its
	// fork github.com/fasthttp/websocket.
	frameConn interface {
		ReadMessage() (messageType int, p []byte, err error)
		WriteMessage(messageType int, data []byte) error
		WriteControl(messageType int, data []byte, deadline time.Time) error
		SetReadDeadline(t time.Time) error
		SetWriteDeadline(t time.Time) error
		SetReadLimit(limit int64)
		SetCloseHandler(h func(code int, text string) error)
		Close() error
	}

	// frameProtocol binds frameTransport to one concrete library.
	frameProtocol struct {
		dial        func(ctx context.Context, cfg DialConfig, p OpenConnectionParams) (frameConn, *http.Response, error)
		closeError  func(err error) (code int, text string, ok bool)
		formatClose func(code int, text string) []byte
	}

	// frameTransport implements Transport on top of a gorilla-style connection.
	// It owns a single connection for its whole life: once closed it cannot be
	// reopened.
	frameTransport struct {
		cfg    DialConfig
		proto  frameProtocol
		logger Logger

		mu        sync.RWMutex
		conn      frameConn
		writeMu   sync.Mutex
		closeCode atomic.Int32
		closeOnce sync.Once
	}
)

func newFrameTransport(name string, cfg DialConfig, proto frameProtocol) *frameTransport {
	cfg = cfg.withDefaults()
	return &frameTransport{
		cfg:    cfg,
		proto:  proto,
		logger: cfg.Logger.WithField("transport", name),
	}
}

func (t *frameTransport) Open(ctx context.Context, address string) error {
	if t.CloseCode() != CloseInvalid {
		return ErrConnectionClosed
	}

	p, err := t.cfg.Params.Get(ctx, address)
	if err != nil {
		return errors.Wrap(ErrCannotConnect, err.Error())
	}

	conn, resp, err := t.proto.dial(ctx, t.cfg, p)
	if err = handleDialError(resp, err); err != nil {
		t.logger.Errorf("connection err to %s: %s", p.URL.String(), err)
		return err
	}

	if t.cfg.ReadLimit > 0 {
		conn.SetReadLimit(t.cfg.ReadLimit)
	}

	// Record the peer's close code before ReadMessage surfaces the close error,
	// then echo the close frame like the library default does.
	conn.SetCloseHandler(func(code int, text string) error {
		t.logger.Debugf("<= [CLOSE] %d %s", code, text)
		t.closeCode.CompareAndSwap(int32(CloseInvalid), int32(code))
		msg := t.proto.formatClose(code, "")
		_ = conn.WriteControl(opClose, msg, time.Now().Add(closeWriteTimeout))
		return nil
	})

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.CloseCode() != CloseInvalid {
		// Close raced with the handshake.
		_ = conn.Close()
		return ErrConnectionClosed
	}

	t.conn = conn
	t.logger.Debugf("success opening connection to %s", p.URL.String())

	return nil
}

func (t *frameTransport) Receive(ctx context.Context) (Message, error) {
	conn := t.current()
	if conn == nil {
		return nil, ErrConnectionClosed
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		messageType, bts, err := conn.ReadMessage()
		if err != nil {
			return nil, t.readError(err)
		}

		switch messageType {
		case opText:
			t.logger.Debugf("<= [TEXT] %s", bts)
			return newMessage(TextMessage, bts), nil
		case opBinary:
			t.logger.Debugf("<= [BIN] %d bytes", len(bts))
			return newMessage(BinaryMessage, bts), nil
		}
	}
}

func (t *frameTransport) readError(err error) error {
	if code, text, ok := t.proto.closeError(err); ok {
		t.closeCode.CompareAndSwap(int32(CloseInvalid), int32(code))
		return &CloseError{Code: CloseCode(code), Reason: text}
	}

	if t.CloseCode() != CloseInvalid {
		return errors.Wrap(ErrConnectionClosed, err.Error())
	}

	t.closeCode.CompareAndSwap(int32(CloseInvalid), int32(CloseAbnormalClosure))
	return err
}

func (t *frameTransport) SendText(ctx context.Context, text string) error {
	t.logger.Debugf("=> [TEXT] %s", text)
	return t.write(ctx, opText, []byte(text))
}

func (t *frameTransport) SendBinary(ctx context.Context, data []byte) error {
	t.logger.Debugf("=> [BIN] %d bytes", len(data))
	return t.write(ctx, opBinary, data)
}

func (t *frameTransport) write(ctx context.Context, op int, data []byte) error {
	conn := t.current()
	if conn == nil || t.CloseCode() != CloseInvalid {
		return ErrConnectionClosed
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := conn.SetWriteDeadline(writeDeadline(ctx, t.cfg.WriteTimeout)); err != nil {
		return err
	}

	return conn.WriteMessage(op, data)
}

func (t *frameTransport) Ping(ctx context.Context) error {
	conn := t.current()
	if conn == nil || t.CloseCode() != CloseInvalid {
		return ErrConnectionClosed
	}

	t.logger.Debugln("=> [PING]")
	return conn.WriteControl(opPing, t.cfg.PingPayload, writeDeadline(ctx, t.cfg.WriteTimeout))
}

func (t *frameTransport) Close(code CloseCode, reason string) (err error) {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closeCode.CompareAndSwap(int32(CloseInvalid), int32(code))
		conn := t.conn
		t.mu.Unlock()

		if conn == nil {
			return
		}

		t.logger.Debugf("=> [CLOSE] %d %s", code, reason)
		msg := t.proto.formatClose(int(code), reason)
		_ = conn.WriteControl(opClose, msg, time.Now().Add(closeWriteTimeout))
		err = conn.Close()
	})

	return err
}

func (t *frameTransport) CloseCode() CloseCode {
	return CloseCode(t.closeCode.Load())
}

func (t *frameTransport) current() frameConn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.conn
}

// handleDialError classifies a failed handshake. HTTP 429 becomes
// ErrRateLimit, everything else ErrCannotConnect.
func handleDialError(resp *http.Response, err error) error {
	if err == nil {
		return nil
	}

	var msg string

	if resp != nil {
		if resp.Body != nil {
			bts, rerr := io.ReadAll(io.LimitReader(resp.Body, 4096))
			if rerr == nil {
				msg = string(bts)
			}
			_ = resp.Body.Close()
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return errors.Wrap(ErrRateLimit, msg)
		}
		return errors.Wrapf(ErrCannotConnect, "status %d: %s: %s", resp.StatusCode, err, msg)
	}

	return errors.Wrap(ErrCannotConnect, err.Error())
}

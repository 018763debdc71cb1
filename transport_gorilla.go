package wsconn

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// NewGorillaTransport returns a Transport backed by github.com/gorilla/websocket.
func NewGorillaTransport(cfg DialConfig) Transport {
	return newFrameTransport("gorilla", cfg, frameProtocol{
		dial:        dialGorilla,
		closeError:  gorillaCloseError,
		formatClose: websocket.FormatCloseMessage,
	})
}

func dialGorilla(ctx context.Context, cfg DialConfig, p OpenConnectionParams) (frameConn, *http.Response, error) {
	dialer := &websocket.Dialer{
		Proxy:             cfg.Proxy,
		TLSClientConfig:   cfg.TLSClientConfig,
		HandshakeTimeout:  cfg.HandshakeTimeout,
		Subprotocols:      cfg.Subprotocols,
		EnableCompression: cfg.EnableCompression,
	}

	conn, resp, err := dialer.DialContext(ctx, p.URL.String(), p.Header)
	if err != nil {
		return nil, resp, err
	}

	return conn, resp, nil
}

func gorillaCloseError(err error) (int, string, bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text, true
	}
	return 0, "", false
}

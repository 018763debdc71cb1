package wsconn

import (
	"context"
	"net/http"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
)

// NewFastHTTPTransport returns a Transport backed by github.com/fasthttp/websocket.
// It is the default transport of New.
func NewFastHTTPTransport(cfg DialConfig) Transport {
	return newFrameTransport("fasthttp", cfg, frameProtocol{
		dial:        dialFastHTTP,
		closeError:  fastHTTPCloseError,
		formatClose: websocket.FormatCloseMessage,
	})
}

func dialFastHTTP(ctx context.Context, cfg DialConfig, p OpenConnectionParams) (frameConn, *http.Response, error) {
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

func fastHTTPCloseError(err error) (int, string, bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text, true
	}
	return 0, "", false
}

package main

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/sonirico/wsconn"
	"github.com/spf13/cobra"
)

const (
	transportFastHTTP = "fasthttp"
	transportGorilla  = "gorilla"
	transportCoder    = "coder"

	// A connection that stayed up this long resets the reconnect backoff.
	healthyAfter = time.Minute
	// Upper bound for the closing handshake after an interrupt.
	shutdownTimeout = 5 * time.Second
)

type connectConfig struct {
	transport    string
	pingInterval time.Duration
	headers      []string
	reconnect    bool
	maxBackoff   time.Duration
	json         bool
	verbose      bool
}

func newConnectCmd(defaults connectConfig) *cobra.Command {
	cfg := defaults

	cmd := &cobra.Command{
		Use:   "connect <url>",
		Short: "Connect to a WebSocket server and stream its frames",
		Long: `Connect to a ws:// or wss:// URL. Every received frame and lifecycle event is
printed to stdout; every line read from stdin is sent as a text frame.

Defaults are read from WSCONN_* variables, also loaded from a .env file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(cmd.Context(), cfg, args[0], cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.transport, "transport", cfg.transport, "WebSocket library: fasthttp, gorilla or coder")
	flags.DurationVar(&cfg.pingInterval, "ping-interval", cfg.pingInterval, "Keep-alive ping period, 0 disables pings")
	flags.StringArrayVarP(&cfg.headers, "header", "H", cfg.headers, "Handshake header as 'Key: Value' (repeatable)")
	flags.BoolVar(&cfg.reconnect, "reconnect", cfg.reconnect, "Reconnect with exponential backoff after an abnormal disconnect")
	flags.DurationVar(&cfg.maxBackoff, "max-backoff", cfg.maxBackoff, "Longest wait between reconnect attempts")
	flags.BoolVar(&cfg.json, "json", cfg.json, "Print events as JSON lines")
	flags.BoolVarP(&cfg.verbose, "verbose", "v", cfg.verbose, "Log frames and state transitions to stderr")

	return cmd
}

func runConnect(ctx context.Context, cfg connectConfig, address string, in io.Reader, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	header, err := parseHeaders(cfg.headers)
	if err != nil {
		return err
	}

	newTransport, err := transportFactory(cfg.transport)
	if err != nil {
		return err
	}

	logger := newLogger(errOut, cfg.verbose)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := newSessionSink(newPrinter(out, cfg.json), cfg.reconnect)

	factory := func(s wsconn.Sink) (wsconn.Connection, error) {
		dc := wsconn.DefaultDialConfig()
		dc.Header = header
		dc.Logger = logger

		return wsconn.New(address, s,
			wsconn.WithTransport(newTransport(dc)),
			wsconn.WithLogger(logger),
			wsconn.WithPingInterval(cfg.pingInterval),
		)
	}

	var (
		current    func() wsconn.Connection
		disconnect func()
	)

	if cfg.reconnect {
		backoff := wsconn.CappedBackoff(wsconn.ExponentialBackoffSeconds, cfg.maxBackoff)
		r := wsconn.NewRedialer(logger, factory, sink, backoff, healthyAfter)

		if err := r.Start(); err != nil {
			return err
		}

		current, disconnect = r.Current, r.Close
	} else {
		c, err := factory(sink)
		if err != nil {
			return err
		}

		c.Connect()

		current, disconnect = func() wsconn.Connection { return c }, c.Disconnect
	}

	go forwardLines(ctx, in, sink.connected, current)

	select {
	case err := <-sink.ended:
		return err
	case <-ctx.Done():
	}

	disconnect()

	select {
	case <-sink.ended:
	case <-time.After(shutdownTimeout):
		logger.Warnf("closing handshake did not finish within %s", shutdownTimeout)
	}

	return nil
}

// forwardLines sends every stdin line as a text frame once the first
// connection is up.
func forwardLines(ctx context.Context, in io.Reader, connected <-chan struct{}, current func() wsconn.Connection) {
	select {
	case <-connected:
	case <-ctx.Done():
		return
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		if c := current(); c != nil {
			c.SendText(scanner.Text())
		}
	}
}

func parseHeaders(lines []string) (http.Header, error) {
	header := make(http.Header)

	for _, line := range lines {
		key, value, ok := strings.Cut(line, ":")
		key = strings.TrimSpace(key)

		if !ok || key == "" {
			return nil, errors.Errorf("invalid header %q, expected 'Key: Value'", line)
		}

		header.Add(key, strings.TrimSpace(value))
	}

	return header, nil
}

func transportFactory(name string) (func(wsconn.DialConfig) wsconn.Transport, error) {
	switch strings.ToLower(name) {
	case "", transportFastHTTP:
		return wsconn.NewFastHTTPTransport, nil
	case transportGorilla:
		return wsconn.NewGorillaTransport, nil
	case transportCoder:
		return wsconn.NewCoderTransport, nil
	default:
		return nil, errors.Errorf("unknown transport %q", name)
	}
}

func newLogger(w io.Writer, verbose bool) wsconn.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	zl := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Logger()

	return wsconn.NewZerologLogger(zl)
}

// sessionSink ends the session on the first disconnect that will not be
// followed by a reconnect.
type sessionSink struct {
	wsconn.Sink
	reconnect bool

	connected     chan struct{}
	connectedOnce sync.Once
	ended         chan error
}

func newSessionSink(next wsconn.Sink, reconnect bool) *sessionSink {
	return &sessionSink{
		Sink:      next,
		reconnect: reconnect,
		connected: make(chan struct{}),
		ended:     make(chan error, 1),
	}
}

func (s *sessionSink) OnConnected(c wsconn.Connection) {
	s.Sink.OnConnected(c)
	s.connectedOnce.Do(func() { close(s.connected) })
}

func (s *sessionSink) OnDisconnected(c wsconn.Connection, err error) {
	s.Sink.OnDisconnected(c, err)

	if err != nil && s.reconnect {
		return
	}

	select {
	case s.ended <- err:
	default:
	}
}

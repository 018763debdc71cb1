package wsconn

import "weak"

type (
	// Sink observes one or more connections. Notifications for a single
	// connection never overlap, but they arrive on goroutines owned by the
	// connection, never on the caller of Connect. A Sink may call Disconnect,
	// SendText or SendBinary from inside any callback.
	Sink interface {
		// OnConnected is called once the opening handshake completes, before
		// any other notification of a successful connection.
		OnConnected(c Connection)
		// OnDisconnected is called exactly once per connection that got past
		// Connect. err is nil for a local Disconnect or a clean close by the peer.
		OnDisconnected(c Connection, err error)
		// OnError reports handshake, send and receive failures.
		OnError(c Connection, err error)
		OnTextMessage(c Connection, text string)
		OnBinaryMessage(c Connection, data []byte)
	}

	// SinkFuncs adapts plain functions to a Sink. Nil fields are skipped.
	SinkFuncs struct {
		Connected     func(c Connection)
		Disconnected  func(c Connection, err error)
		Error         func(c Connection, err error)
		TextMessage   func(c Connection, text string)
		BinaryMessage func(c Connection, data []byte)
	}
)

func (f SinkFuncs) OnConnected(c Connection) {
	if f.Connected != nil {
		f.Connected(c)
	}
}

func (f SinkFuncs) OnDisconnected(c Connection, err error) {
	if f.Disconnected != nil {
		f.Disconnected(c, err)
	}
}

func (f SinkFuncs) OnError(c Connection, err error) {
	if f.Error != nil {
		f.Error(c, err)
	}
}

func (f SinkFuncs) OnTextMessage(c Connection, text string) {
	if f.TextMessage != nil {
		f.TextMessage(c, text)
	}
}

func (f SinkFuncs) OnBinaryMessage(c Connection, data []byte) {
	if f.BinaryMessage != nil {
		f.BinaryMessage(c, data)
	}
}

// weakSink forwards to a target that the connection does not keep alive.
type weakSink[T any, P interface {
	*T
	Sink
}] struct {
	ref weak.Pointer[T]
}

// WeakSink wraps target without retaining it. Once target has been garbage
// collected every notification becomes a no-op, so a long-lived connection
// never pins the object observing it.
func WeakSink[T any, P interface {
	*T
	Sink
}](target P) Sink {
	return weakSink[T, P]{ref: weak.Make((*T)(target))}
}

func (w weakSink[T, P]) get() Sink {
	if p := w.ref.Value(); p != nil {
		return P(p)
	}
	return nil
}

func (w weakSink[T, P]) OnConnected(c Connection) {
	if s := w.get(); s != nil {
		s.OnConnected(c)
	}
}

func (w weakSink[T, P]) OnDisconnected(c Connection, err error) {
	if s := w.get(); s != nil {
		s.OnDisconnected(c, err)
	}
}

func (w weakSink[T, P]) OnError(c Connection, err error) {
	if s := w.get(); s != nil {
		s.OnError(c, err)
	}
}

func (w weakSink[T, P]) OnTextMessage(c Connection, text string) {
	if s := w.get(); s != nil {
		s.OnTextMessage(c, text)
	}
}

func (w weakSink[T, P]) OnBinaryMessage(c Connection, data []byte) {
	if s := w.get(); s != nil {
		s.OnBinaryMessage(c, data)
	}
}

package wsconn

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrConnectionClosed = errors.New("connection has been closed")
	ErrCannotConnect    = errors.New("connection cannot be established")
	ErrRateLimit        = errors.New("rate limit exceeded")
	ErrSendFailed       = errors.New("message could not be sent")
	ErrSendQueueFull    = errors.New("send queue is full")
	ErrReceiveFailed    = errors.New("message could not be received")
	ErrPingFailed       = errors.New("keep-alive ping failed")
	ErrInvalidOption    = errors.New("invalid option")
)

// CloseError is returned by Transport.Receive when the peer sent a close frame.
type CloseError struct {
	Code   CloseCode
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("connection closed by peer: code=%d reason=%q", e.Code, e.Reason)
}

// Is makes every CloseError match ErrConnectionClosed.
func (e *CloseError) Is(target error) bool {
	return target == ErrConnectionClosed
}

// Clean reports whether the peer closed the connection on purpose.
func (e *CloseError) Clean() bool {
	return e.Code == CloseNormalClosure || e.Code == CloseGoingAway
}

// OpError describes a failed connection operation. It matches both its
// Kind sentinel and the underlying cause through errors.Is and errors.As.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Err)
}

func (e *OpError) Unwrap() []error { return []error{e.Kind, e.Err} }

func newOpError(op string, kind, err error) *OpError {
	return &OpError{Op: op, Kind: kind, Err: err}
}

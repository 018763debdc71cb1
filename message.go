package wsconn

import "fmt"

type MessageType byte

const (
	TextMessage   MessageType = 1
	BinaryMessage MessageType = 2
)

func (t MessageType) Is(other MessageType) bool {
	return t == other
}

func (t MessageType) IsText() bool {
	return t.Is(TextMessage)
}

func (t MessageType) IsBinary() bool {
	return t.Is(BinaryMessage)
}

func (t MessageType) String() string {
	switch t {
	case TextMessage:
		return "text"
	case BinaryMessage:
		return "binary"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

// Message is one frame exchanged over a transport: either UTF-8 text or raw bytes.
type Message interface {
	Type() MessageType
	// Data returns a copy of the payload.
	Data() []byte
	// Text returns the payload as a string.
	Text() string
	String() string
}

type message struct {
	messageType MessageType
	payload     string
}

func (m message) Type() MessageType {
	return m.messageType
}

func (m message) Data() []byte {
	return []byte(m.payload)
}

func (m message) Text() string {
	return m.payload
}

func (m message) String() string {
	if m.messageType.IsBinary() {
		return fmt.Sprintf("Message{type=%s,size=%d}", m.messageType, len(m.payload))
	}
	return fmt.Sprintf("Message{type=%s,data=%s}", m.messageType, m.payload)
}

func NewTextMessage(text string) Message {
	return message{messageType: TextMessage, payload: text}
}

// NewBinaryMessage copies data, so the caller may reuse its buffer.
func NewBinaryMessage(data []byte) Message {
	return message{messageType: BinaryMessage, payload: string(data)}
}

func newMessage(mt MessageType, data []byte) Message {
	return message{messageType: mt, payload: string(data)}
}

package protocol

import "encoding/json"

// Message is one decoded inbound frame. The variant set is closed: every
// frame decodes to exactly one of Onlines, Connected, ErrorMessage or
// AppMessage, or fails to decode.
type Message interface {
	message()
}

// Onlines acknowledges a heartbeat probe. It is consumed internally and
// never forwarded to the consumer.
type Onlines struct {
	Online []uint64 `json:"online"`
}

// Connected is the control frame acknowledging a successful handshake.
type Connected struct {
	Connected bool   `json:"connected"`
	Version   string `json:"v"`
}

// ErrorMessage is the control frame carrying a remote error code.
type ErrorMessage struct {
	Code int `json:"error"`
}

// AppMessage is an application frame: a tagged payload the consumer
// interprets. The core only classifies the tag and hands the payload over
// opaquely.
type AppMessage struct {
	Tag     string
	Payload json.RawMessage
}

func (Onlines) message()      {}
func (Connected) message()    {}
func (ErrorMessage) message() {}
func (AppMessage) message()   {}

// Application tags known to the remote service. Order matters: decode
// tries them in this order.
const (
	TagPostPublished = "post_published"
	TagChatMessage   = "api2_chat_message"
	TagStories       = "stories"
	TagStream        = "stream"
	TagNotification  = "new_message"
)

var appTags = []string{
	TagPostPublished,
	TagChatMessage,
	TagStories,
	TagStream,
	TagNotification,
}

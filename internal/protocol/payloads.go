package protocol

import (
	"encoding/json"
	"fmt"
)

// Typed payload shapes for the known application tags. Decoding them is
// optional: the session layer forwards AppMessage payloads opaquely and
// consumers opt in per tag.

type PostPublished struct {
	ID     uint64 `json:"id,string"`
	UserID uint64 `json:"user_id,string"`
}

type User struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type ChatMessage struct {
	Text     string   `json:"text"`
	FromUser User     `json:"fromUser"`
	Price    *float64 `json:"price"`
}

type Story struct {
	ID     uint64 `json:"id"`
	UserID uint64 `json:"userId"`
}

type Stream struct {
	User User `json:"user"`
}

type Notification struct {
	User    User   `json:"user"`
	Type    string `json:"type"`
	SubType string `json:"sub_type"`
}

// DecodePayload unmarshals the message payload into v.
func (m AppMessage) DecodePayload(v any) error {
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("protocol: decode %s payload: %w", m.Tag, err)
	}
	return nil
}

package protocol

import (
	"errors"
	"testing"
)

func TestDecodeOnlines(t *testing.T) {
	msg, err := Decode([]byte(`{"online":[123,456]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	onlines, ok := msg.(Onlines)
	if !ok {
		t.Fatalf("expected Onlines, got %T", msg)
	}
	if len(onlines.Online) != 2 || onlines.Online[0] != 123 {
		t.Fatalf("unexpected payload: %+v", onlines)
	}
}

func TestDecodeEmptyOnlines(t *testing.T) {
	msg, err := Decode([]byte(`{"online":[]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := msg.(Onlines); !ok {
		t.Fatalf("expected Onlines, got %T", msg)
	}
}

func TestDecodeConnected(t *testing.T) {
	msg, err := Decode([]byte(`{"connected":true,"v":"1"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	connected, ok := msg.(Connected)
	if !ok {
		t.Fatalf("expected Connected, got %T", msg)
	}
	if !connected.Connected || connected.Version != "1" {
		t.Fatalf("unexpected payload: %+v", connected)
	}
}

func TestDecodeError(t *testing.T) {
	msg, err := Decode([]byte(`{"error":1}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	em, ok := msg.(ErrorMessage)
	if !ok {
		t.Fatalf("expected ErrorMessage, got %T", msg)
	}
	if em.Code != 1 {
		t.Fatalf("unexpected code: %d", em.Code)
	}
}

func TestDecodeAppMessages(t *testing.T) {
	cases := []struct {
		frame string
		tag   string
	}{
		{`{"post_published":{"id":"129720708","user_id":"15585607"}}`, TagPostPublished},
		{`{"api2_chat_message":{"text":"hi","fromUser":{"id":1,"name":"n","username":"u","avatar":""}}}`, TagChatMessage},
		{`{"stories":[{"id":1,"userId":2}]}`, TagStories},
		{`{"stream":{"user":{"id":1}}}`, TagStream},
		{`{"new_message":{"user":{"id":1},"type":"message","sub_type":"posts"}}`, TagNotification},
	}
	for _, tc := range cases {
		t.Run(tc.tag, func(t *testing.T) {
			msg, err := Decode([]byte(tc.frame))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			app, ok := msg.(AppMessage)
			if !ok {
				t.Fatalf("expected AppMessage, got %T", msg)
			}
			if app.Tag != tc.tag {
				t.Fatalf("tag: got %s, want %s", app.Tag, tc.tag)
			}
			if len(app.Payload) == 0 {
				t.Fatal("empty payload")
			}
		})
	}
}

func TestDecodeOrderPrefersLivenessAck(t *testing.T) {
	// Overlapping shapes resolve in the documented order.
	msg, err := Decode([]byte(`{"connected":true,"online":[1]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := msg.(Onlines); !ok {
		t.Fatalf("expected liveness ack to win, got %T", msg)
	}
}

func TestDecodeUnknownShape(t *testing.T) {
	_, err := Decode([]byte(`{"something_new":{"a":1}}`))
	if !errors.Is(err, ErrUnknownShape) {
		t.Fatalf("expected ErrUnknownShape, got %v", err)
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`not json at all`))
	if !errors.Is(err, ErrNotJSON) {
		t.Fatalf("expected ErrNotJSON, got %v", err)
	}
}

func TestDecodeFieldShapeMismatch(t *testing.T) {
	_, err := Decode([]byte(`{"online":"nope"}`))
	if !errors.Is(err, ErrFieldShape) {
		t.Fatalf("expected ErrFieldShape, got %v", err)
	}
}

func TestDecodePostPublishedPayload(t *testing.T) {
	msg, err := Decode([]byte(`{"post_published":{"id":"129720708","user_id":"15585607","show_posts_in_feed":true}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	app := msg.(AppMessage)

	var post PostPublished
	if err := app.DecodePayload(&post); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if post.ID != 129720708 || post.UserID != 15585607 {
		t.Fatalf("unexpected payload: %+v", post)
	}
}

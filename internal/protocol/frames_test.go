package protocol

import "testing"

func TestEncodeConnect(t *testing.T) {
	data, err := EncodeConnect("T1")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"act":"connect","token":"T1"}`
	if string(data) != want {
		t.Fatalf("connect frame:\n got %s\nwant %s", data, want)
	}
}

func TestEncodeHeartbeat(t *testing.T) {
	data, err := EncodeHeartbeat()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// ids must serialize as an empty array, never null.
	want := `{"act":"get_onlines","ids":[]}`
	if string(data) != want {
		t.Fatalf("heartbeat frame:\n got %s\nwant %s", data, want)
	}
}

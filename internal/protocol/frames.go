package protocol

import "encoding/json"

// ConnectFrame authenticates the session right after the transport opens.
type ConnectFrame struct {
	Act   string `json:"act"`
	Token string `json:"token"`
}

// HeartbeatFrame is the liveness probe. The remote answers with an Onlines
// frame. IDs is always present on the wire, even when empty.
type HeartbeatFrame struct {
	Act string   `json:"act"`
	IDs []uint64 `json:"ids"`
}

func EncodeConnect(token string) ([]byte, error) {
	return json.Marshal(ConnectFrame{Act: "connect", Token: token})
}

func EncodeHeartbeat() ([]byte, error) {
	return json.Marshal(HeartbeatFrame{Act: "get_onlines", IDs: []uint64{}})
}

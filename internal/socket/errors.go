package socket

import "errors"

var (
	ErrHandshakeTimeout    = errors.New("socket: handshake timeout")
	ErrUnexpectedHandshake = errors.New("socket: unexpected handshake message")
	ErrHeartbeatTimeout    = errors.New("socket: heartbeat ack timeout")
)

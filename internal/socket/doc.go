// Package socket owns the realtime session: handshake, heartbeat and
// inbound frame dispatch over one websocket connection.
//
// Ownership boundary:
// - the write half belongs to the heartbeat loop after the handshake
// - the read half belongs to the decode loop
// - the two coordinate through a single level-triggered liveness signal
package socket

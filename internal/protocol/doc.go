// Package protocol owns the realtime wire contract.
//
// Ownership boundary:
// - outbound connect/heartbeat frames
// - the closed inbound message variant set
// - structural (untagged) decode of inbound frames
package protocol

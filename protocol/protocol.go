// Package protocol implements the framing used between the two keyboard halves:
// a VLQ field codec, a pluggable checksum, COBS escaping and a stream accumulator
// that turns arbitrarily chunked bytes back into messages.
package protocol

// Version is the link protocol revision carried by the host tools.
const Version = "0.3.0"

// Framing constants
const (
	MessageMax = 256 // Largest serialized message, envelope id and checksum included
	Delimiter  = 0x00

	// COBS emits one overhead byte per 254 data bytes
	cobsBlock = 254
)

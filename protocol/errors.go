package protocol

import "errors"

var (
	ErrBufferTooSmall  = errors.New("destination buffer too small for frame")
	ErrMessageTooLarge = errors.New("serialized message exceeds MessageMax")
	ErrOverflow        = errors.New("accumulator overflow before delimiter")
	ErrFraming         = errors.New("invalid COBS framing")
	ErrChecksum        = errors.New("checksum mismatch")
	ErrDeserialize     = errors.New("payload does not match message layout")

	ErrInvalidVLQ = errors.New("invalid VLQ encoding")
	ErrTruncated  = errors.New("truncated field")
)

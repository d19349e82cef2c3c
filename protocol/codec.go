package protocol

import (
	"errors"
	"fmt"
)

// Packet is a message that can be carried over the link.
type Packet interface {
	// MarshalTo serializes the message fields
	MarshalTo(out OutputBuffer)
}

// UnmarshalFunc decodes one message from the front of data, advancing it.
// Bytes left over after a successful decode are ignored by the framing layer.
type UnmarshalFunc[M any] func(data *[]byte) (M, error)

// frameMax bounds a frame for the largest message with a 32-bit checksum
var frameMax = MaxEncodedLen(MessageMax)

// Encode serializes msg, appends its checksum and writes the escaped,
// delimiter-terminated frame to dst. On error nothing in dst is valid.
func Encode(msg Packet, sum Checksum, dst []byte) (int, error) {
	var scratch ScratchOutput
	msg.MarshalTo(&scratch)
	payload := scratch.Result()
	if scratch.Overflowed() || len(payload)+sum.Size() > MessageMax {
		return 0, ErrMessageTooLarge
	}

	var raw [MessageMax]byte
	framed := AppendChecksum(sum, append(raw[:0], payload...), payload)
	return EncodeCOBS(dst, framed)
}

// Decode unescapes a frame, verifies its checksum and deserializes it.
// The trailing delimiter is optional. frame is left untouched.
func Decode[M any](frame []byte, sum Checksum, unmarshal UnmarshalFunc[M]) (M, error) {
	if n := len(frame); n > 0 && frame[n-1] == Delimiter {
		frame = frame[:n-1]
	}
	if len(frame) > frameMax {
		var zero M
		return zero, ErrFraming
	}
	var scratch [MessageMax + 8]byte
	n, err := DecodeCOBS(scratch[:], frame)
	if err != nil {
		var zero M
		if errors.Is(err, ErrBufferTooSmall) {
			err = ErrFraming
		}
		return zero, err
	}
	return decodeRaw(scratch[:n], sum, unmarshal)
}

// decodeRaw verifies and deserializes an already unescaped frame
func decodeRaw[M any](raw []byte, sum Checksum, unmarshal UnmarshalFunc[M]) (M, error) {
	var zero M
	payload, err := Verify(sum, raw)
	if err != nil {
		return zero, err
	}
	msg, err := unmarshal(&payload)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrDeserialize, err)
	}
	return msg, nil
}

// Envelope tags a payload with the sender's sequence id. The id is part of
// the checksummed bytes.
type Envelope[M Packet] struct {
	ID      uint16
	Payload M
}

func (e Envelope[M]) MarshalTo(out OutputBuffer) {
	EncodeVLQUint(out, uint32(e.ID))
	e.Payload.MarshalTo(out)
}

// UnmarshalEnvelope lifts a payload decoder to an envelope decoder
func UnmarshalEnvelope[M Packet](unmarshal UnmarshalFunc[M]) UnmarshalFunc[Envelope[M]] {
	return func(data *[]byte) (Envelope[M], error) {
		id, err := DecodeVLQUintMax(data, 0xFFFF)
		if err != nil {
			return Envelope[M]{}, err
		}
		payload, err := unmarshal(data)
		if err != nil {
			return Envelope[M]{}, err
		}
		return Envelope[M]{ID: uint16(id), Payload: payload}, nil
	}
}

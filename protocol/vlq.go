package protocol

import "fmt"

// EncodeVLQInt encodes a signed integer to VLQ format.
// Byte layout matches Klipper's encode_vlq_int: values in [-32, 96) take one byte.
func EncodeVLQInt(output OutputBuffer, v int32) {
	if !(-(1<<26) <= v && v < (3<<26)) {
		output.Output([]byte{byte((v>>28)&0x7F) | 0x80})
	}
	if !(-(1<<19) <= v && v < (3<<19)) {
		output.Output([]byte{byte((v>>21)&0x7F) | 0x80})
	}
	if !(-(1<<12) <= v && v < (3<<12)) {
		output.Output([]byte{byte((v>>14)&0x7F) | 0x80})
	}
	if !(-(1<<5) <= v && v < (3<<5)) {
		output.Output([]byte{byte((v>>7)&0x7F) | 0x80})
	}
	output.Output([]byte{byte(v & 0x7F)})
}

// EncodeVLQUint encodes an unsigned integer to VLQ format
func EncodeVLQUint(output OutputBuffer, v uint32) {
	EncodeVLQInt(output, int32(v))
}

// DecodeVLQInt decodes a VLQ signed integer and advances data past it.
func DecodeVLQInt(data *[]byte) (int32, error) {
	if len(*data) == 0 {
		return 0, ErrTruncated
	}

	c := uint32((*data)[0])
	*data = (*data)[1:]

	v := c & 0x7F
	if (c & 0x60) == 0x60 {
		v |= ^uint32(0x1F)
	}

	for n := 0; c&0x80 != 0; n++ {
		// Five bytes cover 32 bits; anything longer is garbage
		if n == 4 {
			return 0, ErrInvalidVLQ
		}
		if len(*data) == 0 {
			return 0, ErrTruncated
		}
		c = uint32((*data)[0])
		*data = (*data)[1:]
		v = (v << 7) | (c & 0x7F)
	}

	return int32(v), nil
}

// DecodeVLQUint decodes a VLQ unsigned integer from the data slice
func DecodeVLQUint(data *[]byte) (uint32, error) {
	val, err := DecodeVLQInt(data)
	return uint32(val), err
}

// DecodeVLQUintMax decodes an unsigned field and rejects values above max.
func DecodeVLQUintMax(data *[]byte, max uint32) (uint32, error) {
	v, err := DecodeVLQUint(data)
	if err != nil {
		return 0, err
	}
	if v > max {
		return 0, fmt.Errorf("%w: value %d above %d", ErrInvalidVLQ, v, max)
	}
	return v, nil
}

// EncodeVLQBool encodes a flag as a single 0/1 byte
func EncodeVLQBool(output OutputBuffer, b bool) {
	if b {
		EncodeVLQUint(output, 1)
	} else {
		EncodeVLQUint(output, 0)
	}
}

// DecodeVLQBool decodes a flag, rejecting anything but 0 or 1
func DecodeVLQBool(data *[]byte) (bool, error) {
	v, err := DecodeVLQUintMax(data, 1)
	return v == 1, err
}

// EncodeVLQBytes encodes a byte array with length prefix
func EncodeVLQBytes(output OutputBuffer, data []byte) {
	EncodeVLQUint(output, uint32(len(data)))
	output.Output(data)
}

// DecodeVLQBytes decodes a length-prefixed byte array.
// The result aliases data; copy it if it must outlive the frame buffer.
func DecodeVLQBytes(data *[]byte) ([]byte, error) {
	length, err := DecodeVLQUint(data)
	if err != nil {
		return nil, err
	}
	if uint32(len(*data)) < length {
		return nil, ErrTruncated
	}
	result := (*data)[:length]
	*data = (*data)[length:]
	return result, nil
}

// EncodeVLQString encodes a string with length prefix
func EncodeVLQString(output OutputBuffer, s string) {
	EncodeVLQUint(output, uint32(len(s)))
	output.Output([]byte(s))
}

// DecodeVLQString decodes a length-prefixed string
func DecodeVLQString(data *[]byte) (string, error) {
	bytes, err := DecodeVLQBytes(data)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

package protocol

// MaxEncodedLen returns the worst-case frame size for n payload bytes,
// trailing delimiter included.
func MaxEncodedLen(n int) int {
	return n + n/cobsBlock + 2
}

// EncodedLen returns the exact frame size of src, trailing delimiter included.
func EncodedLen(src []byte) int {
	n := 1 // first code byte
	run := 0
	for _, b := range src {
		if b == Delimiter {
			n++
			run = 0
			continue
		}
		n++
		run++
		if run == cobsBlock {
			n++
			run = 0
		}
	}
	// The final full block still emitted a code byte that needs no successor
	if run == 0 && len(src) > 0 && src[len(src)-1] != Delimiter {
		n--
	}
	return n + 1
}

// EncodeCOBS escapes src into dst and terminates it with the delimiter.
// Nothing is written when dst is too small.
func EncodeCOBS(dst, src []byte) (int, error) {
	if EncodedLen(src) > len(dst) {
		return 0, ErrBufferTooSmall
	}

	code := 0 // index of the pending code byte
	out := 1
	run := byte(1)
	for i, b := range src {
		if b != Delimiter {
			dst[out] = b
			out++
			run++
		}
		if b == Delimiter || run == 0xFF {
			dst[code] = run
			run = 1
			// A full block at the very end needs no extra code byte
			if b != Delimiter && i == len(src)-1 {
				dst[out] = Delimiter
				return out + 1, nil
			}
			code = out
			out++
		}
	}
	dst[code] = run
	dst[out] = Delimiter
	return out + 1, nil
}

// DecodeCOBS reverses EncodeCOBS for a block without its trailing delimiter.
// dst may alias src.
func DecodeCOBS(dst, src []byte) (int, error) {
	in, out := 0, 0
	for in < len(src) {
		code := int(src[in])
		if code == 0 {
			return 0, ErrFraming
		}
		in++

		end := in + code - 1
		if end > len(src) {
			return 0, ErrFraming
		}
		if out+(end-in) > len(dst) {
			return 0, ErrBufferTooSmall
		}
		for ; in < end; in++ {
			if src[in] == Delimiter {
				return 0, ErrFraming
			}
			dst[out] = src[in]
			out++
		}

		if code != 0xFF && in < len(src) {
			if out >= len(dst) {
				return 0, ErrBufferTooSmall
			}
			dst[out] = Delimiter
			out++
		}
	}
	return out, nil
}

package protocol

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

type testMsg struct {
	Kind  uint8
	Value int32
	Name  string
}

func (m testMsg) MarshalTo(out OutputBuffer) {
	EncodeVLQUint(out, uint32(m.Kind))
	EncodeVLQInt(out, m.Value)
	EncodeVLQString(out, m.Name)
}

func unmarshalTestMsg(data *[]byte) (testMsg, error) {
	kind, err := DecodeVLQUintMax(data, 0xFF)
	if err != nil {
		return testMsg{}, err
	}
	value, err := DecodeVLQInt(data)
	if err != nil {
		return testMsg{}, err
	}
	name, err := DecodeVLQString(data)
	if err != nil {
		return testMsg{}, err
	}
	return testMsg{Kind: uint8(kind), Value: value, Name: name}, nil
}

var testMessages = []testMsg{
	{},
	{Kind: 1, Value: -1, Name: "x"},
	{Kind: 0xFF, Value: 1 << 30, Name: "zero\x00bytes\x00inside"},
	{Kind: 7, Value: -123456, Name: strings.Repeat("k", 200)},
}

func encodeFrame(t *testing.T, msg Packet, sum Checksum) []byte {
	t.Helper()
	buf := make([]byte, frameMax)
	n, err := Encode(msg, sum, buf)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return buf[:n]
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, sum := range []Checksum{NewCRC32(), NewCRC16()} {
		for i, msg := range testMessages {
			frame := encodeFrame(t, msg, sum)

			if bytes.IndexByte(frame, Delimiter) != len(frame)-1 {
				t.Errorf("Test case %d: delimiter must only terminate the frame: %x", i, frame)
			}

			got, err := Decode(frame, sum, unmarshalTestMsg)
			if err != nil {
				t.Errorf("Test case %d: decode failed: %v", i, err)
				continue
			}
			if got != msg {
				t.Errorf("Test case %d: expected %+v, got %+v", i, msg, got)
			}
		}
	}
}

func TestDecodeWithoutDelimiter(t *testing.T) {
	sum := NewCRC32()
	msg := testMsg{Kind: 3, Value: 42, Name: "abc"}
	frame := encodeFrame(t, msg, sum)

	got, err := Decode(frame[:len(frame)-1], sum, unmarshalTestMsg)
	if err != nil || got != msg {
		t.Errorf("Expected %+v, got %+v (err %v)", msg, got, err)
	}
}

func TestEncodeBufferTooSmall(t *testing.T) {
	sum := NewCRC32()
	msg := testMsg{Kind: 1, Value: 2, Name: "three"}
	full := encodeFrame(t, msg, sum)

	dst := bytes.Repeat([]byte{0xAA}, len(full)-1)
	n, err := Encode(msg, sum, dst)
	if !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("Expected ErrBufferTooSmall, got %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 bytes written, got %d", n)
	}
	for i, b := range dst {
		if b != 0xAA {
			t.Errorf("Byte %d was written on failure: %02X", i, b)
			break
		}
	}

	n, err = Encode(msg, sum, make([]byte, len(full)))
	if err != nil || n != len(full) {
		t.Errorf("Expected exact fit of %d bytes, got %d (err %v)", len(full), n, err)
	}
}

func TestEncodeMessageTooLarge(t *testing.T) {
	msg := testMsg{Name: strings.Repeat("x", MessageMax)}
	_, err := Encode(msg, NewCRC32(), make([]byte, 2*MessageMax))
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("Expected ErrMessageTooLarge, got %v", err)
	}
}

func TestDecodeSingleBitFlips(t *testing.T) {
	sum := NewCRC32()
	var out ScratchOutput
	testMsg{Kind: 9, Value: 1000, Name: "flip"}.MarshalTo(&out)
	raw := AppendChecksum(sum, append([]byte(nil), out.Result()...), out.Result())

	frame := make([]byte, MaxEncodedLen(len(raw)))
	for bit := 0; bit < len(raw)*8; bit++ {
		corrupted := append([]byte(nil), raw...)
		corrupted[bit/8] ^= 1 << (bit % 8)

		n, err := EncodeCOBS(frame, corrupted)
		if err != nil {
			t.Fatalf("EncodeCOBS failed: %v", err)
		}
		if _, err := Decode(frame[:n], sum, unmarshalTestMsg); !errors.Is(err, ErrChecksum) {
			t.Errorf("Bit %d: expected ErrChecksum, got %v", bit, err)
		}
	}
}

func TestDecodeCorruptedFrameNeverSucceeds(t *testing.T) {
	sum := NewCRC32()
	frame := encodeFrame(t, testMsg{Kind: 2, Value: -7, Name: "wire"}, sum)

	for bit := 0; bit < (len(frame)-1)*8; bit++ {
		corrupted := append([]byte(nil), frame...)
		corrupted[bit/8] ^= 1 << (bit % 8)
		if _, err := Decode(corrupted, sum, unmarshalTestMsg); err == nil {
			t.Errorf("Bit %d: corrupted frame decoded successfully", bit)
		}
	}
}

func TestDecodeFramingError(t *testing.T) {
	testCases := [][]byte{
		{0x12, 0x34, 0x56, 0x78, 0x90},
		{0x02, 0x00, 0x01},
	}

	for i, tc := range testCases {
		if _, err := Decode(tc, NewCRC32(), unmarshalTestMsg); !errors.Is(err, ErrFraming) {
			t.Errorf("Test case %d: expected ErrFraming, got %v", i, err)
		}
	}
}

func TestDecodeDeserializeError(t *testing.T) {
	sum := NewCRC32()
	// Valid frame around a truncated VLQ
	raw := AppendChecksum(sum, []byte{0x80}, []byte{0x80})
	frame := make([]byte, 16)
	n, _ := EncodeCOBS(frame, raw)

	_, err := Decode(frame[:n], sum, unmarshalTestMsg)
	if !errors.Is(err, ErrDeserialize) {
		t.Errorf("Expected ErrDeserialize, got %v", err)
	}
	if errors.Is(err, ErrChecksum) {
		t.Errorf("Deserialize failure must not be reported as checksum error")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	sum := NewCRC32()
	unmarshal := UnmarshalEnvelope(unmarshalTestMsg)

	for _, id := range []uint16{0, 1, 95, 96, 0x7FFF, 0xFFFF} {
		env := Envelope[testMsg]{ID: id, Payload: testMsg{Kind: 4, Name: "env"}}
		got, err := Decode(encodeFrame(t, env, sum), sum, unmarshal)
		if err != nil {
			t.Errorf("ID %d: decode failed: %v", id, err)
			continue
		}
		if got != env {
			t.Errorf("Expected %+v, got %+v", env, got)
		}
	}
}

func TestEnvelopeRejectsWideID(t *testing.T) {
	var out ScratchOutput
	EncodeVLQUint(&out, 0x10000)
	testMsg{}.MarshalTo(&out)

	data := out.Result()
	if _, err := UnmarshalEnvelope(unmarshalTestMsg)(&data); !errors.Is(err, ErrInvalidVLQ) {
		t.Errorf("Expected ErrInvalidVLQ, got %v", err)
	}
}

func TestCOBSKnownVectors(t *testing.T) {
	testCases := []struct {
		in       []byte
		expected []byte
	}{
		{[]byte{}, []byte{0x01, 0x00}},
		{[]byte{0x00}, []byte{0x01, 0x01, 0x00}},
		{[]byte{0x11, 0x22, 0x00, 0x33}, []byte{0x03, 0x11, 0x22, 0x02, 0x33, 0x00}},
	}

	for i, tc := range testCases {
		dst := make([]byte, MaxEncodedLen(len(tc.in)))
		n, err := EncodeCOBS(dst, tc.in)
		if err != nil || !bytes.Equal(dst[:n], tc.expected) {
			t.Errorf("Test case %d: expected %x, got %x (err %v)", i, tc.expected, dst[:n], err)
		}
		if EncodedLen(tc.in) != len(tc.expected) {
			t.Errorf("Test case %d: EncodedLen expected %d, got %d", i, len(tc.expected), EncodedLen(tc.in))
		}
	}
}

func TestCOBSLongRuns(t *testing.T) {
	for _, n := range []int{253, 254, 255, 508, 509, 600} {
		src := make([]byte, n)
		for i := range src {
			src[i] = byte(i%255) + 1
		}
		if n == 600 {
			src[300] = 0
		}

		dst := make([]byte, MaxEncodedLen(n))
		size, err := EncodeCOBS(dst, src)
		if err != nil {
			t.Errorf("Length %d: encode failed: %v", n, err)
			continue
		}
		if size != EncodedLen(src) {
			t.Errorf("Length %d: EncodedLen %d disagrees with encoder %d", n, EncodedLen(src), size)
		}
		if bytes.IndexByte(dst[:size], 0) != size-1 {
			t.Errorf("Length %d: stray delimiter in %d-byte frame", n, size)
		}

		decoded := make([]byte, n)
		m, err := DecodeCOBS(decoded, dst[:size-1])
		if err != nil || !bytes.Equal(decoded[:m], src) {
			t.Errorf("Length %d: round trip failed (err %v)", n, err)
		}
	}
}

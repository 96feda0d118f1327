package driver

import (
	"bytes"
	"fmt"

	"github.com/nerrad567/antplus-core/internal/ant/message"
)

// Serial frame layout: [sync, length, id, payload..., checksum].
const (
	// SyncByte starts every frame sent to or from the radio.
	SyncByte = 0xA4

	// MaxPayloadSize is the largest payload accepted in one frame.
	MaxPayloadSize = 41

	// frameOverhead is sync + length + id + checksum.
	frameOverhead = 4
)

// Frame is one undecoded message read off the wire.
type Frame struct {
	ID      message.ID
	Payload []byte
}

// EncodeFrame wraps a message ID and payload in a serial frame.
//
// Returns ErrFrameTooLong if the payload exceeds MaxPayloadSize.
func EncodeFrame(id message.ID, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLong, len(payload))
	}
	out := make([]byte, 0, len(payload)+frameOverhead)
	out = append(out, SyncByte, byte(len(payload)), byte(id))
	out = append(out, payload...)
	return append(out, checksum(out)), nil
}

func checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum ^= v
	}
	return sum
}

// FrameReader reassembles frames from a byte stream that may deliver them
// in arbitrary fragments and may contain line noise.
//
// Write appends received bytes; Next pulls complete frames out. A framing
// error consumes the offending bytes, so calling Next again resumes the
// search at the following sync byte.
type FrameReader struct {
	buf []byte
}

// Write appends raw bytes to the reassembly buffer. It never fails.
func (r *FrameReader) Write(p []byte) (int, error) {
	r.buf = append(r.buf, p...)
	return len(p), nil
}

// Buffered returns the number of bytes waiting for a complete frame.
func (r *FrameReader) Buffered() int {
	return len(r.buf)
}

// Next returns the next complete frame.
//
// Returns:
//   - Frame: The frame, valid only when ok is true
//   - bool: false when more bytes are needed
//   - error: ErrBadSync, ErrFrameTooLong or ErrBadChecksum after dropping
//     the bad bytes
func (r *FrameReader) Next() (Frame, bool, error) {
	if len(r.buf) == 0 {
		return Frame{}, false, nil
	}

	if r.buf[0] != SyncByte {
		skip := bytes.IndexByte(r.buf, SyncByte)
		if skip < 0 {
			skip = len(r.buf)
		}
		r.buf = r.buf[skip:]
		return Frame{}, false, fmt.Errorf("%w: skipped %d bytes", ErrBadSync, skip)
	}

	if len(r.buf) < 2 {
		return Frame{}, false, nil
	}

	length := int(r.buf[1])
	if length > MaxPayloadSize {
		r.buf = r.buf[1:]
		return Frame{}, false, fmt.Errorf("%w: %d bytes", ErrFrameTooLong, length)
	}

	total := length + frameOverhead
	if len(r.buf) < total {
		return Frame{}, false, nil
	}

	if want := checksum(r.buf[:total-1]); want != r.buf[total-1] {
		r.buf = r.buf[1:]
		return Frame{}, false, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrBadChecksum, r.buf[total-2], want)
	}

	frame := Frame{
		ID:      message.ID(r.buf[2]),
		Payload: append([]byte(nil), r.buf[3:3+length]...),
	}
	r.buf = r.buf[total:]
	if len(r.buf) == 0 {
		r.buf = nil
	}
	return frame, true, nil
}

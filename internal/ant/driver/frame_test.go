package driver

import (
	"bytes"
	"errors"
	"testing"

	"github.com/nerrad567/antplus-core/internal/ant/message"
)

func TestEncodeFrame(t *testing.T) {
	tests := []struct {
		name    string
		id      message.ID
		payload []byte
		want    []byte
	}{
		{
			name:    "reset system",
			id:      message.IDResetSystem,
			payload: []byte{0x00},
			// A4 ^ 01 ^ 4A ^ 00 = EF
			want: []byte{0xA4, 0x01, 0x4A, 0x00, 0xEF},
		},
		{
			name:    "request capabilities",
			id:      message.IDRequestMessage,
			payload: []byte{0x00, 0x54},
			// A4 ^ 02 ^ 4D ^ 00 ^ 54 = BF
			want: []byte{0xA4, 0x02, 0x4D, 0x00, 0x54, 0xBF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeFrame(tt.id, tt.payload)
			if err != nil {
				t.Fatalf("EncodeFrame() error = %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeFrame() = %X, want %X", got, tt.want)
			}
		})
	}
}

func TestEncodeFrameTooLong(t *testing.T) {
	_, err := EncodeFrame(message.IDBroadcastData, make([]byte, MaxPayloadSize+1))
	if !errors.Is(err, ErrFrameTooLong) {
		t.Errorf("EncodeFrame() error = %v, want ErrFrameTooLong", err)
	}
}

func TestFrameReaderFragments(t *testing.T) {
	frame, err := EncodeFrame(message.IDStartUpMessage, []byte{0x20})
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}

	var r FrameReader
	r.Write(frame[:2]) //nolint:errcheck
	if _, ok, err := r.Next(); ok || err != nil {
		t.Fatalf("Next() on partial frame = ok %v, err %v", ok, err)
	}

	r.Write(frame[2:]) //nolint:errcheck
	got, ok, err := r.Next()
	if err != nil || !ok {
		t.Fatalf("Next() = ok %v, err %v", ok, err)
	}
	if got.ID != message.IDStartUpMessage || !bytes.Equal(got.Payload, []byte{0x20}) {
		t.Errorf("Next() = %+v", got)
	}
	if r.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0", r.Buffered())
	}
}

func TestFrameReaderResync(t *testing.T) {
	good, _ := EncodeFrame(message.IDCapabilities, []byte{0x08, 0x03, 0x00, 0xBA})
	corrupt, _ := EncodeFrame(message.IDSerialNumber, []byte{1, 2, 3, 4})
	corrupt[len(corrupt)-1] ^= 0xFF

	var stream []byte
	stream = append(stream, 0x00, 0x13, 0x37)
	stream = append(stream, corrupt...)
	stream = append(stream, good...)

	var r FrameReader
	r.Write(stream) //nolint:errcheck

	var (
		frames []Frame
		errs   []error
	)
	for i := 0; i < 64; i++ {
		f, ok, err := r.Next()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			break
		}
		frames = append(frames, f)
	}

	if len(frames) != 1 || frames[0].ID != message.IDCapabilities {
		t.Fatalf("frames = %+v, want one Capabilities frame", frames)
	}
	if len(errs) == 0 || !errors.Is(errs[0], ErrBadSync) {
		t.Errorf("first error = %v, want ErrBadSync", errs)
	}
	var sawChecksum bool
	for _, err := range errs {
		if errors.Is(err, ErrBadChecksum) {
			sawChecksum = true
		}
	}
	if !sawChecksum {
		t.Errorf("errors = %v, want one ErrBadChecksum", errs)
	}
}

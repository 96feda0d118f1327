package driver

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"

	"github.com/nerrad567/antplus-core/internal/ant/message"
)

// Serial defaults.
const (
	// DefaultBaud is the baud rate of USB ANT sticks.
	DefaultBaud = 115200

	// DefaultReadTimeout bounds how long one GetMessage may wait on the port.
	DefaultReadTimeout = 10 * time.Millisecond

	readChunkSize = 256
)

// SerialConfig holds the serial port parameters.
type SerialConfig struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
}

// Serial is a Driver backed by a serial port.
//
// Frames that fail to decode are dropped and logged; they never surface as
// transport errors, so one bad frame cannot stall the router.
type Serial struct {
	mu      sync.Mutex
	port    io.ReadWriteCloser
	reader  FrameReader
	pending []*message.AntMessage
	chunk   [readChunkSize]byte
	closed  bool

	logger   Logger
	logMu    sync.RWMutex
	dropped  uint64
	received uint64
}

// OpenSerial opens the configured port and returns a driver over it.
//
// Parameters:
//   - cfg: Port name, baud rate (0 means DefaultBaud) and read timeout
//     (0 means DefaultReadTimeout)
//
// Returns:
//   - *Serial: Driver ready for use
//   - error: If the port cannot be opened
func OpenSerial(cfg SerialConfig) (*Serial, error) {
	if cfg.Baud == 0 {
		cfg.Baud = DefaultBaud
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", cfg.Port, err)
	}
	return NewSerial(port), nil
}

// NewSerial wraps an already open byte stream. The stream's Read must
// return promptly when no data is available.
func NewSerial(port io.ReadWriteCloser) *Serial {
	return &Serial{port: port, logger: noopLogger{}}
}

// SetLogger sets the logger for frame diagnostics.
func (s *Serial) SetLogger(logger Logger) {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

func (s *Serial) getLogger() Logger {
	s.logMu.RLock()
	defer s.logMu.RUnlock()
	return s.logger
}

// SendMessage frames and writes one message.
func (s *Serial) SendMessage(msg message.TxMessage) error {
	frame, err := EncodeFrame(msg.MessageID(), msg.Payload())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := s.port.Write(frame); err != nil {
		return fmt.Errorf("writing %s: %w", msg.MessageID(), err)
	}
	return nil
}

// GetMessage returns the next decoded message, reading from the port at
// most once per call.
func (s *Serial) GetMessage() (*message.AntMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	s.extract()
	if len(s.pending) == 0 {
		n, err := s.port.Read(s.chunk[:])
		if n > 0 {
			s.reader.Write(s.chunk[:n]) //nolint:errcheck // never fails
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading serial port: %w", err)
		}
		s.extract()
	}

	if len(s.pending) == 0 {
		return nil, nil //nolint:nilnil // no message pending
	}
	next := s.pending[0]
	s.pending[0] = nil
	s.pending = s.pending[1:]
	return next, nil
}

// extract moves every complete frame from the reader into the pending
// queue. Caller must hold s.mu.
func (s *Serial) extract() {
	for {
		frame, ok, err := s.reader.Next()
		if err != nil {
			s.dropped++
			s.getLogger().Warn("dropping serial bytes", "error", err)
			continue
		}
		if !ok {
			return
		}

		rx, err := message.Decode(frame.ID, frame.Payload)
		if err != nil {
			s.dropped++
			s.getLogger().Warn("dropping undecodable frame",
				"message_id", frame.ID.String(),
				"payload", fmt.Sprintf("%X", frame.Payload),
				"error", err,
			)
			continue
		}
		s.received++
		s.pending = append(s.pending, &message.AntMessage{Message: rx})
	}
}

// Stats returns the number of decoded messages and dropped frames.
func (s *Serial) Stats() (received, dropped uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received, s.dropped
}

// Close closes the port. Further calls return ErrClosed.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.port.Close()
}

var _ Driver = (*Serial)(nil)

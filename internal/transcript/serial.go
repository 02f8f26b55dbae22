package transcript

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the teacher's serial transport default.
const DefaultBaudRate = 115200

// SerialConfig configures a SerialSink.
type SerialConfig struct {
	// Port is the serial port path (e.g. "/dev/ttyUSB0" or "COM3").
	Port string
	// BaudRate defaults to DefaultBaudRate.
	BaudRate int
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// SerialSink writes one JSON line per recorded event to a serial
// port, grounded on transport/serial.Transport's Config/Open shape
// but write-only: there is no read loop or frame assembly here, since
// a transcript sink never receives packets back.
type SerialSink struct {
	mu   sync.Mutex
	port serial.Port
	log  *slog.Logger
}

// OpenSerialSink opens cfg.Port and returns a ready-to-use sink.
func OpenSerialSink(cfg SerialConfig) (*SerialSink, error) {
	if cfg.Port == "" {
		return nil, errors.New("transcript: serial port is required")
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("transcript: opening serial port: %w", err)
	}

	return &SerialSink{port: port, log: logger.WithGroup("transcript.serial")}, nil
}

// Record writes one JSON line for record.
func (s *SerialSink) Record(record Record) error {
	data, err := encode(record)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.port.Write(data); err != nil {
		return fmt.Errorf("transcript: writing to serial port: %w", err)
	}
	return nil
}

// Close closes the underlying serial port.
func (s *SerialSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Close()
}

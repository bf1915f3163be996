//go:build !tinygo

package radiolink

import (
	"fmt"

	"github.com/pkg/term"
)

// SerialUART is a UARTDriver backed by a real serial port, opened with
// github.com/pkg/term the way the teacher's examples open their radios: one
// struct, one constructor, explicit Close.
//
// pkg/term gives us a plain blocking ReadWriter, not byte-at-a-time
// rxdrdy/txdrdy interrupts, so SerialUART runs its own goroutine that reads
// one byte at a time and reports it on rxReady/lastByte, and writes are
// synchronous from WriteByte's point of view but still signal txReady
// asynchronously so the adapter's busy/pump bookkeeping behaves the same as
// it would against real UART hardware.
type SerialUART struct {
	port *term.Term

	rxReady  chan struct{}
	txReady  chan struct{}
	lastByte byte
}

// OpenSerialUART opens path (e.g. "/dev/ttyUSB0") at baud and starts the
// background reader goroutine.
func OpenSerialUART(path string, baud int) (*SerialUART, error) {
	port, err := term.Open(path, term.Speed(baud), term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("%w: open serial port %s: %w", ErrPkg, path, err)
	}

	s := &SerialUART{
		port:    port,
		rxReady: make(chan struct{}, 1),
		txReady: make(chan struct{}, 1),
	}
	go s.readLoop()
	return s, nil
}

func (s *SerialUART) readLoop() {
	var buf [1]byte
	for {
		n, err := s.port.Read(buf[:])
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		s.lastByte = buf[0]
		select {
		case s.rxReady <- struct{}{}:
		default:
		}
	}
}

// WriteByte writes b to the serial port and signals txReady once the write
// completes, so the UART adapter can pump the next queued byte.
func (s *SerialUART) WriteByte(b byte) {
	s.port.Write([]byte{b})
	select {
	case s.txReady <- struct{}{}:
	default:
	}
}

// TxReady reports when the last WriteByte has completed.
func (s *SerialUART) TxReady() <-chan struct{} { return s.txReady }

// RxReady reports when a new byte is available from ReadByte.
func (s *SerialUART) RxReady() <-chan struct{} { return s.rxReady }

// ReadByte returns the most recently received byte. Callers must only call
// it after a receive on RxReady.
func (s *SerialUART) ReadByte() byte { return s.lastByte }

// Close restores the terminal and releases the port.
func (s *SerialUART) Close() error {
	s.port.Restore()
	return s.port.Close()
}

package actions

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// DefaultBaudRate matches the microcontroller firmware.
const DefaultBaudRate = 9600

// Serial protocol bytes understood by the attached microcontroller.
const (
	ByteLEDOn      = 'H'
	ByteLEDOff     = 'L'
	ByteSpeakerOn  = 'S'
	ByteSpeakerOff = 'O'
)

// SerialHardware speaks the single-byte LED and speaker protocol over a
// writer, usually a serial device.
type SerialHardware struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSerialHardware wraps an already configured writer.
func NewSerialHardware(w io.Writer) *SerialHardware {
	return &SerialHardware{w: w}
}

// openPort is replaced in tests.
var openPort = func(path string, mode *serial.Mode) (io.WriteCloser, error) {
	return serial.Open(path, mode)
}

// OpenSerial opens a serial port (e.g. /dev/ttyACM0 or COM7) at baud, 8N1.
// A non-positive baud uses DefaultBaudRate.
func OpenSerial(path string, baud int) (*SerialHardware, io.Closer, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := openPort(path, mode)
	if err != nil {
		return nil, nil, fmt.Errorf("open serial port %s: %w", path, err)
	}
	log.Info().Str("device", path).Int("baud", baud).Msg("serial hardware connected")
	return NewSerialHardware(port), port, nil
}

// Blink toggles the LED on then off times times, waiting delay after each
// byte.
func (h *SerialHardware) Blink(ctx context.Context, times int, delay time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := 0; i < times; i++ {
		for _, b := range []byte{ByteLEDOn, ByteLEDOff} {
			if err := h.write(b); err != nil {
				return err
			}
			if err := sleep(ctx, delay); err != nil {
				// Leave the LED off when interrupted.
				if b == ByteLEDOn {
					h.write(ByteLEDOff)
				}
				return err
			}
		}
	}
	return nil
}

// SetSpeaker switches the speaker relay.
func (h *SerialHardware) SetSpeaker(ctx context.Context, on bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if on {
		return h.write(ByteSpeakerOn)
	}
	return h.write(ByteSpeakerOff)
}

func (h *SerialHardware) write(b byte) error {
	if _, err := h.w.Write([]byte{b}); err != nil {
		return fmt.Errorf("serial write %q: %w", b, err)
	}
	return nil
}

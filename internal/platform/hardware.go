package platform

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
	"go.bug.st/serial"
)

// PortMode is the subset of serial framing the output drivers care about.
// Everything is 8 data bits, no parity; DMX needs the second stop bit.
type PortMode struct {
	Baud        int
	TwoStopBits bool
}

// Port is one opened UART transmit path.
type Port interface {
	Configure(mode PortMode) error
	Write(p []byte) (int, error)
	Break(d time.Duration) error
	Close() error
}

// PortOpener opens UART devices by path. The output factory holds one opener
// and opens a slot's device when a serial-class driver is installed.
type PortOpener interface {
	Open(device string, mode PortMode) (Port, error)
}

// GPIO drives individual output pins.
type GPIO interface {
	Setup(pin int) error
	Set(pin int, high bool) error
	Close() error
}

// Hardware bundles the backends handed to the output subsystem.
type Hardware struct {
	UARTs PortOpener
	Pins  GPIO
}

// NewHardware returns the real serial and GPIO backends for this host.
func NewHardware() Hardware {
	return Hardware{
		UARTs: serialOpener{},
		Pins:  &rpiGPIO{},
	}
}

type serialOpener struct{}

func (serialOpener) Open(device string, mode PortMode) (Port, error) {
	p, err := serial.Open(device, serialMode(mode))
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", device, err)
	}
	return &serialPort{port: p}, nil
}

type serialPort struct {
	port serial.Port
}

func (s *serialPort) Configure(mode PortMode) error {
	if err := s.port.SetMode(serialMode(mode)); err != nil {
		return fmt.Errorf("failed to set serial mode: %w", err)
	}
	return nil
}

func (s *serialPort) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *serialPort) Break(d time.Duration) error {
	return s.port.Break(d)
}

func (s *serialPort) Close() error {
	return s.port.Close()
}

func serialMode(mode PortMode) *serial.Mode {
	stopBits := serial.OneStopBit
	if mode.TwoStopBits {
		stopBits = serial.TwoStopBits
	}
	return &serial.Mode{
		BaudRate: mode.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: stopBits,
	}
}

// rpiGPIO drives pins through /dev/gpiomem. The mapping is opened lazily so
// hosts without it (development machines, CI) degrade to a logged no-op
// instead of failing startup.
type rpiGPIO struct {
	mu     sync.Mutex
	opened bool
	failed bool
}

func (g *rpiGPIO) ensureOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.opened {
		return true
	}
	if g.failed {
		return false
	}
	if err := rpio.Open(); err != nil {
		g.failed = true
		log.Printf("⚠️ GPIO memory map unavailable, pin outputs will be ignored: %v", err)
		return false
	}
	g.opened = true
	return true
}

func (g *rpiGPIO) Setup(pin int) error {
	if !g.ensureOpen() {
		return nil
	}
	rpio.Pin(pin).Output()
	return nil
}

func (g *rpiGPIO) Set(pin int, high bool) error {
	if !g.ensureOpen() {
		return nil
	}
	p := rpio.Pin(pin)
	if high {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

func (g *rpiGPIO) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.opened {
		return nil
	}
	g.opened = false
	return rpio.Close()
}

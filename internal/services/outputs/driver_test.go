package outputs

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/openlumen/pixelnode/internal/platform"
)

// fakePort records everything a driver pushes at the UART.
type fakePort struct {
	mu     sync.Mutex
	writes [][]byte
	breaks []time.Duration
	modes  []platform.PortMode
	closed bool
}

func (p *fakePort) Configure(mode platform.PortMode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modes = append(p.modes, mode)
	return nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, append([]byte(nil), b...))
	return len(b), nil
}

func (p *fakePort) Break(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.breaks = append(p.breaks, d)
	return nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) lastWrite() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.writes) == 0 {
		return nil
	}
	return p.writes[len(p.writes)-1]
}

func (p *fakePort) writeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.writes)
}

func (p *fakePort) breakCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.breaks)
}

func (p *fakePort) lastMode() platform.PortMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.modes) == 0 {
		return platform.PortMode{}
	}
	return p.modes[len(p.modes)-1]
}

func (p *fakePort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// fakeOpener hands out fake ports and counts opens.
type fakeOpener struct {
	mu    sync.Mutex
	fail  bool
	ports []*fakePort
	byDev map[string]*fakePort
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{byDev: make(map[string]*fakePort)}
}

func (o *fakeOpener) Open(device string, mode platform.PortMode) (platform.Port, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail {
		return nil, fmt.Errorf("open %s: no such device", device)
	}
	port := &fakePort{modes: []platform.PortMode{mode}}
	o.ports = append(o.ports, port)
	o.byDev[device] = port
	return port, nil
}

func (o *fakeOpener) openCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.ports)
}

// portFor returns the most recently opened port for a device.
func (o *fakeOpener) portFor(device string) *fakePort {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.byDev[device]
}

// fakePins records GPIO setup calls and levels.
type fakePins struct {
	mu     sync.Mutex
	levels map[int]bool
	setups map[int]int
}

func newFakePins() *fakePins {
	return &fakePins{levels: make(map[int]bool), setups: make(map[int]int)}
}

func (p *fakePins) Setup(pin int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setups[pin]++
	return nil
}

func (p *fakePins) Set(pin int, high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.levels[pin] = high
	return nil
}

func (p *fakePins) Close() error { return nil }

func (p *fakePins) level(pin int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.levels[pin]
}

var testUARTSlot = platform.Slot{Channel: 0, DataPin: 14, UARTDevice: "/dev/ttyTEST0"}

// uartFrames expands one intensity byte the way the pixel encoder should:
// two bits per UART frame, most significant pair first.
func uartFrames(value byte) []byte {
	pairs := [4]byte{0x37, 0x07, 0x34, 0x04}
	return []byte{
		pairs[value>>6&0x03],
		pairs[value>>4&0x03],
		pairs[value>>2&0x03],
		pairs[value&0x03],
	}
}

func TestPixelDriverExpandsBitPairs(t *testing.T) {
	opener := newFakeOpener()
	d := newPixelDriver(0, testUARTSlot, opener)
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	d.SetConfig(&PixelSettings{PixelCount: 1, ColorOrder: "rgb", GroupSize: 1, Gamma: 1.0, Brightness: 100})
	d.SetBuffer([]byte{0xFF, 0x00, 0xA5})

	d.Render()

	port := opener.portFor(testUARTSlot.UARTDevice)
	if got := port.lastMode().Baud; got != PixelBaud {
		t.Errorf("port baud = %d, want %d", got, PixelBaud)
	}
	want := []byte{
		0x04, 0x04, 0x04, 0x04, // 0xFF
		0x37, 0x37, 0x37, 0x37, // 0x00
		0x34, 0x34, 0x07, 0x07, // 0xA5
	}
	if got := port.lastWrite(); !bytes.Equal(got, want) {
		t.Errorf("encoded frame = %x, want %x", got, want)
	}
}

func TestPixelDriverColorOrder(t *testing.T) {
	opener := newFakeOpener()
	d := newPixelDriver(0, testUARTSlot, opener)
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	d.SetConfig(&PixelSettings{PixelCount: 1, ColorOrder: "grb", GroupSize: 1, Gamma: 1.0, Brightness: 100})
	d.SetBuffer([]byte{10, 20, 30})

	d.Render()

	var want []byte
	for _, v := range []byte{20, 10, 30} {
		want = append(want, uartFrames(v)...)
	}
	if got := opener.portFor(testUARTSlot.UARTDevice).lastWrite(); !bytes.Equal(got, want) {
		t.Errorf("grb frame = %x, want %x", got, want)
	}
}

func TestPixelDriverBrightnessScaling(t *testing.T) {
	opener := newFakeOpener()
	d := newPixelDriver(0, testUARTSlot, opener)
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	d.SetConfig(&PixelSettings{PixelCount: 1, ColorOrder: "rgb", GroupSize: 1, Gamma: 1.0, Brightness: 50})
	d.SetBuffer([]byte{200, 0, 0})

	d.Render()

	var want []byte
	for _, v := range []byte{100, 0, 0} {
		want = append(want, uartFrames(v)...)
	}
	if got := opener.portFor(testUARTSlot.UARTDevice).lastWrite(); !bytes.Equal(got, want) {
		t.Errorf("dimmed frame = %x, want %x", got, want)
	}
}

func TestPixelDriverZigZag(t *testing.T) {
	opener := newFakeOpener()
	d := newPixelDriver(0, testUARTSlot, opener)
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	d.SetConfig(&PixelSettings{PixelCount: 4, ColorOrder: "rgb", GroupSize: 1, ZigZagSize: 2, Gamma: 1.0, Brightness: 100})
	d.SetBuffer([]byte{
		0, 1, 2,
		10, 11, 12,
		20, 21, 22,
		30, 31, 32,
	})

	d.Render()

	// Second segment reversed: source pixels 0,1,3,2
	var want []byte
	for _, v := range []byte{0, 1, 2, 10, 11, 12, 30, 31, 32, 20, 21, 22} {
		want = append(want, uartFrames(v)...)
	}
	if got := opener.portFor(testUARTSlot.UARTDevice).lastWrite(); !bytes.Equal(got, want) {
		t.Errorf("zigzag frame = %x, want %x", got, want)
	}
}

func TestPixelDriverGrouping(t *testing.T) {
	opener := newFakeOpener()
	d := newPixelDriver(0, testUARTSlot, opener)
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	d.SetConfig(&PixelSettings{PixelCount: 4, ColorOrder: "rgb", GroupSize: 2, Gamma: 1.0, Brightness: 100})

	if got := d.ChannelsNeeded(); got != 6 {
		t.Fatalf("ChannelsNeeded() = %d, want 6", got)
	}
	d.SetBuffer([]byte{1, 2, 3, 4, 5, 6})

	d.Render()

	// Each logical triplet repeats across its group of physical pixels
	var want []byte
	for _, v := range []byte{1, 2, 3, 1, 2, 3, 4, 5, 6, 4, 5, 6} {
		want = append(want, uartFrames(v)...)
	}
	if got := opener.portFor(testUARTSlot.UARTDevice).lastWrite(); !bytes.Equal(got, want) {
		t.Errorf("grouped frame = %x, want %x", got, want)
	}
}

func TestGECEDriverFrames(t *testing.T) {
	opener := newFakeOpener()
	d := newGECEDriver(0, testUARTSlot, opener)
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	d.SetConfig(&GECESettings{PixelCount: 2, Brightness: 100})
	d.SetBuffer([]byte{0xFF, 0x00, 0x10, 0x20, 0x30, 0x40})

	d.Render()

	port := opener.portFor(testUARTSlot.UARTDevice)
	if got := port.lastMode().Baud; got != GECEBaud {
		t.Errorf("port baud = %d, want %d", got, GECEBaud)
	}
	want := []byte{
		0x00, 0x0C, 0xC1, 0x0F, // bulb 0: intensity 0xCC, b=1 g=0 r=0xF
		0x00, 0x1C, 0xC4, 0x32, // bulb 1: address 1, b=4 g=3 r=2
	}
	if got := port.lastWrite(); !bytes.Equal(got, want) {
		t.Errorf("GECE frame = %x, want %x", got, want)
	}
}

func TestDMXDriverFrame(t *testing.T) {
	opener := newFakeOpener()
	d := newSerialDriver(ProtocolDMX, 0, testUARTSlot, opener)
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	if got := d.ChannelsNeeded(); got != DMXChannelCount {
		t.Fatalf("ChannelsNeeded() = %d, want %d", got, DMXChannelCount)
	}
	window := make([]byte, DMXChannelCount)
	window[0] = 0xAA
	window[511] = 0x55
	d.SetBuffer(window)

	d.Render()

	port := opener.portFor(testUARTSlot.UARTDevice)
	if got := port.lastMode(); got.Baud != DMXBaudRate || !got.TwoStopBits {
		t.Errorf("port mode = %+v, want %d baud with two stop bits", got, DMXBaudRate)
	}
	if got := port.breakCount(); got != 1 {
		t.Errorf("break count = %d, want 1", got)
	}
	frame := port.lastWrite()
	if len(frame) != DMXChannelCount+1 {
		t.Fatalf("frame length = %d, want %d", len(frame), DMXChannelCount+1)
	}
	if frame[0] != 0x00 {
		t.Errorf("start code = %#x, want 0x00", frame[0])
	}
	if frame[1] != 0xAA || frame[512] != 0x55 {
		t.Errorf("slot data = %#x/%#x, want 0xaa/0x55", frame[1], frame[512])
	}
}

func TestRenardDriverEscapesReservedBytes(t *testing.T) {
	opener := newFakeOpener()
	d := newSerialDriver(ProtocolRenard, 0, testUARTSlot, opener)
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	d.SetConfig(&SerialSettings{BaudRate: 57600, ChannelCount: 4})
	d.SetBuffer([]byte{0x10, 0x7D, 0x7E, 0x7F})

	d.Render()

	want := []byte{0x7E, 0x80, 0x10, 0x7F, 0x2F, 0x7F, 0x30, 0x7F, 0x31}
	if got := opener.portFor(testUARTSlot.UARTDevice).lastWrite(); !bytes.Equal(got, want) {
		t.Errorf("renard frame = %x, want %x", got, want)
	}
}

func TestGenericSerialHeaderFooter(t *testing.T) {
	opener := newFakeOpener()
	d := newSerialDriver(ProtocolGenericSerial, 0, testUARTSlot, opener)
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	d.SetConfig(&SerialSettings{BaudRate: 115200, ChannelCount: 3, Header: "AB", Footer: "C"})
	d.SetBuffer([]byte{1, 2, 3})

	d.Render()

	want := []byte{'A', 'B', 1, 2, 3, 'C'}
	if got := opener.portFor(testUARTSlot.UARTDevice).lastWrite(); !bytes.Equal(got, want) {
		t.Errorf("serial frame = %x, want %x", got, want)
	}
}

func TestDMXDriverForcesUniverseFraming(t *testing.T) {
	opener := newFakeOpener()
	d := newSerialDriver(ProtocolDMX, 0, testUARTSlot, opener)
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	d.SetConfig(&SerialSettings{BaudRate: 9600, ChannelCount: 16})

	cfg := d.Config().(*SerialSettings)
	if cfg.BaudRate != DMXBaudRate {
		t.Errorf("baud rate = %d, want %d", cfg.BaudRate, DMXBaudRate)
	}
	if cfg.ChannelCount != DMXChannelCount {
		t.Errorf("channel count = %d, want %d", cfg.ChannelCount, DMXChannelCount)
	}
}

func TestSerialDriverReconfiguresPortOnChange(t *testing.T) {
	opener := newFakeOpener()
	d := newSerialDriver(ProtocolGenericSerial, 0, testUARTSlot, opener)
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	if changed := d.SetConfig(&SerialSettings{BaudRate: 115200, ChannelCount: 64}); !changed {
		t.Fatal("SetConfig() reported no change for a new baud rate")
	}
	if got := opener.portFor(testUARTSlot.UARTDevice).lastMode().Baud; got != 115200 {
		t.Errorf("port baud after reconfigure = %d, want 115200", got)
	}

	if changed := d.SetConfig(&SerialSettings{BaudRate: 115200, ChannelCount: 64}); changed {
		t.Error("SetConfig() reported a change for identical settings")
	}
}

func TestRelayDriverThresholds(t *testing.T) {
	pins := newFakePins()
	d := newRelayDriver(0, pins)
	d.SetConfig(&RelaySettings{Channels: []RelayChannel{
		{Enabled: true, GPIO: 5},
		{Enabled: true, Invert: true, GPIO: 6},
	}})
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	// Begin parks pins at their off level
	if pins.level(5) != false || pins.level(6) != true {
		t.Fatalf("parked levels = %v/%v, want false/true", pins.level(5), pins.level(6))
	}

	d.SetBuffer([]byte{200, 200, 0, 0, 0, 0, 0, 0})
	d.Render()
	if pins.level(5) != true {
		t.Error("pin 5 should be high for a value above the threshold")
	}
	if pins.level(6) != false {
		t.Error("inverted pin 6 should be low while switched on")
	}

	d.SetBuffer([]byte{0, 127, 0, 0, 0, 0, 0, 0})
	d.Render()
	if pins.level(5) != false {
		t.Error("pin 5 should be low for a zero value")
	}
	if pins.level(6) != true {
		t.Error("inverted pin 6 should be high below the threshold")
	}

	d.Stop()
	if pins.level(5) != false || pins.level(6) != true {
		t.Errorf("stop levels = %v/%v, want false/true", pins.level(5), pins.level(6))
	}
}

func TestRelaySettingsNormalizeToFullBank(t *testing.T) {
	pins := newFakePins()
	d := newRelayDriver(0, pins)
	d.SetConfig(&RelaySettings{Channels: []RelayChannel{{Enabled: true, GPIO: 99}}})

	cfg := d.Config().(*RelaySettings)
	if len(cfg.Channels) != RelayChannelCount {
		t.Fatalf("bank size = %d, want %d", len(cfg.Channels), RelayChannelCount)
	}
	if cfg.Channels[0].GPIO != defaultRelayPins[0] {
		t.Errorf("out-of-range pin = %d, want default %d", cfg.Channels[0].GPIO, defaultRelayPins[0])
	}
	if got := d.ChannelsNeeded(); got != RelayChannelCount {
		t.Errorf("ChannelsNeeded() = %d, want %d", got, RelayChannelCount)
	}
}

func TestDisabledDriverIsInert(t *testing.T) {
	d := newDisabledDriver(1)
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if got := d.ChannelsNeeded(); got != 0 {
		t.Errorf("ChannelsNeeded() = %d, want 0", got)
	}
	d.SetBuffer(nil)
	d.Render()
	d.Stop()

	status, ok := d.Status().(DisabledStatus)
	if !ok {
		t.Fatalf("Status() type = %T, want DisabledStatus", d.Status())
	}
	if status.Channel != 1 || status.Type != "Disabled" {
		t.Errorf("status = %+v, want channel 1 type Disabled", status)
	}
}

func TestPixelDriverBeginFailsWithoutBackend(t *testing.T) {
	d := newPixelDriver(0, testUARTSlot, nil)
	if err := d.Begin(); err == nil {
		t.Fatal("Begin() with no serial backend should fail")
	}

	// A driver whose Begin failed renders as a no-op
	d.SetBuffer([]byte{1, 2, 3})
	d.Render()
}

func TestDriverStopClosesPort(t *testing.T) {
	opener := newFakeOpener()
	d := newSerialDriver(ProtocolDMX, 0, testUARTSlot, opener)
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	d.Stop()
	if !opener.portFor(testUARTSlot.UARTDevice).isClosed() {
		t.Error("Stop() should close the serial port")
	}
	d.Stop() // second stop is a safe no-op
}

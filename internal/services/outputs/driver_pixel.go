package outputs

import (
	"fmt"
	"math"

	"github.com/openlumen/pixelnode/internal/platform"
)

// PixelBaud is the UART rate at which one 8-bit frame carries two WS2811
// bit periods.
const PixelBaud = 3200000

// uartBitPairs maps two pixel-stream bits onto one UART frame.
var uartBitPairs = [4]byte{0x37, 0x07, 0x34, 0x04}

// pixelDriver drives WS2811-class strings by expanding each intensity byte
// into four UART frames. The slot's serial peripheral does the pulse timing.
type pixelDriver struct {
	driverBase
	slot     platform.Slot
	opener   platform.PortOpener
	port     platform.Port
	settings PixelSettings
	gamma    [256]byte
	encoded  []byte
}

// PixelStatus is the live status fragment of a pixel channel.
type PixelStatus struct {
	Channel    int    `json:"id"`
	Type       string `json:"type"`
	PixelCount int    `json:"pixel_count"`
	Frames     uint64 `json:"frames"`
}

func newPixelDriver(channel int, slot platform.Slot, opener platform.PortOpener) *pixelDriver {
	d := &pixelDriver{
		driverBase: driverBase{channel: channel},
		slot:       slot,
		opener:     opener,
		settings:   *(defaultSettings(ProtocolWS2811).(*PixelSettings)),
	}
	d.rebuildGamma()
	return d
}

func (d *pixelDriver) Begin() error {
	if d.opener == nil {
		return fmt.Errorf("no serial backend for channel %d", d.channel)
	}
	port, err := d.opener.Open(d.slot.UARTDevice, platform.PortMode{Baud: PixelBaud})
	if err != nil {
		return fmt.Errorf("failed to open pixel output on %s: %w", d.slot.UARTDevice, err)
	}
	d.port = port
	return nil
}

func (d *pixelDriver) Render() {
	if d.port == nil || len(d.window) == 0 {
		return
	}

	group := d.settings.GroupSize
	physical := d.settings.PixelCount
	logical := len(d.window) / 3
	if logical == 0 {
		return
	}
	offsets := colorOffsets(d.settings.ColorOrder)

	d.encoded = d.encoded[:0]
	for p := 0; p < physical; p++ {
		src := d.zigzag(p)
		idx := src / group
		if idx >= logical {
			idx = logical - 1
		}
		triplet := d.window[idx*3 : idx*3+3]
		for _, off := range offsets {
			value := d.gamma[triplet[off]]
			for shift := 6; shift >= 0; shift -= 2 {
				d.encoded = append(d.encoded, uartBitPairs[(value>>shift)&0x03])
			}
		}
	}
	if _, err := d.port.Write(d.encoded); err != nil {
		return
	}
	d.frames++
}

// zigzag maps an output pixel position to its source position, reversing
// every other segment of ZigZagSize pixels.
func (d *pixelDriver) zigzag(p int) int {
	z := d.settings.ZigZagSize
	if z <= 0 {
		return p
	}
	segment := p / z
	if segment%2 == 0 {
		return p
	}
	pos := p % z
	src := segment*z + (z - 1 - pos)
	if src >= d.settings.PixelCount {
		return p
	}
	return src
}

func (d *pixelDriver) SetConfig(settings DriverSettings) bool {
	next := *(defaultSettings(ProtocolWS2811).(*PixelSettings))
	if ps, ok := settings.(*PixelSettings); ok && ps != nil {
		next = *ps
	}
	next.Normalize()
	next.DriverName = d.Name()

	changed := next != d.settings
	d.settings = next
	if changed {
		d.rebuildGamma()
	}
	return changed
}

func (d *pixelDriver) rebuildGamma() {
	brightness := float64(d.settings.Brightness) / 100.0
	for i := 0; i < 256; i++ {
		corrected := math.Pow(float64(i)/255.0, d.settings.Gamma) * 255.0 * brightness
		d.gamma[i] = byte(math.Round(math.Min(corrected, 255)))
	}
}

func (d *pixelDriver) Config() DriverSettings {
	snapshot := d.settings
	return &snapshot
}

func (d *pixelDriver) Status() any {
	return PixelStatus{
		Channel:    d.channel,
		Type:       d.Name(),
		PixelCount: d.settings.PixelCount,
		Frames:     d.frames,
	}
}

func (d *pixelDriver) Type() ProtocolType { return ProtocolWS2811 }

func (d *pixelDriver) Name() string { return ProtocolWS2811.String() }

// ChannelsNeeded reports one RGB triplet per pixel group.
func (d *pixelDriver) ChannelsNeeded() int {
	groups := (d.settings.PixelCount + d.settings.GroupSize - 1) / d.settings.GroupSize
	return groups * 3
}

func (d *pixelDriver) Stop() {
	if d.port != nil {
		_ = d.port.Close()
		d.port = nil
	}
}

// colorOffsets maps a color-order string onto input triplet offsets.
func colorOffsets(order string) [3]int {
	offsets := [3]int{0, 1, 2}
	for i, c := range order {
		switch c {
		case 'r':
			offsets[i] = 0
		case 'g':
			offsets[i] = 1
		case 'b':
			offsets[i] = 2
		}
	}
	return offsets
}

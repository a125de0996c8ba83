package outputs

import (
	"fmt"

	"github.com/openlumen/pixelnode/internal/platform"
)

// GECEBaud is the UART rate used to synthesize the self-clocked GECE bit
// stream.
const GECEBaud = 300000

// geceMaxIntensity is the brightest level a GECE bulb accepts.
const geceMaxIntensity = 0xCC

// geceDriver drives GE Color Effects strings. Each bulb takes one 26-bit
// frame: 6-bit address, 8-bit intensity, then 4 bits each of blue, green and
// red.
type geceDriver struct {
	driverBase
	slot     platform.Slot
	opener   platform.PortOpener
	port     platform.Port
	settings GECESettings
	encoded  []byte
}

// GECEStatus is the live status fragment of a GECE channel.
type GECEStatus struct {
	Channel    int    `json:"id"`
	Type       string `json:"type"`
	PixelCount int    `json:"pixel_count"`
	Frames     uint64 `json:"frames"`
}

func newGECEDriver(channel int, slot platform.Slot, opener platform.PortOpener) *geceDriver {
	return &geceDriver{
		driverBase: driverBase{channel: channel},
		slot:       slot,
		opener:     opener,
		settings:   *(defaultSettings(ProtocolGECE).(*GECESettings)),
	}
}

func (d *geceDriver) Begin() error {
	if d.opener == nil {
		return fmt.Errorf("no serial backend for channel %d", d.channel)
	}
	port, err := d.opener.Open(d.slot.UARTDevice, platform.PortMode{Baud: GECEBaud})
	if err != nil {
		return fmt.Errorf("failed to open GECE output on %s: %w", d.slot.UARTDevice, err)
	}
	d.port = port
	return nil
}

func (d *geceDriver) Render() {
	if d.port == nil || len(d.window) == 0 {
		return
	}

	bulbs := d.settings.PixelCount
	if max := len(d.window) / 3; bulbs > max {
		bulbs = max
	}
	intensity := uint32(geceMaxIntensity * d.settings.Brightness / 100)

	d.encoded = d.encoded[:0]
	for bulb := 0; bulb < bulbs; bulb++ {
		r := uint32(d.window[bulb*3+0] >> 4)
		g := uint32(d.window[bulb*3+1] >> 4)
		b := uint32(d.window[bulb*3+2] >> 4)
		frame := uint32(bulb&0x3f)<<20 | intensity<<12 | b<<8 | g<<4 | r
		// 26 bits packed MSB-first for the UART encoder
		d.encoded = append(d.encoded,
			byte(frame>>24), byte(frame>>16), byte(frame>>8), byte(frame))
	}
	if _, err := d.port.Write(d.encoded); err != nil {
		return
	}
	d.frames++
}

func (d *geceDriver) SetConfig(settings DriverSettings) bool {
	next := *(defaultSettings(ProtocolGECE).(*GECESettings))
	if gs, ok := settings.(*GECESettings); ok && gs != nil {
		next = *gs
	}
	next.Normalize()
	next.DriverName = d.Name()

	changed := next != d.settings
	d.settings = next
	return changed
}

func (d *geceDriver) Config() DriverSettings {
	snapshot := d.settings
	return &snapshot
}

func (d *geceDriver) Status() any {
	return GECEStatus{
		Channel:    d.channel,
		Type:       d.Name(),
		PixelCount: d.settings.PixelCount,
		Frames:     d.frames,
	}
}

func (d *geceDriver) Type() ProtocolType { return ProtocolGECE }

func (d *geceDriver) Name() string { return ProtocolGECE.String() }

func (d *geceDriver) ChannelsNeeded() int {
	return d.settings.PixelCount * 3
}

func (d *geceDriver) Stop() {
	if d.port != nil {
		_ = d.port.Close()
		d.port = nil
	}
}

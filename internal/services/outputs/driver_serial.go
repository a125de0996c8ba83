package outputs

import (
	"fmt"
	"log"
	"time"

	"github.com/openlumen/pixelnode/internal/platform"
)

// dmxBreak is the line-break duration opening each DMX frame.
const dmxBreak = time.Millisecond

// Renard framing bytes.
const (
	renardSync    = 0x7e
	renardAddress = 0x80
	renardEscape  = 0x7f
)

// serialDriver implements the serial-framing family: DMX512, Renard and
// generic serial share a port and differ only in frame layout.
type serialDriver struct {
	driverBase
	protocol ProtocolType
	slot     platform.Slot
	opener   platform.PortOpener
	port     platform.Port
	settings SerialSettings
	encoded  []byte
}

// SerialStatus is the live status fragment of a serial-family channel.
type SerialStatus struct {
	Channel  int    `json:"id"`
	Type     string `json:"type"`
	BaudRate int    `json:"baudrate"`
	Channels int    `json:"num_chan"`
	Frames   uint64 `json:"frames"`
}

func newSerialDriver(protocol ProtocolType, channel int, slot platform.Slot, opener platform.PortOpener) *serialDriver {
	return &serialDriver{
		driverBase: driverBase{channel: channel},
		protocol:   protocol,
		slot:       slot,
		opener:     opener,
		settings:   *(defaultSettings(protocol).(*SerialSettings)),
	}
}

func (d *serialDriver) Begin() error {
	if d.opener == nil {
		return fmt.Errorf("no serial backend for channel %d", d.channel)
	}
	port, err := d.opener.Open(d.slot.UARTDevice, d.portMode())
	if err != nil {
		return fmt.Errorf("failed to open %s output on %s: %w", d.Name(), d.slot.UARTDevice, err)
	}
	d.port = port
	return nil
}

// portMode returns the serial framing for the active protocol. DMX is fixed
// at 250000 baud with two stop bits.
func (d *serialDriver) portMode() platform.PortMode {
	if d.protocol == ProtocolDMX {
		return platform.PortMode{Baud: DMXBaudRate, TwoStopBits: true}
	}
	return platform.PortMode{Baud: d.settings.BaudRate}
}

func (d *serialDriver) Render() {
	if d.port == nil || len(d.window) == 0 {
		return
	}

	d.encoded = d.encoded[:0]
	switch d.protocol {
	case ProtocolDMX:
		if err := d.port.Break(dmxBreak); err != nil {
			return
		}
		d.encoded = append(d.encoded, 0x00) // null start code
		d.encoded = append(d.encoded, d.window...)

	case ProtocolRenard:
		d.encoded = append(d.encoded, renardSync, renardAddress)
		for _, value := range d.window {
			// 0x7D-0x7F are reserved; escape them per the Renard protocol
			if value >= 0x7d && value <= 0x7f {
				d.encoded = append(d.encoded, renardEscape, value-0x4e)
				continue
			}
			d.encoded = append(d.encoded, value)
		}

	default: // generic serial
		d.encoded = append(d.encoded, d.settings.Header...)
		d.encoded = append(d.encoded, d.window...)
		d.encoded = append(d.encoded, d.settings.Footer...)
	}

	if _, err := d.port.Write(d.encoded); err != nil {
		return
	}
	d.frames++
}

func (d *serialDriver) SetConfig(settings DriverSettings) bool {
	next := *(defaultSettings(d.protocol).(*SerialSettings))
	if ss, ok := settings.(*SerialSettings); ok && ss != nil {
		next = *ss
	}
	next.Normalize()
	next.DriverName = d.Name()
	if d.protocol == ProtocolDMX {
		// A DMX universe is exactly 512 slots at a fixed rate
		next.BaudRate = DMXBaudRate
		next.ChannelCount = DMXChannelCount
	}

	changed := next != d.settings
	d.settings = next
	if changed && d.port != nil {
		if err := d.port.Configure(d.portMode()); err != nil {
			log.Printf("⚠️ Failed to reconfigure %s port on channel %d: %v", d.Name(), d.channel, err)
		}
	}
	return changed
}

func (d *serialDriver) Config() DriverSettings {
	snapshot := d.settings
	return &snapshot
}

func (d *serialDriver) Status() any {
	return SerialStatus{
		Channel:  d.channel,
		Type:     d.Name(),
		BaudRate: d.settings.BaudRate,
		Channels: d.settings.ChannelCount,
		Frames:   d.frames,
	}
}

func (d *serialDriver) Type() ProtocolType { return d.protocol }

func (d *serialDriver) Name() string { return d.protocol.String() }

func (d *serialDriver) ChannelsNeeded() int {
	return d.settings.ChannelCount
}

func (d *serialDriver) Stop() {
	if d.port != nil {
		_ = d.port.Close()
		d.port = nil
	}
}

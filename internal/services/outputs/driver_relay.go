package outputs

import (
	"slices"

	"github.com/openlumen/pixelnode/internal/platform"
)

// relayOnThreshold is the window byte level at which a relay switches on.
const relayOnThreshold = 128

// relayDriver switches a bank of GPIO relay outputs, one window byte per
// relay.
type relayDriver struct {
	driverBase
	pins     platform.GPIO
	settings RelaySettings
	started  bool
}

// RelayStatus is the live status fragment of a relay channel.
type RelayStatus struct {
	Channel int    `json:"id"`
	Type    string `json:"type"`
	Enabled int    `json:"enabled"`
	Frames  uint64 `json:"frames"`
}

func newRelayDriver(channel int, pins platform.GPIO) *relayDriver {
	return &relayDriver{
		driverBase: driverBase{channel: channel},
		pins:       pins,
		settings:   *(defaultSettings(ProtocolRelay).(*RelaySettings)),
	}
}

func (d *relayDriver) Begin() error {
	d.started = true
	d.setupPins()
	return nil
}

// setupPins claims each enabled pin and parks it in the off state.
func (d *relayDriver) setupPins() {
	if d.pins == nil {
		return
	}
	for _, relay := range d.settings.Channels {
		if !relay.Enabled {
			continue
		}
		_ = d.pins.Setup(relay.GPIO)
		_ = d.pins.Set(relay.GPIO, relay.Invert)
	}
}

func (d *relayDriver) Render() {
	if d.pins == nil || !d.started {
		return
	}
	for i, relay := range d.settings.Channels {
		if !relay.Enabled {
			continue
		}
		on := i < len(d.window) && d.window[i] >= relayOnThreshold
		_ = d.pins.Set(relay.GPIO, on != relay.Invert)
	}
	d.frames++
}

func (d *relayDriver) SetConfig(settings DriverSettings) bool {
	next := *(defaultSettings(ProtocolRelay).(*RelaySettings))
	if rs, ok := settings.(*RelaySettings); ok && rs != nil {
		next = RelaySettings{DriverName: rs.DriverName, Channels: slices.Clone(rs.Channels)}
	}
	next.Normalize()
	next.DriverName = d.Name()

	changed := !slices.Equal(next.Channels, d.settings.Channels)
	d.settings = next
	if changed && d.started {
		d.setupPins()
	}
	return changed
}

func (d *relayDriver) Config() DriverSettings {
	return &RelaySettings{
		DriverName: d.settings.DriverName,
		Channels:   slices.Clone(d.settings.Channels),
	}
}

func (d *relayDriver) Status() any {
	enabled := 0
	for _, relay := range d.settings.Channels {
		if relay.Enabled {
			enabled++
		}
	}
	return RelayStatus{
		Channel: d.channel,
		Type:    d.Name(),
		Enabled: enabled,
		Frames:  d.frames,
	}
}

func (d *relayDriver) Type() ProtocolType { return ProtocolRelay }

func (d *relayDriver) Name() string { return ProtocolRelay.String() }

func (d *relayDriver) ChannelsNeeded() int { return RelayChannelCount }

// Stop parks every enabled relay in the off state.
func (d *relayDriver) Stop() {
	if d.pins == nil {
		return
	}
	for _, relay := range d.settings.Channels {
		if relay.Enabled {
			_ = d.pins.Set(relay.GPIO, relay.Invert)
		}
	}
}

package outputs

// disabledDriver is the safe placeholder occupying a channel with no active
// protocol. It needs no hardware and no buffer bytes.
type disabledDriver struct {
	driverBase
	settings DisabledSettings
}

// DisabledStatus is the status fragment of an idle channel.
type DisabledStatus struct {
	Channel int    `json:"id"`
	Type    string `json:"type"`
}

func newDisabledDriver(channel int) *disabledDriver {
	return &disabledDriver{
		driverBase: driverBase{channel: channel},
		settings:   DisabledSettings{DriverName: ProtocolDisabled.String()},
	}
}

func (d *disabledDriver) Begin() error { return nil }

func (d *disabledDriver) Render() {}

func (d *disabledDriver) SetConfig(settings DriverSettings) bool { return false }

func (d *disabledDriver) Config() DriverSettings {
	snapshot := d.settings
	return &snapshot
}

func (d *disabledDriver) Status() any {
	return DisabledStatus{Channel: d.channel, Type: d.Name()}
}

func (d *disabledDriver) Type() ProtocolType { return ProtocolDisabled }

func (d *disabledDriver) Name() string { return ProtocolDisabled.String() }

func (d *disabledDriver) ChannelsNeeded() int { return 0 }

func (d *disabledDriver) Stop() {}

package outputs

import (
	"github.com/openlumen/pixelnode/internal/platform"
)

// Driver is the contract every protocol implementation satisfies. A driver
// owns exactly one protocol on exactly one channel; changing a channel's
// protocol replaces the whole driver rather than mutating it.
type Driver interface {
	// Begin performs one-time hardware setup. It is called exactly once per
	// instance; a failure leaves the driver installed but rendering no-ops.
	Begin() error
	// Render emits one frame from the assigned buffer window. It must not
	// block past a frame period.
	Render()
	// SetConfig applies typed settings, clamping invalid values. A nil or
	// foreign-typed argument applies defaults. Returns whether anything
	// changed.
	SetConfig(settings DriverSettings) bool
	// Config returns a snapshot of the current settings for harvesting into
	// the composite document.
	Config() DriverSettings
	// Status returns the driver's live status fragment.
	Status() any
	// Type returns the protocol this driver implements.
	Type() ProtocolType
	// Channel returns the output channel this driver occupies.
	Channel() int
	// Name returns the stable display name recorded in config documents.
	Name() string
	// ChannelsNeeded returns how many frame-buffer bytes the driver wants
	// given its current settings.
	ChannelsNeeded() int
	// SetBuffer assigns the driver's window of the shared frame buffer. The
	// driver must not touch bytes outside it.
	SetBuffer(window []byte)
	// Stop leaves the hardware in a safe state. Called before the driver is
	// replaced and at daemon shutdown.
	Stop()
}

// driverBase carries the identity and buffer window common to all drivers.
type driverBase struct {
	channel int
	window  []byte
	frames  uint64
}

func (d *driverBase) Channel() int {
	return d.channel
}

func (d *driverBase) SetBuffer(window []byte) {
	d.window = window
}

// newDriver constructs the driver variant for a protocol whose resource
// requirements have already been vetted against the slot.
func newDriver(t ProtocolType, channel int, slot platform.Slot, hw platform.Hardware) Driver {
	switch t {
	case ProtocolWS2811:
		return newPixelDriver(channel, slot, hw.UARTs)
	case ProtocolGECE:
		return newGECEDriver(channel, slot, hw.UARTs)
	case ProtocolGenericSerial, ProtocolRenard, ProtocolDMX:
		return newSerialDriver(t, channel, slot, hw.UARTs)
	case ProtocolRelay:
		return newRelayDriver(channel, hw.Pins)
	default:
		return newDisabledDriver(channel)
	}
}

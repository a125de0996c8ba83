// Package platform describes the fixed hardware resources available to the
// output subsystem on a given board: which output slots exist, which data pin
// each slot drives, and whether the slot has a dedicated UART. Slot tables are
// compiled-in profiles selected by name at startup; they never change while
// the daemon runs.
package platform

import "log"

// Slot is the hardware binding for one output channel identity. A slot keeps
// its pin and UART assignment no matter which protocol driver currently
// occupies it.
type Slot struct {
	Channel    int    // zero-based output channel id
	DataPin    int    // BCM pin number (display, relay defaults)
	UARTDevice string // serial device path; empty means no UART on this slot
}

// HasUART reports whether the slot has a dedicated serial peripheral.
// Slots without one can only run GPIO-class protocols.
func (s Slot) HasUART() bool {
	return s.UARTDevice != ""
}

// Profile is a named board layout.
type Profile struct {
	Name  string
	Slots []Slot
}

// DefaultProfileName is used when no profile is configured.
const DefaultProfileName = "pi-hat-3"

var profiles = map[string]Profile{
	// Three-port pixel hat: two UART-backed ports plus one bare GPIO port.
	"pi-hat-3": {
		Name: "pi-hat-3",
		Slots: []Slot{
			{Channel: 0, DataPin: 14, UARTDevice: "/dev/ttyAMA0"},
			{Channel: 1, DataPin: 18, UARTDevice: ""},
			{Channel: 2, DataPin: 8, UARTDevice: "/dev/ttyAMA1"},
		},
	},
	// Relay-only carrier board, no serial peripherals at all.
	"bare-2": {
		Name: "bare-2",
		Slots: []Slot{
			{Channel: 0, DataPin: 18, UARTDevice: ""},
			{Channel: 1, DataPin: 13, UARTDevice: ""},
		},
	},
}

// ProfileByName returns the named board profile. Unknown names fall back to
// the default profile with a logged warning rather than failing startup.
func ProfileByName(name string) Profile {
	if p, ok := profiles[name]; ok {
		return p
	}
	log.Printf("⚠️ Unknown platform profile '%s', falling back to '%s'", name, DefaultProfileName)
	return profiles[DefaultProfileName]
}

// ProfileNames lists the available board profiles.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	return names
}

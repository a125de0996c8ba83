// Package wifi reports WiFi connectivity for the device API. Nodes wired
// over Ethernet simply show up as unavailable.
package wifi

// Status represents the current WiFi status.
type Status struct {
	Available      bool    `json:"available"`
	Enabled        bool    `json:"enabled"`
	Connected      bool    `json:"connected"`
	SSID           *string `json:"ssid,omitempty"`
	SignalStrength *int    `json:"signal_strength,omitempty"`
	IPAddress      *string `json:"ip_address,omitempty"`
	MACAddress     *string `json:"mac_address,omitempty"`
}

// CommandExecutor interface for executing shell commands (for testing).
type CommandExecutor interface {
	Execute(name string, args ...string) ([]byte, error)
}

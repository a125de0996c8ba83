package wifi

import (
	"context"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// Service reads WiFi state from NetworkManager.
type Service struct {
	mu            sync.RWMutex
	wifiInterface string

	// Command executor (for testing)
	executor CommandExecutor
}

// realExecutor implements CommandExecutor using actual shell commands.
type realExecutor struct{}

func (e *realExecutor) Execute(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// NewService creates a new WiFi service.
func NewService() *Service {
	return &Service{
		wifiInterface: "wlan0",
		executor:      &realExecutor{},
	}
}

// SetExecutor sets the command executor (for testing).
func (s *Service) SetExecutor(executor CommandExecutor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executor = executor
}

// GetStatus returns the current WiFi status. Failures to reach nmcli
// degrade to Available=false rather than an error; the device API treats
// a wired-only node as a normal condition.
func (s *Service) GetStatus(ctx context.Context) (*Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := &Status{}
	if runtime.GOOS != "linux" {
		return status, nil
	}

	out, err := s.executor.Execute("nmcli", "-t", "-f", "DEVICE,TYPE", "device", "status")
	if err != nil || !hasWiFiDevice(out) {
		return status, nil
	}
	status.Available = true

	if out, err := s.executor.Execute("nmcli", "radio", "wifi"); err == nil {
		status.Enabled = strings.TrimSpace(string(out)) == "enabled"
	}
	if !status.Enabled {
		return status, nil
	}

	out, err = s.executor.Execute("nmcli", "-t", "-f", "DEVICE,STATE", "device", "status")
	if err != nil || !interfaceConnected(out, s.wifiInterface) {
		return status, nil
	}
	status.Connected = true

	s.fillClientStatus(status)
	return status, nil
}

// fillClientStatus fetches SSID, addresses, and signal for the connected
// interface. Missing fields are left nil.
func (s *Service) fillClientStatus(status *Status) {
	if out, err := s.executor.Execute("nmcli", "-t", "-f", "GENERAL.CONNECTION", "device", "show", s.wifiInterface); err == nil {
		if ssid := fieldValue(out, "GENERAL.CONNECTION:"); ssid != "" {
			status.SSID = &ssid
		}
	}

	if out, err := s.executor.Execute("nmcli", "-t", "-f", "IP4.ADDRESS", "device", "show", s.wifiInterface); err == nil {
		for _, line := range strings.Split(string(out), "\n") {
			if strings.HasPrefix(line, "IP4.ADDRESS") {
				parts := strings.Split(line, ":")
				if len(parts) > 1 {
					ip := strings.Split(parts[1], "/")[0]
					status.IPAddress = &ip
					break
				}
			}
		}
	}

	if out, err := s.executor.Execute("nmcli", "-t", "-f", "GENERAL.HWADDR", "device", "show", s.wifiInterface); err == nil {
		if mac := fieldValue(out, "GENERAL.HWADDR:"); mac != "" {
			status.MACAddress = &mac
		}
	}

	if out, err := s.executor.Execute("nmcli", "-t", "-f", "IN-USE,SIGNAL", "device", "wifi", "list"); err == nil {
		if signal, ok := activeSignal(out); ok {
			status.SignalStrength = &signal
		}
	}
}

// hasWiFiDevice reports whether a DEVICE,TYPE listing contains a wifi entry.
func hasWiFiDevice(out []byte) bool {
	for _, line := range strings.Split(string(out), "\n") {
		parts := strings.Split(line, ":")
		if len(parts) >= 2 && parts[1] == "wifi" {
			return true
		}
	}
	return false
}

// interfaceConnected reports whether a DEVICE,STATE listing shows iface
// as connected.
func interfaceConnected(out []byte, iface string) bool {
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(line, iface+":") {
			return strings.Contains(line, "connected") && !strings.Contains(line, "disconnected")
		}
	}
	return false
}

// fieldValue extracts the value after a nmcli terse field prefix.
func fieldValue(out []byte, prefix string) string {
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimPrefix(line, prefix)
		}
	}
	return ""
}

// activeSignal extracts the SIGNAL column of the in-use row of an
// IN-USE,SIGNAL wifi listing.
func activeSignal(out []byte) (int, bool) {
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "*:") {
			continue
		}
		signal, err := strconv.Atoi(strings.TrimPrefix(line, "*:"))
		if err != nil {
			return 0, false
		}
		return signal, true
	}
	return 0, false
}

// Package network enumerates the node's reachable addresses for the
// device API and the startup banner.
package network

import (
	"fmt"
	"net"
	"strings"
)

// Interface is one reachable IPv4 address of the node.
type Interface struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	MAC     string `json:"mac,omitempty"`
	Type    string `json:"type"` // "ethernet", "wifi", "other"
}

// InterfaceType guesses the link type from the interface name.
func InterfaceType(ifaceName string) string {
	name := strings.ToLower(ifaceName)

	// en0 is typically WiFi on macOS
	if name == "en0" {
		return "wifi"
	}

	// Common ethernet naming patterns
	if strings.HasPrefix(name, "eth") ||
		strings.HasPrefix(name, "en") ||
		strings.HasPrefix(name, "enp") ||
		strings.HasPrefix(name, "eno") {
		return "ethernet"
	}

	// Common WiFi naming patterns
	if strings.HasPrefix(name, "wlan") ||
		strings.HasPrefix(name, "wl") ||
		strings.Contains(name, "wifi") ||
		strings.Contains(name, "wireless") {
		return "wifi"
	}

	return "other"
}

// ListInterfaces returns the up, non-loopback interfaces that carry an
// IPv4 address, wired links first.
func ListInterfaces() ([]Interface, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to get network interfaces: %w", err)
	}

	var ethernet []Interface
	var wifi []Interface
	var other []Interface

	for _, iface := range interfaces {
		// Skip down interfaces
		if iface.Flags&net.FlagUp == 0 {
			continue
		}

		// Skip loopback
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}

			// Only IPv4
			ip4 := ipNet.IP.To4()
			if ip4 == nil {
				continue
			}

			entry := Interface{
				Name:    iface.Name,
				Address: ip4.String(),
				MAC:     iface.HardwareAddr.String(),
				Type:    InterfaceType(iface.Name),
			}

			switch entry.Type {
			case "ethernet":
				ethernet = append(ethernet, entry)
			case "wifi":
				wifi = append(wifi, entry)
			default:
				other = append(other, entry)
			}
		}
	}

	options := make([]Interface, 0, len(ethernet)+len(wifi)+len(other))
	options = append(options, ethernet...)
	options = append(options, wifi...)
	options = append(options, other...)
	return options, nil
}

// AccessURLs builds the http URLs the startup banner prints, one per
// reachable address.
func AccessURLs(port string) []string {
	interfaces, err := ListInterfaces()
	if err != nil {
		return nil
	}

	urls := make([]string, 0, len(interfaces))
	for _, iface := range interfaces {
		urls = append(urls, fmt.Sprintf("http://%s:%s", iface.Address, port))
	}
	return urls
}

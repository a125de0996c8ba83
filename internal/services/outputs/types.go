package outputs

// ProtocolType identifies the wire protocol a channel drives. The integer
// values are persisted as keys in the output configuration document and must
// never be renumbered.
type ProtocolType int

const (
	// ProtocolWS2811 drives pulse-timed addressable pixel strings.
	ProtocolWS2811 ProtocolType = iota
	// ProtocolGECE drives GE Color Effects strings.
	ProtocolGECE
	// ProtocolGenericSerial streams raw channel data with an optional
	// header/footer.
	ProtocolGenericSerial
	// ProtocolRenard drives Renard dimmer boards.
	ProtocolRenard
	// ProtocolDMX drives a DMX512 universe.
	ProtocolDMX
	// ProtocolRelay switches a bank of GPIO relay outputs.
	ProtocolRelay
	// ProtocolDisabled is the safe placeholder occupying an idle channel.
	ProtocolDisabled

	protocolTypeEnd // sentinel, keep last
)

var protocolNames = map[ProtocolType]string{
	ProtocolWS2811:        "WS2811",
	ProtocolGECE:          "GECE",
	ProtocolGenericSerial: "Serial",
	ProtocolRenard:        "Renard",
	ProtocolDMX:           "DMX",
	ProtocolRelay:         "Relay",
	ProtocolDisabled:      "Disabled",
}

// String returns the stable display name for the protocol.
func (t ProtocolType) String() string {
	if name, ok := protocolNames[t]; ok {
		return name
	}
	return "Unknown"
}

// Valid reports whether t is inside the enumerated range.
func (t ProtocolType) Valid() bool {
	return t >= 0 && t < protocolTypeEnd
}

// RequiresUART reports whether the protocol needs a serial peripheral on its
// slot. Everything except Relay and Disabled streams through a UART.
func (t ProtocolType) RequiresUART() bool {
	switch t {
	case ProtocolWS2811, ProtocolGECE, ProtocolGenericSerial, ProtocolRenard, ProtocolDMX:
		return true
	}
	return false
}

// protocolTypes returns every valid protocol in persisted-key order.
func protocolTypes() []ProtocolType {
	types := make([]ProtocolType, 0, int(protocolTypeEnd))
	for t := ProtocolType(0); t < protocolTypeEnd; t++ {
		types = append(types, t)
	}
	return types
}

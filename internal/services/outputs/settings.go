package outputs

import "strings"

// Limits and defaults for the per-protocol settings documents.
const (
	DefaultPixelCount = 170 // one full universe of RGB pixels
	MaxPixelCount     = 1360
	MaxGECEPixels     = 63 // GECE strings address at most 63 bulbs

	DMXBaudRate       = 250000
	DMXChannelCount   = 512
	DefaultSerialBaud = 57600
	MinSerialBaud     = 2400
	MaxSerialBaud     = 3686400
	MaxSerialChannels = 1024

	RelayChannelCount = 8
)

var colorOrders = map[string]bool{
	"rgb": true, "rbg": true, "grb": true, "gbr": true, "brg": true, "bgr": true,
}

// defaultRelayPins are the relay GPIO assignments of the common 8-relay
// carrier boards.
var defaultRelayPins = []int{5, 6, 13, 16, 19, 20, 21, 26}

// DriverSettings is the typed protocol-specific portion of a channel's
// configuration. Implementations clamp out-of-range fields in Normalize
// rather than rejecting them; applying settings never fails.
type DriverSettings interface {
	// Normalize clamps out-of-range fields to usable values.
	Normalize()
	// Label returns the display name recorded in the sub-document.
	Label() string
}

// PixelSettings configures a WS2811-class pixel string. PixelCount is the
// physical string length; GroupSize physical pixels share one channel
// triplet.
type PixelSettings struct {
	DriverName string  `json:"type,omitempty"`
	PixelCount int     `json:"pixel_count"`
	ColorOrder string  `json:"color_order"`
	GroupSize  int     `json:"group_size"`
	ZigZagSize int     `json:"zig_size"`
	Gamma      float64 `json:"gamma"`
	Brightness int     `json:"brightness"` // percent
}

// Normalize clamps pixel settings into hardware limits.
func (s *PixelSettings) Normalize() {
	if s.PixelCount < 1 {
		s.PixelCount = 1
	}
	if s.PixelCount > MaxPixelCount {
		s.PixelCount = MaxPixelCount
	}
	s.ColorOrder = strings.ToLower(s.ColorOrder)
	if !colorOrders[s.ColorOrder] {
		s.ColorOrder = "rgb"
	}
	if s.GroupSize < 1 {
		s.GroupSize = 1
	}
	if s.GroupSize > s.PixelCount {
		s.GroupSize = s.PixelCount
	}
	if s.ZigZagSize < 0 {
		s.ZigZagSize = 0
	}
	if s.Gamma < 1.0 || s.Gamma > 5.0 {
		s.Gamma = 2.2
	}
	if s.Brightness < 0 {
		s.Brightness = 0
	}
	if s.Brightness > 100 {
		s.Brightness = 100
	}
}

// Label returns the display name recorded in the sub-document.
func (s *PixelSettings) Label() string { return s.DriverName }

// GECESettings configures a GE Color Effects string.
type GECESettings struct {
	DriverName string `json:"type,omitempty"`
	PixelCount int    `json:"pixel_count"`
	Brightness int    `json:"brightness"` // percent
}

// Normalize clamps GECE settings into protocol limits.
func (s *GECESettings) Normalize() {
	if s.PixelCount < 1 {
		s.PixelCount = 1
	}
	if s.PixelCount > MaxGECEPixels {
		s.PixelCount = MaxGECEPixels
	}
	if s.Brightness < 0 {
		s.Brightness = 0
	}
	if s.Brightness > 100 {
		s.Brightness = 100
	}
}

// Label returns the display name recorded in the sub-document.
func (s *GECESettings) Label() string { return s.DriverName }

// SerialSettings configures the serial-framing family: DMX512, Renard and
// generic serial. Header and Footer only apply to generic serial.
type SerialSettings struct {
	DriverName   string `json:"type,omitempty"`
	BaudRate     int    `json:"baudrate"`
	ChannelCount int    `json:"num_chan"`
	Header       string `json:"gen_ser_hdr,omitempty"`
	Footer       string `json:"gen_ser_ftr,omitempty"`
}

// Normalize clamps serial settings into usable ranges. Protocol-specific
// constraints (the fixed DMX baud rate) are applied by the driver.
func (s *SerialSettings) Normalize() {
	if s.BaudRate < MinSerialBaud || s.BaudRate > MaxSerialBaud {
		s.BaudRate = DefaultSerialBaud
	}
	if s.ChannelCount < 1 {
		s.ChannelCount = 1
	}
	if s.ChannelCount > MaxSerialChannels {
		s.ChannelCount = MaxSerialChannels
	}
}

// Label returns the display name recorded in the sub-document.
func (s *SerialSettings) Label() string { return s.DriverName }

// RelayChannel is one relay output within a bank.
type RelayChannel struct {
	Enabled bool `json:"enabled"`
	Invert  bool `json:"invertoutput"`
	GPIO    int  `json:"gpioid"`
}

// RelaySettings configures a bank of relay outputs.
type RelaySettings struct {
	DriverName string         `json:"type,omitempty"`
	Channels   []RelayChannel `json:"channels"`
}

// Normalize forces the bank to exactly RelayChannelCount entries and clamps
// pin numbers to the header range.
func (s *RelaySettings) Normalize() {
	for len(s.Channels) < RelayChannelCount {
		s.Channels = append(s.Channels, RelayChannel{GPIO: defaultRelayPins[len(s.Channels)]})
	}
	s.Channels = s.Channels[:RelayChannelCount]
	for i := range s.Channels {
		if s.Channels[i].GPIO < 0 || s.Channels[i].GPIO > 27 {
			s.Channels[i].GPIO = defaultRelayPins[i]
		}
	}
}

// Label returns the display name recorded in the sub-document.
func (s *RelaySettings) Label() string { return s.DriverName }

// DisabledSettings is the empty settings document for an idle channel.
type DisabledSettings struct {
	DriverName string `json:"type,omitempty"`
}

// Normalize is a no-op; a disabled channel has nothing to clamp.
func (s *DisabledSettings) Normalize() {}

// Label returns the display name recorded in the sub-document.
func (s *DisabledSettings) Label() string { return s.DriverName }

// defaultSettings returns the built-in defaults for a protocol, labeled with
// its display name. Unknown types get disabled settings.
func defaultSettings(t ProtocolType) DriverSettings {
	switch t {
	case ProtocolWS2811:
		return &PixelSettings{
			DriverName: t.String(),
			PixelCount: DefaultPixelCount,
			ColorOrder: "rgb",
			GroupSize:  1,
			ZigZagSize: 0,
			Gamma:      2.2,
			Brightness: 100,
		}
	case ProtocolGECE:
		return &GECESettings{
			DriverName: t.String(),
			PixelCount: MaxGECEPixels,
			Brightness: 100,
		}
	case ProtocolDMX:
		return &SerialSettings{
			DriverName:   t.String(),
			BaudRate:     DMXBaudRate,
			ChannelCount: DMXChannelCount,
		}
	case ProtocolGenericSerial, ProtocolRenard:
		return &SerialSettings{
			DriverName:   t.String(),
			BaudRate:     DefaultSerialBaud,
			ChannelCount: 64,
		}
	case ProtocolRelay:
		s := &RelaySettings{DriverName: t.String()}
		s.Normalize()
		return s
	default:
		return &DisabledSettings{DriverName: ProtocolDisabled.String()}
	}
}

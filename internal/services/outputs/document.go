package outputs

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ConfigDocument is the composite output configuration: for every channel,
// the selected protocol plus the remembered settings of every protocol that
// has ever run on that channel. It is parsed once at the persistence/API
// boundary; internal logic only ever sees this typed form.
type ConfigDocument struct {
	Channels map[int]*ChannelConfig
}

// ChannelConfig is one channel's node in the composite document. Type selects
// which settings entry is authoritative; the other entries are retained so a
// later switch back restores remembered values instead of defaults.
type ChannelConfig struct {
	Type     ProtocolType
	Settings map[ProtocolType]DriverSettings
}

// ActiveSettings returns the sub-document for the selected protocol, or nil
// when the document never recorded one.
func (c *ChannelConfig) ActiveSettings() DriverSettings {
	if c == nil || c.Settings == nil {
		return nil
	}
	return c.Settings[c.Type]
}

// documentEnvelope is the wire shape of the persisted document.
type documentEnvelope struct {
	OutputConfig struct {
		Channels map[string]json.RawMessage `json:"channels"`
	} `json:"output_config"`
}

// ParseConfigDocument decodes a serialized output document. Only malformed
// JSON is an error; structural gaps (missing sections, unknown keys, corrupt
// sub-documents) are preserved or dropped so the apply pass can judge them.
func ParseConfigDocument(data []byte) (*ConfigDocument, error) {
	var envelope documentEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse output config: %w", err)
	}
	if envelope.OutputConfig.Channels == nil {
		// Missing section; the apply pass treats this as fully invalid
		return &ConfigDocument{}, nil
	}

	doc := &ConfigDocument{Channels: make(map[int]*ChannelConfig, len(envelope.OutputConfig.Channels))}
	for key, raw := range envelope.OutputConfig.Channels {
		id, err := strconv.Atoi(key)
		if err != nil || id < 0 {
			continue
		}
		node := &ChannelConfig{}
		if err := node.unmarshal(raw); err != nil {
			continue
		}
		doc.Channels[id] = node
	}
	return doc, nil
}

// Marshal serializes the document into its persisted JSON shape.
func (d *ConfigDocument) Marshal() ([]byte, error) {
	channels := make(map[string]json.RawMessage, len(d.Channels))
	for id, node := range d.Channels {
		raw, err := node.marshal()
		if err != nil {
			return nil, fmt.Errorf("failed to serialize channel %d: %w", id, err)
		}
		channels[strconv.Itoa(id)] = raw
	}

	var envelope documentEnvelope
	envelope.OutputConfig.Channels = channels
	return json.MarshalIndent(&envelope, "", "  ")
}

// marshal writes the node as {"type": <int>, "<int>": {...}, ...}.
func (c *ChannelConfig) marshal() (json.RawMessage, error) {
	out := make(map[string]any, len(c.Settings)+1)
	out["type"] = int(c.Type)
	for t, settings := range c.Settings {
		out[strconv.Itoa(int(t))] = settings
	}
	return json.Marshal(out)
}

// unmarshal reads a channel node. A missing or unreadable type field
// normalizes to Disabled; an out-of-range value is kept as-is so the apply
// pass can log and disable the channel. Sub-documents decode over protocol
// defaults, so absent fields keep their built-in values.
func (c *ChannelConfig) unmarshal(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.Type = ProtocolDisabled
	if rawType, ok := raw["type"]; ok {
		var t int
		if err := json.Unmarshal(rawType, &t); err == nil {
			c.Type = ProtocolType(t)
		}
	}

	c.Settings = make(map[ProtocolType]DriverSettings)
	for key, rawValue := range raw {
		if key == "type" {
			continue
		}
		n, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		t := ProtocolType(n)
		if !t.Valid() {
			continue
		}
		settings := defaultSettings(t)
		// Partial or mistyped fields keep their defaults; applying
		// settings never fails.
		_ = json.Unmarshal(rawValue, settings)
		c.Settings[t] = settings
	}
	return nil
}

// ChannelOption is one selectable protocol entry in the options document.
type ChannelOption struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ChannelOptions lists the selectable protocols for one channel.
type ChannelOptions struct {
	Channel  int             `json:"id"`
	Selected int             `json:"selected"`
	Types    []ChannelOption `json:"types"`
}

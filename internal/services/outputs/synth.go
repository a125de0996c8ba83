package outputs

import "log"

// applyDocumentLocked runs the document read path: every channel's node is
// routed through the factory, then the selected protocol's sub-document is
// pushed into the driver. Returns false if any channel node is missing,
// which rejects the whole document. Callers hold s.mu.
func (s *Service) applyDocumentLocked(doc *ConfigDocument) bool {
	if doc == nil || len(doc.Channels) == 0 {
		log.Printf("⚠️ Output config has no channels section")
		return false
	}

	for i := range s.slots {
		node, ok := doc.Channels[i]
		if !ok || node == nil {
			log.Printf("⚠️ Output config is missing channel %d", i)
			return false
		}

		if !node.Type.Valid() {
			log.Printf("⚠️ Channel %d: config selects unknown type %d, disabling", i, int(node.Type))
			s.instantiate(i, ProtocolDisabled)
			continue
		}

		settings, ok := node.Settings[node.Type]
		if !ok {
			log.Printf("⚠️ Channel %d: no %s settings in config, disabling", i, node.Type)
			s.instantiate(i, ProtocolDisabled)
			continue
		}

		s.instantiate(i, node.Type)
		s.drivers[i].SetConfig(settings)
	}

	s.document = doc
	s.reallocateBuffers()
	return true
}

// synthesizeDefaultsLocked runs the document write path: instantiate every
// protocol on every channel to harvest its default sub-document, then park
// everything back at Disabled. Harvesting goes under the requested type key,
// so a protocol the slot rejects records a disabled sub-document; that is
// how the options list reflects what a slot can actually run. Callers hold
// s.mu.
func (s *Service) synthesizeDefaultsLocked() {
	log.Printf("🔄 Regenerating output config defaults")

	doc := &ConfigDocument{Channels: make(map[int]*ChannelConfig, len(s.slots))}
	for i := range s.slots {
		doc.Channels[i] = &ChannelConfig{
			Type:     ProtocolDisabled,
			Settings: make(map[ProtocolType]DriverSettings, int(protocolTypeEnd)),
		}
	}

	for _, t := range protocolTypes() {
		for i := range s.slots {
			s.instantiate(i, t)
			doc.Channels[i].Settings[t] = s.drivers[i].Config()
		}
	}
	for i := range s.slots {
		s.instantiate(i, ProtocolDisabled)
	}

	s.document = doc
	s.reallocateBuffers()
}

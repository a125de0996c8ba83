package outputs

import (
	"log"
	"strconv"
)

// instantiate is the single path that creates or replaces a channel's
// driver, and the single point of truth for slot resource policy. Callers
// hold s.mu.
//
// Re-requesting the type a channel already runs is a no-op: the installed
// driver keeps its state and its hardware handles. Policy violations fall
// back to a disabled driver instead of failing the whole operation.
func (s *Service) instantiate(channel int, requested ProtocolType) {
	slot := s.slots[channel]
	current := s.drivers[channel]

	if current != nil && current.Type() == requested {
		return
	}

	effective := requested
	switch {
	case !requested.Valid():
		log.Printf("⚠️ Channel %d: unknown output type %d, disabling", channel, int(requested))
		effective = ProtocolDisabled
	case requested.RequiresUART() && !slot.HasUART():
		log.Printf("⚠️ Channel %d: %s needs a UART but the slot has none, disabling", channel, requested)
		effective = ProtocolDisabled
	case requested == ProtocolRelay && slot.HasUART():
		log.Printf("⚠️ Channel %d: relay output is not allowed on a UART slot, disabling", channel)
		effective = ProtocolDisabled
	}

	if current != nil {
		current.Stop()
	}

	driver := newDriver(effective, channel, slot, s.hw)
	s.drivers[channel] = driver
	if err := driver.Begin(); err != nil {
		log.Printf("⚠️ Channel %d: %s driver failed to start: %v", channel, driver.Name(), err)
	}
	if s.metrics != nil {
		s.metrics.ActiveProtocol.WithLabelValues(channelLabel(channel)).Set(float64(driver.Type()))
	}
}

func channelLabel(channel int) string {
	return strconv.Itoa(channel)
}

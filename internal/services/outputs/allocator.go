package outputs

import "log"

// reallocateBuffers hands every driver a contiguous window of the shared
// frame buffer, first-fit in channel order. When capacity runs out a later
// channel gets whatever remains, possibly nothing; truncation is logged but
// never fatal. Callers hold s.mu.
func (s *Service) reallocateBuffers() int {
	offset := 0
	for _, driver := range s.drivers {
		if driver == nil {
			continue
		}
		requested := driver.ChannelsNeeded()
		available := len(s.frameBuffer) - offset
		granted := requested
		if granted > available {
			granted = available
			log.Printf("⚠️ Channel %d: %s wants %d bytes but only %d remain, truncating",
				driver.Channel(), driver.Name(), requested, available)
			if s.metrics != nil {
				s.metrics.OverAllocations.Inc()
			}
		}
		driver.SetBuffer(s.frameBuffer[offset : offset+granted])
		offset += granted
	}
	s.bufferUsed = offset
	return offset
}

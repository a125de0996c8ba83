// Package patterns generates built-in test frames for the output buffer: a
// solid color, a breathing ramp, or a moving chase. The generator writes
// through the same frame sink as the network input, so whatever protocol
// drivers are active will display the pattern.
package patterns

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"
)

// Mode selects the built-in pattern generator.
type Mode string

const (
	// ModeOff stops generation and blanks the buffer.
	ModeOff Mode = "off"
	// ModeSolid holds one color on every triplet.
	ModeSolid Mode = "solid"
	// ModeRamp breathes the color up and down over the period.
	ModeRamp Mode = "ramp"
	// ModeChase walks a three-pixel pulse through the buffer each period.
	ModeChase Mode = "chase"
)

// Valid reports whether m names a known pattern.
func (m Mode) Valid() bool {
	switch m {
	case ModeOff, ModeSolid, ModeRamp, ModeChase:
		return true
	}
	return false
}

// FrameSink is where generated frames land. The output orchestrator
// satisfies this.
type FrameSink interface {
	WriteChannelData(start int, data []byte)
}

const (
	// DefaultUpdateRate matches the orchestrator's default frame rate.
	DefaultUpdateRate = 25 * time.Millisecond
	// DefaultPeriod is the cycle length when the request leaves it unset.
	DefaultPeriod = 2 * time.Second
)

// Request describes one pattern activation.
type Request struct {
	Mode   Mode
	Color  [3]byte
	Period time.Duration
	Easing EasingType
}

// Status is the generator's live state.
type Status struct {
	Mode     Mode       `json:"mode"`
	Color    [3]byte    `json:"color"`
	PeriodMS int        `json:"period_ms"`
	Easing   EasingType `json:"easing"`
}

// Service drives the pattern update loop.
type Service struct {
	mu sync.Mutex

	sink       FrameSink
	updateRate time.Duration

	mode   Mode
	color  [3]byte
	period time.Duration
	easing EasingType
	epoch  time.Time

	writable int
	frame    []byte

	running  bool
	stopChan chan struct{}
}

// NewService creates the pattern generator.
func NewService(sink FrameSink) *Service {
	return &Service{
		sink:       sink,
		updateRate: DefaultUpdateRate,
		mode:       ModeOff,
		period:     DefaultPeriod,
		easing:     EasingInOutSine,
	}
}

// Start begins the update loop. With no pattern active the loop idles.
func (s *Service) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go s.updateLoop()
}

// Stop halts the update loop.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()
}

// IsRunning reports whether the update loop is active.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Service) updateLoop() {
	ticker := time.NewTicker(s.updateRate)
	defer ticker.Stop()

	s.mu.Lock()
	stop := s.stopChan
	s.mu.Unlock()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.generate()
		}
	}
}

// SetWritableBytes updates the frame length. The orchestrator calls this
// through its buffer update callback whenever channels are reallocated.
func (s *Service) SetWritableBytes(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if total < 0 {
		total = 0
	}
	s.writable = total
}

// Run activates a pattern. ModeOff blanks the buffer immediately; the other
// modes restart their cycle from now.
func (s *Service) Run(req Request) error {
	if !req.Mode.Valid() {
		return fmt.Errorf("unknown pattern mode %q", req.Mode)
	}
	if req.Period <= 0 {
		req.Period = DefaultPeriod
	}
	if req.Easing == "" {
		req.Easing = EasingInOutSine
	}

	s.mu.Lock()
	s.mode = req.Mode
	s.color = req.Color
	s.period = req.Period
	s.easing = req.Easing
	s.epoch = time.Now()

	if req.Mode == ModeOff && s.writable > 0 {
		s.resizeFrameLocked()
		for i := range s.frame {
			s.frame[i] = 0
		}
		s.sink.WriteChannelData(0, s.frame)
	}
	s.mu.Unlock()

	log.Printf("🎭 Test pattern: %s", req.Mode)
	return nil
}

// GetStatus returns the generator's current state.
func (s *Service) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Mode:     s.mode,
		Color:    s.color,
		PeriodMS: int(s.period / time.Millisecond),
		Easing:   s.easing,
	}
}

// generate renders one pattern frame into the sink.
func (s *Service) generate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == ModeOff || s.writable <= 0 {
		return
	}
	s.resizeFrameLocked()

	phase := math.Mod(float64(time.Since(s.epoch))/float64(s.period), 1.0)

	switch s.mode {
	case ModeSolid:
		s.fillLocked(1.0)

	case ModeRamp:
		// Up the first half of the period, down the second
		p := phase * 2
		if p > 1 {
			p = 2 - p
		}
		s.fillLocked(ApplyEasing(p, s.easing))

	case ModeChase:
		pixels := len(s.frame) / 3
		if pixels == 0 {
			return
		}
		for i := range s.frame {
			s.frame[i] = 0
		}
		head := int(ApplyEasing(phase, s.easing)*float64(pixels)) % pixels
		for tail := 0; tail < 3 && tail < pixels; tail++ {
			idx := head - tail
			if idx < 0 {
				idx += pixels
			}
			s.paintPixelLocked(idx, 1/float64(int(1)<<tail))
		}
	}

	s.sink.WriteChannelData(0, s.frame)
}

func (s *Service) resizeFrameLocked() {
	if len(s.frame) != s.writable {
		s.frame = make([]byte, s.writable)
	}
}

// fillLocked paints the whole frame with the color scaled by level.
func (s *Service) fillLocked(level float64) {
	for i := range s.frame {
		s.frame[i] = scaleByte(s.color[i%3], level)
	}
}

// paintPixelLocked paints one RGB triplet with the color scaled by level.
func (s *Service) paintPixelLocked(pixel int, level float64) {
	base := pixel * 3
	for i := 0; i < 3 && base+i < len(s.frame); i++ {
		s.frame[base+i] = scaleByte(s.color[i], level)
	}
}

func scaleByte(v byte, level float64) byte {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	return byte(math.Round(float64(v) * level))
}

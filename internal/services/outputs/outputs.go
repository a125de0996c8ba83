// Package outputs implements the output channel orchestration subsystem: it
// owns the fixed set of physical output channels, swaps protocol drivers in
// and out of them from persisted configuration, partitions the shared frame
// buffer across the active drivers, and drives the per-frame render tick.
package outputs

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/openlumen/pixelnode/internal/events"
	"github.com/openlumen/pixelnode/internal/metrics"
	"github.com/openlumen/pixelnode/internal/platform"
)

// Defaults for the orchestrator configuration.
const (
	DefaultFrameRate  = 40   // Hz
	DefaultBufferSize = 4096 // bytes
)

// State tracks the orchestrator lifecycle.
type State int

const (
	// StateUninitialized is the constructed-but-not-started state.
	StateUninitialized State = iota
	// StateReconciling covers startup: slots forced Disabled, then the
	// persisted document applied or regenerated.
	StateReconciling
	// StateSteady is normal operation: tick-driven flush and render.
	StateSteady
)

func (s State) String() string {
	switch s {
	case StateReconciling:
		return "reconciling"
	case StateSteady:
		return "steady"
	default:
		return "uninitialized"
	}
}

// Persistence loads and saves the serialized output document. Load hands the
// raw document to the visitor; a visitor error counts as a failed load.
type Persistence interface {
	Load(visit func(data []byte) error) error
	Save(data []byte) error
}

// Config holds the orchestrator configuration.
type Config struct {
	Profile    platform.Profile
	FrameRate  int // Hz
	BufferSize int // shared frame buffer capacity in bytes
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		Profile:    platform.ProfileByName(platform.DefaultProfileName),
		FrameRate:  DefaultFrameRate,
		BufferSize: DefaultBufferSize,
	}
}

// Service is the output orchestrator. All channel, buffer and document state
// is guarded by mu; the external input layer and the API only reach it
// through methods, so a buffer fill can never interleave with a render pass.
type Service struct {
	mu sync.Mutex

	cfg     Config
	hw      platform.Hardware
	slots   []platform.Slot
	persist Persistence
	bus     *events.Bus
	metrics *metrics.Metrics

	state       State
	drivers     []Driver
	frameBuffer []byte
	bufferUsed  int

	document   *ConfigDocument
	saveNeeded bool
	paused     bool

	onBufferUpdate func(total int)

	running  bool
	stopChan chan struct{}
}

// NewService creates the orchestrator for a board profile. The bus and
// metrics may be nil.
func NewService(cfg Config, hw platform.Hardware, persist Persistence, bus *events.Bus, m *metrics.Metrics) *Service {
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = DefaultFrameRate
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	return &Service{
		cfg:         cfg,
		hw:          hw,
		slots:       cfg.Profile.Slots,
		persist:     persist,
		bus:         bus,
		metrics:     m,
		drivers:     make([]Driver, len(cfg.Profile.Slots)),
		frameBuffer: make([]byte, cfg.BufferSize),
		state:       StateUninitialized,
	}
}

// Initialize reconciles the slot table against the persisted document and
// starts the render loop. Repeat calls are no-ops.
func (s *Service) Initialize() error {
	s.mu.Lock()
	if s.state != StateUninitialized {
		s.mu.Unlock()
		return nil
	}
	s.state = StateReconciling
	log.Printf("🔌 Initializing output orchestrator: profile %s, %d channels, %d byte frame buffer",
		s.cfg.Profile.Name, len(s.slots), len(s.frameBuffer))

	for i := range s.slots {
		s.instantiate(i, ProtocolDisabled)
	}

	applied := false
	if s.persist != nil {
		err := s.persist.Load(func(data []byte) error {
			doc, err := ParseConfigDocument(data)
			if err != nil {
				return err
			}
			if !s.applyDocumentLocked(doc) {
				return fmt.Errorf("document rejected")
			}
			applied = true
			return nil
		})
		if err != nil {
			log.Printf("📦 Stored output config not usable: %v", err)
		}
	}
	if !applied {
		s.synthesizeDefaultsLocked()
		s.saveNeeded = true
	}

	s.state = StateSteady
	s.running = true
	s.stopChan = make(chan struct{})
	total := s.bufferUsed
	s.mu.Unlock()

	s.notifyBufferUpdate(total)
	go s.renderLoop()
	log.Printf("✅ Output orchestrator ready: %d/%d frame buffer bytes in use", total, s.cfg.BufferSize)
	return nil
}

// renderLoop drives the orchestration tick at the configured frame rate.
func (s *Service) renderLoop() {
	interval := time.Second / time.Duration(s.cfg.FrameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick flushes a pending config save, then renders every channel unless
// paused. The flush is the only I/O on the tick path and runs at most once
// per tick, which is what coalesces bursts of config changes into one write.
func (s *Service) tick() {
	s.mu.Lock()
	var payload []byte
	if s.saveNeeded && s.document != nil {
		s.saveNeeded = false
		data, err := s.document.Marshal()
		if err != nil {
			log.Printf("⚠️ Failed to serialize output config: %v", err)
		} else {
			payload = data
		}
	}
	s.mu.Unlock()

	if payload != nil {
		s.flushConfig(payload)
	}

	start := time.Now()
	s.mu.Lock()
	if !s.paused && s.state == StateSteady {
		for _, driver := range s.drivers {
			if driver == nil {
				continue
			}
			driver.Render()
			if s.metrics != nil && driver.Type() != ProtocolDisabled {
				s.metrics.FramesRendered.WithLabelValues(channelLabel(driver.Channel()), driver.Name()).Inc()
			}
		}
	}
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	}
}

// flushConfig writes the serialized document through the persistence
// collaborator. A failure leaves the config in memory only; the next
// accepted change schedules another attempt.
func (s *Service) flushConfig(data []byte) {
	if s.persist == nil {
		return
	}
	if err := s.persist.Save(data); err != nil {
		log.Printf("⚠️ Failed to save output config: %v", err)
		if s.metrics != nil {
			s.metrics.ConfigSaveFailures.Inc()
		}
		s.bus.Publish(events.ConfigSavedEvent{OK: false})
		return
	}
	log.Printf("📦 Output config saved")
	if s.metrics != nil {
		s.metrics.ConfigSaves.Inc()
	}
	s.bus.Publish(events.ConfigSavedEvent{OK: true})
}

// SetConfig applies a serialized output document through the validation
// path. A rejected document regenerates defaults instead. Either way the
// result is cached and a deferred save is scheduled for the next tick.
func (s *Service) SetConfig(data []byte) (bool, error) {
	doc, err := ParseConfigDocument(data)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	accepted := s.applyDocumentLocked(doc)
	if !accepted {
		s.synthesizeDefaultsLocked()
	}
	s.saveNeeded = true
	total := s.bufferUsed
	s.mu.Unlock()

	if !accepted {
		log.Printf("⚠️ Output config rejected, defaults regenerated")
	}
	s.notifyBufferUpdate(total)
	s.bus.Publish(events.ConfigAppliedEvent{Accepted: accepted, TotalBytes: total})
	return accepted, nil
}

// GetConfig returns the cached composite document in serialized form.
func (s *Service) GetConfig() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.document == nil {
		return nil, fmt.Errorf("output config not initialized")
	}
	return s.document.Marshal()
}

// GetPortConfig returns the active protocol's sub-document for one channel.
func (s *Service) GetPortConfig(channel int) (DriverSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if channel < 0 || channel >= len(s.slots) {
		return nil, fmt.Errorf("unknown output channel %d", channel)
	}
	if s.document == nil {
		return nil, fmt.Errorf("output config not initialized")
	}
	settings := s.document.Channels[channel].ActiveSettings()
	if settings == nil {
		return nil, fmt.Errorf("no settings recorded for channel %d", channel)
	}
	return settings, nil
}

// GetStatus returns each channel's live status fragment in channel order.
func (s *Service) GetStatus() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	statuses := make([]any, 0, len(s.drivers))
	for _, driver := range s.drivers {
		if driver != nil {
			statuses = append(statuses, driver.Status())
		}
	}
	return statuses
}

// GetOptions lists, per channel, the selected protocol and every protocol
// with a harvested sub-document available for selection.
func (s *Service) GetOptions() []ChannelOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	options := make([]ChannelOptions, 0, len(s.slots))
	for i := range s.slots {
		entry := ChannelOptions{Channel: i, Selected: int(ProtocolDisabled)}
		if s.document != nil {
			if node, ok := s.document.Channels[i]; ok {
				entry.Selected = int(node.Type)
				for _, t := range protocolTypes() {
					settings, ok := node.Settings[t]
					if !ok {
						continue
					}
					name := settings.Label()
					if name == "" {
						name = t.String()
					}
					entry.Types = append(entry.Types, ChannelOption{ID: int(t), Name: name})
				}
			}
		}
		options = append(options, entry)
	}
	return options
}

// WriteChannelData copies frame data into the shared buffer at the given
// offset, clamped to the allocated total. The input layer never touches the
// buffer directly, so a fill cannot interleave with a render pass.
func (s *Service) WriteChannelData(start int, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if start < 0 || start >= s.bufferUsed {
		return
	}
	copy(s.frameBuffer[start:s.bufferUsed], data)
}

// SetBufferUpdateCallback registers the input collaborator's notification
// for buffer reallocation. If the orchestrator is already running the
// callback fires immediately with the current total.
func (s *Service) SetBufferUpdateCallback(cb func(total int)) {
	s.mu.Lock()
	s.onBufferUpdate = cb
	total := s.bufferUsed
	ready := s.state == StateSteady
	s.mu.Unlock()

	if ready && cb != nil {
		cb(total)
	}
}

func (s *Service) notifyBufferUpdate(total int) {
	s.mu.Lock()
	cb := s.onBufferUpdate
	s.mu.Unlock()
	if cb != nil {
		cb(total)
	}
	s.bus.Publish(events.BufferResizedEvent{TotalBytes: total})
}

// Pause gates the render pass without stopping the tick loop; a pending
// config flush still happens while paused.
func (s *Service) Pause(paused bool) {
	s.mu.Lock()
	changed := s.paused != paused
	s.paused = paused
	s.mu.Unlock()

	if !changed {
		return
	}
	if paused {
		log.Printf("🔄 Output rendering paused")
	} else {
		log.Printf("🔄 Output rendering resumed")
	}
	s.bus.Publish(events.PauseChangedEvent{Paused: paused})
}

// IsPaused reports whether rendering is currently gated off.
func (s *Service) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// State returns the orchestrator lifecycle state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ChannelCount returns the number of output channels on this board.
func (s *Service) ChannelCount() int {
	return len(s.slots)
}

// ProfileName returns the active board profile name.
func (s *Service) ProfileName() string {
	return s.cfg.Profile.Name
}

// BufferSize returns the shared frame buffer capacity.
func (s *Service) BufferSize() int {
	return len(s.frameBuffer)
}

// BufferUsed returns the currently allocated frame buffer length, i.e. the
// valid fill range for the input layer.
func (s *Service) BufferUsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bufferUsed
}

// Stop halts the tick loop, flushes a pending save and parks every driver in
// its safe state. The orchestrator can be initialized again afterwards.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)

	var payload []byte
	if s.saveNeeded && s.document != nil {
		s.saveNeeded = false
		if data, err := s.document.Marshal(); err == nil {
			payload = data
		}
	}
	for _, driver := range s.drivers {
		if driver != nil {
			driver.Stop()
		}
	}
	s.state = StateUninitialized
	s.mu.Unlock()

	if payload != nil {
		s.flushConfig(payload)
	}
	log.Printf("🛑 Output orchestrator stopped")
}

// Package input receives sACN (E1.31) streaming DMX and copies universe
// payloads into the output frame buffer.
package input

import (
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/openlumen/pixelnode/internal/events"
	"github.com/openlumen/pixelnode/internal/metrics"
	"github.com/openlumen/pixelnode/pkg/sacn"
)

// UniverseSize is the span of buffer bytes one universe addresses.
const UniverseSize = sacn.MaxSlots

// FrameSink is where received universe data lands. The output orchestrator
// satisfies this.
type FrameSink interface {
	WriteChannelData(start int, data []byte)
}

// Config holds the receiver configuration.
type Config struct {
	ListenAddr    string // UDP listen address, e.g. ":5568"
	StartUniverse int    // universe mapped to buffer offset 0
}

// DefaultConfig returns the standard E1.31 listen configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr:    fmt.Sprintf(":%d", sacn.DefaultPort),
		StartUniverse: 1,
	}
}

// Stats is the receiver's live status fragment.
type Stats struct {
	Packets      uint64 `json:"packets"`
	Dropped      uint64 `json:"dropped"`
	LastSource   string `json:"last_source"`
	LastAddress  string `json:"last_address"`
	LastUniverse int    `json:"last_universe"`
}

// Service is the sACN receiver. One UDP socket feeds every universe; the
// mapping from universe to buffer offset follows the orchestrator's
// allocation total, reported through SetWritableBytes.
type Service struct {
	mu sync.Mutex

	cfg     Config
	sink    FrameSink
	bus     *events.Bus
	metrics *metrics.Metrics

	conn      *net.UDPConn
	writable  int
	sequences map[uint16]byte
	stats     Stats
	running   bool
}

// NewService creates the receiver. The bus and metrics may be nil.
func NewService(cfg Config, sink FrameSink, bus *events.Bus, m *metrics.Metrics) *Service {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultConfig().ListenAddr
	}
	if cfg.StartUniverse < 1 {
		cfg.StartUniverse = 1
	}
	return &Service{
		cfg:       cfg,
		sink:      sink,
		bus:       bus,
		metrics:   m,
		sequences: make(map[uint16]byte),
	}
}

// Initialize binds the UDP socket and starts the receive loop.
func (s *Service) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	addr, err := net.ResolveUDPAddr("udp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("invalid sACN listen address %s: %w", s.cfg.ListenAddr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind sACN listener: %w", err)
	}
	s.conn = conn
	s.running = true

	go s.receiveLoop(conn)
	log.Printf("✅ sACN receiver listening on %s (universes from %d)", conn.LocalAddr(), s.cfg.StartUniverse)
	return nil
}

// Addr returns the bound listen address, or nil before Initialize.
func (s *Service) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// SetWritableBytes updates the valid fill range. The orchestrator calls this
// through its buffer update callback whenever channels are reallocated.
func (s *Service) SetWritableBytes(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if total < 0 {
		total = 0
	}
	s.writable = total
}

// GetStats returns a snapshot of the receiver counters.
func (s *Service) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Service) receiveLoop(conn *net.UDPConn) {
	buf := make([]byte, 1024)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			s.mu.Lock()
			running := s.running
			s.mu.Unlock()
			if !running {
				return
			}
			log.Printf("⚠️ sACN read error: %v", err)
			continue
		}
		s.handlePacket(buf[:n], addr)
	}
}

func (s *Service) handlePacket(data []byte, addr *net.UDPAddr) {
	packet, err := sacn.ParseDataPacket(data)
	if err != nil {
		s.drop()
		return
	}

	s.mu.Lock()
	if packet.Terminated() {
		// Source is going away; forget its sequence state
		delete(s.sequences, packet.Universe)
		s.mu.Unlock()
		return
	}
	if packet.Preview() || packet.StartCode != 0 {
		s.dropLocked()
		s.mu.Unlock()
		return
	}
	if last, ok := s.sequences[packet.Universe]; ok {
		// Out-of-order window per E1.31: reject anything 0..19 behind
		if d := int8(packet.Sequence - last); d <= 0 && d > -20 {
			s.dropLocked()
			s.mu.Unlock()
			return
		}
	}
	s.sequences[packet.Universe] = packet.Sequence

	offset := (int(packet.Universe) - s.cfg.StartUniverse) * UniverseSize
	if offset < 0 || offset >= s.writable {
		// Not one of ours; harmless, do not count it as a drop
		s.mu.Unlock()
		return
	}

	s.stats.Packets++
	sourceChanged := s.stats.LastSource != packet.SourceName || s.stats.LastAddress != addr.IP.String()
	s.stats.LastSource = packet.SourceName
	s.stats.LastAddress = addr.IP.String()
	s.stats.LastUniverse = int(packet.Universe)
	s.mu.Unlock()

	s.sink.WriteChannelData(offset, packet.Slots)

	if s.metrics != nil {
		s.metrics.InputPackets.Inc()
	}
	if sourceChanged {
		log.Printf("📡 sACN source %s (%s), universe %d", packet.SourceName, addr.IP, packet.Universe)
		s.bus.Publish(events.InputSourceEvent{
			Source:   packet.SourceName,
			Address:  addr.IP.String(),
			Universe: int(packet.Universe),
		})
	}
}

func (s *Service) drop() {
	s.mu.Lock()
	s.dropLocked()
	s.mu.Unlock()
}

func (s *Service) dropLocked() {
	s.stats.Dropped++
	if s.metrics != nil {
		s.metrics.InputDropped.Inc()
	}
}

// Stop closes the socket and ends the receive loop.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	log.Printf("🛑 sACN receiver stopped")
}

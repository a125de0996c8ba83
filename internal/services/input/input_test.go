package input

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlumen/pixelnode/internal/events"
	"github.com/openlumen/pixelnode/pkg/sacn"
)

type bufferWrite struct {
	start int
	data  []byte
}

// captureSink records WriteChannelData calls and signals them on a channel.
type captureSink struct {
	mu     sync.Mutex
	writes []bufferWrite
	ch     chan bufferWrite
}

func newCaptureSink() *captureSink {
	return &captureSink{ch: make(chan bufferWrite, 16)}
}

func (c *captureSink) WriteChannelData(start int, data []byte) {
	w := bufferWrite{start: start, data: append([]byte(nil), data...)}
	c.mu.Lock()
	c.writes = append(c.writes, w)
	c.mu.Unlock()
	select {
	case c.ch <- w:
	default:
	}
}

func newTestReceiver(t *testing.T, startUniverse, writable int) (*Service, *captureSink, *net.UDPConn) {
	t.Helper()
	sink := newCaptureSink()
	svc := NewService(Config{ListenAddr: "127.0.0.1:0", StartUniverse: startUniverse}, sink, events.New(), nil)
	require.NoError(t, svc.Initialize())
	t.Cleanup(svc.Stop)
	svc.SetWritableBytes(writable)

	conn, err := net.DialUDP("udp", nil, svc.Addr().(*net.UDPAddr))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return svc, sink, conn
}

func send(t *testing.T, conn *net.UDPConn, p *sacn.DataPacket) {
	t.Helper()
	_, err := conn.Write(p.Marshal())
	require.NoError(t, err)
}

func waitWrite(t *testing.T, sink *captureSink) bufferWrite {
	t.Helper()
	select {
	case w := <-sink.ch:
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a universe write")
		return bufferWrite{}
	}
}

func assertNoWrite(t *testing.T, sink *captureSink) {
	t.Helper()
	select {
	case w := <-sink.ch:
		t.Fatalf("unexpected write at offset %d (%d bytes)", w.start, len(w.data))
	case <-time.After(200 * time.Millisecond):
	}
}

func TestReceiverMapsUniversesToOffsets(t *testing.T) {
	svc, sink, conn := newTestReceiver(t, 1, 1024)

	send(t, conn, &sacn.DataPacket{SourceName: "console", Sequence: 1, Universe: 1, Slots: []byte{1, 2, 3}})
	w := waitWrite(t, sink)
	assert.Equal(t, 0, w.start)
	assert.Equal(t, []byte{1, 2, 3}, w.data)

	send(t, conn, &sacn.DataPacket{SourceName: "console", Sequence: 1, Universe: 2, Slots: []byte{9}})
	w = waitWrite(t, sink)
	assert.Equal(t, UniverseSize, w.start)
	assert.Equal(t, []byte{9}, w.data)

	require.Eventually(t, func() bool {
		return svc.GetStats().Packets == 2
	}, time.Second, 10*time.Millisecond)
	stats := svc.GetStats()
	assert.Equal(t, "console", stats.LastSource)
	assert.Equal(t, 2, stats.LastUniverse)
}

func TestReceiverHonorsStartUniverse(t *testing.T) {
	_, sink, conn := newTestReceiver(t, 10, 1024)

	send(t, conn, &sacn.DataPacket{Sequence: 1, Universe: 11, Slots: []byte{7}})
	w := waitWrite(t, sink)
	assert.Equal(t, UniverseSize, w.start)
}

func TestReceiverDropsStaleSequence(t *testing.T) {
	svc, sink, conn := newTestReceiver(t, 1, 1024)

	send(t, conn, &sacn.DataPacket{Sequence: 10, Universe: 1, Slots: []byte{0xAA}})
	assert.Equal(t, []byte{0xAA}, waitWrite(t, sink).data)

	// One step behind: inside the reject window
	send(t, conn, &sacn.DataPacket{Sequence: 9, Universe: 1, Slots: []byte{0xBB}})
	send(t, conn, &sacn.DataPacket{Sequence: 11, Universe: 1, Slots: []byte{0xCC}})

	assert.Equal(t, []byte{0xCC}, waitWrite(t, sink).data, "the stale frame must be skipped")
	require.Eventually(t, func() bool {
		return svc.GetStats().Dropped == 1
	}, time.Second, 10*time.Millisecond)
}

func TestReceiverAcceptsSequenceWrap(t *testing.T) {
	_, sink, conn := newTestReceiver(t, 1, 1024)

	send(t, conn, &sacn.DataPacket{Sequence: 255, Universe: 1, Slots: []byte{1}})
	waitWrite(t, sink)

	// 255 -> 0 is a forward step in modular arithmetic
	send(t, conn, &sacn.DataPacket{Sequence: 0, Universe: 1, Slots: []byte{2}})
	assert.Equal(t, []byte{2}, waitWrite(t, sink).data)
}

func TestReceiverIgnoresAlternateStartCodes(t *testing.T) {
	svc, sink, conn := newTestReceiver(t, 1, 1024)

	send(t, conn, &sacn.DataPacket{Sequence: 1, Universe: 1, StartCode: 0xDD, Slots: []byte{1}})
	assertNoWrite(t, sink)
	require.Eventually(t, func() bool {
		return svc.GetStats().Dropped == 1
	}, time.Second, 10*time.Millisecond)
}

func TestReceiverIgnoresPreviewData(t *testing.T) {
	svc, sink, conn := newTestReceiver(t, 1, 1024)

	send(t, conn, &sacn.DataPacket{Sequence: 1, Universe: 1, Options: 0x80, Slots: []byte{1}})
	assertNoWrite(t, sink)
	require.Eventually(t, func() bool {
		return svc.GetStats().Dropped == 1
	}, time.Second, 10*time.Millisecond)
}

func TestReceiverIgnoresForeignUniverses(t *testing.T) {
	svc, sink, conn := newTestReceiver(t, 1, UniverseSize) // room for one universe only

	send(t, conn, &sacn.DataPacket{Sequence: 1, Universe: 5, Slots: []byte{1}})
	send(t, conn, &sacn.DataPacket{Sequence: 1, Universe: 1, Slots: []byte{2}})

	w := waitWrite(t, sink)
	assert.Equal(t, 0, w.start)
	assert.Equal(t, []byte{2}, w.data)
	assert.Equal(t, uint64(0), svc.GetStats().Dropped, "a universe outside the window is not an error")
}

func TestReceiverDropsMalformedPackets(t *testing.T) {
	svc, sink, conn := newTestReceiver(t, 1, 1024)

	_, err := conn.Write([]byte("not an acn packet"))
	require.NoError(t, err)
	assertNoWrite(t, sink)
	require.Eventually(t, func() bool {
		return svc.GetStats().Dropped == 1
	}, time.Second, 10*time.Millisecond)
}

func TestTerminatedStreamResetsSequence(t *testing.T) {
	_, sink, conn := newTestReceiver(t, 1, 1024)

	send(t, conn, &sacn.DataPacket{Sequence: 100, Universe: 1, Slots: []byte{1}})
	waitWrite(t, sink)

	send(t, conn, &sacn.DataPacket{Sequence: 101, Universe: 1, Options: 0x40, Slots: []byte{0}})

	// Far behind the old sequence, but the terminated stream cleared it
	send(t, conn, &sacn.DataPacket{Sequence: 90, Universe: 1, Slots: []byte{3}})
	assert.Equal(t, []byte{3}, waitWrite(t, sink).data)
}

func TestReceiverStopsCleanly(t *testing.T) {
	svc, _, _ := newTestReceiver(t, 1, 1024)
	svc.Stop()
	svc.Stop() // second stop is a no-op
	assert.Nil(t, svc.Addr())
}

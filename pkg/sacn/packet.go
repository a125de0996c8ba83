// Package sacn provides E1.31 (streaming ACN) data packet parsing and building.
package sacn

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	// DefaultPort is the standard E1.31 UDP port.
	DefaultPort = 5568
	// MaxSlots is the number of DMX slots per universe.
	MaxSlots = 512
	// RootVectorData identifies an E1.31 data packet at the root layer.
	RootVectorData uint32 = 0x00000004
	// FramingVectorData identifies a DMX data packet at the framing layer.
	FramingVectorData uint32 = 0x00000002
	// DMPVectorSetProperty is the only DMP vector used by E1.31.
	DMPVectorSetProperty byte = 0x02
	// HeaderSize is the offset of the first property value (the start code).
	HeaderSize = 125
	// PacketSize is the total size of a full 512-slot data packet.
	PacketSize = HeaderSize + 1 + MaxSlots // header + start code + slots
	// DefaultPriority is the default sourced priority for data packets.
	DefaultPriority byte = 100
)

// ACNPacketID is the fixed ACN packet identifier carried in the root layer.
var ACNPacketID = []byte{0x41, 0x53, 0x43, 0x2d, 0x45, 0x31, 0x2e, 0x31, 0x37, 0x00, 0x00, 0x00} // "ASC-E1.17\0\0\0"

// DataPacket is one decoded E1.31 DMX data packet.
type DataPacket struct {
	CID        [16]byte // sender component identifier
	SourceName string
	Priority   byte
	Sequence   byte
	Options    byte
	Universe   uint16
	StartCode  byte
	Slots      []byte // up to 512 DMX slots, start code excluded
}

// Terminated reports whether the sender set the stream-terminated option bit.
func (p *DataPacket) Terminated() bool {
	return p.Options&0x40 != 0
}

// Preview reports whether the packet is preview-only data that must not be
// driven to live outputs.
func (p *DataPacket) Preview() bool {
	return p.Options&0x80 != 0
}

// ParseDataPacket decodes an E1.31 data packet from a raw UDP payload.
// Non-data ACN traffic (sync, discovery) and malformed packets return an error.
func ParseDataPacket(buf []byte) (*DataPacket, error) {
	if len(buf) < HeaderSize+1 {
		return nil, fmt.Errorf("packet too short: %d bytes", len(buf))
	}

	// Root layer
	if binary.BigEndian.Uint16(buf[0:2]) != 0x0010 {
		return nil, fmt.Errorf("invalid preamble size")
	}
	if !bytes.Equal(buf[4:16], ACNPacketID) {
		return nil, fmt.Errorf("invalid ACN packet identifier")
	}
	if v := binary.BigEndian.Uint32(buf[18:22]); v != RootVectorData {
		return nil, fmt.Errorf("unsupported root vector 0x%08x", v)
	}

	// Framing layer
	if v := binary.BigEndian.Uint32(buf[40:44]); v != FramingVectorData {
		return nil, fmt.Errorf("unsupported framing vector 0x%08x", v)
	}

	// DMP layer
	if buf[117] != DMPVectorSetProperty {
		return nil, fmt.Errorf("unsupported DMP vector 0x%02x", buf[117])
	}
	if buf[118] != 0xa1 {
		return nil, fmt.Errorf("unsupported DMP address/data type 0x%02x", buf[118])
	}

	count := int(binary.BigEndian.Uint16(buf[123:125])) // property values, start code included
	if count < 1 || count > MaxSlots+1 {
		return nil, fmt.Errorf("invalid property value count %d", count)
	}
	if HeaderSize+count > len(buf) {
		return nil, fmt.Errorf("property value count %d exceeds packet size %d", count, len(buf))
	}

	p := &DataPacket{
		SourceName: string(bytes.TrimRight(buf[44:108], "\x00")),
		Priority:   buf[108],
		Sequence:   buf[111],
		Options:    buf[112],
		Universe:   binary.BigEndian.Uint16(buf[113:115]),
		StartCode:  buf[125],
	}
	copy(p.CID[:], buf[22:38])
	p.Slots = make([]byte, count-1)
	copy(p.Slots, buf[126:HeaderSize+count])

	return p, nil
}

// Marshal encodes the packet into a raw UDP payload. Slots beyond 512 are
// truncated; an unset priority defaults to 100.
func (p *DataPacket) Marshal() []byte {
	slots := p.Slots
	if len(slots) > MaxSlots {
		slots = slots[:MaxSlots]
	}
	count := 1 + len(slots) // start code + slots
	total := HeaderSize + count
	buf := make([]byte, total)

	priority := p.Priority
	if priority == 0 {
		priority = DefaultPriority
	}

	// Root layer
	binary.BigEndian.PutUint16(buf[0:2], 0x0010)                       // Preamble size
	binary.BigEndian.PutUint16(buf[2:4], 0x0000)                       // Post-amble size
	copy(buf[4:16], ACNPacketID)                                       // ACN packet identifier
	binary.BigEndian.PutUint16(buf[16:18], flagsAndLength(total-16))   // Flags + length
	binary.BigEndian.PutUint32(buf[18:22], RootVectorData)             // Root vector
	copy(buf[22:38], p.CID[:])                                         // CID

	// Framing layer
	binary.BigEndian.PutUint16(buf[38:40], flagsAndLength(total-38))   // Flags + length
	binary.BigEndian.PutUint32(buf[40:44], FramingVectorData)          // Framing vector
	copy(buf[44:108], truncateName(p.SourceName))                      // Source name (64 bytes)
	buf[108] = priority                                                // Priority
	binary.BigEndian.PutUint16(buf[109:111], 0)                        // Sync address
	buf[111] = p.Sequence                                              // Sequence
	buf[112] = p.Options                                               // Options
	binary.BigEndian.PutUint16(buf[113:115], p.Universe)               // Universe

	// DMP layer
	binary.BigEndian.PutUint16(buf[115:117], flagsAndLength(total-115)) // Flags + length
	buf[117] = DMPVectorSetProperty                                     // DMP vector
	buf[118] = 0xa1                                                     // Address type & data type
	binary.BigEndian.PutUint16(buf[119:121], 0)                         // First property address
	binary.BigEndian.PutUint16(buf[121:123], 1)                         // Address increment
	binary.BigEndian.PutUint16(buf[123:125], uint16(count))             // Property value count
	buf[125] = p.StartCode                                              // Start code
	copy(buf[126:], slots)                                              // DMX slots

	return buf
}

// flagsAndLength packs the ACN flags nibble (0x7) with a 12-bit PDU length.
func flagsAndLength(length int) uint16 {
	return 0x7000 | uint16(length&0x0fff)
}

func truncateName(name string) []byte {
	out := make([]byte, 64)
	copy(out, name)
	out[63] = 0
	return out
}

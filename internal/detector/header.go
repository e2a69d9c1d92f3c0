// Package detector implements the Jungfrau-family UDP packet codec: the
// fixed 48-byte detector header plus the 8192-byte payload it precedes.
package detector

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderSize is the fixed, little-endian, C-layout detector header size.
	HeaderSize = 48
	// PayloadSize is the opaque data carried by a single packet.
	PayloadSize = 8192
	// PacketSize is the total UDP payload size: header + payload.
	PacketSize = HeaderSize + PayloadSize

	// PacketsPerFrame is the number of fragments that make up one frame.
	PacketsPerFrame = 64

	// ModuleSizeX and ModuleSizeY give the pixel dimensions of one module.
	ModuleSizeX = 1024
	ModuleSizeY = 256
	// BitDepth is bytes per pixel.
	BitDepth = 2
	// FrameDataSize is the size of one fully reassembled frame's data slab.
	FrameDataSize = ModuleSizeX * ModuleSizeY * BitDepth
)

// Type enumerates the detector family a header claims to originate from.
type Type uint8

const (
	Generic Type = iota
	Eiger
	Gotthard
	Jungfrau
	ChipTestBoard
	Moench
	Mythen3
	Gotthard2
)

func (t Type) String() string {
	switch t {
	case Generic:
		return "Generic"
	case Eiger:
		return "Eiger"
	case Gotthard:
		return "Gotthard"
	case Jungfrau:
		return "Jungfrau"
	case ChipTestBoard:
		return "ChipTestBoard"
	case Moench:
		return "Moench"
	case Mythen3:
		return "Mythen3"
	case Gotthard2:
		return "Gotthard2"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Header is the 48-byte detector header, decoded into native fields.
// Field order matches the wire layout exactly (see Encode/Decode).
type Header struct {
	FrameNumber    uint64
	ExposureLength uint32
	PacketNumber   uint32
	BunchID        uint64
	Timestamp      uint64
	ModuleID       uint16
	Row            uint16
	Column         uint16
	DetSpec2       uint16 // reserved
	DAQInfo        uint32
	DetSpec4       uint16 // reserved
	DetType        Type
	Version        uint8
}

var (
	// ErrBadPacketSize is returned when a datagram isn't exactly PacketSize bytes.
	ErrBadPacketSize = errors.New("detector: datagram is not 8240 bytes")
	// ErrBadPacketNumber is returned when packet_number >= PacketsPerFrame.
	ErrBadPacketNumber = errors.New("detector: packet_number out of range")
)

// Encode serializes h into b in declared field order, little-endian.
// b must be at least HeaderSize bytes.
func (h Header) Encode(b []byte) {
	_ = b[:HeaderSize] // bounds check hint
	binary.LittleEndian.PutUint64(b[0:8], h.FrameNumber)
	binary.LittleEndian.PutUint32(b[8:12], h.ExposureLength)
	binary.LittleEndian.PutUint32(b[12:16], h.PacketNumber)
	binary.LittleEndian.PutUint64(b[16:24], h.BunchID)
	binary.LittleEndian.PutUint64(b[24:32], h.Timestamp)
	binary.LittleEndian.PutUint16(b[32:34], h.ModuleID)
	binary.LittleEndian.PutUint16(b[34:36], h.Row)
	binary.LittleEndian.PutUint16(b[36:38], h.Column)
	binary.LittleEndian.PutUint16(b[38:40], h.DetSpec2)
	binary.LittleEndian.PutUint32(b[40:44], h.DAQInfo)
	binary.LittleEndian.PutUint16(b[44:46], h.DetSpec4)
	b[46] = byte(h.DetType)
	b[47] = h.Version
}

// DecodeHeader parses a 48-byte buffer into a Header. Callers must ensure
// len(b) >= HeaderSize; use Decode to validate a full packet instead.
func DecodeHeader(b []byte) Header {
	_ = b[:HeaderSize]
	return Header{
		FrameNumber:    binary.LittleEndian.Uint64(b[0:8]),
		ExposureLength: binary.LittleEndian.Uint32(b[8:12]),
		PacketNumber:   binary.LittleEndian.Uint32(b[12:16]),
		BunchID:        binary.LittleEndian.Uint64(b[16:24]),
		Timestamp:      binary.LittleEndian.Uint64(b[24:32]),
		ModuleID:       binary.LittleEndian.Uint16(b[32:34]),
		Row:            binary.LittleEndian.Uint16(b[34:36]),
		Column:         binary.LittleEndian.Uint16(b[36:38]),
		DetSpec2:       binary.LittleEndian.Uint16(b[38:40]),
		DAQInfo:        binary.LittleEndian.Uint32(b[40:44]),
		DetSpec4:       binary.LittleEndian.Uint16(b[44:46]),
		DetType:        Type(b[46]),
		Version:        b[47],
	}
}

// Decode validates a full 8240-byte datagram and returns its header plus a
// zero-copy view of the payload (a sub-slice of datagram). It rejects any
// datagram of the wrong length or with an out-of-range packet_number: both
// are treated upstream as a fatal protocol violation, never as loss.
func Decode(datagram []byte) (Header, []byte, error) {
	if len(datagram) != PacketSize {
		return Header{}, nil, fmt.Errorf("%w: got %d bytes", ErrBadPacketSize, len(datagram))
	}
	h := DecodeHeader(datagram[:HeaderSize])
	if h.PacketNumber >= PacketsPerFrame {
		return Header{}, nil, fmt.Errorf("%w: %d", ErrBadPacketNumber, h.PacketNumber)
	}
	return h, datagram[HeaderSize:], nil
}

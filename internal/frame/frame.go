// Package frame holds the in-flight and completed image representation
// reassembled by a listener from 64 packet fragments.
package frame

import "jungfraurx/internal/detector"

// Image is one frame's reassembly state: a snapshot of the first-seen
// header, the count of fragments received so far, and the data slab the
// fragments are copied into. Data is borrowed from a bufpool.Pool and must
// be returned there once the image is done being used (complete or
// discarded).
type Image struct {
	FrameNumber     uint64
	Header          detector.Header
	ReceivedPackets int
	Data            []byte
}

// New starts a fresh image from the packet that begins it, copying the
// payload into buf at its packet_number slot. buf must be exactly
// detector.FrameDataSize bytes, typically borrowed from a bufpool.Pool.
func New(h detector.Header, payload []byte, buf []byte) *Image {
	img := &Image{
		FrameNumber: h.FrameNumber,
		Header:      h,
		Data:        buf,
	}
	img.Store(h, payload)
	return img
}

// Store copies payload into the slot addressed by h.PacketNumber and
// increments the received-packet count. It does not check for duplicate
// packet numbers — neither does the reference detector firmware, and a
// duplicate simply overwrites its own slot.
func (img *Image) Store(h detector.Header, payload []byte) {
	off := int(h.PacketNumber) * detector.PayloadSize
	copy(img.Data[off:off+detector.PayloadSize], payload)
	img.ReceivedPackets++
}

// Complete reports whether every fragment of the frame has arrived.
func (img *Image) Complete() bool {
	return img.ReceivedPackets >= detector.PacketsPerFrame
}

// Missing reports how many fragments never arrived.
func (img *Image) Missing() int {
	n := detector.PacketsPerFrame - img.ReceivedPackets
	if n < 0 {
		return 0
	}
	return n
}

// Package deluge implements the Replay Generator: a trigger-driven,
// exposure-paced, multi-threaded UDP sender that mimics the detector wire
// format for load-testing a Receiver.
package deluge

import (
	"encoding/binary"
	"errors"
	"math"
)

// TriggerSize is the fixed wire size of a Deluge trigger datagram: 16
// bytes frames (u128) + 4 bytes exptime (f32) + 12 bytes uuid.
const TriggerSize = 16 + 4 + 12

// ErrBadTriggerSize is returned when a received datagram isn't exactly
// TriggerSize bytes; callers drop it silently rather than surface it on
// any operator-visible path.
var ErrBadTriggerSize = errors.New("deluge: trigger datagram is not 32 bytes")

// ErrFramesOverflow is returned when the wire frames field's high 64 bits
// are nonzero — a value too large for Go's 64-bit Trigger.Frames to
// represent.
var ErrFramesOverflow = errors.New("deluge: trigger frames field exceeds 64 bits")

// Trigger is a broadcast message directing Deluge senders to begin a
// paced burst. Frames is carried as u128 on the wire purely for binary
// compatibility with the detector SDK's own structure; Go code only
// keeps 64 bits of range, and Decode rejects a wire value whose high 64
// bits are nonzero rather than truncating it.
type Trigger struct {
	Frames  uint64
	Exptime float32
	UUID    [12]byte
}

// Encode serializes t into b in wire order, little-endian. b must be at
// least TriggerSize bytes. The high 64 bits of the wire frames field are
// always zero: Go's Trigger.Frames tops out at 64 bits.
func (t Trigger) Encode(b []byte) {
	_ = b[:TriggerSize]
	binary.LittleEndian.PutUint64(b[0:8], t.Frames)
	binary.LittleEndian.PutUint64(b[8:16], 0)
	binary.LittleEndian.PutUint32(b[16:20], math.Float32bits(t.Exptime))
	copy(b[20:32], t.UUID[:])
}

// Decode parses a TriggerSize-byte datagram into a Trigger. It rejects
// any datagram of the wrong length, and any wire value whose high 64
// bits of frames are nonzero (it would not fit Go's 64-bit Frames field,
// and silently truncating could hide a legitimate, enormous request).
func Decode(datagram []byte) (Trigger, error) {
	if len(datagram) != TriggerSize {
		return Trigger{}, ErrBadTriggerSize
	}
	if binary.LittleEndian.Uint64(datagram[8:16]) != 0 {
		return Trigger{}, ErrFramesOverflow
	}
	var t Trigger
	t.Frames = binary.LittleEndian.Uint64(datagram[0:8])
	t.Exptime = math.Float32frombits(binary.LittleEndian.Uint32(datagram[16:20]))
	copy(t.UUID[:], datagram[20:32])
	return t, nil
}

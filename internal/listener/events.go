package listener

// Event is published by a Listener onto the coordinator's lifecycle
// channel. The concrete type identifies which lifecycle point occurred.
type Event interface {
	isEvent()
}

// Starting marks a listener leaving Idle for Acquiring. AcquisitionNumber
// is the value the listener sampled from the shared global counter.
type Starting struct {
	Port              int
	AcquisitionNumber uint64
}

// ImageReceived is emitted when a frame completes or is superseded by a
// newer frame. A frame still in flight when the acquisition ends is not
// reported. DroppedPackets is the count attributed to this particular
// frame at closure time (0 for a cleanly completed frame).
type ImageReceived struct {
	Port           int
	FrameNumber    uint64
	DroppedPackets int
	Complete       bool
}

// Ended marks the end of one acquisition: ≥500ms of silence following at
// least one received packet. Stats is the final snapshot before reset.
type Ended struct {
	Port              int
	AcquisitionNumber uint64
	Stats             Stats
}

func (Starting) isEvent()      {}
func (ImageReceived) isEvent() {}
func (Ended) isEvent()         {}

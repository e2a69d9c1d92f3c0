// Package sink provides concrete listener.Sink implementations. Real
// storage/visualization sinks are a downstream concern; this package
// ships the diagnostic default.
package sink

import (
	"jungfraurx/internal/flog"
	"jungfraurx/internal/frame"
)

// Logging is a listener.Sink that only logs delivery — the default sink
// when no real consumer is configured.
type Logging struct{}

// Deliver logs the frame's identity and completeness. It never retains
// img or its buffer past the call.
func (Logging) Deliver(port int, img *frame.Image) {
	flog.Debugf("sink: port %d frame %d received_packets=%d complete=%t",
		port, img.FrameNumber, img.ReceivedPackets, img.Complete())
}

package voice

import (
	"time"
)

// Timing constants.
const (
	// TickInterval is the length of one audio frame on both sides of the bridge.
	TickInterval = 20 * time.Millisecond

	// MaxQueuedFrames bounds how many decoded frames an SSRC may have waiting
	// for the tick loop. Older frames are dropped first.
	MaxQueuedFrames = 3

	// readRetryDelay paces the receive loop after a failed voice read.
	readRetryDelay = 20 * time.Millisecond

	// leaveTimeout bounds leaving the voice channel during teardown.
	leaveTimeout = 5 * time.Second
)

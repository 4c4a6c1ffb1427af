package voice

import (
	"sync"

	"github.com/Raikerian/go-discord-usrp/internal/bridge"
)

// TickAssembler buffers decoded frames per SSRC until the tick loop drains
// one frame from every SSRC. A nil frame stands for a packet that arrived
// but could not be decoded.
type TickAssembler struct {
	mu     sync.Mutex
	depth  int
	queues map[uint32][][]int16
}

// NewTickAssembler creates an assembler that holds at most depth frames per
// SSRC. A non-positive depth uses MaxQueuedFrames.
func NewTickAssembler(depth int) *TickAssembler {
	if depth <= 0 {
		depth = MaxQueuedFrames
	}

	return &TickAssembler{
		depth:  depth,
		queues: make(map[uint32][][]int16),
	}
}

// Push queues one frame for ssrc and reports whether an older frame had to
// be dropped to make room.
func (a *TickAssembler) Push(ssrc uint32, frame []int16) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	q := append(a.queues[ssrc], frame)
	dropped := false
	if len(q) > a.depth {
		q = q[len(q)-a.depth:]
		dropped = true
	}
	a.queues[ssrc] = q

	return dropped
}

// Next pops the oldest frame of every SSRC with queued audio. SSRCs whose
// queue is empty do not appear in the tick.
func (a *TickAssembler) Next() bridge.Tick {
	a.mu.Lock()
	defer a.mu.Unlock()

	tick := make(bridge.Tick, len(a.queues))
	for ssrc, q := range a.queues {
		tick[ssrc] = q[0]
		if len(q) == 1 {
			delete(a.queues, ssrc)
		} else {
			a.queues[ssrc] = q[1:]
		}
	}

	return tick
}

// Forget discards everything queued for ssrc.
func (a *TickAssembler) Forget(ssrc uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.queues, ssrc)
}

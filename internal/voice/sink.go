package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/Raikerian/go-discord-usrp/pkg/audio"
)

// ErrSinkClosed is returned by writes to a closed OpusSink.
var ErrSinkClosed = errors.New("playback sink closed")

// Encoder compresses one 20 ms frame of 48 kHz interleaved stereo PCM.
type Encoder interface {
	Encode(pcm []int16) ([]byte, error)
}

// OpusSink accepts 48 kHz interleaved stereo little-endian PCM, cuts it into
// 20 ms frames, encodes them and queues the packets for playback. When the
// queue is full, Write blocks until the playback loop catches up.
type OpusSink struct {
	enc    Encoder
	queue  chan []byte
	logger *zap.Logger

	mu      sync.Mutex
	pending []byte

	closeOnce sync.Once
	done      chan struct{}
}

// NewOpusSink creates a sink queueing at most depth encoded frames.
func NewOpusSink(enc Encoder, depth int, logger *zap.Logger) *OpusSink {
	if depth < 1 {
		depth = 1
	}

	return &OpusSink{
		enc:    enc,
		queue:  make(chan []byte, depth),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Write implements io.Writer. Bytes short of a whole frame are kept for the
// next call.
func (s *OpusSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return 0, ErrSinkClosed
	default:
	}

	s.pending = append(s.pending, p...)
	for len(s.pending) >= audio.DiscordFrameBytes {
		pcm := audio.LEToPCMInt16(s.pending[:audio.DiscordFrameBytes])
		s.pending = s.pending[audio.DiscordFrameBytes:]

		packet, err := s.enc.Encode(pcm)
		if err != nil {
			s.logger.Debug("Dropping playback frame that failed to encode", zap.Error(err))

			continue
		}

		select {
		case s.queue <- packet:
		case <-s.done:
			return 0, ErrSinkClosed
		}
	}
	if len(s.pending) == 0 {
		s.pending = nil
	}

	return len(p), nil
}

// Run writes queued packets to w until ctx is done or the sink is closed.
// A failed write to w ends the loop with that error.
func (s *OpusSink) Run(ctx context.Context, w io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case packet := <-s.queue:
			if _, err := w.Write(packet); err != nil {
				return fmt.Errorf("write opus packet: %w", err)
			}
		}
	}
}

// Close unblocks pending writes and stops Run. It is safe to call more than
// once.
func (s *OpusSink) Close() error {
	s.closeOnce.Do(func() { close(s.done) })

	return nil
}

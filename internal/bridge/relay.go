package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/Raikerian/go-discord-usrp/pkg/audio"
	"github.com/Raikerian/go-discord-usrp/pkg/resample"
	"github.com/Raikerian/go-discord-usrp/pkg/usrp"
	"github.com/Raikerian/go-discord-usrp/pkg/util"
)

// DefaultKeyTimeout unkeys the radio when a transmission ends without an
// End packet.
const DefaultKeyTimeout = 500 * time.Millisecond

// Receiver yields packets from the radio network.
type Receiver interface {
	Recv(ctx context.Context) (usrp.Packet, error)
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithKeyHooks registers callbacks for the radio side keying up and down.
// They may run on a timer goroutine.
func WithKeyHooks(up, down func()) RelayOption {
	return func(r *Relay) {
		if up != nil {
			r.onKeyUp = up
		}
		if down != nil {
			r.onKeyDown = down
		}
	}
}

// WithKeyTimeout sets how long the radio may stay silent before it is
// considered unkeyed.
func WithKeyTimeout(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.keyTimeout = d
		}
	}
}

// WithRelayRecorder registers a metrics recorder.
func WithRelayRecorder(rec Recorder) RelayOption {
	return func(r *Relay) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// Relay plays radio audio into the voice channel.
type Relay struct {
	rx     Receiver
	sink   io.Writer
	up     *resample.Upsampler
	logger *zap.Logger

	recorder   Recorder
	onKeyUp    func()
	onKeyDown  func()
	keyTimeout time.Duration
}

// NewRelay returns a relay that reads from rx and writes 48 kHz interleaved
// stereo little-endian PCM to sink.
func NewRelay(rx Receiver, sink io.Writer, logger *zap.Logger, opts ...RelayOption) (*Relay, error) {
	up, err := resample.NewUpsampler()
	if err != nil {
		return nil, err
	}

	r := &Relay{
		rx:         rx,
		sink:       sink,
		up:         up,
		logger:     logger,
		recorder:   nopRecorder{},
		onKeyUp:    func() {},
		onKeyDown:  func() {},
		keyTimeout: DefaultKeyTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Run relays until the receiver is closed or ctx is done, which both end the
// loop without error. Only a failed sink write is returned.
func (r *Relay) Run(ctx context.Context) error {
	keyed := util.NewActivityTimer(r.keyTimeout, func() {
		r.logger.Debug("Radio went quiet without an end packet")
		r.keyDown(ctx)
	})
	defer func() {
		// A radio still keyed at teardown never sends its end packet here.
		if keyed.Expire() {
			r.keyDown(context.WithoutCancel(ctx))
		}
		keyed.Stop()
	}()

	for {
		p, err := r.rx.Recv(ctx)
		if err != nil {
			if !errors.Is(err, usrp.ErrClosed) {
				r.logger.Debug("Radio receive loop ended", zap.Error(err))
			}

			return nil
		}

		switch p := p.(type) {
		case usrp.AudioPacket:
			if keyed.Touch() {
				r.keyUp(ctx)
			}
			if err := r.play(ctx, p); err != nil {
				return err
			}
		case usrp.StartPacket:
			if keyed.Touch() {
				r.keyUp(ctx)
			}
		case usrp.EndPacket:
			if keyed.Expire() {
				r.keyDown(ctx)
			}
		case usrp.UnknownPacket:
			r.logger.Debug("Discarding unknown USRP packet", zap.Int("bytes", len(p.Raw)))
		}
	}
}

func (r *Relay) play(ctx context.Context, p usrp.AudioPacket) error {
	stereo, ok := r.up.Process(p.Samples)
	if !ok {
		r.logger.Debug("Skipping radio frame the upsampler did not complete",
			zap.Uint32("sequence", p.Sequence),
			zap.Int("samples", len(p.Samples)))
		r.recorder.FrameSkipped(ctx, "rx")

		return nil
	}

	if _, err := r.sink.Write(audio.PCMInt16ToLE(stereo)); err != nil {
		return fmt.Errorf("write playback audio: %w", err)
	}

	return nil
}

func (r *Relay) keyUp(ctx context.Context) {
	r.logger.Info("Radio keyed up")
	r.recorder.RadioKeyed(ctx, true)
	r.onKeyUp()
}

func (r *Relay) keyDown(ctx context.Context) {
	r.logger.Info("Radio keyed down")
	r.recorder.RadioKeyed(ctx, false)
	r.onKeyDown()
}

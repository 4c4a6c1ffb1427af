// Package bridge arbitrates which Discord speaker holds the radio floor and
// relays audio between the voice channel and the USRP link.
package bridge

import (
	"cmp"
	"context"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/diamondburned/arikawa/v3/discord"
	"go.uber.org/zap"

	"github.com/Raikerian/go-discord-usrp/pkg/resample"
	"github.com/Raikerian/go-discord-usrp/pkg/usrp"
)

// DefaultHangover is the number of silent ticks (20 ms each) the active
// speaker keeps the floor.
const DefaultHangover = 10

// Sender transmits packets to the radio network.
type Sender interface {
	Send(ctx context.Context, p usrp.Packet) error
	NextSequence() uint32
}

// Recorder receives bridge events for metrics.
type Recorder interface {
	FloorChanged(ctx context.Context, transmitting bool)
	FrameSkipped(ctx context.Context, direction string)
	ParticipantsChanged(ctx context.Context, n int)
	RadioKeyed(ctx context.Context, keyed bool)
}

type nopRecorder struct{}

func (nopRecorder) FloorChanged(context.Context, bool)       {}
func (nopRecorder) FrameSkipped(context.Context, string)     {}
func (nopRecorder) ParticipantsChanged(context.Context, int) {}
func (nopRecorder) RadioKeyed(context.Context, bool)         {}

// Status is a point-in-time view of a Session.
type Status struct {
	Transmitting bool
	// Speaker is the floor holder; zero when idle.
	Speaker      Participant
	Countdown    int
	Participants int
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRand sets the source used to break ties between simultaneous speakers.
func WithRand(r *rand.Rand) SessionOption {
	return func(s *Session) {
		if r != nil {
			s.intN = r.IntN
		}
	}
}

// WithHangover sets how many silent ticks release the floor.
func WithHangover(ticks int) SessionOption {
	return func(s *Session) {
		if ticks > 0 {
			s.hangover = ticks
		}
	}
}

// WithRecorder registers a metrics recorder.
func WithRecorder(r Recorder) SessionOption {
	return func(s *Session) {
		if r != nil {
			s.recorder = r
		}
	}
}

// Session owns the SSRC directory and the floor of one bridged channel.
// Every event is handled inside one critical section, including the packet
// sends it triggers, so Start, Audio and End leave in tick order.
type Session struct {
	sender   Sender
	logger   *zap.Logger
	recorder Recorder
	intN     func(int) int
	hangover int

	mu        sync.Mutex
	directory map[uint32]Participant
	byUser    map[discord.UserID]uint32
	active    bool
	speaker   uint32
	countdown int
	down      *resample.Downsampler
}

// NewSession returns an idle session sending through sender.
func NewSession(sender Sender, logger *zap.Logger, opts ...SessionOption) (*Session, error) {
	down, err := resample.NewDownsampler()
	if err != nil {
		return nil, err
	}

	s := &Session{
		sender:    sender,
		logger:    logger,
		recorder:  nopRecorder{},
		intN:      rand.IntN,
		hangover:  DefaultHangover,
		directory: make(map[uint32]Participant),
		byUser:    make(map[discord.UserID]uint32),
		down:      down,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Bind records that p.UserID now speaks on p.SSRC. A previous SSRC of the
// same user and a previous owner of the same SSRC are dropped. The floor is
// never changed here.
func (s *Session) Bind(ctx context.Context, p Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byUser[p.UserID]; ok && old != p.SSRC {
		delete(s.directory, old)
	}
	if prev, ok := s.directory[p.SSRC]; ok && prev.UserID != p.UserID {
		delete(s.byUser, prev.UserID)
	}

	s.directory[p.SSRC] = p
	s.byUser[p.UserID] = p.SSRC

	s.logger.Info("Participant has connected", p.fields()...)
	s.recorder.ParticipantsChanged(ctx, len(s.directory))
}

// Disconnect forgets userID and returns the removed participant. Unknown
// users are ignored. If the user held the floor, the next tick releases it.
func (s *Session) Disconnect(ctx context.Context, userID discord.UserID) (Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ssrc, ok := s.byUser[userID]
	if !ok {
		return Participant{}, false
	}
	delete(s.byUser, userID)

	p, ok := s.directory[ssrc]
	if !ok {
		return Participant{}, false
	}
	delete(s.directory, ssrc)

	s.logger.Info("Participant has disconnected", p.fields()...)
	s.recorder.ParticipantsChanged(ctx, len(s.directory))

	return p, true
}

// UpdateProfile replaces the names and callsign of the participant bound to
// p.SSRC. It reports false, changing nothing, when that SSRC is no longer
// bound to p.UserID, e.g. after a disconnect or a rebind.
func (s *Session) UpdateProfile(p Participant) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.directory[p.SSRC]
	if !ok || cur.UserID != p.UserID {
		return false
	}

	cur.DisplayName = p.DisplayName
	cur.Nick = p.Nick
	cur.Callsign = p.Callsign
	s.directory[p.SSRC] = cur

	s.logger.Info("Participant identified", cur.fields()...)

	return true
}

// Lookup returns the participant bound to ssrc.
func (s *Session) Lookup(ssrc uint32) (Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.directory[ssrc]

	return p, ok
}

// HandleTick advances the floor state machine by one 20 ms tick and sends
// whatever packets the transition calls for.
func (s *Session) HandleTick(ctx context.Context, tick Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasActive := s.active

	if !s.active {
		if ssrc, ok := s.pickSpeaker(tick); ok {
			s.active = true
			s.speaker = ssrc
			s.countdown = s.hangover
		}
	}

	var frame []int16
	if s.active {
		p, known := s.directory[s.speaker]
		switch {
		case !known:
			s.logger.Debug("Floor holder left the channel, releasing", zap.Uint32("ssrc", s.speaker))
			s.active = false
		case len(tick[s.speaker]) > 0:
			s.countdown = s.hangover
			frame = tick[s.speaker]
		default:
			s.countdown--
			if s.countdown <= 0 {
				s.logger.Info("Participant stopped transmitting", p.fields()...)
				s.active = false
			}
		}
	}

	switch {
	case !wasActive && s.active:
		s.send(ctx, usrp.StartPacket{Sequence: s.sender.NextSequence()})
		if p, ok := s.directory[s.speaker]; ok {
			s.logger.Info("Participant started transmitting", p.fields()...)
		}
		s.recorder.FloorChanged(ctx, true)
	case wasActive && !s.active:
		s.send(ctx, usrp.EndPacket{Sequence: s.sender.NextSequence()})
		s.countdown = 0
		s.recorder.FloorChanged(ctx, false)
	}

	if frame == nil {
		return
	}

	pcm, ok := s.down.Process(frame)
	if !ok {
		s.logger.Debug("Skipping frame the downsampler did not complete",
			zap.Uint32("ssrc", s.speaker),
			zap.Int("samples", len(frame)))
		s.recorder.FrameSkipped(ctx, "tx")

		return
	}

	s.send(ctx, usrp.AudioPacket{
		Sequence: s.sender.NextSequence(),
		Transmit: true,
		Samples:  pcm,
	})
}

// Release ends the current transmission, if any, so the radio is not left
// keyed when the bridge shuts down.
func (s *Session) Release(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}
	if p, ok := s.directory[s.speaker]; ok {
		s.logger.Info("Participant stopped transmitting", p.fields()...)
	}
	s.active = false
	s.countdown = 0
	s.send(ctx, usrp.EndPacket{Sequence: s.sender.NextSequence()})
	s.recorder.FloorChanged(ctx, false)
}

// pickSpeaker draws uniformly among the tick's SSRCs that are bound to a
// participant.
func (s *Session) pickSpeaker(tick Tick) (uint32, bool) {
	candidates := make([]uint32, 0, len(tick))
	for ssrc := range tick {
		if _, ok := s.directory[ssrc]; ok {
			candidates = append(candidates, ssrc)
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}
	slices.Sort(candidates)

	return candidates[s.intN(len(candidates))], true
}

func (s *Session) send(ctx context.Context, p usrp.Packet) {
	if err := s.sender.Send(ctx, p); err != nil {
		s.logger.Debug("Dropped outbound packet",
			zap.String("kind", p.Kind()),
			zap.Error(err))
	}
}

// Status returns a snapshot of the floor.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Transmitting: s.active,
		Participants: len(s.directory),
	}
	if s.active {
		st.Speaker = s.directory[s.speaker]
		st.Countdown = s.countdown
	}

	return st
}

// Participants returns the directory sorted by SSRC.
func (s *Session) Participants() []Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Participant, 0, len(s.directory))
	for _, p := range s.directory {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Participant) int {
		return cmp.Compare(a.SSRC, b.SSRC)
	})

	return out
}

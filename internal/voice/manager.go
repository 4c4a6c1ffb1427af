// Package voice connects Discord voice channels to the USRP radio link: it
// decodes and assembles channel audio into ticks, plays radio audio back, and
// manages one bridge per guild.
package voice

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Raikerian/go-discord-usrp/internal/bridge"
	"github.com/Raikerian/go-discord-usrp/internal/config"
	"github.com/Raikerian/go-discord-usrp/internal/identity"
	"github.com/Raikerian/go-discord-usrp/internal/observe"
	"github.com/Raikerian/go-discord-usrp/pkg/audio"
	"github.com/Raikerian/go-discord-usrp/pkg/usrp"
)

// ProfileResolver looks up who is behind a Discord user ID.
type ProfileResolver interface {
	Resolve(ctx context.Context, guildID discord.GuildID, userID discord.UserID) (identity.Profile, error)
	Forget(guildID discord.GuildID, userID discord.UserID)
}

// BridgeStatus provides a read-only view of a running bridge.
type BridgeStatus struct {
	GuildID      discord.GuildID
	ChannelID    discord.ChannelID
	StartTime    time.Time
	RadioKeyed   bool
	Floor        bridge.Status
	Participants []bridge.Participant
}

// Manager runs at most one bridge per guild.
type Manager struct {
	cfg      *config.Config
	joiner   Joiner
	resolver ProfileResolver
	metrics  *observe.Metrics
	logger   *zap.Logger

	mu       sync.Mutex
	bridges  map[discord.GuildID]*activeBridge
	starting map[discord.GuildID]struct{}
}

// NewManager creates a Manager.
func NewManager(cfg *config.Config, joiner Joiner, resolver ProfileResolver, metrics *observe.Metrics, logger *zap.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		joiner:   joiner,
		resolver: resolver,
		metrics:  metrics,
		logger:   logger,
		bridges:  make(map[discord.GuildID]*activeBridge),
		starting: make(map[discord.GuildID]struct{}),
	}
}

// Start bridges channelID to the radio link. ctx bounds the setup only; the
// bridge runs until Stop or Shutdown.
func (m *Manager) Start(ctx context.Context, guildID discord.GuildID, channelID discord.ChannelID) error {
	if err := m.reserve(guildID); err != nil {
		return err
	}

	b, err := m.setup(ctx, guildID, channelID)

	m.mu.Lock()
	delete(m.starting, guildID)
	if err == nil {
		m.bridges[guildID] = b
	}
	m.mu.Unlock()

	if err != nil {
		return err
	}
	m.run(b)

	return nil
}

func (m *Manager) reserve(guildID discord.GuildID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, running := m.bridges[guildID]
	_, starting := m.starting[guildID]
	if running || starting {
		return ErrBridgeExists
	}
	if len(m.bridges)+len(m.starting) >= m.cfg.Bridge.MaxConcurrentBridges {
		return ErrMaxBridgesReached
	}
	m.starting[guildID] = struct{}{}

	return nil
}

func (m *Manager) setup(ctx context.Context, guildID discord.GuildID, channelID discord.ChannelID) (*activeBridge, error) {
	cfg := m.cfg
	logger := m.logger.With(zap.Stringer("guild_id", guildID))
	rec := m.metrics.ForGuild(guildID)

	client, err := usrp.NewClient(cfg.USRP.LocalRxAddr, cfg.USRP.RemoteTxAddr,
		usrp.WithLogger(logger.Named("usrp")),
		usrp.WithObserver(rec))
	if err != nil {
		return nil, fmt.Errorf("failed to create USRP client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect USRP client: %w", err)
	}

	b, err := m.newBridge(client, guildID, channelID, logger, rec)
	if err != nil {
		_ = client.Close()

		return nil, err
	}

	conn, err := m.joiner.Join(ctx, guildID, channelID, Handlers{
		Speaking:   b.onSpeaking,
		Disconnect: b.onDisconnect,
	})
	if err != nil {
		b.cancel()
		_ = client.Close()

		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}
	b.conn = conn

	return b, nil
}

func (m *Manager) newBridge(client *usrp.Client, guildID discord.GuildID, channelID discord.ChannelID, logger *zap.Logger, rec *observe.GuildRecorder) (*activeBridge, error) {
	cfg := m.cfg.Bridge

	session, err := bridge.NewSession(client, logger,
		bridge.WithHangover(cfg.HangoverTicks),
		bridge.WithRecorder(rec))
	if err != nil {
		return nil, fmt.Errorf("failed to create bridge session: %w", err)
	}

	decoders, err := NewDecoderPool(cfg.DecoderPoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder pool: %w", err)
	}

	enc, err := audio.NewOpusEncoder(cfg.OpusBitrate)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &activeBridge{
		guildID:   guildID,
		channelID: channelID,
		startTime: time.Now(),
		client:    client,
		session:   session,
		assembler: NewTickAssembler(MaxQueuedFrames),
		decoders:  decoders,
		sink:      NewOpusSink(enc, cfg.PlaybackBufferFrames, logger),
		resolver:  m.resolver,
		rec:       rec,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	b.relay, err = bridge.NewRelay(client, b.sink, logger,
		bridge.WithKeyTimeout(cfg.RadioKeyTimeout),
		bridge.WithRelayRecorder(rec),
		bridge.WithKeyHooks(
			func() { b.radioKeyed.Store(true) },
			func() { b.radioKeyed.Store(false) },
		))
	if err != nil {
		cancel()

		return nil, fmt.Errorf("failed to create relay: %w", err)
	}

	return b, nil
}

func (m *Manager) run(b *activeBridge) {
	g, ctx := errgroup.WithContext(b.ctx)
	g.Go(func() error { return b.receive(ctx) })
	g.Go(func() error { return b.tick(ctx) })
	g.Go(func() error {
		if err := b.relay.Run(ctx); err != nil && !errors.Is(err, ErrSinkClosed) {
			return err
		}

		return nil
	})
	g.Go(func() error { return b.sink.Run(ctx, b.conn) })
	g.Go(func() error {
		<-ctx.Done()
		_ = b.sink.Close()

		leaveCtx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
		defer cancel()
		if err := b.conn.Leave(leaveCtx); err != nil {
			b.logger.Warn("Failed to leave voice channel cleanly", zap.Error(err))
		}

		return nil
	})

	b.rec.BridgeStarted(b.ctx)
	b.logger.Info("Bridge started",
		zap.Stringer("channel_id", b.channelID),
		zap.String("local_rx", m.cfg.USRP.LocalRxAddr),
		zap.String("remote_tx", m.cfg.USRP.RemoteTxAddr))

	go func() {
		err := g.Wait()
		b.cancel()
		if cerr := b.client.Close(); cerr != nil {
			b.logger.Debug("Failed to close USRP client", zap.Error(cerr))
		}

		m.mu.Lock()
		if m.bridges[b.guildID] == b {
			delete(m.bridges, b.guildID)
		}
		m.mu.Unlock()

		b.rec.BridgeStopped(context.Background())
		if err != nil {
			b.logger.Error("Bridge stopped", zap.Error(err), zap.Duration("duration", time.Since(b.startTime)))
		} else {
			b.logger.Info("Bridge stopped", zap.Duration("duration", time.Since(b.startTime)))
		}
		close(b.done)
	}()
}

// Stop tears down the bridge of guildID and waits for it to finish or for
// ctx to end.
func (m *Manager) Stop(ctx context.Context, guildID discord.GuildID) error {
	m.mu.Lock()
	b, ok := m.bridges[guildID]
	delete(m.bridges, guildID)
	m.mu.Unlock()

	if !ok {
		return ErrBridgeNotFound
	}

	b.cancel()
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops every bridge.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	guilds := make([]discord.GuildID, 0, len(m.bridges))
	for id := range m.bridges {
		guilds = append(guilds, id)
	}
	m.mu.Unlock()

	var errs []error
	for _, id := range guilds {
		if err := m.Stop(ctx, id); err != nil && !errors.Is(err, ErrBridgeNotFound) {
			errs = append(errs, fmt.Errorf("stop bridge in guild %s: %w", id, err))
		}
	}

	return errors.Join(errs...)
}

// Status reports the bridge of guildID.
func (m *Manager) Status(guildID discord.GuildID) (BridgeStatus, error) {
	m.mu.Lock()
	b, ok := m.bridges[guildID]
	m.mu.Unlock()

	if !ok {
		return BridgeStatus{}, ErrBridgeNotFound
	}

	return b.status(), nil
}

// Statuses reports every running bridge, ordered by guild.
func (m *Manager) Statuses() []BridgeStatus {
	m.mu.Lock()
	out := make([]BridgeStatus, 0, len(m.bridges))
	for _, b := range m.bridges {
		out = append(out, b.status())
	}
	m.mu.Unlock()

	slices.SortFunc(out, func(a, b BridgeStatus) int {
		return cmp.Compare(a.GuildID, b.GuildID)
	})

	return out
}

// activeBridge is one running guild bridge and the tasks that drive it.
type activeBridge struct {
	guildID   discord.GuildID
	channelID discord.ChannelID
	startTime time.Time

	client    *usrp.Client
	conn      Conn
	session   *bridge.Session
	relay     *bridge.Relay
	assembler *TickAssembler
	decoders  *DecoderPool
	sink      *OpusSink
	resolver  ProfileResolver
	rec       *observe.GuildRecorder
	logger    *zap.Logger

	radioKeyed atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func (b *activeBridge) status() BridgeStatus {
	return BridgeStatus{
		GuildID:      b.guildID,
		ChannelID:    b.channelID,
		StartTime:    b.startTime,
		RadioKeyed:   b.radioKeyed.Load(),
		Floor:        b.session.Status(),
		Participants: b.session.Participants(),
	}
}

// receive decodes channel audio into the assembler.
func (b *activeBridge) receive(ctx context.Context) error {
	for {
		packet, err := b.conn.ReadPacket()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Debug("Failed to read voice packet", zap.Error(err))

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(readRetryDelay):
			}

			continue
		}

		frame, err := b.decoders.Decode(packet.SSRC, packet.Opus)
		if err != nil {
			b.logger.Debug("Failed to decode voice packet",
				zap.Uint32("ssrc", packet.SSRC),
				zap.Uint16("sequence", packet.Sequence),
				zap.Error(err))
			frame = nil
		}

		if b.assembler.Push(packet.SSRC, frame) {
			b.rec.FrameSkipped(ctx, "tx")
		}
	}
}

// tick drives the session every TickInterval and releases the floor on
// shutdown.
func (b *activeBridge) tick(ctx context.Context) error {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.session.Release(context.Background())

			return nil
		case <-ticker.C:
			b.session.HandleTick(ctx, b.assembler.Next())
		}
	}
}

func (b *activeBridge) onSpeaking(ssrc uint32, userID discord.UserID) {
	if !userID.IsValid() {
		return
	}
	if p, ok := b.session.Lookup(ssrc); ok && p.UserID == userID {
		return
	}

	// Bind right away so a disconnect arriving during the lookup finds the
	// participant; the profile is filled in once resolved.
	b.session.Bind(b.ctx, bridge.Participant{
		SSRC:        ssrc,
		UserID:      userID,
		DisplayName: userID.String(),
	})

	go b.identify(ssrc, userID)
}

func (b *activeBridge) identify(ssrc uint32, userID discord.UserID) {
	profile, err := b.resolver.Resolve(b.ctx, b.guildID, userID)
	if err != nil {
		if b.ctx.Err() == nil {
			b.logger.Warn("Failed to resolve speaker, keeping it without a callsign",
				zap.Stringer("user_id", userID),
				zap.Error(err))
		}

		return
	}

	if !b.session.UpdateProfile(bridge.Participant{
		SSRC:        ssrc,
		UserID:      userID,
		DisplayName: profile.DisplayName,
		Nick:        profile.Nick,
		Callsign:    profile.Callsign,
	}) {
		b.logger.Debug("Speaker left before its profile resolved",
			zap.Stringer("user_id", userID),
			zap.Uint32("ssrc", ssrc))
	}
}

func (b *activeBridge) onDisconnect(userID discord.UserID) {
	if p, ok := b.session.Disconnect(b.ctx, userID); ok {
		b.decoders.Remove(p.SSRC)
		b.assembler.Forget(p.SSRC)
	}
	b.resolver.Forget(b.guildID, userID)
}

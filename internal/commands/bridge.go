package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/session"
	"github.com/diamondburned/arikawa/v3/state"
	"go.uber.org/zap"

	"github.com/Raikerian/go-discord-usrp/internal/bridge"
	"github.com/Raikerian/go-discord-usrp/internal/voice"
)

// joinTimeout bounds connecting to the radio link and the voice channel.
const joinTimeout = 30 * time.Second

var errNotInVoiceChannel = errors.New("user is not currently in a voice channel")

// Bridges is the part of the voice manager the commands drive.
type Bridges interface {
	Start(ctx context.Context, guildID discord.GuildID, channelID discord.ChannelID) error
	Stop(ctx context.Context, guildID discord.GuildID) error
	Status(guildID discord.GuildID) (voice.BridgeStatus, error)
}

// VoiceStates looks up where members are connected.
type VoiceStates interface {
	VoiceState(guildID discord.GuildID, userID discord.UserID) (*discord.VoiceState, error)
}

// JoinCommand bridges a voice channel to the radio network.
type JoinCommand struct {
	logger      *zap.Logger
	bridges     Bridges
	voiceStates VoiceStates
}

// NewJoinCommand creates a new JoinCommand instance.
func NewJoinCommand(logger *zap.Logger, manager *voice.Manager, st *state.State) Command {
	return &JoinCommand{
		logger:      logger,
		bridges:     manager,
		voiceStates: st,
	}
}

func (c *JoinCommand) Name() string {
	return "join"
}

func (c *JoinCommand) Description() string {
	return "Bridge a voice channel to the radio network"
}

func (c *JoinCommand) Options() []discord.CommandOption {
	return []discord.CommandOption{
		&discord.ChannelOption{
			OptionName:   "channel",
			Description:  "Voice channel to bridge (defaults to the one you are in)",
			Required:     false,
			ChannelTypes: []discord.ChannelType{discord.GuildVoice, discord.GuildStageVoice},
		},
	}
}

func (c *JoinCommand) Execute(ctx context.Context, s *session.Session, e *gateway.InteractionCreateEvent, data *discord.CommandInteraction) error {
	if !e.GuildID.IsValid() {
		return respondError(s, e, "Radio bridge commands can only be used in servers")
	}
	guildID := e.GuildID
	userID := e.SenderID()

	var requested discord.ChannelID
	for _, opt := range data.Options {
		if opt.Name != "channel" {
			continue
		}
		sf, err := opt.SnowflakeValue()
		if err != nil {
			c.logger.Debug("Failed to parse channel option", zap.Error(err))

			return respondError(s, e, "That is not a valid channel")
		}
		requested = discord.ChannelID(sf)
	}

	channelID, err := c.targetChannel(guildID, userID, requested)
	if err != nil {
		c.logger.Debug("Failed to find a voice channel to bridge",
			zap.Error(err),
			zap.Stringer("user_id", userID),
			zap.Stringer("guild_id", guildID))

		return respondError(s, e, "Join a voice channel first, or pick one with the channel option")
	}

	if err := respond(s, e, fmt.Sprintf("📻 Connecting <#%s> to the radio network...", channelID)); err != nil {
		return err
	}

	// The interaction must be answered within three seconds, so the
	// outcome is reported as a follow-up message.
	go func() {
		startCtx, cancel := context.WithTimeout(context.Background(), joinTimeout)
		defer cancel()

		msg := fmt.Sprintf("✅ <#%s> is bridged to the radio network", channelID)
		if err := c.bridges.Start(startCtx, guildID, channelID); err != nil {
			c.logger.Error("Failed to start bridge",
				zap.Error(err),
				zap.Stringer("guild_id", guildID),
				zap.Stringer("channel_id", channelID))
			msg = "❌ " + bridgeErrorMessage("Failed to start the bridge", err)
		}

		if _, err := s.SendMessage(e.ChannelID, msg); err != nil {
			c.logger.Error("Failed to send join follow-up message", zap.Error(err))
		}
	}()

	return nil
}

// targetChannel picks the requested channel, or else the invoker's current
// voice channel.
func (c *JoinCommand) targetChannel(guildID discord.GuildID, userID discord.UserID, requested discord.ChannelID) (discord.ChannelID, error) {
	if requested.IsValid() {
		return requested, nil
	}

	vs, err := c.voiceStates.VoiceState(guildID, userID)
	if err != nil {
		return 0, fmt.Errorf("look up voice state: %w", err)
	}
	if vs == nil || !vs.ChannelID.IsValid() {
		return 0, errNotInVoiceChannel
	}

	return vs.ChannelID, nil
}

// LeaveCommand stops the bridge of the current server.
type LeaveCommand struct {
	logger  *zap.Logger
	bridges Bridges
}

// NewLeaveCommand creates a new LeaveCommand instance.
func NewLeaveCommand(logger *zap.Logger, manager *voice.Manager) Command {
	return &LeaveCommand{
		logger:  logger,
		bridges: manager,
	}
}

func (c *LeaveCommand) Name() string {
	return "leave"
}

func (c *LeaveCommand) Description() string {
	return "Disconnect the radio bridge from voice"
}

func (c *LeaveCommand) Options() []discord.CommandOption {
	return nil
}

func (c *LeaveCommand) Execute(ctx context.Context, s *session.Session, e *gateway.InteractionCreateEvent, _ *discord.CommandInteraction) error {
	if !e.GuildID.IsValid() {
		return respondError(s, e, "Radio bridge commands can only be used in servers")
	}

	if err := c.bridges.Stop(ctx, e.GuildID); err != nil {
		if !errors.Is(err, voice.ErrBridgeNotFound) {
			c.logger.Error("Failed to stop bridge", zap.Error(err), zap.Stringer("guild_id", e.GuildID))
		}

		return respondError(s, e, bridgeErrorMessage("Failed to stop the bridge", err))
	}

	return respond(s, e, "🔇 Radio bridge disconnected")
}

// StatusCommand reports the bridge of the current server.
type StatusCommand struct {
	logger  *zap.Logger
	bridges Bridges
}

// NewStatusCommand creates a new StatusCommand instance.
func NewStatusCommand(logger *zap.Logger, manager *voice.Manager) Command {
	return &StatusCommand{
		logger:  logger,
		bridges: manager,
	}
}

func (c *StatusCommand) Name() string {
	return "status"
}

func (c *StatusCommand) Description() string {
	return "Show who holds the radio floor and who is bridged"
}

func (c *StatusCommand) Options() []discord.CommandOption {
	return nil
}

func (c *StatusCommand) Execute(_ context.Context, s *session.Session, e *gateway.InteractionCreateEvent, _ *discord.CommandInteraction) error {
	if !e.GuildID.IsValid() {
		return respondError(s, e, "Radio bridge commands can only be used in servers")
	}

	st, err := c.bridges.Status(e.GuildID)
	if err != nil {
		return respond(s, e, "No radio bridge is running in this server")
	}

	return respond(s, e, statusMessage(st, time.Now()))
}

func statusMessage(st voice.BridgeStatus, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📻 Radio bridge in <#%s>\n", st.ChannelID)
	fmt.Fprintf(&b, "⏱️ Up for %s\n", now.Sub(st.StartTime).Round(time.Second))

	if st.Floor.Transmitting {
		fmt.Fprintf(&b, "🎙️ Transmitting: %s\n", participantLabel(st.Floor.Speaker))
	} else {
		b.WriteString("🔇 Floor is free\n")
	}

	if st.RadioKeyed {
		b.WriteString("📡 Receiving from the radio network\n")
	} else {
		b.WriteString("📡 Radio network is quiet\n")
	}

	if len(st.Participants) == 0 {
		b.WriteString("👥 Nobody has spoken yet")
	} else {
		labels := make([]string, len(st.Participants))
		for i, p := range st.Participants {
			labels[i] = participantLabel(p)
		}
		fmt.Fprintf(&b, "👥 Participants (%d): %s", len(labels), strings.Join(labels, ", "))
	}

	return b.String()
}

func participantLabel(p bridge.Participant) string {
	if p.Callsign == "" {
		return p.DisplayName
	}

	return fmt.Sprintf("%s (%s)", p.Callsign, p.DisplayName)
}

// bridgeErrorMessage shows VoiceError messages as is and prefixes others.
func bridgeErrorMessage(prefix string, err error) string {
	var ve *voice.VoiceError
	if errors.As(err, &ve) {
		return ve.Error()
	}

	return prefix + ": " + err.Error()
}

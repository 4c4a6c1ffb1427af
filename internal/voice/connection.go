package voice

import (
	"context"
	"fmt"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/state"
	"github.com/diamondburned/arikawa/v3/voice"
	"github.com/diamondburned/arikawa/v3/voice/voicegateway"
	"go.uber.org/zap"
)

// Handlers receives voice gateway events of a joined channel.
type Handlers struct {
	// Speaking reports that userID transmits on ssrc.
	Speaking func(ssrc uint32, userID discord.UserID)
	// Disconnect reports that userID left the channel.
	Disconnect func(userID discord.UserID)
}

// Conn is a joined voice channel.
type Conn interface {
	// ReadPacket blocks until the next Opus packet arrives. It fails once the
	// channel has been left.
	ReadPacket() (AudioPacket, error)
	// Write plays one Opus frame.
	Write(opus []byte) (int, error)
	Leave(ctx context.Context) error
}

// Joiner connects to voice channels.
type Joiner interface {
	Join(ctx context.Context, guildID discord.GuildID, channelID discord.ChannelID, h Handlers) (Conn, error)
}

// DiscordJoiner joins channels through the arikawa voice client.
type DiscordJoiner struct {
	state  *state.State
	logger *zap.Logger
}

// NewDiscordJoiner creates a DiscordJoiner.
func NewDiscordJoiner(st *state.State, logger *zap.Logger) *DiscordJoiner {
	return &DiscordJoiner{
		state:  st,
		logger: logger,
	}
}

// Join implements Joiner.
func (j *DiscordJoiner) Join(ctx context.Context, guildID discord.GuildID, channelID discord.ChannelID, h Handlers) (Conn, error) {
	channel, err := j.state.Channel(channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get channel info: %w", err)
	}
	if channel.Type != discord.GuildVoice && channel.Type != discord.GuildStageVoice {
		return nil, fmt.Errorf("channel %s is not a voice channel", channelID)
	}
	if channel.GuildID != guildID {
		return nil, fmt.Errorf("channel %s does not belong to guild %s", channelID, guildID)
	}

	vs, err := voice.NewSession(j.state)
	if err != nil {
		return nil, fmt.Errorf("failed to create voice session: %w", err)
	}

	if h.Speaking != nil {
		vs.AddHandler(func(ev *voicegateway.SpeakingEvent) {
			h.Speaking(ev.SSRC, ev.UserID)
		})
	}
	if h.Disconnect != nil {
		vs.AddHandler(func(ev *voicegateway.ClientDisconnectEvent) {
			h.Disconnect(ev.UserID)
		})
	}

	if err := vs.JoinChannel(ctx, channelID, false, false); err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}

	// The voice server only streams audio to us once we are marked as
	// speaking and the UDP path has carried a packet.
	if err := vs.Speaking(ctx, voicegateway.Microphone); err != nil {
		_ = vs.Leave(ctx)

		return nil, fmt.Errorf("failed to set speaking mode: %w", err)
	}
	_, _ = vs.Write(nil)

	j.logger.Info("Joined voice channel",
		zap.Stringer("channel_id", channelID),
		zap.Stringer("guild_id", guildID))

	return &discordConn{session: vs}, nil
}

type discordConn struct {
	session *voice.Session
}

func (c *discordConn) ReadPacket() (AudioPacket, error) {
	packet, err := c.session.ReadPacket()
	if err != nil {
		return AudioPacket{}, err
	}

	return NewAudioPacket(packet), nil
}

func (c *discordConn) Write(opus []byte) (int, error) {
	return c.session.Write(opus)
}

func (c *discordConn) Leave(ctx context.Context) error {
	return c.session.Leave(ctx)
}

package commands

import (
	"context"
	"fmt"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/session"
	"go.uber.org/zap"

	"github.com/Raikerian/go-discord-usrp/internal/identity"
)

// Profiles resolves members to their bridge profile.
type Profiles interface {
	Resolve(ctx context.Context, guildID discord.GuildID, userID discord.UserID) (identity.Profile, error)
}

// CallsignCommand shows the callsign the bridge announces for a member.
type CallsignCommand struct {
	logger   *zap.Logger
	profiles Profiles
}

// NewCallsignCommand creates a new CallsignCommand instance.
func NewCallsignCommand(logger *zap.Logger, resolver *identity.Resolver) Command {
	return &CallsignCommand{
		logger:   logger,
		profiles: resolver,
	}
}

func (c *CallsignCommand) Name() string {
	return "callsign"
}

func (c *CallsignCommand) Description() string {
	return "Show the callsign the bridge reads from a member's nickname"
}

func (c *CallsignCommand) Options() []discord.CommandOption {
	return []discord.CommandOption{
		&discord.UserOption{
			OptionName:  "user",
			Description: "Member to look up (defaults to you)",
			Required:    false,
		},
	}
}

func (c *CallsignCommand) Execute(ctx context.Context, s *session.Session, e *gateway.InteractionCreateEvent, data *discord.CommandInteraction) error {
	if !e.GuildID.IsValid() {
		return respondError(s, e, "Radio bridge commands can only be used in servers")
	}

	userID := e.SenderID()
	for _, opt := range data.Options {
		if opt.Name != "user" {
			continue
		}
		sf, err := opt.SnowflakeValue()
		if err != nil {
			return respondError(s, e, "That is not a valid user")
		}
		userID = discord.UserID(sf)
	}

	profile, err := c.profiles.Resolve(ctx, e.GuildID, userID)
	if err != nil {
		c.logger.Debug("Failed to resolve member for callsign lookup",
			zap.Error(err),
			zap.Stringer("user_id", userID))

		return respondError(s, e, "Could not look up that member")
	}

	return respond(s, e, callsignMessage(profile))
}

func callsignMessage(p identity.Profile) string {
	if p.Callsign == "" {
		return fmt.Sprintf("<@%s> has no callsign in their name. Add it to your server nickname, e.g. `%s W1AW`.",
			p.UserID, p.DisplayName)
	}

	return fmt.Sprintf("<@%s> transmits as **%s**", p.UserID, p.Callsign)
}

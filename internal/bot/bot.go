// Package bot wires slash command handling into the Discord session.
package bot

import (
	"context"
	"errors"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/session"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-discord-usrp/internal/commands"
	"github.com/Raikerian/go-discord-usrp/internal/config"
)

// Bot represents the Discord bot.
type Bot struct {
	Session    *session.Session
	Config     *config.Config
	CmdManager *commands.CommandManager
	Logger     *zap.Logger

	guildIDs []discord.GuildID
}

// NewBotParameters holds dependencies for NewBot.
type NewBotParameters struct {
	fx.In

	Cfg        *config.Config
	S          *session.Session
	CmdManager *commands.CommandManager
	Logger     *zap.Logger
}

// NewBot creates the bot and subscribes it to interactions.
func NewBot(params NewBotParameters) (*Bot, error) {
	if params.S == nil {
		return nil, errors.New("session provided to NewBot is nil")
	}
	if params.Cfg == nil {
		return nil, errors.New("config provided to NewBot is nil")
	}
	if params.Logger == nil {
		return nil, errors.New("logger provided to NewBot is nil")
	}

	b := &Bot{
		Session:    params.S,
		Config:     params.Cfg,
		CmdManager: params.CmdManager,
		Logger:     params.Logger,
		guildIDs:   parseGuildIDs(params.Cfg.Discord.GuildIDs, params.Logger),
	}

	params.S.AddHandler(func(e *gateway.InteractionCreateEvent) {
		handleInteraction(context.Background(), params.S, e, b.CmdManager, b.Logger)
	})

	return b, nil
}

// Start registers the slash commands with the configured guilds.
func (b *Bot) Start(_ context.Context) error {
	if len(b.guildIDs) == 0 {
		b.Logger.Warn("No guild IDs configured; slash commands will not be registered")

		return nil
	}

	b.CmdManager.RegisterCommands(b.guildIDs)

	return nil
}

// Stop removes the slash commands so they do not linger while the bridge is
// offline.
func (b *Bot) Stop(_ context.Context) error {
	b.CmdManager.UnregisterAllCommands(b.guildIDs)

	return nil
}

func parseGuildIDs(ids []string, logger *zap.Logger) []discord.GuildID {
	guildIDs := make([]discord.GuildID, 0, len(ids))
	for _, idStr := range ids {
		sf, err := discord.ParseSnowflake(idStr)
		if err != nil {
			logger.Error("Failed to parse guild ID string to Snowflake", zap.String("guildIDStr", idStr), zap.Error(err))

			continue
		}
		guildIDs = append(guildIDs, discord.GuildID(sf))
	}

	return guildIDs
}

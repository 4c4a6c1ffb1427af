// Package discord provides the gateway session, the cached state and the
// application ID to the rest of the bridge.
package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/session"
	"github.com/diamondburned/arikawa/v3/state"
	"github.com/diamondburned/arikawa/v3/state/store/defaultstore"
	"github.com/diamondburned/arikawa/v3/voice"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-discord-usrp/internal/config"
)

// Intents the bridge needs: guild and member data for callsigns, voice
// states for /join, and integrations for slash commands.
const intents = gateway.IntentGuilds | gateway.IntentGuildMembers | gateway.IntentGuildIntegrations

// Module provides Discord-related dependencies.
var Module = fx.Module("discord",
	fx.Provide(
		NewSession,
		NewState,
		ProvideApplicationID,
	),
)

// SessionParams holds dependencies for NewSession.
type SessionParams struct {
	fx.In
	Cfg    *config.Config
	LC     fx.Lifecycle
	Logger *zap.Logger
}

// SessionResult holds results from NewSession.
type SessionResult struct {
	fx.Out
	Session *session.Session
}

// NewSession creates the gateway session and ties it to the application
// lifecycle.
func NewSession(params SessionParams) (SessionResult, error) {
	cfg := params.Cfg.Discord
	if cfg.BotToken == "" {
		return SessionResult{}, fmt.Errorf("discord bot token is not set in config or %s", config.EnvBotToken)
	}
	if cfg.ApplicationID == nil {
		return SessionResult{}, errors.New("application ID is not set in config")
	}

	s := session.New("Bot " + cfg.BotToken)
	s.AddIntents(intents)
	voice.AddIntents(s)

	s.AddHandler(func(r *gateway.ReadyEvent) {
		params.Logger.Info("Discord gateway ready",
			zap.String("user", r.User.Username),
			zap.Int("guilds", len(r.Guilds)))
	})

	params.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			params.Logger.Info("Opening Discord session...")
			if err := s.Open(ctx); err != nil {
				return fmt.Errorf("open discord session: %w", err)
			}

			return nil
		},
		OnStop: func(_ context.Context) error {
			params.Logger.Info("Closing Discord session...")

			return s.Close()
		},
	})

	return SessionResult{Session: s}, nil
}

// StateParams holds dependencies for NewState.
type StateParams struct {
	fx.In
	Session *session.Session
	Logger  *zap.Logger
}

// StateResult holds results from NewState.
type StateResult struct {
	fx.Out
	State *state.State
}

// NewState wraps the session in a cabinet-backed state. Voice states and
// members are served from the cabinet when resolving /join targets and
// participant profiles.
func NewState(params StateParams) StateResult {
	st := state.NewFromSession(params.Session, defaultstore.New())

	params.Logger.Debug("Created Discord state from session with default stores")

	return StateResult{State: st}
}

// ProvideApplicationID reads the application ID slash commands are
// registered under.
func ProvideApplicationID(cfg *config.Config, logger *zap.Logger) (discord.AppID, error) {
	if cfg.Discord.ApplicationID == nil || !cfg.Discord.ApplicationID.IsValid() {
		return 0, errors.New("application ID is not configured or is invalid")
	}

	appID := discord.AppID(*cfg.Discord.ApplicationID)
	logger.Info("Providing Discord AppID", zap.Stringer("appID", appID))

	return appID, nil
}

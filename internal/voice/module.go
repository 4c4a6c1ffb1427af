package voice

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-discord-usrp/internal/config"
	"github.com/Raikerian/go-discord-usrp/internal/identity"
	"github.com/Raikerian/go-discord-usrp/internal/observe"
)

// Module provides the voice joiner and the bridge manager.
var Module = fx.Module("voice",
	fx.Provide(
		fx.Annotate(NewDiscordJoiner, fx.As(new(Joiner))),
		NewManagerProvider,
	),
)

// ManagerParams holds dependencies for NewManagerProvider.
type ManagerParams struct {
	fx.In
	Cfg      *config.Config
	Joiner   Joiner
	Resolver *identity.Resolver
	Metrics  *observe.Metrics
	Logger   *zap.Logger
	LC       fx.Lifecycle
}

// NewManagerProvider creates the bridge Manager and stops every bridge on
// shutdown.
func NewManagerProvider(params ManagerParams) *Manager {
	m := NewManager(params.Cfg, params.Joiner, params.Resolver, params.Metrics, params.Logger.Named("voice"))

	params.LC.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			params.Logger.Info("Stopping voice bridges...")

			return m.Shutdown(ctx)
		},
	})

	return m
}

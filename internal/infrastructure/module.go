// Package infrastructure provides core infrastructure components and their Fx modules.
package infrastructure

import (
	"context"
	"errors"
	"syscall"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-discord-usrp/internal/config"
	pkginfra "github.com/Raikerian/go-discord-usrp/pkg/infrastructure"
)

// LoggerModule provides logging infrastructure.
var LoggerModule = fx.Module("logger",
	fx.Provide(NewZapLogger),
)

// NewZapLoggerParams holds dependencies for NewZapLogger.
type NewZapLoggerParams struct {
	fx.In
	Cfg *config.Config
	LC  fx.Lifecycle
}

// NewZapLogger builds the application logger at the configured level and
// flushes it on shutdown.
func NewZapLogger(params NewZapLoggerParams) (*zap.Logger, error) {
	logger, err := pkginfra.NewLogger(params.Cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	params.LC.Append(fx.Hook{
		OnStop: func(context.Context) error {
			// Sync of a terminal-backed stderr reports ENOTTY or EINVAL.
			if err := logger.Sync(); err != nil && !errors.Is(err, syscall.ENOTTY) && !errors.Is(err, syscall.EINVAL) {
				return err
			}

			return nil
		},
	})

	return logger, nil
}

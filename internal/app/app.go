// Package app provides the main application structure and lifecycle management.
package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-discord-usrp/internal/bot"
)

// Application represents the main application with its lifecycle.
type Application struct {
	app *fx.App
}

// New creates a new Application with the provided modules and options.
func New(modules ...fx.Option) *Application {
	options := append(modules, fx.Invoke(registerLifecycleHooks))

	return &Application{
		app: fx.New(options...),
	}
}

// Err reports a failure to build the dependency graph.
func (a *Application) Err() error {
	return a.app.Err()
}

// Start opens the Discord session and registers the slash commands.
func (a *Application) Start(ctx context.Context) error {
	return a.app.Start(ctx)
}

// Done is closed with the signal that should stop the application.
func (a *Application) Done() <-chan fx.ShutdownSignal {
	return a.app.Wait()
}

// Stop stops every bridge, unregisters the commands and closes the session.
func (a *Application) Stop(ctx context.Context) error {
	return a.app.Stop(ctx)
}

// registerLifecycleHooks runs after the Discord session hook, so commands
// are registered on an open session and removed before it closes.
func registerLifecycleHooks(lc fx.Lifecycle, b *bot.Bot, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting application: registering slash commands")

			if err := b.Start(ctx); err != nil {
				logger.Error("Failed to start bot", zap.Error(err))

				return err
			}

			logger.Info("Application started successfully")

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping application: unregistering slash commands")

			if err := b.Stop(ctx); err != nil {
				logger.Error("Failed to stop bot", zap.Error(err))

				return err
			}

			return nil
		},
	})
}

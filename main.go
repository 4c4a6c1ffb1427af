// Package main provides the entry point for the Discord USRP radio bridge.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/fx"

	"github.com/Raikerian/go-discord-usrp/internal/app"
	"github.com/Raikerian/go-discord-usrp/internal/bot"
	"github.com/Raikerian/go-discord-usrp/internal/commands"
	"github.com/Raikerian/go-discord-usrp/internal/config"
	"github.com/Raikerian/go-discord-usrp/internal/discord"
	"github.com/Raikerian/go-discord-usrp/internal/identity"
	"github.com/Raikerian/go-discord-usrp/internal/infrastructure"
	"github.com/Raikerian/go-discord-usrp/internal/observe"
	"github.com/Raikerian/go-discord-usrp/internal/voice"
	pkginfra "github.com/Raikerian/go-discord-usrp/pkg/infrastructure"
)

const (
	startTimeout    = 30 * time.Second
	shutdownTimeout = 30 * time.Second
)

func main() {
	configPath := "config.yaml"
	if p, ok := os.LookupEnv("CONFIG_PATH"); ok && p != "" {
		configPath = p
	}

	application := app.New(
		// Core modules
		config.Module,
		infrastructure.LoggerModule,
		observe.Module,

		// External service modules
		discord.Module,

		// Application modules
		identity.Module,
		voice.Module,
		commands.Module,
		bot.Module,

		fx.Supply(configPath),
		fx.WithLogger(pkginfra.NewFxLoggerAdapter),
	)
	if err := application.Err(); err != nil {
		fmt.Printf("Failed to build application: %v\n", err)
		os.Exit(1)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), startTimeout)
	err := application.Start(startCtx)
	cancel()
	if err != nil {
		fmt.Printf("Failed to start application: %v\n", err)
		os.Exit(1)
	}

	sig := <-application.Done()
	fmt.Printf("Received signal: %s, initiating shutdown.\n", sig.Signal)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	err = application.Stop(shutdownCtx)
	cancel()

	if err != nil {
		fmt.Printf("Error during shutdown: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Application has shut down gracefully.")
}

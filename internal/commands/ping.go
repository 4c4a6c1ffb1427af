package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/session"
)

// PingCommand is a simple command that responds with "Pong!" and the
// gateway latency.
type PingCommand struct{}

// NewPingCommand creates a new PingCommand instance.
// This constructor will be used by Fx.
func NewPingCommand() Command {
	return &PingCommand{}
}

// Name returns the name of the command.
func (c *PingCommand) Name() string {
	return "ping"
}

// Description returns the description of the command.
func (c *PingCommand) Description() string {
	return "Responds with Pong!"
}

// Options returns the command options.
func (c *PingCommand) Options() []discord.CommandOption {
	return nil
}

// Execute runs the command.
func (c *PingCommand) Execute(_ context.Context, s *session.Session, e *gateway.InteractionCreateEvent, _ *discord.CommandInteraction) error {
	return respond(s, e, pingMessage(s.Gateway().Latency()))
}

func pingMessage(latency time.Duration) string {
	if latency <= 0 {
		return "Pong!"
	}

	return fmt.Sprintf("Pong! Gateway latency %s", latency.Round(time.Millisecond))
}

package commands

import (
	"context"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/session"
)

// AppVersion is the version of the application, should be set during build time.
var AppVersion = "dev"

// VersionCommand is a command that responds with the application version.
type VersionCommand struct{}

// NewVersionCommand creates a new VersionCommand instance.
func NewVersionCommand() Command {
	return &VersionCommand{}
}

// Name returns the name of the command.
func (c *VersionCommand) Name() string {
	return "version"
}

// Description returns the description of the command.
func (c *VersionCommand) Description() string {
	return "Displays the current version of the bridge."
}

// Options returns the command options.
func (c *VersionCommand) Options() []discord.CommandOption {
	return nil
}

// Execute runs the command.
func (c *VersionCommand) Execute(_ context.Context, s *session.Session, e *gateway.InteractionCreateEvent, _ *discord.CommandInteraction) error {
	return respond(s, e, "go-discord-usrp version: "+AppVersion)
}

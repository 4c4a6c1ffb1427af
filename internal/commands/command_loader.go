package commands

import (
	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// CommandManagerParams holds dependencies for NewCommandManager.
type CommandManagerParams struct {
	fx.In

	Session       *session.Session `optional:"true"`
	ApplicationID discord.AppID
	Logger        *zap.Logger
	Commands      []Command `group:"commands"`
}

// CommandManager indexes the slash commands and registers them with Discord.
type CommandManager struct {
	session       *session.Session
	applicationID discord.AppID
	logger        *zap.Logger
	commands      map[string]Command
	order         []string
}

// NewCommandManager creates a new CommandManager. Nil commands are skipped;
// for duplicate names the first command wins.
func NewCommandManager(params CommandManagerParams) *CommandManager {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cm := &CommandManager{
		session:       params.Session,
		applicationID: params.ApplicationID,
		logger:        logger,
		commands:      make(map[string]Command, len(params.Commands)),
	}

	for _, cmd := range params.Commands {
		if cmd == nil {
			continue
		}
		name := cmd.Name()
		if _, exists := cm.commands[name]; exists {
			logger.Warn("Duplicate command name, keeping the first", zap.String("commandName", name))

			continue
		}
		cm.commands[name] = cmd
		cm.order = append(cm.order, name)
	}

	logger.Info("Created CommandManager", zap.Int("commands", len(cm.commands)))

	return cm
}

// GetCommand retrieves a registered command by its name.
func (cm *CommandManager) GetCommand(name string) (Command, bool) {
	cmd, ok := cm.commands[name]

	return cmd, ok
}

// CommandData returns the registration payload of every command in the
// order they were provided.
func (cm *CommandManager) CommandData() []api.CreateCommandData {
	cmds := make([]api.CreateCommandData, 0, len(cm.order))
	for _, name := range cm.order {
		cmd := cm.commands[name]
		cmds = append(cmds, api.CreateCommandData{
			Name:        cmd.Name(),
			Description: cmd.Description(),
			Options:     cmd.Options(),
		})
	}

	return cmds
}

// RegisterCommands registers all loaded commands with Discord for the specified guilds.
func (cm *CommandManager) RegisterCommands(guildIDs []discord.GuildID) {
	cmds := cm.CommandData()
	if len(cmds) == 0 {
		cm.logger.Info("No commands to register.")

		return
	}

	for _, guildID := range guildIDs {
		registered, err := cm.session.BulkOverwriteGuildCommands(cm.applicationID, guildID, cmds)
		if err != nil {
			cm.logger.Error("Failed to bulk overwrite commands for guild",
				zap.Error(err),
				zap.Stringer("applicationID", cm.applicationID),
				zap.Stringer("guildID", guildID),
			)

			continue
		}
		cm.logger.Info("Successfully registered slash commands for guild",
			zap.Int("count", len(registered)),
			zap.Stringer("guildID", guildID),
		)
	}
}

// UnregisterAllCommands unregisters all commands for the specified guilds.
func (cm *CommandManager) UnregisterAllCommands(guildIDs []discord.GuildID) {
	for _, guildID := range guildIDs {
		_, err := cm.session.BulkOverwriteGuildCommands(cm.applicationID, guildID, []api.CreateCommandData{})
		if err != nil {
			cm.logger.Error("Failed to unregister commands for guild",
				zap.Error(err),
				zap.Stringer("guildID", guildID),
			)

			continue
		}
		cm.logger.Info("Unregistered all slash commands for guild", zap.Stringer("guildID", guildID))
	}
}

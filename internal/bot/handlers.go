package bot

import (
	"context"

	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/session"
	"github.com/diamondburned/arikawa/v3/utils/json/option"
	"go.uber.org/zap"

	"github.com/Raikerian/go-discord-usrp/internal/commands"
)

func handleInteraction(ctx context.Context, s *session.Session, e *gateway.InteractionCreateEvent, cm *commands.CommandManager, logger *zap.Logger) {
	data, ok := e.Data.(*discord.CommandInteraction)
	if !ok {
		logger.Debug("Received unhandled interaction type", zap.Any("type", e.Data.InteractionType()))

		return
	}

	fields := []zap.Field{zap.String("commandName", data.Name)}
	if user := e.Sender(); user != nil {
		fields = append(fields, zap.String("user", user.Username))
	}
	logger.Info("Received slash command", fields...)

	cmd, ok := cm.GetCommand(data.Name)
	if !ok {
		logger.Warn("Unknown command", zap.String("commandName", data.Name))
		err := s.RespondInteraction(e.ID, e.Token, api.InteractionResponse{
			Type: api.MessageInteractionWithSource,
			Data: &api.InteractionResponseData{
				Content: option.NewNullableString("Command not found."),
				Flags:   discord.EphemeralMessage,
			},
		})
		if err != nil {
			logger.Error("Failed to respond to interaction for unknown command", zap.Error(err))
		}

		return
	}

	if err := cmd.Execute(ctx, s, e, data); err != nil {
		logger.Error("Error executing command", zap.String("commandName", data.Name), zap.Error(err))

		return
	}

	logger.Debug("Command executed successfully", zap.String("commandName", data.Name))
}

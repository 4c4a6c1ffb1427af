package commands

import (
	"go.uber.org/fx"
)

// Module provides command-related dependencies.
var Module = fx.Module("commands",
	fx.Provide(
		NewCommandManager,
		// Command providers with proper grouping
		fx.Annotate(
			NewPingCommand,
			fx.ResultTags(`group:"commands"`),
		),
		fx.Annotate(
			NewVersionCommand,
			fx.ResultTags(`group:"commands"`),
		),
		fx.Annotate(
			NewJoinCommand,
			fx.ResultTags(`group:"commands"`),
		),
		fx.Annotate(
			NewLeaveCommand,
			fx.ResultTags(`group:"commands"`),
		),
		fx.Annotate(
			NewStatusCommand,
			fx.ResultTags(`group:"commands"`),
		),
		fx.Annotate(
			NewCallsignCommand,
			fx.ResultTags(`group:"commands"`),
		),
	),
)

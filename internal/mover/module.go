package mover

import (
	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"mover",
		logger.WithNamedLogger("mover"),
		fx.Provide(NewService),
	)
}

package queue

import (
	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"queue",
		logger.WithNamedLogger("queue"),
		fx.Provide(NewCoordinator),
	)
}

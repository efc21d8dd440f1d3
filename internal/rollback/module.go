package rollback

import (
	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"rollback",
		logger.WithNamedLogger("rollback"),
		fx.Provide(NewSelector),
	)
}

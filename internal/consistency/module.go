package consistency

import (
	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"consistency",
		logger.WithNamedLogger("consistency"),
		fx.Provide(NewValidator),
	)
}

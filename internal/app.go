package internal

import (
	"context"

	"github.com/capcom6/go-infra-fx/validator"
	"github.com/go-core-fx/logger"
	"go.uber.org/fx"

	"github.com/tagwarden/tagwarden/internal/config"
	"github.com/tagwarden/tagwarden/internal/consistency"
	"github.com/tagwarden/tagwarden/internal/git"
	"github.com/tagwarden/tagwarden/internal/mover"
	"github.com/tagwarden/tagwarden/internal/queue"
	"github.com/tagwarden/tagwarden/internal/releases"
	"github.com/tagwarden/tagwarden/internal/rollback"
	"github.com/tagwarden/tagwarden/internal/tags"
)

// Run assembles the application for a single invocation, hands the
// release service to fn, and tears everything down again. Every CLI
// command is one such invocation; no state outlives the process
// beyond the tags written to the repository.
func Run(ctx context.Context, fn func(context.Context, *releases.Service) error, overrides ...fx.Option) error {
	var service *releases.Service

	options := []fx.Option{
		// CORE MODULES
		logger.Module(),
		logger.WithFxDefaultLogger(),
		validator.Module,
		//
		// APP MODULES
		config.Module(),
		//
		// BUSINESS MODULES
		tags.Module(),
		git.Module(),
		consistency.Module(),
		mover.Module(),
		queue.Module(),
		rollback.Module(),
		releases.Module(),
		//
		fx.Populate(&service),
	}
	options = append(options, overrides...)

	app := fx.New(options...)
	if err := app.Start(ctx); err != nil {
		return err
	}

	runErr := fn(ctx, service)

	if err := app.Stop(ctx); err != nil && runErr == nil {
		return err
	}

	return runErr
}

package config

import (
	"go.uber.org/fx"

	"github.com/tagwarden/tagwarden/internal/git"
	"github.com/tagwarden/tagwarden/internal/mover"
	"github.com/tagwarden/tagwarden/internal/rollback"
	"github.com/tagwarden/tagwarden/internal/tags"
)

func Module() fx.Option {
	return fx.Module(
		"config",
		fx.Provide(New),
		fx.Provide(func(cfg Config) git.Config {
			return git.Config{
				RepoPath: cfg.Git.RepoPath,
				Remote:   cfg.Git.Remote,
				Timeout:  cfg.Git.Timeout,
				Tagger: git.TaggerConfig{
					Name:  cfg.Git.Tagger.Name,
					Email: cfg.Git.Tagger.Email,
				},
			}
		}),
		fx.Provide(func(cfg Config) tags.Config {
			return tags.Config{
				Environments: cfg.Tags.Environments,
			}
		}),
		fx.Provide(func(cfg Config) mover.Config {
			return mover.Config{
				MaxRetries:     cfg.Mover.MaxRetries,
				InitialBackoff: cfg.Mover.InitialBackoff,
				MaxBackoff:     cfg.Mover.MaxBackoff,
				LockTimeout:    cfg.Mover.LockTimeout,
			}
		}),
		fx.Provide(func(cfg Config) rollback.Config {
			return rollback.Config{
				PreferUntagged: cfg.Rollback.PreferUntagged,
			}
		}),
	)
}

package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/tagwarden/tagwarden/internal"
	"github.com/tagwarden/tagwarden/internal/git"
	"github.com/tagwarden/tagwarden/internal/releases"
)

var repoPath string

var rootCmd = &cobra.Command{
	Use:   "tagwarden",
	Short: "Release and deployment state tracking on git tags",
	Long: "Tagwarden records releases, deployment targets and version " +
		"quality states as git tags, so the repository itself is the " +
		"single source of truth for what is deployed where.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&repoPath, "repo", "",
		"path to the repository holding the tag store (overrides config)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// run wires the application for one command invocation, applying the
// --repo override when given.
func run(cmd *cobra.Command, fn func(context.Context, *releases.Service) error) error {
	var overrides []fx.Option
	if repoPath != "" {
		overrides = append(overrides, fx.Decorate(func(cfg git.Config) git.Config {
			cfg.RepoPath = repoPath
			return cfg
		}))
	}

	return internal.Run(cmd.Context(), fn, overrides...)
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

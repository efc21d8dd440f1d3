package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tagwarden/tagwarden/internal/releases"
)

var (
	environmentStatusSubPath     string
	environmentStatusEnvironment string
)

var environmentStatusCmd = &cobra.Command{
	Use:   "environment-status",
	Short: "Show what is deployed in each environment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, svc *releases.Service) error {
			states, err := svc.EnvironmentStatus(ctx, releases.EnvironmentStatusRequest{
				SubPath:     environmentStatusSubPath,
				Environment: environmentStatusEnvironment,
			})
			if err != nil {
				return err
			}

			return printJSON(states)
		})
	},
}

func init() {
	environmentStatusCmd.Flags().StringVar(&environmentStatusSubPath, "sub-path", "",
		"component sub-path prefix to inspect")
	environmentStatusCmd.Flags().StringVar(&environmentStatusEnvironment, "environment", "",
		"restrict output to one environment")

	rootCmd.AddCommand(environmentStatusCmd)
}

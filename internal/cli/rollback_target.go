package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tagwarden/tagwarden/internal/releases"
)

var rollbackTargetSubPath string

var rollbackTargetCmd = &cobra.Command{
	Use:   "rollback-target <environment>",
	Short: "Compute the best prior version to roll an environment back to",
	Long: "Selects the rollback target for the environment: the highest " +
		"stable prior version when one exists, otherwise the highest " +
		"non-deprecated prior version. Prints the full audit trail of " +
		"candidates and rejections; the tag store is not modified.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, svc *releases.Service) error {
			target, err := svc.SelectRollbackTarget(ctx, releases.RollbackTargetRequest{
				SubPath:     rollbackTargetSubPath,
				Environment: args[0],
			})
			if err != nil {
				return err
			}

			return printJSON(target)
		})
	},
}

func init() {
	rollbackTargetCmd.Flags().StringVar(&rollbackTargetSubPath, "sub-path", "",
		"component sub-path prefix for the tag")

	rootCmd.AddCommand(rollbackTargetCmd)
}

package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tagwarden/tagwarden/internal/releases"
)

var (
	moveEnvironmentSubPath string
	moveEnvironmentCommit  string
	moveEnvironmentVersion string
)

var moveEnvironmentCmd = &cobra.Command{
	Use:   "move-environment <environment>",
	Short: "Deploy a released commit to an environment",
	Long: "Moves the environment tag to the requested commit. The commit " +
		"must carry a version tag for the same sub-path; concurrent moves " +
		"of the same environment are serialized and retried on conflict.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, svc *releases.Service) error {
			result, err := svc.MoveEnvironment(ctx, releases.MoveEnvironmentRequest{
				SubPath:     moveEnvironmentSubPath,
				Environment: args[0],
				Commit:      moveEnvironmentCommit,
				Version:     moveEnvironmentVersion,
			})
			if result != nil {
				if printErr := printJSON(result); printErr != nil && err == nil {
					err = printErr
				}
			}

			return err
		})
	},
}

func init() {
	moveEnvironmentCmd.Flags().StringVar(&moveEnvironmentSubPath, "sub-path", "",
		"component sub-path prefix for the tag")
	moveEnvironmentCmd.Flags().StringVar(&moveEnvironmentCommit, "commit", "",
		"commit SHA to deploy, full or abbreviated (required)")
	moveEnvironmentCmd.Flags().StringVar(&moveEnvironmentVersion, "version", "",
		"version expected at the commit; the command fails on mismatch")
	_ = moveEnvironmentCmd.MarkFlagRequired("commit")

	rootCmd.AddCommand(moveEnvironmentCmd)
}

package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tagwarden/tagwarden/internal/releases"
)

var (
	createVersionSubPath string
	createVersionCommit  string
)

var createVersionCmd = &cobra.Command{
	Use:   "create-version <version>",
	Short: "Cut a release by tagging a commit with a version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, svc *releases.Service) error {
			result, err := svc.CreateVersion(ctx, releases.CreateVersionRequest{
				SubPath: createVersionSubPath,
				Version: args[0],
				Commit:  createVersionCommit,
			})
			if err != nil {
				return err
			}

			return printJSON(result)
		})
	},
}

func init() {
	createVersionCmd.Flags().StringVar(&createVersionSubPath, "sub-path", "",
		"component sub-path prefix for the tag")
	createVersionCmd.Flags().StringVar(&createVersionCommit, "commit", "",
		"commit SHA to release, full or abbreviated (required)")
	_ = createVersionCmd.MarkFlagRequired("commit")

	rootCmd.AddCommand(createVersionCmd)
}

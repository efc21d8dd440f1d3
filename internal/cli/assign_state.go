package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tagwarden/tagwarden/internal/releases"
)

var (
	assignStateSubPath string
	assignStateCommit  string
)

var assignStateCmd = &cobra.Command{
	Use:   "assign-state <version> <stable|unstable|deprecated>",
	Short: "Annotate a released version with a quality state",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, svc *releases.Service) error {
			result, err := svc.AssignState(ctx, releases.AssignStateRequest{
				SubPath: assignStateSubPath,
				Version: args[0],
				State:   args[1],
				Commit:  assignStateCommit,
			})
			if err != nil {
				return err
			}

			return printJSON(result)
		})
	},
}

func init() {
	assignStateCmd.Flags().StringVar(&assignStateSubPath, "sub-path", "",
		"component sub-path prefix for the tag")
	assignStateCmd.Flags().StringVar(&assignStateCommit, "commit", "",
		"expected commit SHA of the version; the command fails if the version points elsewhere")

	rootCmd.AddCommand(assignStateCmd)
}

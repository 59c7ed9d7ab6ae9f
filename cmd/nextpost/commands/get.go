package commands

import (
	"errors"
	"fmt"

	"github.com/dyluth/nextpost/internal/printer"
	"github.com/dyluth/nextpost/internal/report"
	"github.com/dyluth/nextpost/internal/resolver"
	"github.com/spf13/cobra"
)

func newGetCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get POST_ID",
		Short: "Show one stored post as JSON",
		Long: `Show the complete details of a stored post as pretty-printed JSON.

Supports short IDs (e.g. "abc123" instead of the full UUID) as long as the
prefix matches exactly one post.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			shortID := args[0]

			a, err := root.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			fullID, err := resolver.ResolveRecordID(ctx, a.store, shortID)
			if err != nil {
				if resolver.IsNotFoundError(err) {
					return printer.Error(
						fmt.Sprintf("post with ID '%s' not found", shortID),
						fmt.Sprintf("No post in namespace '%s' has this ID.", a.cfg.Namespace),
						[]string{"List all posts:\n  nextpost list"},
					)
				}
				var ambigErr *resolver.AmbiguousError
				if errors.As(err, &ambigErr) {
					return printer.Error("ambiguous short ID", resolver.FormatAmbiguousError(ambigErr), nil)
				}
				return printer.Error("invalid post ID", err.Error(), nil)
			}

			if err := report.GetRecord(ctx, a.store, fullID, cmd.OutOrStdout()); err != nil {
				if report.IsNotFound(err) {
					return printer.Error(
						fmt.Sprintf("post with ID '%s' not found", fullID),
						"The post was resolved but could not be fetched.",
						nil,
					)
				}
				return fmt.Errorf("failed to get post: %w", err)
			}
			return nil
		},
	}
}

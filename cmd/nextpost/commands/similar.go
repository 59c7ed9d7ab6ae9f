package commands

import (
	"github.com/dyluth/nextpost/internal/knowledge"
	"github.com/dyluth/nextpost/internal/printer"
	"github.com/dyluth/nextpost/internal/report"
	"github.com/spf13/cobra"
)

func newSimilarCmd(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "similar QUERY",
		Short: "Find stored posts similar to a text",
		Long: `Rank stored posts by semantic similarity to QUERY, most similar first.
Scores range from -1 to 1; higher is more similar.

Example:
  nextpost similar "before and after storefront" --limit 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := root.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.needsEmbeddingKey() {
				if err := a.requireAPIKey("Similarity search"); err != nil {
					return err
				}
			}

			matches, err := a.store.Similar(ctx, args[0], limit)
			if err != nil {
				if knowledge.IsValidationError(err) {
					return printer.Error("invalid search", err.Error(), []string{"Use --limit 1 or more"})
				}
				return printer.ErrorWithContext(
					"similarity search failed",
					"The query could not be embedded or the index could not be read.",
					map[string]string{"error": err.Error()},
					nil,
				)
			}

			report.FormatMatches(cmd.OutOrStdout(), args[0], matches)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 5, "Maximum number of posts to show")
	return cmd
}

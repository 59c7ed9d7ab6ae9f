package commands

import (
	"fmt"
	"time"

	"github.com/dyluth/nextpost/internal/printer"
	"github.com/dyluth/nextpost/internal/report"
	"github.com/dyluth/nextpost/internal/timespec"
	"github.com/spf13/cobra"
)

func newListCmd(root *rootOptions) *cobra.Command {
	var (
		outputFormat  string
		since         string
		until         string
		category      string
		minEngagement int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored posts with filtering",
		Long: `List stored posts, oldest first.

Output Formats:
  default - Human-readable table with ID, date, category, engagement and caption
  jsonl   - Line-delimited JSON, one post per line

Date Filters (inclusive):
  --since / --until accept YYYY-MM-DD, Nd (N days ago), today or yesterday

Examples:
  nextpost list --category educational
  nextpost list --since 14d --min-engagement 1000
  nextpost list --output jsonl | jq '.engagement'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var format report.OutputFormat
			switch outputFormat {
			case "default":
				format = report.OutputFormatDefault
			case "jsonl":
				format = report.OutputFormatJSONL
			default:
				return printer.Error(
					"invalid output format",
					fmt.Sprintf("Unknown format: %s", outputFormat),
					[]string{"Valid formats: default, jsonl"},
				)
			}

			sinceDate, untilDate, err := timespec.ParseRange(since, until, time.Now())
			if err != nil {
				return printer.Error(
					"invalid date filter",
					err.Error(),
					[]string{"Use a date like '2025-03-01', a day count like '7d', 'today' or 'yesterday'"},
				)
			}

			filters := &report.FilterCriteria{
				Since:    sinceDate,
				Until:    untilDate,
				Category: category,
			}
			if cmd.Flags().Changed("min-engagement") {
				filters.MinEngagement = &minEngagement
			}

			a, err := root.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := report.ListRecords(ctx, a.store, a.cfg.Namespace, format, filters, cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("failed to list posts: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "default", "Output format: default or jsonl")
	cmd.Flags().StringVar(&since, "since", "", "Show posts published on or after this date")
	cmd.Flags().StringVar(&until, "until", "", "Show posts published on or before this date")
	cmd.Flags().StringVar(&category, "category", "", "Filter by category (exact match)")
	cmd.Flags().IntVar(&minEngagement, "min-engagement", 0, "Show posts with at least this engagement")

	return cmd
}

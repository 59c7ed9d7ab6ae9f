package commands

import (
	"fmt"
	"time"

	"github.com/dyluth/nextpost/internal/report"
	"github.com/dyluth/nextpost/internal/trends"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Summarise stored posts, content gaps and posting rhythm",
		Long: `Show the account analysis the agents are briefed with: totals, engagement per
category, most used and best performing tags, content gaps over the recent
window and the posting rhythm. No model is called.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			a, err := root.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			analysis, err := a.store.Analysis(ctx)
			if err != nil {
				return fmt.Errorf("failed to analyse posts: %w", err)
			}
			report.FormatAnalysis(out, analysis)
			if analysis.IsEmpty() {
				return nil
			}

			recent, err := a.store.Recent(ctx, a.cfg.Analysis.RecentLimit)
			if err != nil {
				return fmt.Errorf("failed to read recent posts: %w", err)
			}

			fmt.Fprintln(out)
			report.FormatTrends(out,
				trends.ContentGaps(recent, a.cfg.Analysis.GapWindow, a.cfg.Analysis.Categories),
				trends.PostingRhythm(recent, time.Now()),
			)
			return nil
		},
	}
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dyluth/nextpost/internal/knowledge"
	"github.com/dyluth/nextpost/internal/printer"
	"github.com/dyluth/nextpost/internal/textutil"
	"github.com/dyluth/nextpost/internal/timespec"
	"github.com/dyluth/nextpost/pkg/postindex"
	"github.com/spf13/cobra"
)

// hintThreshold is the post count from which add suggests asking for a recommendation.
const hintThreshold = 3

func newAddCmd(root *rootOptions) *cobra.Command {
	var (
		tags    string
		daysAgo int
		date    string
	)

	cmd := &cobra.Command{
		Use:   "add CAPTION CATEGORY ENGAGEMENT",
		Short: "Add one of your published posts",
		Long: `Add a published post to the knowledge store.

CATEGORY is the kind of post, for example satisfying_video, promotion, educational
or behind_scenes. ENGAGEMENT is the total of likes, comments and saves.

The post date defaults to today. Use --days-ago or --date to backfill older posts.

Examples:
  nextpost add "Storefront transformation in 3 hours" satisfying_video 3200 --tags "#satisfying,#commercial" --days-ago 2
  nextpost add "Spring offer: 25% off" promotion 950 --date 2025-03-01`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			now := time.Now()

			engagement, err := strconv.Atoi(strings.TrimSpace(args[2]))
			if err != nil {
				return printer.Error(
					"invalid engagement",
					fmt.Sprintf("ENGAGEMENT must be a whole number, got '%s'.", args[2]),
					[]string{"Add up likes, comments and saves, e.g. 1250"},
				)
			}

			postedOn, err := postDate(daysAgo, date, now)
			if err != nil {
				return printer.Error("invalid post date", err.Error(), []string{"Use --days-ago N or --date YYYY-MM-DD"})
			}

			a, err := root.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.needsEmbeddingKey() {
				if err := a.requireAPIKey("Adding a post"); err != nil {
					return err
				}
			}

			if !knownCategory(a.cfg.Analysis.Categories, args[1]) {
				printer.Warning("Category '%s' is not one of the configured categories (%s)\n",
					args[1], strings.Join(a.cfg.Analysis.Categories, ", "))
			}

			caption := args[0]
			id, err := a.store.Add(ctx, knowledge.NewRecord{
				Text:       caption,
				Category:   args[1],
				Engagement: engagement,
				Tags:       splitTags(tags),
				PostedOn:   postedOn,
			})
			if err != nil {
				return addError(err)
			}

			printer.Success("Added %s: '%s' (%d engagement, %d days ago)\n",
				shortID(id), textutil.Preview(caption, 50), engagement, knowledge.DaysBetween(postedOn, now))

			return suggestNext(ctx, a.store)
		},
	}

	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated hashtags")
	cmd.Flags().IntVar(&daysAgo, "days-ago", 0, "How many days ago the post was published")
	cmd.Flags().StringVar(&date, "date", "", "Publication date (YYYY-MM-DD)")
	cmd.MarkFlagsMutuallyExclusive("days-ago", "date")

	return cmd
}

func postDate(daysAgo int, date string, now time.Time) (time.Time, error) {
	if date != "" {
		t, err := timespec.Parse(date, now)
		if err != nil {
			return time.Time{}, err
		}
		if t.After(knowledge.Date(now)) {
			return time.Time{}, fmt.Errorf("post date %s is in the future", t.Format(time.DateOnly))
		}
		return t, nil
	}
	if daysAgo < 0 {
		return time.Time{}, fmt.Errorf("--days-ago must be >= 0, got %d", daysAgo)
	}
	return timespec.DaysAgo(daysAgo, now), nil
}

// splitTags splits a comma-separated tag list, dropping blanks.
func splitTags(raw string) []string {
	tags := []string{}
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func knownCategory(categories []string, category string) bool {
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}

func addError(err error) error {
	if knowledge.IsValidationError(err) {
		return printer.Error("post rejected", err.Error(), []string{"Check the caption, category and engagement arguments"})
	}
	if errors.Is(err, postindex.ErrDimensionMismatch) {
		return printer.Error("post rejected", err.Error(), []string{
			"The namespace was built with a different embedding provider or model",
			"Restore the previous embedding settings or use a new --namespace",
		})
	}
	return printer.ErrorWithContext(
		"failed to store post",
		"The post could not be embedded or written to Redis. Nothing was stored.",
		map[string]string{"error": err.Error()},
		nil,
	)
}

func suggestNext(ctx context.Context, store *knowledge.Store) error {
	total, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count posts: %w", err)
	}
	if total >= hintThreshold {
		printer.Info("You now have %d posts. Try: nextpost next\n", total)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

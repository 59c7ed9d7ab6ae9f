package commands

import (
	"time"

	"github.com/dyluth/nextpost/internal/knowledge"
	"github.com/dyluth/nextpost/internal/printer"
	"github.com/dyluth/nextpost/internal/timespec"
	"github.com/spf13/cobra"
)

type samplePost struct {
	caption    string
	category   string
	engagement int
	tags       []string
	daysAgo    int
}

// samplePosts is a fortnight of posts from a window cleaning business.
var samplePosts = []samplePost{
	{"Storefront transformation! Three hours of work for this result", "satisfying_video", 3200,
		[]string{"#windowcleaning", "#satisfying", "#transformation", "#commercial"}, 2},
	{"Pro tip Tuesday: start at the top and work down for streak-free glass", "educational", 1800,
		[]string{"#protip", "#windowcleaning", "#technique", "#professional"}, 5},
	{"This month only: 25% off for first-time residential customers. Book this week", "promotion", 950,
		[]string{"#deal", "#residential", "#windowcleaning", "#offer"}, 7},
	{"5 AM start at the downtown office block. The early crew gets the clearest windows", "behind_scenes", 2100,
		[]string{"#earlybird", "#commercial", "#windowcleaning", "#downtown"}, 10},
	{"Before and after: six months of grime off a restaurant front", "satisfying_video", 4100,
		[]string{"#beforeafter", "#restaurant", "#windowcleaning", "#satisfying"}, 12},
	{"Why we rinse with purified water: no mineral spots, just a clean finish", "educational", 1400,
		[]string{"#education", "#windowcleaning", "#water", "#professional"}, 15},
}

func newSeedCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load sample posts to try nextpost immediately",
		Long: `Add six sample posts from a window cleaning business, dated over the last
two weeks, so that recommendations can be tried before adding real posts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := root.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.needsEmbeddingKey() {
				if err := a.requireAPIKey("Adding sample posts"); err != nil {
					return err
				}
			}

			printer.Step("Adding sample window cleaning posts to '%s'...\n", a.cfg.Namespace)

			now := time.Now()
			for _, p := range samplePosts {
				_, err := a.store.Add(ctx, knowledge.NewRecord{
					Text:       p.caption,
					Category:   p.category,
					Engagement: p.engagement,
					Tags:       p.tags,
					PostedOn:   timespec.DaysAgo(p.daysAgo, now),
				})
				if err != nil {
					return addError(err)
				}
			}

			printer.Success("Added %d sample posts\n", len(samplePosts))
			printer.Info("Now try: nextpost next\n")
			printer.Info("Or add your real posts with: nextpost add\n")
			return nil
		},
	}
}

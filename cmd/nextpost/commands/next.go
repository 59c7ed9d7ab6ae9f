package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/dyluth/nextpost/internal/agent"
	"github.com/dyluth/nextpost/internal/briefing"
	"github.com/dyluth/nextpost/internal/config"
	"github.com/dyluth/nextpost/internal/deliberation"
	"github.com/dyluth/nextpost/internal/printer"
	"github.com/dyluth/nextpost/internal/recommend"
	"github.com/spf13/cobra"
)

func newNextCmd(root *rootOptions) *cobra.Command {
	var contextNote string

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Ask the agents what to post next",
		Long: `Analyse the stored posts and let the story specialist, the feed specialist and
the content coordinator discuss them until the coordinator gives a final
recommendation or the round limit is reached.

Examples:
  nextpost next
  nextpost next --context "Busy week, prefer quick stories"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := root.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireAPIKey("Generating recommendations"); err != nil {
				return err
			}

			orch, err := newOrchestrator(a)
			if err != nil {
				return fmt.Errorf("failed to assemble agents: %w", err)
			}

			marker := agent.NewMarker(a.cfg.Deliberation.TerminationMarker)
			svc := recommend.NewService(a.store, orch, briefingSettings(a.cfg), marker)

			printer.Step("Analyzing your content patterns...\n")
			printer.Step("AI agents collaborating on your next posts...\n")

			outcome, err := svc.Recommend(ctx, contextNote)
			if err != nil {
				return recommendError(err)
			}

			printer.Recommendation(outcome.Recommendation, outcome.Result.Concluded())
			return nil
		},
	}

	cmd.Flags().StringVarP(&contextNote, "context", "c", "", "Extra context for this recommendation (e.g. upcoming offers, weather)")
	return cmd
}

// newOrchestrator builds the configured agent team speaking through OpenAI.
func newOrchestrator(a *app) (*deliberation.Orchestrator, error) {
	gen := agent.NewOpenAIGenerator(a.cfg.OpenAIAPIKey, a.cfg.OpenAIBaseURL,
		agent.WithChatModel(a.cfg.Generation.Model),
		agent.WithTemperature(a.cfg.Generation.Temperature),
		agent.WithMaxTokens(a.cfg.Generation.MaxTokens),
	)

	team := make([]*agent.Agent, 0, len(config.Roles()))
	for _, role := range config.Roles() {
		team = append(team, agent.New(a.cfg.AgentName(role), role, a.cfg.AgentDescription(role), gen))
	}

	return deliberation.New(team,
		deliberation.WithMaxRounds(a.cfg.Deliberation.MaxRounds),
		deliberation.WithTurnTimeout(a.cfg.Generation.TurnTimeout),
		deliberation.WithMarker(agent.NewMarker(a.cfg.Deliberation.TerminationMarker)),
		deliberation.WithMetrics(a.metrics),
	)
}

func briefingSettings(cfg *config.Config) briefing.Settings {
	return briefing.Settings{
		Categories:              cfg.Analysis.Categories,
		HighEngagementThreshold: cfg.Analysis.HighEngagementThreshold,
		RecentLimit:             cfg.Analysis.RecentLimit,
		GapWindow:               cfg.Analysis.GapWindow,
		Today:                   time.Now(),
	}
}

// recommendError renders the ways a recommendation can fail. An inconclusive
// discussion is not an error and never reaches here.
func recommendError(err error) error {
	if errors.Is(err, briefing.ErrNoContent) {
		return printer.Error(
			"no posts yet",
			"There is nothing to analyse in this namespace.",
			[]string{
				"Add your posts:\n  nextpost add \"caption\" satisfying_video 1200 --days-ago 3",
				"Load sample posts:\n  nextpost seed",
			},
		)
	}

	var failure *deliberation.Failure
	if errors.As(err, &failure) {
		details := map[string]string{"round": fmt.Sprintf("%d", failure.Round)}
		if failure.Err != nil {
			details["error"] = failure.Err.Error()
		}
		if failure.Speaker != "" {
			details["speaker"] = failure.Speaker
		}
		return printer.ErrorWithContext(
			"deliberation failed",
			"The agents could not finish their discussion. No recommendation was produced.",
			details,
			[]string{
				"Check your OpenAI key and network, then retry:\n  nextpost next",
				"Raise generation.turn_timeout in nextpost.yml if turns are timing out",
			},
		)
	}

	return printer.ErrorWithContext(
		"recommendation failed",
		"The stored posts could not be analysed.",
		map[string]string{"error": err.Error()},
		nil,
	)
}

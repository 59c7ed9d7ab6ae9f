// Package recommend wires the knowledge store, the briefing and a deliberation into
// the end-to-end "what should I post next" pipeline.
package recommend

import (
	"context"
	"log"

	"github.com/dyluth/nextpost/internal/agent"
	"github.com/dyluth/nextpost/internal/briefing"
	"github.com/dyluth/nextpost/internal/deliberation"
	"github.com/dyluth/nextpost/internal/extract"
)

// Runner runs one deliberation session. *deliberation.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, opening agent.Turn) (*deliberation.Result, error)
}

// Outcome is a completed recommendation request.
type Outcome struct {
	Briefing       *briefing.Briefing
	Result         *deliberation.Result
	Recommendation extract.Recommendation
}

// Service produces recommendations.
type Service struct {
	source   briefing.Source
	runner   Runner
	settings briefing.Settings
	marker   agent.Marker
}

// NewService creates a service. marker must match the one the runner terminates on.
func NewService(source briefing.Source, runner Runner, settings briefing.Settings, marker agent.Marker) *Service {
	return &Service{source: source, runner: runner, settings: settings, marker: marker}
}

// Recommend builds a briefing, runs a deliberation over it and extracts the result.
// It returns briefing.ErrNoContent when there is nothing to analyse (no session is
// started) and the *deliberation.Failure unchanged when the session fails.
func (s *Service) Recommend(ctx context.Context, contextNote string) (*Outcome, error) {
	settings := s.settings
	settings.Context = contextNote

	b, err := briefing.Build(ctx, s.source, settings)
	if err != nil {
		return nil, err
	}

	opening, err := briefing.Render(b)
	if err != nil {
		return nil, err
	}

	log.Printf("[Recommend] Briefing ready (%d posts), starting deliberation", b.Overview.TotalPosts)

	result, err := s.runner.Run(ctx, agent.Turn{Speaker: deliberation.DefaultOpeningSpeaker, Role: agent.RoleInitiator, Text: opening})
	if err != nil {
		return nil, err
	}

	rec := extract.Extract(result.Transcript, extract.WithMarker(s.marker))
	log.Printf("[Recommend] Deliberation %s finished: state=%s rounds=%d empty=%t",
		result.SessionID, result.State, result.Rounds, rec.IsEmpty())

	return &Outcome{Briefing: b, Result: result, Recommendation: rec}, nil
}

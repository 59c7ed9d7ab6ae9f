// Package deliberation runs a bounded, turn-based exchange between specialist agents
// and a coordinator until the coordinator concludes or the round budget runs out.
package deliberation

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dyluth/nextpost/internal/agent"
	"github.com/dyluth/nextpost/internal/metrics"
	"github.com/google/uuid"
)

const (
	// DefaultMaxRounds bounds the number of generated turns in a session.
	DefaultMaxRounds = 8
	// DefaultTurnTimeout bounds a single generation call.
	DefaultTurnTimeout = 60 * time.Second
	// DefaultOpeningSpeaker attributes the opening message when none is given.
	DefaultOpeningSpeaker = "operator"
)

// Orchestrator drives deliberation sessions over a fixed set of participants.
// Sessions are sequential: turn N+1 is generated only after turn N is appended.
type Orchestrator struct {
	participants []*agent.Agent
	coordinator  *agent.Agent

	maxRounds   int
	turnTimeout time.Duration
	selector    Selector
	marker      agent.Marker
	metrics     *metrics.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxRounds sets the maximum number of generated turns.
func WithMaxRounds(n int) Option {
	return func(o *Orchestrator) { o.maxRounds = n }
}

// WithTurnTimeout sets the timeout applied to each generation call.
func WithTurnTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.turnTimeout = d }
}

// WithSelector replaces the default RoundRobin speaker selection.
func WithSelector(s Selector) Option {
	return func(o *Orchestrator) { o.selector = s }
}

// WithMarker sets the coordinator's termination predicate.
func WithMarker(m agent.Marker) Option {
	return func(o *Orchestrator) { o.marker = m }
}

// WithMetrics records sessions and turns on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New validates the participants and creates an orchestrator.
// Exactly one coordinator and at least one specialist are required; names must be unique.
func New(participants []*agent.Agent, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		maxRounds:   DefaultMaxRounds,
		turnTimeout: DefaultTurnTimeout,
		selector:    RoundRobin{},
		marker:      agent.DefaultMarker(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.maxRounds <= 0 {
		return nil, fmt.Errorf("max rounds must be > 0, got %d", o.maxRounds)
	}
	if o.turnTimeout <= 0 {
		return nil, fmt.Errorf("turn timeout must be > 0, got %s", o.turnTimeout)
	}
	if o.selector == nil {
		return nil, fmt.Errorf("selector cannot be nil")
	}

	names := make(map[string]bool, len(participants))
	specialists := 0
	for _, p := range participants {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("invalid participant: %w", err)
		}
		if names[p.Name] {
			return nil, fmt.Errorf("duplicate participant name: %s", p.Name)
		}
		names[p.Name] = true

		if p.Role == agent.RoleCoordinator {
			if o.coordinator != nil {
				return nil, fmt.Errorf("exactly one coordinator is allowed, found %s and %s", o.coordinator.Name, p.Name)
			}
			o.coordinator = p
		} else {
			specialists++
		}
	}
	if o.coordinator == nil {
		return nil, fmt.Errorf("a coordinator is required")
	}
	if specialists == 0 {
		return nil, fmt.Errorf("at least one specialist is required")
	}

	o.participants = append([]*agent.Agent(nil), participants...)
	return o, nil
}

// MaxRounds returns the configured round budget.
func (o *Orchestrator) MaxRounds() int {
	return o.maxRounds
}

// Run executes one session starting from opening, normally the rendered briefing.
// It returns a Result for both TerminatedByCoordinator and RoundLimitReached. Any
// generation or selection failure returns a *Failure carrying the partial transcript.
func (o *Orchestrator) Run(ctx context.Context, opening agent.Turn) (*Result, error) {
	if strings.TrimSpace(opening.Text) == "" {
		return nil, fmt.Errorf("opening message cannot be empty")
	}
	if opening.Speaker == "" {
		opening.Speaker = DefaultOpeningSpeaker
	}
	opening.Role = agent.RoleInitiator

	result := &Result{
		SessionID:  uuid.New().String(),
		State:      InProgress,
		Transcript: []agent.Turn{opening},
	}

	log.Printf("[Deliberation] Session %s started with %d participants, max %d rounds",
		result.SessionID, len(o.participants), o.maxRounds)
	o.logEvent(result.SessionID, "session_started", map[string]interface{}{
		"participants": o.participantNames(),
		"max_rounds":   o.maxRounds,
	})

	for round := 1; round <= o.maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, o.fail(result, round, "", err)
		}

		speaker, err := o.selector.Next(copyTranscript(result.Transcript), o.participants)
		if err != nil {
			return nil, o.fail(result, round, "", fmt.Errorf("speaker selection failed: %w", err))
		}
		if !o.isParticipant(speaker) {
			return nil, o.fail(result, round, speakerName(speaker), ErrUnknownSpeaker)
		}

		turn, took, err := o.speak(ctx, speaker, result.Transcript)
		if err != nil {
			return nil, o.fail(result, round, speaker.Name, err)
		}

		result.Transcript = append(result.Transcript, turn)
		result.Rounds = round
		o.metrics.TurnCompleted(string(speaker.Role), took)
		o.logEvent(result.SessionID, "turn_completed", map[string]interface{}{
			"round":       round,
			"speaker":     speaker.Name,
			"role":        string(speaker.Role),
			"chars":       len(turn.Text),
			"duration_ms": took.Milliseconds(),
		})

		if speaker.Role == agent.RoleCoordinator && o.marker.IsTerminal(turn.Text) {
			result.State = TerminatedByCoordinator
			o.metrics.SessionFinished(metrics.OutcomeTerminated)
			o.logEvent(result.SessionID, "session_terminated", map[string]interface{}{
				"round":   round,
				"speaker": speaker.Name,
			})
			return result, nil
		}
	}

	result.State = RoundLimitReached
	o.metrics.SessionFinished(metrics.OutcomeRoundLimit)
	log.Printf("[Deliberation] Session %s reached the round limit (%d) without a conclusion",
		result.SessionID, o.maxRounds)
	o.logEvent(result.SessionID, "round_limit_reached", map[string]interface{}{
		"rounds": result.Rounds,
	})
	return result, nil
}

// speak runs a single generation attempt under the turn timeout. A reply that
// arrives after the deadline is discarded even if the generator ignores ctx.
func (o *Orchestrator) speak(ctx context.Context, speaker *agent.Agent, transcript []agent.Turn) (agent.Turn, time.Duration, error) {
	turnCtx, cancel := context.WithTimeout(ctx, o.turnTimeout)
	defer cancel()

	type reply struct {
		turn agent.Turn
		err  error
	}
	done := make(chan reply, 1)

	start := time.Now()
	go func() {
		turn, err := speaker.Speak(turnCtx, copyTranscript(transcript))
		done <- reply{turn: turn, err: err}
	}()

	select {
	case r := <-done:
		took := time.Since(start)
		if r.err != nil {
			if turnCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
				return agent.Turn{}, took, fmt.Errorf("turn timed out after %s: %w", o.turnTimeout, r.err)
			}
			return agent.Turn{}, took, r.err
		}
		return r.turn, took, nil
	case <-turnCtx.Done():
		took := time.Since(start)
		if err := ctx.Err(); err != nil {
			return agent.Turn{}, took, err
		}
		return agent.Turn{}, took, fmt.Errorf("turn timed out after %s: %w", o.turnTimeout, turnCtx.Err())
	}
}

func (o *Orchestrator) fail(result *Result, round int, speaker string, err error) *Failure {
	o.metrics.SessionFinished(metrics.OutcomeFailed)
	log.Printf("[Deliberation] Session %s failed at round %d: %v", result.SessionID, round, err)
	o.logEvent(result.SessionID, "turn_failed", map[string]interface{}{
		"round":   round,
		"speaker": speaker,
		"error":   err.Error(),
	})
	return &Failure{
		Round:      round,
		Speaker:    speaker,
		Err:        err,
		Transcript: copyTranscript(result.Transcript),
	}
}

func (o *Orchestrator) isParticipant(a *agent.Agent) bool {
	if a == nil {
		return false
	}
	for _, p := range o.participants {
		if p == a {
			return true
		}
	}
	return false
}

func (o *Orchestrator) participantNames() []string {
	names := make([]string, len(o.participants))
	for i, p := range o.participants {
		names[i] = p.Name
	}
	return names
}

func speakerName(a *agent.Agent) string {
	if a == nil {
		return ""
	}
	return a.Name
}

func copyTranscript(t []agent.Turn) []agent.Turn {
	out := make([]agent.Turn, len(t))
	copy(out, t)
	return out
}

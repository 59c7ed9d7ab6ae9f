package deliberation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dyluth/nextpost/internal/agent"
	"github.com/dyluth/nextpost/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted returns a generator that replies with replies[i] on its i-th call and
// a generic line once the script runs out.
func scripted(name string, replies ...string) *scriptedGenerator {
	return &scriptedGenerator{name: name, replies: replies}
}

type scriptedGenerator struct {
	mu      sync.Mutex
	name    string
	replies []string
	calls   int
	seen    []int
}

func (s *scriptedGenerator) Generate(ctx context.Context, roleDescription string, transcript []agent.Turn) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen = append(s.seen, len(transcript))
	i := s.calls
	s.calls++
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return fmt.Sprintf("%s turn %d", s.name, i+1), nil
}

func team(story, feed, coord agent.Generator) []*agent.Agent {
	return []*agent.Agent{
		agent.New("story_specialist", agent.RoleStorySpecialist, "", story),
		agent.New("feed_specialist", agent.RoleFeedSpecialist, "", feed),
		agent.New("content_coordinator", agent.RoleCoordinator, "", coord),
	}
}

func opening() agent.Turn {
	return agent.Turn{Speaker: "operator", Text: "NEXT POST RECOMMENDATION BRIEFING"}
}

func TestNew_Validation(t *testing.T) {
	gen := scripted("x")

	tests := []struct {
		name         string
		participants []*agent.Agent
		opts         []Option
		wantErr      string
	}{
		{"no coordinator", []*agent.Agent{agent.New("s", agent.RoleStorySpecialist, "", gen)}, nil, "coordinator is required"},
		{"no specialist", []*agent.Agent{agent.New("c", agent.RoleCoordinator, "", gen)}, nil, "at least one specialist"},
		{"two coordinators", []*agent.Agent{
			agent.New("s", agent.RoleStorySpecialist, "", gen),
			agent.New("c1", agent.RoleCoordinator, "", gen),
			agent.New("c2", agent.RoleCoordinator, "", gen),
		}, nil, "exactly one coordinator"},
		{"duplicate names", []*agent.Agent{
			agent.New("same", agent.RoleStorySpecialist, "", gen),
			agent.New("same", agent.RoleCoordinator, "", gen),
		}, nil, "duplicate participant name"},
		{"invalid participant", []*agent.Agent{
			agent.New("s", agent.RoleInitiator, "d", gen),
			agent.New("c", agent.RoleCoordinator, "", gen),
		}, nil, "invalid participant"},
		{"zero rounds", team(gen, gen, gen), []Option{WithMaxRounds(0)}, "max rounds"},
		{"zero timeout", team(gen, gen, gen), []Option{WithTurnTimeout(0)}, "turn timeout"},
		{"nil selector", team(gen, gen, gen), []Option{WithSelector(nil)}, "selector"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := New(tt.participants, tt.opts...)
			require.Error(t, err)
			assert.Nil(t, o)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	gen := scripted("x")
	o, err := New(team(gen, gen, gen))
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxRounds, o.MaxRounds())
	assert.Equal(t, DefaultTurnTimeout, o.turnTimeout)
	assert.IsType(t, RoundRobin{}, o.selector)
}

func TestRun_RoundLimitReached(t *testing.T) {
	story, feed, coord := scripted("story"), scripted("feed"), scripted("coord")
	m := metrics.New()

	o, err := New(team(story, feed, coord), WithMaxRounds(8), WithMetrics(m))
	require.NoError(t, err)

	result, err := o.Run(context.Background(), opening())
	require.NoError(t, err)

	assert.Equal(t, RoundLimitReached, result.State)
	assert.False(t, result.Concluded())
	assert.Equal(t, 8, result.Rounds)
	assert.Len(t, result.Transcript, 9, "opening plus exactly 8 generated turns")
	assert.Equal(t, 8, story.calls+feed.calls+coord.calls)
	assert.NotEmpty(t, result.SessionID)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sessions.WithLabelValues(metrics.OutcomeRoundLimit)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Turns.WithLabelValues(string(agent.RoleCoordinator))))
}

func TestRun_CoordinatorTerminatesOnThirdTurn(t *testing.T) {
	story, feed := scripted("story"), scripted("feed")
	coord := scripted("coord", "keep going", "almost there", "Final Recommendation: story poll + feed reel")
	m := metrics.New()

	o, err := New(team(story, feed, coord), WithMaxRounds(20), WithMetrics(m))
	require.NoError(t, err)

	result, err := o.Run(context.Background(), opening())
	require.NoError(t, err)

	assert.Equal(t, TerminatedByCoordinator, result.State)
	assert.True(t, result.Concluded())
	assert.Equal(t, 9, result.Rounds, "three full cycles of story, feed, coordinator")
	assert.Equal(t, 3, coord.calls)

	last := result.Transcript[len(result.Transcript)-1]
	assert.Equal(t, agent.RoleCoordinator, last.Role)
	assert.Contains(t, last.Text, "Final Recommendation:")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sessions.WithLabelValues(metrics.OutcomeTerminated)))
}

func TestRun_MarkerIgnoredFromSpecialists(t *testing.T) {
	story := scripted("story", "FINAL RECOMMENDATION: from the wrong agent")
	feed, coord := scripted("feed"), scripted("coord")

	o, err := New(team(story, feed, coord), WithMaxRounds(3))
	require.NoError(t, err)

	result, err := o.Run(context.Background(), opening())
	require.NoError(t, err)
	assert.Equal(t, RoundLimitReached, result.State)
	assert.Equal(t, 3, result.Rounds)
}

func TestRun_CustomMarker(t *testing.T) {
	coord := scripted("coord", "PLAN LOCKED: reel on friday")

	o, err := New(team(scripted("s"), scripted("f"), coord), WithMarker(agent.NewMarker("plan locked:")))
	require.NoError(t, err)

	result, err := o.Run(context.Background(), opening())
	require.NoError(t, err)
	assert.Equal(t, TerminatedByCoordinator, result.State)
	assert.Equal(t, 3, result.Rounds)
}

func TestRun_TranscriptOrderingAndRoles(t *testing.T) {
	story, feed, coord := scripted("story"), scripted("feed"), scripted("coord")

	o, err := New(team(story, feed, coord), WithMaxRounds(4))
	require.NoError(t, err)

	result, err := o.Run(context.Background(), agent.Turn{Text: "briefing"})
	require.NoError(t, err)

	require.Len(t, result.Transcript, 5)
	assert.Equal(t, agent.Turn{Speaker: DefaultOpeningSpeaker, Role: agent.RoleInitiator, Text: "briefing"}, result.Transcript[0])

	roles := make([]agent.Role, 0, 4)
	for _, turn := range result.Transcript[1:] {
		roles = append(roles, turn.Role)
	}
	assert.Equal(t, []agent.Role{
		agent.RoleStorySpecialist, agent.RoleFeedSpecialist, agent.RoleCoordinator, agent.RoleStorySpecialist,
	}, roles)

	// Every turn sees all prior turns.
	assert.Equal(t, []int{1, 4}, story.seen)
	assert.Equal(t, []int{2}, feed.seen)
	assert.Equal(t, []int{3}, coord.seen)
}

func TestRun_OpeningRoleIsForced(t *testing.T) {
	o, err := New(team(scripted("s"), scripted("f"), scripted("c")), WithMaxRounds(1))
	require.NoError(t, err)

	result, err := o.Run(context.Background(), agent.Turn{Speaker: "me", Role: agent.RoleCoordinator, Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, agent.RoleInitiator, result.Transcript[0].Role)
	assert.Equal(t, "me", result.Transcript[0].Speaker)
}

func TestRun_EmptyOpening(t *testing.T) {
	o, err := New(team(scripted("s"), scripted("f"), scripted("c")))
	require.NoError(t, err)

	_, err = o.Run(context.Background(), agent.Turn{Text: "   "})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDeliberationFailed))
}

func TestRun_GenerationFailure(t *testing.T) {
	boom := errors.New("backend unavailable")
	feed := agent.GeneratorFunc(func(context.Context, string, []agent.Turn) (string, error) {
		return "", boom
	})
	m := metrics.New()

	o, err := New(team(scripted("story"), feed, scripted("coord")), WithMetrics(m))
	require.NoError(t, err)

	result, err := o.Run(context.Background(), opening())
	require.Error(t, err)
	assert.Nil(t, result)

	assert.ErrorIs(t, err, ErrDeliberationFailed)
	assert.ErrorIs(t, err, boom)

	var failure *Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, 2, failure.Round)
	assert.Equal(t, "feed_specialist", failure.Speaker)
	require.Len(t, failure.Transcript, 2, "opening plus the story turn")
	assert.Equal(t, agent.RoleStorySpecialist, failure.Transcript[1].Role)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sessions.WithLabelValues(metrics.OutcomeFailed)))
}

func TestRun_TurnTimeout(t *testing.T) {
	slow := agent.GeneratorFunc(func(ctx context.Context, _ string, _ []agent.Turn) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(5 * time.Second):
			return "too late", nil
		}
	})

	o, err := New(team(slow, scripted("f"), scripted("c")), WithTurnTimeout(20*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	_, err = o.Run(context.Background(), opening())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.ErrorIs(t, err, ErrDeliberationFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out")
}

func TestRun_TurnTimeoutWhenGeneratorIgnoresContext(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	stubborn := agent.GeneratorFunc(func(context.Context, string, []agent.Turn) (string, error) {
		<-release
		return "arrived after the deadline", nil
	})

	m := metrics.New()
	o, err := New(team(stubborn, scripted("f"), scripted("c")),
		WithTurnTimeout(20*time.Millisecond), WithMaxRounds(1), WithMetrics(m))
	require.NoError(t, err)

	start := time.Now()
	result, err := o.Run(context.Background(), opening())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.ErrorIs(t, err, ErrDeliberationFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var failure *Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, 1, failure.Round)
	assert.Equal(t, "story_specialist", failure.Speaker)
	assert.Len(t, failure.Transcript, 1, "the late reply is never appended")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sessions.WithLabelValues(metrics.OutcomeFailed)))
}

func TestRun_NoRetryAfterFailure(t *testing.T) {
	calls := 0
	flaky := agent.GeneratorFunc(func(context.Context, string, []agent.Turn) (string, error) {
		calls++
		return "", errors.New("transient")
	})

	o, err := New(team(flaky, scripted("f"), scripted("c")))
	require.NoError(t, err)

	_, err = o.Run(context.Background(), opening())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRun_CancelledContext(t *testing.T) {
	o, err := New(team(scripted("s"), scripted("f"), scripted("c")))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = o.Run(ctx, opening())
	assert.ErrorIs(t, err, ErrDeliberationFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_SelectorReturnsStranger(t *testing.T) {
	stranger := agent.New("stranger", agent.RoleStorySpecialist, "", scripted("x"))
	sel := SelectorFunc(func([]agent.Turn, []*agent.Agent) (*agent.Agent, error) {
		return stranger, nil
	})

	o, err := New(team(scripted("s"), scripted("f"), scripted("c")), WithSelector(sel))
	require.NoError(t, err)

	_, err = o.Run(context.Background(), opening())
	assert.ErrorIs(t, err, ErrDeliberationFailed)
	assert.ErrorIs(t, err, ErrUnknownSpeaker)

	var failure *Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "stranger", failure.Speaker)
	assert.Equal(t, 1, failure.Round)
}

func TestRun_SelectorError(t *testing.T) {
	sel := SelectorFunc(func([]agent.Turn, []*agent.Agent) (*agent.Agent, error) {
		return nil, errors.New("no idea")
	})

	o, err := New(team(scripted("s"), scripted("f"), scripted("c")), WithSelector(sel))
	require.NoError(t, err)

	_, err = o.Run(context.Background(), opening())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "speaker selection failed"))
}

func TestRun_GeneratorCannotMutateTranscript(t *testing.T) {
	var captured []agent.Turn
	mutating := agent.GeneratorFunc(func(_ context.Context, _ string, transcript []agent.Turn) (string, error) {
		captured = transcript
		transcript[0].Text = "tampered"
		return "fine", nil
	})

	o, err := New(team(mutating, scripted("f"), scripted("c")), WithMaxRounds(1))
	require.NoError(t, err)

	result, err := o.Run(context.Background(), opening())
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, "NEXT POST RECOMMENDATION BRIEFING", result.Transcript[0].Text)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "not_started", NotStarted.String())
	assert.Equal(t, "in_progress", InProgress.String())
	assert.Equal(t, "terminated_by_coordinator", TerminatedByCoordinator.String())
	assert.Equal(t, "round_limit_reached", RoundLimitReached.String())
	assert.Equal(t, "state(9)", State(9).String())
}

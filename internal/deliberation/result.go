package deliberation

import (
	"errors"
	"fmt"

	"github.com/dyluth/nextpost/internal/agent"
)

// State is the lifecycle state of a deliberation session.
type State int

const (
	NotStarted State = iota
	InProgress
	TerminatedByCoordinator
	RoundLimitReached
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case TerminatedByCoordinator:
		return "terminated_by_coordinator"
	case RoundLimitReached:
		return "round_limit_reached"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is a finished session. RoundLimitReached is an incomplete deliberation, not an error.
type Result struct {
	SessionID  string
	State      State
	Rounds     int
	Transcript []agent.Turn
}

// Concluded reports whether the coordinator ended the session.
func (r *Result) Concluded() bool {
	return r != nil && r.State == TerminatedByCoordinator
}

var (
	// ErrDeliberationFailed matches every *Failure via errors.Is.
	ErrDeliberationFailed = errors.New("deliberation failed")

	// ErrUnknownSpeaker is returned when a selector picks an agent outside the session.
	ErrUnknownSpeaker = errors.New("selected speaker is not a participant")
)

// Failure is a session that could not finish. The partial transcript is kept for
// diagnostics only; callers must treat the session as producing no recommendation.
type Failure struct {
	Round      int
	Speaker    string
	Err        error
	Transcript []agent.Turn
}

func (f *Failure) Error() string {
	if f.Speaker == "" {
		return fmt.Sprintf("deliberation failed at round %d: %v", f.Round, f.Err)
	}
	return fmt.Sprintf("deliberation failed at round %d (%s): %v", f.Round, f.Speaker, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func (f *Failure) Is(target error) bool {
	return target == ErrDeliberationFailed
}

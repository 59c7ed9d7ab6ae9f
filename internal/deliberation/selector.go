package deliberation

import (
	"fmt"

	"github.com/dyluth/nextpost/internal/agent"
)

// Selector picks the next speaker from the participants given the transcript so far.
type Selector interface {
	Next(transcript []agent.Turn, participants []*agent.Agent) (*agent.Agent, error)
}

// SelectorFunc adapts a function to the Selector interface.
type SelectorFunc func(transcript []agent.Turn, participants []*agent.Agent) (*agent.Agent, error)

func (f SelectorFunc) Next(transcript []agent.Turn, participants []*agent.Agent) (*agent.Agent, error) {
	return f(transcript, participants)
}

// RoundRobin cycles through the specialists in configured order and then the
// coordinator. The position is derived from the number of generated turns, so the
// choice is a pure function of the transcript.
type RoundRobin struct{}

func (RoundRobin) Next(transcript []agent.Turn, participants []*agent.Agent) (*agent.Agent, error) {
	order := speakingOrder(participants)
	if len(order) == 0 {
		return nil, fmt.Errorf("no participants to select from")
	}

	generated := 0
	for _, t := range transcript {
		if t.Role != agent.RoleInitiator {
			generated++
		}
	}
	return order[generated%len(order)], nil
}

// speakingOrder returns specialists in participant order followed by coordinators.
func speakingOrder(participants []*agent.Agent) []*agent.Agent {
	order := make([]*agent.Agent, 0, len(participants))
	for _, p := range participants {
		if p.Role != agent.RoleCoordinator {
			order = append(order, p)
		}
	}
	for _, p := range participants {
		if p.Role == agent.RoleCoordinator {
			order = append(order, p)
		}
	}
	return order
}

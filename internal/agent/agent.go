// Package agent defines the participants of a deliberation: their roles, the turns
// they produce and the Generator capability they speak through.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Role is the structured tag carried by every turn.
type Role string

const (
	RoleInitiator       Role = "initiator"
	RoleStorySpecialist Role = "story_specialist"
	RoleFeedSpecialist  Role = "feed_specialist"
	RoleCoordinator     Role = "coordinator"
)

// SpecialistRoles lists the specialist roles in their default speaking order.
var SpecialistRoles = []Role{RoleStorySpecialist, RoleFeedSpecialist}

// IsSpecialist reports whether r is a specialist role.
func (r Role) IsSpecialist() bool {
	return r == RoleStorySpecialist || r == RoleFeedSpecialist
}

// Valid reports whether r is a role an Agent may hold.
func (r Role) Valid() bool {
	return r.IsSpecialist() || r == RoleCoordinator
}

// ErrEmptyResponse is returned by generators that receive no text from their backend.
var ErrEmptyResponse = errors.New("generator returned no content")

// Turn is one message in a transcript.
type Turn struct {
	Speaker string
	Role    Role
	Text    string
}

// Generator produces the next utterance for an agent given its role description
// and the full transcript so far.
type Generator interface {
	Generate(ctx context.Context, roleDescription string, transcript []Turn) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, roleDescription string, transcript []Turn) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, roleDescription string, transcript []Turn) (string, error) {
	return f(ctx, roleDescription, transcript)
}

// Agent is one deliberation participant.
type Agent struct {
	Name        string
	Role        Role
	Description string
	Generator   Generator
}

// New creates an agent. An empty description falls back to the role's default.
func New(name string, role Role, description string, gen Generator) *Agent {
	if strings.TrimSpace(description) == "" {
		description = DefaultDescription(role)
	}
	return &Agent{Name: name, Role: role, Description: description, Generator: gen}
}

// Validate checks that the agent can take part in a deliberation.
func (a *Agent) Validate() error {
	if a == nil {
		return fmt.Errorf("agent is nil")
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("agent name is required")
	}
	if !a.Role.Valid() {
		return fmt.Errorf("agent %s: invalid role %q", a.Name, a.Role)
	}
	if a.Generator == nil {
		return fmt.Errorf("agent %s: generator is required", a.Name)
	}
	return nil
}

// Speak generates this agent's next turn.
func (a *Agent) Speak(ctx context.Context, transcript []Turn) (Turn, error) {
	text, err := a.Generator.Generate(ctx, a.Description, transcript)
	if err != nil {
		return Turn{}, err
	}
	return Turn{Speaker: a.Name, Role: a.Role, Text: text}, nil
}

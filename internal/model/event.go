package model

import (
	"time"

	"github.com/google/uuid"
)

// Event types published on the policy channel
const (
	EventPolicyEvaluated    = "policy.evaluated"
	EventCredentialDisabled = "user.credential_disabled"
	PolicyEventsChannel     = "policy.events"
)

// PolicyEvent is the payload published after an evaluation.
type PolicyEvent struct {
	Type       string         `json:"type"`
	UserID     uuid.UUID      `json:"user_id"`
	Email      string         `json:"email,omitempty"`
	Name       string         `json:"name,omitempty"`
	Language   string         `json:"language,omitempty"`
	Passed     bool           `json:"passed"`
	Mode       string         `json:"mode,omitempty"`
	Messages   []EventMessage `json:"messages,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// EventMessage is an unrendered message template carried by an event.
type EventMessage struct {
	ID     string   `json:"id"`
	Params []string `json:"params,omitempty"`
}

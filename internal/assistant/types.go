package assistant

import (
	"context"
	"encoding/json"
)

// EventType discriminates events emitted by the assistant process.
type EventType string

const (
	EventResponse          EventType = "response"
	EventPermissionRequest EventType = "permission_request"
)

// PermissionRequest asks the user to approve one tool invocation.
type PermissionRequest struct {
	ID      string          `json:"id"`
	Tool    string          `json:"tool"`
	Prompt  string          `json:"prompt"`
	Input   json.RawMessage `json:"input,omitempty"`
	Pattern string          `json:"pattern,omitempty"`
}

// Event is one message from the assistant: either completed response text or
// a permission request.
type Event struct {
	Type       EventType          `json:"type"`
	Text       string             `json:"text,omitempty"`
	Permission *PermissionRequest `json:"permission,omitempty"`
}

// Client is the assistant collaborator. It emits response text and
// permission-request events, and accepts forwarded user text and permission
// decisions.
type Client interface {
	// Events returns the stream of assistant events. The channel closes when
	// the assistant goes away.
	Events() <-chan Event

	// SendText forwards a user utterance to the assistant.
	SendText(ctx context.Context, text string) error

	// ResolvePermission reports the user's decision on a pending request.
	ResolvePermission(ctx context.Context, id string, approved, alwaysAllow bool) error

	// Close terminates the assistant connection.
	Close() error
}

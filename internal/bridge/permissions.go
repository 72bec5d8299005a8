package bridge

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/Erriccc/claude-code-voice/internal/observability"
)

// PendingPermission is one queued approval request. Only the head of the
// queue is ever showing (spoken and pushed) at a time.
type PendingPermission struct {
	ID      string
	Tool    string
	Prompt  string
	Input   json.RawMessage
	Pattern string
}

// PermissionQueue holds pending approval requests in strict FIFO order. All
// mutation goes through Enqueue and the Remove operations.
type PermissionQueue struct {
	mu      sync.Mutex
	items   []*PendingPermission
	showing string // ID of the item currently shown, empty when none
}

// NewPermissionQueue creates an empty queue.
func NewPermissionQueue() *PermissionQueue {
	return &PermissionQueue{}
}

// Enqueue appends a request and reports whether it became the head.
func (q *PermissionQueue) Enqueue(p *PendingPermission) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, p)
	observability.SetPermissionQueueDepth(len(q.items))
	return len(q.items) == 1
}

// Head returns the front of the queue without removing it, or nil.
func (q *PermissionQueue) Head() *PendingPermission {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

// MarkShowing records that the given item is now spoken and pushed. At most
// one item is showing at a time.
func (q *PermissionQueue) MarkShowing(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.showing = id
}

// Showing returns the ID of the item currently shown, or empty.
func (q *PermissionQueue) Showing() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.showing
}

// Remove drops an item by ID wherever it sits, supporting batch resolution of
// non-head entries. Reports the removed item and whether it was the head.
func (q *PermissionQueue) Remove(id string) (*PendingPermission, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, item := range q.items {
		if item.ID == id {
			wasHead := i == 0
			q.items = append(q.items[:i], q.items[i+1:]...)
			if q.showing == id {
				q.showing = ""
			}
			observability.SetPermissionQueueDepth(len(q.items))
			return item, wasHead
		}
	}
	return nil, false
}

// RemoveAll empties the queue and returns the removed items in order.
func (q *PermissionQueue) RemoveAll() []*PendingPermission {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	q.showing = ""
	observability.SetPermissionQueueDepth(0)
	return items
}

// Len reports queued items.
func (q *PermissionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Summaries returns the client-facing view of the queue in order.
func (q *PermissionQueue) Summaries() []PermissionSummary {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]PermissionSummary, len(q.items))
	for i, item := range q.items {
		out[i] = PermissionSummary{ID: item.ID, Tool: item.Tool, Prompt: item.Prompt}
	}
	return out
}

// VoiceDecision classifies a transcript as a permission response.
type VoiceDecision int

const (
	// DecisionNone means the transcript is not a permission response and
	// falls through to the assistant as a normal message.
	DecisionNone VoiceDecision = iota
	DecisionAllowAll
	DecisionDenyAll
	DecisionAlwaysAllow
	DecisionApprove
	DecisionDeny
)

var (
	allowAllPhrases = []string{
		"allow all", "approve all", "accept all", "yes to all", "yes to everything", "allow everything",
	}
	denyAllPhrases = []string{
		"deny all", "reject all", "no to all", "no to everything", "deny everything",
	}
	alwaysAllowPhrases = []string{
		"always allow", "always approve", "don't ask again", "dont ask again",
	}
	approveWords = map[string]bool{
		"yes": true, "yeah": true, "yep": true, "sure": true, "ok": true, "okay": true,
		"approve": true, "approved": true, "allow": true, "accept": true, "confirm": true,
	}
	denyWords = map[string]bool{
		"no": true, "nope": true, "deny": true, "denied": true, "reject": true,
		"stop": true, "cancel": true, "never": true,
	}
)

// MatchVoiceDecision classifies a transcript against the permission
// vocabulary. Batch phrases are checked before single words so "allow all"
// is never read as a plain "allow". A transcript matching both the approval
// and denial vocabularies, or neither, is ambiguous and classifies as
// DecisionNone.
func MatchVoiceDecision(transcript string) VoiceDecision {
	normalized := normalizeTranscript(transcript)
	if normalized == "" {
		return DecisionNone
	}

	for _, phrase := range allowAllPhrases {
		if strings.Contains(normalized, phrase) {
			return DecisionAllowAll
		}
	}
	for _, phrase := range denyAllPhrases {
		if strings.Contains(normalized, phrase) {
			return DecisionDenyAll
		}
	}
	for _, phrase := range alwaysAllowPhrases {
		if strings.Contains(normalized, phrase) {
			return DecisionAlwaysAllow
		}
	}

	approve := false
	deny := false
	for _, word := range strings.Fields(normalized) {
		if approveWords[word] {
			approve = true
		}
		if denyWords[word] {
			deny = true
		}
	}

	switch {
	case approve && deny:
		return DecisionNone
	case approve:
		return DecisionApprove
	case deny:
		return DecisionDeny
	default:
		return DecisionNone
	}
}

// normalizeTranscript lowercases and strips punctuation so STT variance in
// casing and trailing periods does not defeat matching.
func normalizeTranscript(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '\'':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

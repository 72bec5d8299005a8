package bridge

import "testing"

func pending(id string) *PendingPermission {
	return &PendingPermission{ID: id, Tool: "Bash", Prompt: "Run command?"}
}

func TestPermissionQueue_FIFOAndHead(t *testing.T) {
	q := NewPermissionQueue()

	if !q.Enqueue(pending("a")) {
		t.Error("Expected first item to become head")
	}
	if q.Enqueue(pending("b")) {
		t.Error("Expected second item not to become head")
	}

	if head := q.Head(); head == nil || head.ID != "a" {
		t.Errorf("Expected head a, got %+v", head)
	}
	if q.Len() != 2 {
		t.Errorf("Expected 2 items, got %d", q.Len())
	}
}

func TestPermissionQueue_RemoveAnywhere(t *testing.T) {
	q := NewPermissionQueue()
	q.Enqueue(pending("a"))
	q.Enqueue(pending("b"))
	q.Enqueue(pending("c"))

	removed, wasHead := q.Remove("b")
	if removed == nil || removed.ID != "b" || wasHead {
		t.Errorf("Expected non-head removal of b, got %+v wasHead=%v", removed, wasHead)
	}

	removed, wasHead = q.Remove("a")
	if removed == nil || !wasHead {
		t.Errorf("Expected head removal of a, got %+v wasHead=%v", removed, wasHead)
	}
	if head := q.Head(); head == nil || head.ID != "c" {
		t.Errorf("Expected head c after removals, got %+v", head)
	}

	if removed, _ := q.Remove("zzz"); removed != nil {
		t.Error("Expected removal of unknown ID to return nil")
	}
}

func TestPermissionQueue_ShowingClearsOnRemove(t *testing.T) {
	q := NewPermissionQueue()
	q.Enqueue(pending("a"))
	q.MarkShowing("a")

	if q.Showing() != "a" {
		t.Errorf("Expected a showing, got %q", q.Showing())
	}
	q.Remove("a")
	if q.Showing() != "" {
		t.Errorf("Expected nothing showing after removal, got %q", q.Showing())
	}
}

func TestPermissionQueue_RemoveAll(t *testing.T) {
	q := NewPermissionQueue()
	q.Enqueue(pending("a"))
	q.Enqueue(pending("b"))

	items := q.RemoveAll()
	if len(items) != 2 || items[0].ID != "a" || items[1].ID != "b" {
		t.Errorf("Expected all items in order, got %+v", items)
	}
	if q.Len() != 0 {
		t.Errorf("Expected empty queue, got %d", q.Len())
	}
}

func TestMatchVoiceDecision(t *testing.T) {
	tests := []struct {
		transcript string
		expected   VoiceDecision
	}{
		{"allow all", DecisionAllowAll},
		{"Allow all of them.", DecisionAllowAll},
		{"yes to everything", DecisionAllowAll},
		{"deny all", DecisionDenyAll},
		{"No to all of these.", DecisionDenyAll},
		{"always allow", DecisionAlwaysAllow},
		{"Always allow this tool.", DecisionAlwaysAllow},
		{"don't ask again", DecisionAlwaysAllow},
		{"yes", DecisionApprove},
		{"Yes.", DecisionApprove},
		{"okay go ahead", DecisionApprove},
		{"sure", DecisionApprove},
		{"no", DecisionDeny},
		{"Nope.", DecisionDeny},
		{"cancel that", DecisionDeny},
		{"maybe okay no", DecisionNone},
		{"what time is it", DecisionNone},
		{"", DecisionNone},
		{"   ", DecisionNone},
	}

	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			if got := MatchVoiceDecision(tt.transcript); got != tt.expected {
				t.Errorf("Expected decision %d for %q, got %d", tt.expected, tt.transcript, got)
			}
		})
	}
}

func TestMatchVoiceDecision_BatchOverridesSubstrings(t *testing.T) {
	// "allow all" contains the plain approval word "allow"; the batch phrase
	// must win.
	if got := MatchVoiceDecision("allow all"); got != DecisionAllowAll {
		t.Errorf("Expected batch allow to override plain approval, got %d", got)
	}
	// "no to all" contains the plain denial word "no".
	if got := MatchVoiceDecision("no to all"); got != DecisionDenyAll {
		t.Errorf("Expected batch deny to override plain denial, got %d", got)
	}
}

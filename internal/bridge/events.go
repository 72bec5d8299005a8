package bridge

import "encoding/base64"

// Event is one push message to the browser client. A single struct with
// omitempty fields keeps the wire format flat and the encoder simple.
type Event struct {
	Type string `json:"type"`

	// transcript, tts
	Text string `json:"text,omitempty"`

	// tts
	Audio    string `json:"audio,omitempty"` // base64 encoded
	MimeType string `json:"mimeType,omitempty"`
	IsLast   *bool  `json:"isLast,omitempty"`

	// permissionRequest, permissionHandled
	ID     string `json:"id,omitempty"`
	Tool   string `json:"tool,omitempty"`
	Prompt string `json:"prompt,omitempty"`

	// permissionQueue
	Count   *int                `json:"count,omitempty"`
	Queue   []PermissionSummary `json:"queue,omitempty"`
	Current *PermissionSummary  `json:"current,omitempty"`

	// permissionHandled
	Approved  *bool `json:"approved,omitempty"`
	Remaining *int  `json:"remaining,omitempty"`

	// playbackState
	State string `json:"state,omitempty"`
}

// PermissionSummary is the client-facing view of one pending permission.
type PermissionSummary struct {
	ID     string `json:"id"`
	Tool   string `json:"tool"`
	Prompt string `json:"prompt"`
}

// ConnectedEvent acknowledges a freshly opened push stream.
func ConnectedEvent() Event {
	return Event{Type: "connected"}
}

// HeartbeatEvent keeps the push stream alive across proxies.
func HeartbeatEvent() Event {
	return Event{Type: "heartbeat"}
}

// TranscriptEvent reports what the server heard.
func TranscriptEvent(text string) Event {
	return Event{Type: "transcript", Text: text}
}

// TTSEvent carries one synthesized chunk for client-side playback.
func TTSEvent(audio []byte, mimeType, text string, isLast bool) Event {
	return Event{
		Type:     "tts",
		Audio:    base64.StdEncoding.EncodeToString(audio),
		MimeType: mimeType,
		Text:     text,
		IsLast:   &isLast,
	}
}

// PermissionRequestEvent announces the permission now showing.
func PermissionRequestEvent(id, tool, prompt string) Event {
	return Event{Type: "permissionRequest", ID: id, Tool: tool, Prompt: prompt}
}

// PermissionQueueEvent reports the full pending queue and its head.
func PermissionQueueEvent(queue []PermissionSummary) Event {
	count := len(queue)
	ev := Event{Type: "permissionQueue", Count: &count, Queue: queue}
	if count > 0 {
		head := queue[0]
		ev.Current = &head
	}
	return ev
}

// PermissionHandledEvent reports one resolved permission.
func PermissionHandledEvent(id string, approved bool, remaining int) Event {
	return Event{Type: "permissionHandled", ID: id, Approved: &approved, Remaining: &remaining}
}

// PlaybackStateEvent reports local playback state transitions.
func PlaybackStateEvent(state string) Event {
	return Event{Type: "playbackState", State: state}
}

package player

import (
	"github.com/Erriccc/claude-code-voice/internal/audio"
)

// ItemStatus tracks a queue item through its lifecycle.
type ItemStatus string

const (
	StatusPending   ItemStatus = "pending"
	StatusDecoding  ItemStatus = "decoding"
	StatusReady     ItemStatus = "ready"
	StatusPlaying   ItemStatus = "playing"
	StatusPaused    ItemStatus = "paused"
	StatusCompleted ItemStatus = "completed"
	StatusCancelled ItemStatus = "cancelled"
)

// Item is one entry in the playback queue. Items are owned exclusively by the
// Player: created on enqueue, released on completion, cancellation, or queue
// clear.
type Item struct {
	ID     string
	Audio  []byte // compressed source audio
	PCM    *audio.PCMData
	Text   string
	Status ItemStatus
}

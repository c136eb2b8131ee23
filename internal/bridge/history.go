package bridge

import (
	"sync"
	"time"

	"github.com/combee/resistor-time-config/internal/settings"
)

// Delivery states of a history entry.
const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// SentMessage records one message handed to the watch
type SentMessage struct {
	ID          string           `json:"id"`
	Variant     Variant          `json:"variant"`
	Fields      map[string]int32 `json:"fields"`
	Status      string           `json:"status"`
	Transport   string           `json:"transport,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// History is a thread-safe ring buffer of sent messages
type History struct {
	mu      sync.RWMutex
	entries []SentMessage
	cap     int
}

// NewHistory creates a new history with the given capacity
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1
	}
	return &History{
		entries: make([]SentMessage, 0, capacity),
		cap:     capacity,
	}
}

func (h *History) add(id string, v Variant, msg settings.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry := SentMessage{
		ID:        id,
		Variant:   v,
		Fields:    msg.Map(),
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	if len(h.entries) >= h.cap {
		copy(h.entries, h.entries[1:])
		h.entries[len(h.entries)-1] = entry
	} else {
		h.entries = append(h.entries, entry)
	}
}

// Entries returns all entries (newest first)
func (h *History) Entries() []SentMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]SentMessage, len(h.entries))
	for i, j := 0, len(h.entries)-1; j >= 0; i, j = i+1, j-1 {
		result[i] = h.entries[j]
	}
	return result
}

func (h *History) complete(id, transport string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := len(h.entries) - 1; i >= 0; i-- {
		if h.entries[i].ID != id {
			continue
		}
		now := time.Now()
		h.entries[i].CompletedAt = &now
		h.entries[i].Transport = transport
		if err != nil {
			h.entries[i].Status = StatusFailed
			h.entries[i].Error = err.Error()
		} else {
			h.entries[i].Status = StatusDelivered
		}
		return
	}
}

package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultHistoryCap bounds each conversation's message ring.
const DefaultHistoryCap = 100

// ConversationHistory keeps a bounded FIFO message ring per conversation id.
// Once a conversation exceeds the cap, the oldest entries are evicted first.
type ConversationHistory struct {
	mu            sync.RWMutex
	cap           int
	conversations map[string][]ConversationEntry
}

func NewConversationHistory(cap int) *ConversationHistory {
	if cap <= 0 {
		cap = DefaultHistoryCap
	}
	return &ConversationHistory{
		cap:           cap,
		conversations: make(map[string][]ConversationEntry),
	}
}

// Append records a turn and returns the stored entry, including its generated
// message id.
func (h *ConversationHistory) Append(conversationID, role, content string) ConversationEntry {
	entry := ConversationEntry{
		MessageID: uuid.NewString(),
		Content:   content,
		Role:      role,
		Timestamp: time.Now().UTC(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	entries := append(h.conversations[conversationID], entry)
	if len(entries) > h.cap {
		entries = entries[len(entries)-h.cap:]
	}
	h.conversations[conversationID] = entries
	return entry
}

// History returns a copy of the conversation's entries, oldest first.
func (h *ConversationHistory) History(conversationID string) []ConversationEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entries := h.conversations[conversationID]
	out := make([]ConversationEntry, len(entries))
	copy(out, entries)
	return out
}

// Recent returns up to n of the newest entries, oldest first.
func (h *ConversationHistory) Recent(conversationID string, n int) []ConversationEntry {
	entries := h.History(conversationID)
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries
}

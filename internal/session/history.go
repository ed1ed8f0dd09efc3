package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/bkaraca/dinle/internal/command"
	"github.com/bkaraca/dinle/pkg/provider/chat"
)

const defaultHistoryLimit = 50

// History is the bounded in-memory conversation feeding the chat provider.
// Once the bound is reached the oldest message is evicted first. Safe for
// concurrent use.
type History struct {
	mu         sync.Mutex
	limit      int
	msgs       []chat.Message
	total      int
	start      time.Time
	lastUpdate time.Time
	now        func() time.Time
}

// History doubles as the transcript chat turns read and extend.
var _ command.Transcript = (*History)(nil)

// NewHistory returns an empty history bounded to limit messages. A limit of
// zero or less takes the default of 50.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	h := &History{limit: limit, now: time.Now}
	h.start = h.now()
	return h
}

// Append records one message at the end of the conversation, evicting the
// oldest once the bound is hit.
func (h *History) Append(role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, chat.Message{Role: role, Content: content})
	if len(h.msgs) > h.limit {
		overflow := len(h.msgs) - h.limit
		h.msgs = append(h.msgs[:0], h.msgs[overflow:]...)
	}
	h.total++
	h.lastUpdate = h.now()
}

// Messages returns a copy of the retained conversation, oldest first.
func (h *History) Messages() []chat.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]chat.Message(nil), h.msgs...)
}

// Len returns the number of retained messages.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}

// Reset drops the conversation and restarts the session clock.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = nil
	h.total = 0
	h.start = h.now()
	h.lastUpdate = time.Time{}
}

// Summary renders the Turkish conversation summary. The message count is the
// number of messages exchanged since the last reset, including any the bound
// has evicted.
func (h *History) Summary() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.total == 0 {
		return "Henüz konuşma geçmişi yok."
	}
	minutes := h.now().Sub(h.start).Minutes()
	return fmt.Sprintf("Konuşma Özeti:\nSüre: %.1f dakika\nMesaj Sayısı: %d\nSon güncelleme: %s",
		minutes, h.total, h.lastUpdate.Format("15:04:05"))
}

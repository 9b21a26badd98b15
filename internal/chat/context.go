// Package chat implements the message pipeline: intent routing between
// template, search, and fallback responses, with per-session conversation
// context and a bounded result cache.
package chat

import (
	"sync"
	"time"
)

// DefaultHistoryLimit bounds the conversation history kept per session.
const DefaultHistoryLimit = 10

// HistoryEntry is one exchange in a conversation.
type HistoryEntry struct {
	Timestamp   time.Time         `json:"timestamp"`
	UserMessage string            `json:"user_message"`
	BotResponse string            `json:"bot_response"`
	Intent      string            `json:"intent"`
	Entities    map[string]string `json:"entities"`
}

// conversation is the per-session state. Its own mutex keeps history
// updates for one session from serializing all sessions.
type conversation struct {
	mu           sync.Mutex
	history      []HistoryEntry
	lastIntent   string
	lastEntities map[string]string
	createdAt    time.Time
}

// ContextStore keeps conversation contexts keyed by user and session.
type ContextStore struct {
	mu    sync.RWMutex
	convs map[string]*conversation
	limit int
}

// NewContextStore creates a context store keeping at most historyLimit
// entries per conversation.
func NewContextStore(historyLimit int) *ContextStore {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &ContextStore{
		convs: make(map[string]*conversation),
		limit: historyLimit,
	}
}

func contextKey(userID, sessionID string) string {
	return userID + "_" + sessionID
}

// get returns the conversation for the key, creating it on first use.
// Double-checked so concurrent first messages create one conversation.
func (s *ContextStore) get(key string) *conversation {
	s.mu.RLock()
	c, ok := s.convs[key]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[key]; ok {
		return c
	}
	c = &conversation{createdAt: time.Now()}
	s.convs[key] = c
	return c
}

// Update appends an exchange to the conversation history, trimming to the
// configured limit, and records the last intent and entities.
func (s *ContextStore) Update(userID, sessionID, message, intent string, entities map[string]string, response string) {
	c := s.get(contextKey(userID, sessionID))

	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, HistoryEntry{
		Timestamp:   time.Now(),
		UserMessage: message,
		BotResponse: response,
		Intent:      intent,
		Entities:    entities,
	})
	if len(c.history) > s.limit {
		c.history = c.history[len(c.history)-s.limit:]
	}
	c.lastIntent = intent
	c.lastEntities = entities
}

// History returns a copy of the conversation history. Unknown sessions
// return an empty slice.
func (s *ContextStore) History(userID, sessionID string) []HistoryEntry {
	s.mu.RLock()
	c, ok := s.convs[contextKey(userID, sessionID)]
	s.mu.RUnlock()
	if !ok {
		return []HistoryEntry{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]HistoryEntry{}, c.history...)
}

// LastIntent returns the most recent intent for the conversation.
func (s *ContextStore) LastIntent(userID, sessionID string) (string, bool) {
	s.mu.RLock()
	c, ok := s.convs[contextKey(userID, sessionID)]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastIntent, c.lastIntent != ""
}

// Clear removes the conversation. Clearing an unknown session is a no-op.
func (s *ContextStore) Clear(userID, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, contextKey(userID, sessionID))
}

// Len returns the number of active conversations.
func (s *ContextStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.convs)
}

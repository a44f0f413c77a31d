// Package session keeps the in-memory, bounded conversation history used to
// give the model context across queries in one session.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"course-assistant/internal/core/domain"
)

// Store retains at most maxExchanges question/answer pairs per session,
// evicting the oldest on append. Access to one session is serialized so
// concurrent queries on the same session cannot lose updates.
type Store struct {
	maxExchanges int

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	mu        sync.Mutex
	exchanges []domain.Exchange
}

func NewStore(maxExchanges int) *Store {
	if maxExchanges <= 0 {
		maxExchanges = 2
	}
	return &Store{
		maxExchanges: maxExchanges,
		sessions:     make(map[string]*entry),
	}
}

func (s *Store) CreateSession() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &entry{}
	s.mu.Unlock()
	return id
}

// History renders the session's exchanges as alternating "User:"/"Assistant:"
// lines, most recent last. Unknown or empty sessions yield "".
func (s *Store) History(sessionID string) string {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return ""
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.exchanges) == 0 {
		return ""
	}

	lines := make([]string, 0, len(e.exchanges)*2)
	for _, exchange := range e.exchanges {
		lines = append(lines, fmt.Sprintf("User: %s", exchange.Question))
		lines = append(lines, fmt.Sprintf("Assistant: %s", exchange.Answer))
	}
	return strings.Join(lines, "\n")
}

// AddExchange appends one completed exchange, creating the session lazily,
// then truncates to the most recent maxExchanges entries.
func (s *Store) AddExchange(sessionID, question, answer string) {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	if !ok {
		e = &entry{}
		s.sessions[sessionID] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.exchanges = append(e.exchanges, domain.Exchange{Question: question, Answer: answer})
	if overflow := len(e.exchanges) - s.maxExchanges; overflow > 0 {
		e.exchanges = append(e.exchanges[:0:0], e.exchanges[overflow:]...)
	}
}

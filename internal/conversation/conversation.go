// Package conversation owns per-session dialogue state. Each session keeps
// an append-only turn log; prompts see only a bounded window of the most
// recent turns. Sessions are serialized individually so turns within one
// conversation are processed strictly in arrival order while unrelated
// sessions proceed in parallel.
package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashaai/asha/internal/bias"
	"github.com/ashaai/asha/internal/intent"
	"github.com/ashaai/asha/internal/log"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance in a conversation. Append-only once recorded.
type Turn struct {
	ID        string
	Role      Role
	Text      string
	CreatedAt time.Time

	// Intent and Bias are set on user turns only.
	Intent intent.Intent
	Bias   *bias.Assessment
}

// NewTurn builds a turn with a fresh ID and timestamp.
func NewTurn(role Role, text string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		CreatedAt: time.Now(),
	}
}

// session is the state for one conversation id.
type session struct {
	// serial admits one in-flight turn at a time. Held across the whole
	// read-history/append cycle, not just individual accesses.
	serial chan struct{}

	mu    sync.Mutex
	turns []Turn
}

// Manager holds all session state. Safe for concurrent use across sessions.
type Manager struct {
	window int
	logger log.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// NewManager creates a Manager with the given prompt window size (turns).
func NewManager(window int, logger log.Logger) *Manager {
	if window < 1 {
		window = 1
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Manager{
		window:   window,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

// get lazily creates session state on first access.
func (m *Manager) get(sessionID string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		s = &session{serial: make(chan struct{}, 1)}
		m.sessions[sessionID] = s
		m.logger.Debug("created session state", "session_id", sessionID)
	}
	return s
}

// LockSession serializes turn processing for one session. It blocks until
// any in-flight turn for the session completes or ctx is done. The returned
// release function must be called exactly once.
func (m *Manager) LockSession(ctx context.Context, sessionID string) (func(), error) {
	s := m.get(sessionID)
	select {
	case s.serial <- struct{}{}:
		return func() { <-s.serial }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for session %q: %w", sessionID, ctx.Err())
	}
}

// Window returns a copy of the most recent turns, never more than the
// configured window size.
func (m *Manager) Window(sessionID string) []Turn {
	s := m.get(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	start := len(s.turns) - m.window
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(s.turns)-start)
	copy(out, s.turns[start:])
	return out
}

// LastIntent returns the intent of the most recent user turn, or "" when
// the session has none. Used for the router's anaphora tie-break.
func (m *Manager) LastIntent(sessionID string) intent.Intent {
	s := m.get(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].Role == RoleUser {
			return s.turns[i].Intent
		}
	}
	return ""
}

// Append records completed turns. Callers append the user and assistant
// turns together after generation succeeds; partial turns never enter the
// history.
func (m *Manager) Append(sessionID string, turns ...Turn) {
	s := m.get(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turns...)
}

// Len returns the full history length for a session, which may exceed the
// prompt window.
func (m *Manager) Len(sessionID string) int {
	s := m.get(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Sessions returns the number of live sessions.
func (m *Manager) Sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Evict drops a session's state entirely. Eviction policy is the caller's
// concern; the manager only provides the mechanism.
func (m *Manager) Evict(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

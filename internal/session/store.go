package session

import (
	"errors"
	"sync"
	"time"

	"github.com/gambitplay/backend/internal/models"
	"github.com/gambitplay/backend/internal/rules"
)

// ErrSessionExists guards against double-starting a match.
var ErrSessionExists = errors.New("session already exists")

// Session is the in-memory live-play context for one active match. It exists
// exactly while the match is ACTIVE.
type Session struct {
	MatchID     string
	HostID      string
	OpponentID  string
	HostIsWhite bool
	State       *rules.State
	Match       *models.Match
	StartedAt   time.Time

	// mu serializes every state-mutating step (turn check through engine
	// apply and broadcast) for this match. Sessions for different matches
	// never share it.
	mu sync.Mutex
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Participant reports whether userID is one of the two bound players.
func (s *Session) Participant(userID string) bool {
	return userID == s.HostID || userID == s.OpponentID
}

// Opponent returns the participant opposite to userID.
func (s *Session) Opponent(userID string) (string, bool) {
	switch userID {
	case s.HostID:
		return s.OpponentID, true
	case s.OpponentID:
		return s.HostID, true
	}
	return "", false
}

// ColorOf returns the color userID plays. Callers must have verified
// participation first.
func (s *Session) ColorOf(userID string) rules.Color {
	hostColor := rules.Black
	if s.HostIsWhite {
		hostColor = rules.White
	}
	if userID == s.HostID {
		return hostColor
	}
	return hostColor.Other()
}

// Store tracks live sessions keyed by match identity. Lookups are guarded by
// a single RWMutex; per-match mutation is serialized by each session's own
// lock so unrelated matches never block each other.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create inserts a new session. It fails if an entry for the match already
// exists.
func (st *Store) Create(sess *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, exists := st.sessions[sess.MatchID]; exists {
		return ErrSessionExists
	}
	st.sessions[sess.MatchID] = sess
	return nil
}

// Get returns the live session for a match.
func (st *Store) Get(matchID string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[matchID]
	return s, ok
}

// Remove deletes the session entry for a match.
func (st *Store) Remove(matchID string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.sessions, matchID)
}

// Count reports the number of live sessions.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()

	return len(st.sessions)
}

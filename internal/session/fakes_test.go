package session

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gambitplay/backend/internal/models"
	"github.com/gambitplay/backend/internal/rules"
)

// fakeConn records frames instead of writing to a socket.
type fakeConn struct {
	id string

	mu      sync.Mutex
	frames  []string
	closed  bool
	code    int
	sendErr error
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) UserID() string { return c.id }

func (c *fakeConn) Send(frame string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.code = code
	return nil
}

func (c *fakeConn) sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *fakeConn) closedWith() (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.code
}

type savedMove struct {
	matchID  string
	userID   string
	number   int
	notation string
	san      string
}

// fakePersistence is an in-memory Persistence implementation.
type fakePersistence struct {
	mu      sync.Mutex
	moves   []savedMove
	ratings map[string]float64
	live    map[string]string

	updateMatchErr error
}

func newFakePersistence() *fakePersistence {
	return &fakePersistence{
		ratings: make(map[string]float64),
		live:    make(map[string]string),
	}
}

func (p *fakePersistence) SaveMove(ctx context.Context, matchID, userID string, moveNumber int, notation, san string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.moves = append(p.moves, savedMove{matchID, userID, moveNumber, notation, san})
	return nil
}

func (p *fakePersistence) UpdateMatch(ctx context.Context, m *models.Match) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updateMatchErr
}

func (p *fakePersistence) UpdateRating(ctx context.Context, userID string, newRating float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ratings[userID] = newRating
	return nil
}

func (p *fakePersistence) CacheLiveState(ctx context.Context, matchID, fen string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.live[matchID] = fen
	return nil
}

func (p *fakePersistence) LiveState(ctx context.Context, matchID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fen, ok := p.live[matchID]
	if !ok {
		return "", errors.New("no live state")
	}
	return fen, nil
}

func (p *fakePersistence) DropLiveState(ctx context.Context, matchID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.live, matchID)
	return nil
}

func (p *fakePersistence) savedMoves() []savedMove {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]savedMove, len(p.moves))
	copy(out, p.moves)
	return out
}

func (p *fakePersistence) rating(userID string) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.ratings[userID]
	return r, ok
}

func (p *fakePersistence) liveState(matchID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fen, ok := p.live[matchID]
	return fen, ok
}

type fixture struct {
	store      *Store
	registry   *Registry
	engine     *rules.Engine
	dispatcher *Dispatcher
	manager    *Manager
	persist    *fakePersistence
}

func newFixture() *fixture {
	store := NewStore()
	registry := NewRegistry()
	engine := rules.NewEngine()
	persist := newFakePersistence()
	dispatcher := NewDispatcher(store, registry, engine, persist)
	manager := NewManager(store, registry, engine, dispatcher, persist)
	return &fixture{
		store:      store,
		registry:   registry,
		engine:     engine,
		dispatcher: dispatcher,
		manager:    manager,
		persist:    persist,
	}
}

func newTestMatch(id string) *models.Match {
	return &models.Match{
		ID:          id,
		HostID:      "host",
		OpponentID:  sql.NullString{String: "opp", Valid: true},
		HostElo:     sql.NullFloat64{Float64: 1200, Valid: true},
		OpponentElo: sql.NullFloat64{Float64: 1200, Valid: true},
		HostIsWhite: true,
		Status:      models.MatchNotStarted,
	}
}

// startMatch brings a fresh match live with both fake connections bound.
func (f *fixture) startMatch(t *testing.T, id string) (*models.Match, *fakeConn, *fakeConn) {
	t.Helper()

	match := f.manager.TrackMatch(newTestMatch(id))
	hostConn := newFakeConn("host")
	oppConn := newFakeConn("opp")
	if err := f.manager.Start(context.Background(), match, hostConn, oppConn, rules.NewState()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return match, hostConn, oppConn
}

// waitFor polls cond until it holds or the deadline passes. Used for work that
// runs on a background goroutine, like move persistence.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gambitplay/backend/internal/logging"
	"github.com/gambitplay/backend/internal/models"
	"github.com/gambitplay/backend/internal/rating"
	"github.com/gambitplay/backend/internal/rules"
)

// Manager owns session lifecycle: promoting a matched pair into live play and
// tearing sessions down on forfeit or completion.
type Manager struct {
	store      *Store
	registry   *Registry
	engine     *rules.Engine
	dispatcher *Dispatcher
	persist    Persistence

	// joinMu serializes Join/Start so two sockets connecting at once cannot
	// double-start a match.
	joinMu sync.Mutex

	// matchesMu guards the canonical match-record index. Every socket bound
	// to a match must share one record so status transitions are visible to
	// all of them.
	matchesMu sync.Mutex
	matches   map[string]*models.Match
}

func NewManager(store *Store, registry *Registry, engine *rules.Engine, dispatcher *Dispatcher, persist Persistence) *Manager {
	return &Manager{
		store:      store,
		registry:   registry,
		engine:     engine,
		dispatcher: dispatcher,
		persist:    persist,
		matches:    make(map[string]*models.Match),
	}
}

func (m *Manager) Registry() *Registry { return m.registry }

// TrackMatch returns the coordinator's canonical record for the match,
// installing the given one if none is tracked yet. Callers must use the
// returned pointer.
func (m *Manager) TrackMatch(match *models.Match) *models.Match {
	cur, _ := m.trackMatch(match)
	return cur
}

// trackMatch additionally reports whether this call installed the record, so
// a failed join can release what it pinned.
func (m *Manager) trackMatch(match *models.Match) (*models.Match, bool) {
	m.matchesMu.Lock()
	defer m.matchesMu.Unlock()

	if cur, ok := m.matches[match.ID]; ok {
		return cur, false
	}
	m.matches[match.ID] = match
	return match, true
}

func (m *Manager) forgetMatch(matchID string) {
	m.matchesMu.Lock()
	defer m.matchesMu.Unlock()

	delete(m.matches, matchID)
}

// register installs c for userID, closing any superseded connection.
func (m *Manager) register(userID string, c Conn) {
	if prev := m.registry.Register(userID, c); prev != nil && prev != c {
		logging.L().Info("connection_superseded", zap.String("user_id", userID))
		_ = prev.Close(1000, "replaced by new connection")
	}
}

// Join binds an authenticated connection to its match. Depending on match
// state this waits for the opponent, starts the session, or resumes play for
// a reconnecting player. It returns the coordinator's canonical match record;
// callers must route subsequent inbound frames against that record.
func (m *Manager) Join(ctx context.Context, match *models.Match, userID string, conn Conn) (*models.Match, error) {
	m.joinMu.Lock()
	defer m.joinMu.Unlock()

	// Every socket of a match must share one record so status transitions
	// are visible to all of them.
	match, installed := m.trackMatch(match)
	fail := func(err error) (*models.Match, error) {
		if installed {
			m.forgetMatch(match.ID)
		}
		return nil, err
	}

	if userID != match.HostID && (!match.OpponentID.Valid || match.OpponentID.String != userID) {
		return fail(ErrOpponentUnresolved)
	}

	if sess, ok := m.store.Get(match.ID); ok {
		if err := m.resume(sess, userID, conn); err != nil {
			return fail(err)
		}
		return match, nil
	}

	switch match.Status {
	case models.MatchEnded:
		return fail(ErrMatchNotActive)

	case models.MatchActive:
		// The match is live but no session is held (process restart).
		// Restore the state from the live cache and resume.
		fen, err := m.persist.LiveState(ctx, match.ID)
		if err != nil {
			return fail(fmt.Errorf("restore live state: %w", err))
		}
		state, err := rules.StateFromFEN(fen)
		if err != nil {
			return fail(fmt.Errorf("restore live state: %w", err))
		}
		sess := m.newSession(match, state)
		if err := m.store.Create(sess); err != nil {
			return fail(fmt.Errorf("restore session: %w", err))
		}
		if err := m.resume(sess, userID, conn); err != nil {
			return fail(err)
		}
		return match, nil

	default: // NOT_STARTED
		m.register(userID, conn)
		if !match.OpponentID.Valid {
			return match, nil
		}
		hostConn, hostOK := m.registry.Lookup(match.HostID)
		oppConn, oppOK := m.registry.Lookup(match.OpponentID.String)
		if !hostOK || !oppOK {
			// Still waiting for the other player's socket.
			return match, nil
		}
		if err := m.Start(ctx, match, hostConn, oppConn, rules.NewState()); err != nil {
			return fail(err)
		}
		return match, nil
	}
}

// resume re-registers a (re)connecting participant and sends the current
// state once. Missed broadcasts are not replayed.
func (m *Manager) resume(sess *Session, userID string, conn Conn) error {
	if !sess.Participant(userID) {
		return ErrOpponentUnresolved
	}
	m.register(userID, conn)

	sess.Lock()
	fen := m.engine.FEN(sess.State)
	sess.Unlock()

	if err := conn.Send("state " + fen); err != nil {
		logging.L().Warn("resume_state_send_failed",
			zap.String("match_id", sess.MatchID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	logging.L().Info("session_resumed",
		zap.String("match_id", sess.MatchID),
		zap.String("user_id", userID),
	)
	return nil
}

// Start promotes a matched pair into a live session: the match becomes
// ACTIVE, both connections are registered, and the initial state goes out to
// both sides.
func (m *Manager) Start(ctx context.Context, match *models.Match, hostConn, oppConn Conn, state *rules.State) error {
	if match.Status != models.MatchNotStarted || !match.OpponentID.Valid {
		return ErrMatchNotReady
	}

	sess := m.newSession(match, state)
	if err := m.store.Create(sess); err != nil {
		return ErrMatchNotReady
	}

	// The status flip and the initial cache write share the session lock:
	// a move can only pass the dispatcher's status check after both, so its
	// cache write is ordered behind this one.
	fen := m.engine.FEN(state)
	sess.Lock()
	now := time.Now()
	match.Status = models.MatchActive
	match.StartedAt = sql.NullTime{Time: now, Valid: true}
	sess.StartedAt = now
	if err := m.persist.CacheLiveState(ctx, match.ID, fen); err != nil {
		logging.L().Warn("live_state_cache_failed", zap.String("match_id", match.ID), zap.Error(err))
	}
	sess.Unlock()

	if err := m.persist.UpdateMatch(ctx, match); err != nil {
		m.store.Remove(match.ID)
		sess.Lock()
		match.Status = models.MatchNotStarted
		match.StartedAt = sql.NullTime{}
		sess.Unlock()
		_ = m.persist.DropLiveState(ctx, match.ID)
		return fmt.Errorf("activate match: %w", err)
	}

	m.register(sess.HostID, hostConn)
	m.register(sess.OpponentID, oppConn)

	broadcastToSession(m.registry, sess, "state "+fen)

	logging.L().Info("match_started",
		zap.String("match_id", match.ID),
		zap.String("host_id", sess.HostID),
		zap.String("opponent_id", sess.OpponentID),
		zap.Bool("host_is_white", sess.HostIsWhite),
	)
	return nil
}

func (m *Manager) newSession(match *models.Match, state *rules.State) *Session {
	return &Session{
		MatchID:     match.ID,
		HostID:      match.HostID,
		OpponentID:  match.OpponentID.String,
		HostIsWhite: match.HostIsWhite,
		State:       state,
		Match:       match,
		StartedAt:   match.StartedAt.Time,
	}
}

// Forfeit ends an active match in favor of the non-forfeiting participant
// and notifies both sides.
func (m *Manager) Forfeit(ctx context.Context, matchID, userID string) error {
	sess, ok := m.store.Get(matchID)
	if !ok {
		return ErrMatchNotActive
	}
	if !sess.Participant(userID) {
		return ErrOpponentUnresolved
	}

	sess.Lock()
	defer sess.Unlock()

	if sess.Match.Status != models.MatchActive {
		return ErrMatchNotActive
	}

	winner := models.WinnerHost
	if userID == sess.HostID {
		winner = models.WinnerOpponent
	}
	m.finishLocked(ctx, sess, winner, "forfeit")

	broadcastToSession(m.registry, sess, "forfeit "+userID)
	m.teardown(ctx, sess)

	logging.L().Info("match_forfeited",
		zap.String("match_id", matchID),
		zap.String("forfeited_by", userID),
		zap.String("winner", winner),
	)
	return nil
}

// EndOnCompletion ends an active match after the rules engine reported a
// terminal state. The final position has already been broadcast by the
// dispatcher; only teardown remains.
func (m *Manager) EndOnCompletion(ctx context.Context, matchID string, outcome rules.Outcome, method string) error {
	sess, ok := m.store.Get(matchID)
	if !ok {
		return ErrMatchNotActive
	}

	sess.Lock()
	defer sess.Unlock()

	if sess.Match.Status != models.MatchActive {
		return ErrMatchNotActive
	}

	var winner string
	switch outcome {
	case rules.OutcomeWhiteWon:
		winner = models.WinnerOpponent
		if sess.HostIsWhite {
			winner = models.WinnerHost
		}
	case rules.OutcomeBlackWon:
		winner = models.WinnerHost
		if sess.HostIsWhite {
			winner = models.WinnerOpponent
		}
	}
	m.finishLocked(ctx, sess, winner, method)
	m.teardown(ctx, sess)

	logging.L().Info("match_completed",
		zap.String("match_id", matchID),
		zap.String("outcome", string(outcome)),
		zap.String("method", method),
		zap.String("winner", winner),
	)
	return nil
}

// finishLocked records the terminal transition and persists it. Persistence
// failures are logged, not surfaced: the in-memory outcome is authoritative
// for the live session.
func (m *Manager) finishLocked(ctx context.Context, sess *Session, winner, method string) {
	match := sess.Match
	now := time.Now()

	match.Status = models.MatchEnded
	match.Winner = sql.NullString{String: winner, Valid: winner != ""}
	match.CompletedAt = sql.NullTime{Time: now, Valid: true}
	if !sess.StartedAt.IsZero() {
		match.DurationMs = sql.NullInt64{Int64: now.Sub(sess.StartedAt).Milliseconds(), Valid: true}
	}

	if err := m.persist.UpdateMatch(ctx, match); err != nil {
		logging.L().Error("match_persist_failed",
			zap.String("match_id", match.ID),
			zap.String("method", method),
			zap.Error(err),
		)
	}
	m.updateRatings(ctx, match, winner)
}

// teardown releases the session entry, the live-state cache and both
// registry entries.
func (m *Manager) teardown(ctx context.Context, sess *Session) {
	m.store.Remove(sess.MatchID)
	m.forgetMatch(sess.MatchID)
	if err := m.persist.DropLiveState(ctx, sess.MatchID); err != nil {
		logging.L().Warn("live_state_drop_failed", zap.String("match_id", sess.MatchID), zap.Error(err))
	}
	for _, uid := range []string{sess.HostID, sess.OpponentID} {
		if conn, ok := m.registry.Lookup(uid); ok {
			m.registry.Unregister(uid, conn)
			_ = conn.Close(1000, "match ended")
		}
	}
}

func (m *Manager) updateRatings(ctx context.Context, match *models.Match, winner string) {
	if !match.HostElo.Valid || !match.OpponentElo.Valid || !match.OpponentID.Valid {
		return
	}

	hostScore := rating.Draw
	switch winner {
	case models.WinnerHost:
		hostScore = rating.Win
	case models.WinnerOpponent:
		hostScore = rating.Loss
	}

	newHost := rating.Update(match.HostElo.Float64, match.OpponentElo.Float64, hostScore)
	newOpp := rating.Update(match.OpponentElo.Float64, match.HostElo.Float64, rating.Win-hostScore)

	if err := m.persist.UpdateRating(ctx, match.HostID, newHost); err != nil {
		logging.L().Error("rating_update_failed", zap.String("user_id", match.HostID), zap.Error(err))
	}
	if err := m.persist.UpdateRating(ctx, match.OpponentID.String, newOpp); err != nil {
		logging.L().Error("rating_update_failed", zap.String("user_id", match.OpponentID.String), zap.Error(err))
	}
}

// HandleInbound routes one text frame from a participant's connection:
// `move <notation>` or `forfeit`. Failures are reported back to the sender
// only.
func (m *Manager) HandleInbound(ctx context.Context, match *models.Match, userID, text string) {
	text = strings.TrimSpace(text)

	var err error
	switch {
	case text == "forfeit":
		err = m.Forfeit(ctx, match.ID, userID)

	case strings.HasPrefix(text, "move "):
		var res *Result
		res, err = m.dispatcher.Dispatch(ctx, match.ID, userID, strings.TrimPrefix(text, "move "))
		if errors.Is(err, ErrSessionNotFound) {
			// The socket outlived its session: the match is over or was
			// never started.
			err = ErrMatchNotActive
		}
		if err == nil && res.Outcome != rules.OutcomeNone {
			err = m.EndOnCompletion(ctx, match.ID, res.Outcome, res.Method)
		}

	default:
		err = ErrMalformedMove
	}

	if err != nil {
		if CodeFor(err) == CodeInternalFault {
			logging.L().Error("inbound_internal_fault",
				zap.String("match_id", match.ID),
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
		sendError(m.registry, userID, err)
	}
}

// HandleDisconnect drops the registry entry for a closed connection. The
// session stays; the player may reconnect and resume.
func (m *Manager) HandleDisconnect(userID string, conn Conn) {
	if m.registry.Unregister(userID, conn) {
		logging.L().Info("connection_closed", zap.String("user_id", userID))
	}
}

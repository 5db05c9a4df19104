package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gambitplay/backend/internal/logging"
	"github.com/gambitplay/backend/internal/models"
	"github.com/gambitplay/backend/internal/rules"
)

// Persistence is the external storage collaborator. Move writes are
// best-effort relative to the live session; the in-memory state stays
// authoritative.
type Persistence interface {
	SaveMove(ctx context.Context, matchID, userID string, moveNumber int, notation, san string) error
	UpdateMatch(ctx context.Context, m *models.Match) error
	UpdateRating(ctx context.Context, userID string, newRating float64) error
	CacheLiveState(ctx context.Context, matchID, fen string) error
	LiveState(ctx context.Context, matchID string) (string, error)
	DropLiveState(ctx context.Context, matchID string) error
}

// Result describes one successfully applied move.
type Result struct {
	Move    rules.Move
	FEN     string
	Outcome rules.Outcome
	Method  string
}

// Dispatcher runs the validate-apply-broadcast sequence for submitted moves.
type Dispatcher struct {
	store    *Store
	registry *Registry
	engine   *rules.Engine
	persist  Persistence
}

func NewDispatcher(store *Store, registry *Registry, engine *rules.Engine, persist Persistence) *Dispatcher {
	return &Dispatcher{store: store, registry: registry, engine: engine, persist: persist}
}

// Dispatch validates and applies one move for userID in matchID. Validation
// failures mutate nothing and are reported only to the caller; on success the
// post-move state has been broadcast to both participants.
func (d *Dispatcher) Dispatch(ctx context.Context, matchID, userID, notation string) (*Result, error) {
	sess, ok := d.store.Get(matchID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !sess.Participant(userID) {
		return nil, ErrOpponentUnresolved
	}

	// Status check through broadcast run under the match lock: a move racing
	// a forfeit must observe the terminal status, two racing submissions must
	// not both pass the turn check against the same pre-move state, and both
	// sides must observe moves in apply order.
	sess.Lock()
	defer sess.Unlock()

	if sess.Match == nil || sess.Match.Status != models.MatchActive {
		return nil, ErrMatchNotActive
	}

	mover := d.engine.CurrentMover(sess.State)
	if !IsTurn(userID, sess, mover) {
		return nil, ErrOutOfTurn
	}

	mv, err := d.engine.Apply(sess.State, notation)
	if err != nil {
		switch {
		case errors.Is(err, rules.ErrMalformedNotation):
			return nil, ErrMalformedMove
		case errors.Is(err, rules.ErrIllegalMove):
			return nil, ErrIllegalMove
		}
		return nil, fmt.Errorf("engine apply: %w", err)
	}

	moveNumber := d.engine.MoveCount(sess.State)
	fen := d.engine.FEN(sess.State)
	outcome := d.engine.Outcome(sess.State)
	method := d.engine.Method(sess.State)

	// Move rows must not block the broadcast. The cache write stays under
	// the session lock so the live state always reflects apply order.
	go d.persistMove(sess.MatchID, userID, moveNumber, mv)

	broadcastToSession(d.registry, sess, "state "+fen)

	if err := d.persist.CacheLiveState(ctx, sess.MatchID, fen); err != nil {
		logging.L().Warn("live_state_cache_failed",
			zap.String("match_id", sess.MatchID),
			zap.Error(err),
		)
	}

	logging.L().Info("move_applied",
		zap.String("match_id", sess.MatchID),
		zap.String("user_id", userID),
		zap.String("uci", mv.UCI),
		zap.String("san", mv.SAN),
		zap.Int("move_number", moveNumber),
		zap.String("outcome", string(outcome)),
	)

	return &Result{Move: mv, FEN: fen, Outcome: outcome, Method: method}, nil
}

func (d *Dispatcher) persistMove(matchID, userID string, moveNumber int, mv rules.Move) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.persist.SaveMove(ctx, matchID, userID, moveNumber, mv.UCI, mv.SAN); err != nil {
		logging.L().Error("move_persist_failed",
			zap.String("match_id", matchID),
			zap.Int("move_number", moveNumber),
			zap.Error(err),
		)
	}
}

// broadcastToSession sends one frame to both participants. A missing or dead
// connection on either side is skipped without failing the send to the other.
func broadcastToSession(registry *Registry, sess *Session, frame string) {
	for _, uid := range []string{sess.HostID, sess.OpponentID} {
		conn, ok := registry.Lookup(uid)
		if !ok {
			logging.L().Debug("broadcast_skipped",
				zap.String("match_id", sess.MatchID),
				zap.String("user_id", uid),
			)
			continue
		}
		if err := conn.Send(frame); err != nil {
			logging.L().Warn("broadcast_send_failed",
				zap.String("match_id", sess.MatchID),
				zap.String("user_id", uid),
				zap.Error(err),
			)
		}
	}
}

// sendError reports a dispatch failure to the originating connection only.
func sendError(registry *Registry, userID string, err error) {
	conn, ok := registry.Lookup(userID)
	if !ok {
		return
	}
	code := CodeFor(err)
	msg := err.Error()
	if code == CodeInternalFault {
		// Never leak internal detail to players.
		msg = "internal error"
	}
	_ = conn.Send(fmt.Sprintf("error %s %s", code, msg))
}

package session

import "errors"

// Wire error codes sent in `error <code> <message>` frames and returned by
// lifecycle operations.
const (
	CodeSessionNotFound    = "session_not_found"
	CodeOpponentUnresolved = "opponent_unresolved"
	CodeOutOfTurn          = "out_of_turn"
	CodeMalformedMove      = "malformed_move"
	CodeIllegalMove        = "illegal_move"
	CodeMatchNotReady      = "match_not_ready"
	CodeMatchNotActive     = "match_not_active"
	CodeInternalFault      = "internal_fault"
)

var (
	// ErrSessionNotFound: no live session exists for the match.
	ErrSessionNotFound = errors.New("session not found")
	// ErrOpponentUnresolved: the submitting user is not one of the two
	// registered participants.
	ErrOpponentUnresolved = errors.New("opponent unresolved")
	// ErrOutOfTurn: it is not the submitting user's turn.
	ErrOutOfTurn = errors.New("out of turn")
	// ErrMalformedMove: the move notation is unparseable.
	ErrMalformedMove = errors.New("malformed move")
	// ErrIllegalMove: the rules engine rejected the move.
	ErrIllegalMove = errors.New("illegal move")
	// ErrMatchNotReady: the match cannot start (wrong status or missing
	// opponent).
	ErrMatchNotReady = errors.New("match not ready")
	// ErrMatchNotActive: the requested transition needs an active match.
	ErrMatchNotActive = errors.New("match not active")
	// ErrInternalFault: unexpected collaborator failure. Reported generically;
	// the match stays active.
	ErrInternalFault = errors.New("internal fault")
)

// CodeFor maps a dispatch or lifecycle error to its wire code. Unknown errors
// are reported as internal faults without leaking detail.
func CodeFor(err error) string {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return CodeSessionNotFound
	case errors.Is(err, ErrOpponentUnresolved):
		return CodeOpponentUnresolved
	case errors.Is(err, ErrOutOfTurn):
		return CodeOutOfTurn
	case errors.Is(err, ErrMalformedMove):
		return CodeMalformedMove
	case errors.Is(err, ErrIllegalMove):
		return CodeIllegalMove
	case errors.Is(err, ErrMatchNotReady):
		return CodeMatchNotReady
	case errors.Is(err, ErrMatchNotActive):
		return CodeMatchNotActive
	default:
		return CodeInternalFault
	}
}

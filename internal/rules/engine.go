package rules

import (
	"errors"
	"regexp"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Color identifies a side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Other returns the opposing color.
func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

// Outcome of a game as reported by the engine.
type Outcome string

const (
	OutcomeNone     Outcome = ""
	OutcomeWhiteWon Outcome = "white"
	OutcomeBlackWon Outcome = "black"
	OutcomeDraw     Outcome = "draw"
)

var (
	// ErrMalformedNotation means the input does not look like a move at all.
	ErrMalformedNotation = errors.New("malformed move notation")
	// ErrIllegalMove means the notation parsed but is not legal in the position.
	ErrIllegalMove = errors.New("illegal move")
)

// Move is the record of one applied move in both notations.
type Move struct {
	UCI string
	SAN string
}

// State is the live game state for one match. Callers outside this package
// treat it as opaque and go through Engine.
type State struct {
	game *nchess.Game
}

// NewState returns a state at the standard starting position.
func NewState() *State {
	return &State{game: nchess.NewGame()}
}

// StateFromFEN restores a state from a FEN string. Empty input falls back to
// the starting position.
func StateFromFEN(fen string) (*State, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return NewState(), nil
	}
	option, err := nchess.FEN(fen)
	if err != nil {
		return nil, err
	}
	return &State{game: nchess.NewGame(option)}, nil
}

var (
	uciPattern = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][nbrqNBRQ]?$`)
	sanPattern = regexp.MustCompile(`^(O-O(-O)?[+#]?|[KQRBN]?[a-h]?[1-8]?x?[a-h][1-8](=[QRBN])?[+#]?)$`)
)

// Engine is the rules collaborator: it validates and applies moves and
// reports whose turn it is. It holds no state of its own.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// CurrentMover reports the color permitted to move next.
func (e *Engine) CurrentMover(s *State) Color {
	if s.game.Position().Turn() == nchess.White {
		return White
	}
	return Black
}

// Apply attempts one move in UCI notation, falling back to SAN. The state is
// mutated only on success.
func (e *Engine) Apply(s *State, notation string) (Move, error) {
	notation = strings.TrimSpace(notation)
	if notation == "" || !(uciPattern.MatchString(strings.ToLower(notation)) || sanPattern.MatchString(notation)) {
		return Move{}, ErrMalformedNotation
	}

	pos := s.game.Position()
	if uciPattern.MatchString(strings.ToLower(notation)) {
		uci := strings.ToLower(notation)
		if mv, err := (nchess.UCINotation{}).Decode(pos, uci); err == nil {
			san := nchess.AlgebraicNotation{}.Encode(pos, mv)
			if err := s.game.Move(mv, nil); err != nil {
				return Move{}, ErrIllegalMove
			}
			return Move{UCI: uci, SAN: san}, nil
		}
		return Move{}, ErrIllegalMove
	}

	if err := s.game.PushNotationMove(notation, nchess.AlgebraicNotation{}, nil); err != nil {
		return Move{}, ErrIllegalMove
	}
	moves := s.game.Moves()
	last := moves[len(moves)-1]
	return Move{UCI: last.String(), SAN: nchess.AlgebraicNotation{}.Encode(pos, last)}, nil
}

// Outcome reports the terminal result, or OutcomeNone while play continues.
func (e *Engine) Outcome(s *State) Outcome {
	switch s.game.Outcome() {
	case nchess.WhiteWon:
		return OutcomeWhiteWon
	case nchess.BlackWon:
		return OutcomeBlackWon
	case nchess.Draw:
		return OutcomeDraw
	}
	return OutcomeNone
}

// Method describes how a terminal outcome was reached.
func (e *Engine) Method(s *State) string {
	switch s.game.Method() {
	case nchess.Checkmate:
		return "checkmate"
	case nchess.Stalemate:
		return "stalemate"
	default:
		if s.game.Outcome() != nchess.NoOutcome {
			return "draw"
		}
		return ""
	}
}

// FEN serializes the current position.
func (e *Engine) FEN(s *State) string {
	return s.game.FEN()
}

// MoveCount reports how many moves have been applied.
func (e *Engine) MoveCount(s *State) int {
	return len(s.game.Moves())
}

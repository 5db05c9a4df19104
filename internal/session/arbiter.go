package session

import "github.com/gambitplay/backend/internal/rules"

// IsTurn decides whether userID may move now, given the color the engine
// reports as the current mover. Pure; the mover is always read fresh from the
// game state, never cached.
func IsTurn(userID string, sess *Session, mover rules.Color) bool {
	isHost := userID == sess.HostID
	hostMoves := (sess.HostIsWhite && mover == rules.White) ||
		(!sess.HostIsWhite && mover == rules.Black)
	return isHost == hostMoves
}

package models

import (
	"database/sql"
	"time"
)

// Match lifecycle states. Transitions are one-way:
// NOT_STARTED -> ACTIVE -> ENDED.
const (
	MatchNotStarted = "NOT_STARTED"
	MatchActive     = "ACTIVE"
	MatchEnded      = "ENDED"
)

// Winner values recorded on a match when it ends. Empty means a draw.
const (
	WinnerHost     = "host"
	WinnerOpponent = "opponent"
)

// User represents a registered player
type User struct {
	ID           string       `db:"id" json:"id"`
	Username     string       `db:"username" json:"username"`
	PasswordHash string       `db:"password_hash" json:"-"`
	Rating       float64      `db:"rating" json:"rating"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	LastActive   sql.NullTime `db:"last_active" json:"last_active,omitempty"`
}

// Match represents a game between two players
type Match struct {
	ID          string          `db:"id" json:"id"`
	HostID      string          `db:"host_id" json:"host_id"`
	OpponentID  sql.NullString  `db:"opponent_id" json:"opponent_id,omitempty"`
	HostElo     sql.NullFloat64 `db:"host_elo" json:"host_elo,omitempty"`
	OpponentElo sql.NullFloat64 `db:"opponent_elo" json:"opponent_elo,omitempty"`
	HostIsWhite bool            `db:"host_is_white" json:"host_is_white"`
	Options     string          `db:"options" json:"options"`
	Status      string          `db:"status" json:"status"`
	Winner      sql.NullString  `db:"winner" json:"winner,omitempty"`
	DurationMs  sql.NullInt64   `db:"duration_ms" json:"duration_ms,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	StartedAt   sql.NullTime    `db:"started_at" json:"started_at,omitempty"`
	CompletedAt sql.NullTime    `db:"completed_at" json:"completed_at,omitempty"`
}

// OtherPlayer returns the participant opposite to userID, or "" when the
// user is not one of the two participants (or no opponent is bound yet).
func (m *Match) OtherPlayer(userID string) string {
	switch {
	case m.HostID == userID:
		return m.OpponentID.String
	case m.OpponentID.Valid && m.OpponentID.String == userID:
		return m.HostID
	}
	return ""
}

// MatchMove represents a single persisted move in a match
type MatchMove struct {
	ID         int       `db:"id" json:"id"`
	MatchID    string    `db:"match_id" json:"match_id"`
	UserID     string    `db:"user_id" json:"user_id"`
	MoveNumber int       `db:"move_number" json:"move_number"`
	Notation   string    `db:"notation" json:"notation"`
	SAN        string    `db:"san" json:"san"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/gambitplay/backend/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Repository is the SQL persistence collaborator for users, matches and
// move history.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateUser(ctx context.Context, u *models.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, rating, created_at) VALUES ($1, $2, $3, $4, NOW())`,
		u.ID, u.Username, u.PasswordHash, u.Rating)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE username = $1`, username)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *Repository) UpdateRating(ctx context.Context, userID string, newRating float64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET rating = $1, last_active = NOW() WHERE id = $2`, newRating, userID)
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	return nil
}

func (r *Repository) CreateMatch(ctx context.Context, m *models.Match) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO matches (id, host_id, opponent_id, host_elo, opponent_elo, host_is_white, options, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
		m.ID, m.HostID, m.OpponentID, m.HostElo, m.OpponentElo, m.HostIsWhite, m.Options, m.Status)
	if err != nil {
		return fmt.Errorf("create match: %w", err)
	}
	return nil
}

func (r *Repository) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	var m models.Match
	err := r.db.GetContext(ctx, &m, `SELECT * FROM matches WHERE id = $1`, matchID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	return &m, nil
}

func (r *Repository) UpdateMatch(ctx context.Context, m *models.Match) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE matches SET opponent_id = $1, host_elo = $2, opponent_elo = $3, status = $4,
		        winner = $5, duration_ms = $6, started_at = $7, completed_at = $8
		 WHERE id = $9`,
		m.OpponentID, m.HostElo, m.OpponentElo, m.Status,
		m.Winner, m.DurationMs, m.StartedAt, m.CompletedAt, m.ID)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	return nil
}

func (r *Repository) SaveMove(ctx context.Context, matchID, userID string, moveNumber int, notation, san string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO match_moves (match_id, user_id, move_number, notation, san, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (match_id, move_number) DO NOTHING`,
		matchID, userID, moveNumber, notation, san)
	if err != nil {
		return fmt.Errorf("save move: %w", err)
	}
	return nil
}

func (r *Repository) MovesForMatch(ctx context.Context, matchID string) ([]models.MatchMove, error) {
	var moves []models.MatchMove
	err := r.db.SelectContext(ctx, &moves,
		`SELECT * FROM match_moves WHERE match_id = $1 ORDER BY move_number`, matchID)
	if err != nil {
		return nil, fmt.Errorf("moves for match: %w", err)
	}
	return moves, nil
}

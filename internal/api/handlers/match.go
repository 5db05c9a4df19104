package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gambitplay/backend/internal/config"
	"github.com/gambitplay/backend/internal/logging"
	"github.com/gambitplay/backend/internal/models"
	"github.com/gambitplay/backend/internal/persistence"
)

func socketURL(matchID string) string {
	return fmt.Sprintf("/api/v1/matches/%s/play", matchID)
}

func matchResponse(m *models.Match) gin.H {
	resp := gin.H{
		"id":            m.ID,
		"host_id":       m.HostID,
		"host_is_white": m.HostIsWhite,
		"status":        m.Status,
		"options":       m.Options,
		"created_at":    m.CreatedAt,
		"socket_url":    socketURL(m.ID),
	}
	if m.OpponentID.Valid {
		resp["opponent_id"] = m.OpponentID.String
	}
	if m.HostElo.Valid {
		resp["host_elo"] = m.HostElo.Float64
	}
	if m.OpponentElo.Valid {
		resp["opponent_elo"] = m.OpponentElo.Float64
	}
	if m.Winner.Valid {
		resp["winner"] = m.Winner.String
	}
	if m.DurationMs.Valid {
		resp["duration_ms"] = m.DurationMs.Int64
	}
	return resp
}

// CreateMatch opens a new match hosted by the authenticated user
func CreateMatch(svc *persistence.Service, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		host, err := svc.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		match := &models.Match{
			ID:          uuid.NewString(),
			HostID:      host.ID,
			HostElo:     sql.NullFloat64{Float64: host.Rating, Valid: true},
			HostIsWhite: true,
			Status:      models.MatchNotStarted,
		}
		if err := svc.CreateMatch(c.Request.Context(), match); err != nil {
			logging.L().Error("match_create_failed", zap.String("host_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusCreated, matchResponse(match))
	}
}

// JoinMatch binds the authenticated user as opponent of an open match
func JoinMatch(svc *persistence.Service, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		matchID := c.Param("id")

		match, err := svc.GetMatch(c.Request.Context(), matchID)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		if match.Status != models.MatchNotStarted || match.OpponentID.Valid {
			c.JSON(http.StatusConflict, gin.H{"error": "match is not open"})
			return
		}
		if match.HostID == userID {
			c.JSON(http.StatusConflict, gin.H{"error": "cannot join own match"})
			return
		}

		opponent, err := svc.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		match.OpponentID = sql.NullString{String: opponent.ID, Valid: true}
		match.OpponentElo = sql.NullFloat64{Float64: opponent.Rating, Valid: true}
		if err := svc.UpdateMatch(c.Request.Context(), match); err != nil {
			logging.L().Error("match_join_failed", zap.String("match_id", matchID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, matchResponse(match))
	}
}

// GetMatch returns match details, its persisted moves and, for an active
// match, the current live position. Reconnecting clients use this to
// re-fetch full state.
func GetMatch(svc *persistence.Service, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID := c.Param("id")

		match, err := svc.GetMatch(c.Request.Context(), matchID)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		moves, err := svc.MovesForMatch(c.Request.Context(), matchID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		resp := matchResponse(match)
		resp["moves"] = moves
		if match.Status == models.MatchActive {
			if fen, err := svc.LiveState(c.Request.Context(), matchID); err == nil {
				resp["fen"] = fen
			}
		}

		c.JSON(http.StatusOK, resp)
	}
}

package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gambitplay/backend/internal/logging"
	"github.com/gambitplay/backend/internal/models"
	"github.com/gambitplay/backend/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// MatchLoader resolves match records for joining sockets.
type MatchLoader interface {
	GetMatch(ctx context.Context, matchID string) (*models.Match, error)
}

// Handler upgrades play requests and binds authenticated connections to the
// session coordinator.
type Handler struct {
	manager    *session.Manager
	matches    MatchLoader
	parseToken func(token string) (userID string, err error)
}

func NewHandler(manager *session.Manager, matches MatchLoader, parseToken func(string) (string, error)) *Handler {
	return &Handler{manager: manager, matches: matches, parseToken: parseToken}
}

// HandlePlay serves GET /matches/:id/play. The socket is upgraded first so
// auth failures can be reported with a proper close code: 1008 before
// session binding, 1011 for internal faults during join.
func (h *Handler) HandlePlay(c *gin.Context) {
	matchID := c.Param("id")
	token := c.Query("token")
	if token == "" {
		token = bearerToken(c.GetHeader("Authorization"))
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.L().Warn("ws_upgrade_failed", zap.String("match_id", matchID), zap.Error(err))
		return
	}

	userID, err := h.parseToken(token)
	if err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, "authentication required")
		return
	}

	ctx := context.Background()
	match, err := h.matches.GetMatch(ctx, matchID)
	if err != nil {
		closeWith(conn, websocket.CloseInternalServerErr, "match unavailable")
		return
	}
	client := NewClient(conn, userID, matchID)
	go client.WritePump()

	// Join hands back the coordinator's canonical match record; all frames
	// for this socket are routed against it.
	match, err = h.manager.Join(ctx, match, userID, client)
	if err != nil {
		logging.L().Warn("ws_join_failed",
			zap.String("match_id", matchID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		switch {
		case errors.Is(err, session.ErrOpponentUnresolved), errors.Is(err, session.ErrMatchNotActive):
			client.Close(websocket.ClosePolicyViolation, "cannot join match")
		default:
			client.Close(websocket.CloseInternalServerErr, "failed to join match")
		}
		return
	}

	go client.ReadPump(
		func(text string) { h.manager.HandleInbound(ctx, match, userID, text) },
		func() { h.manager.HandleDisconnect(userID, client) },
	)
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	conn.Close()
}

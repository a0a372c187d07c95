package server

import (
	"github.com/gin-gonic/gin"

	"github.com/parlorchat/parlor/internal/hub"
)

// handleWebSocket upgrades the connection and registers a session bound to
// the room in the path. The hub launches the session's read/write pumps.
func (s *Server) handleWebSocket(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		s.log.Warn("websocket upgrade failed", "room_id", roomID, "err", err)
		return
	}

	client := hub.NewClient(conn, s.hub, roomKey(roomID), roomID, c.Request.RemoteAddr,
		hub.SessionDeps{
			Presence: s.presence,
			Ingest:   s.ingest,
			Router:   s.router,
		},
		hub.SessionLimits{
			MaxMessageSize: s.cfg.MaxMessageSize,
			RateBurst:      s.cfg.RateLimit.Burst,
			RateRefill:     s.cfg.RateLimit.RefillInterval,
		},
		s.log,
	)
	s.hub.Register(client)
}

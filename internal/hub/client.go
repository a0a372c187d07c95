package hub

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/parlorchat/parlor/internal/chat"
	"github.com/parlorchat/parlor/internal/presence"
)

const (
	// pongWait is how long a connection may stay silent before the read
	// side gives up. pingPeriod must be shorter so pings keep it alive.
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second

	sendBufferSize = 256
)

// SessionDeps are the collaborators a session drives while handling inbound
// frames.
type SessionDeps struct {
	Presence *presence.Table
	Ingest   *chat.Pipeline
	Router   *Router
}

// SessionLimits bound what a single connection may send.
type SessionLimits struct {
	MaxMessageSize int64
	RateBurst      int
	RateRefill     time.Duration
}

// Client is the server-side state bound to one open real-time connection.
// It is created on socket accept, bound to one room for its lifetime, and
// destroyed on socket close. The user identity is set lazily by the first
// identifying event and never rebound.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	addr   string
	closed bool

	roomID  string
	roomNum uint

	// Bound by the first identifying event; zero until then.
	userID   uint
	userName string

	deps           SessionDeps
	limiter        *tokenBucket
	maxMessageSize int64
	log            *slog.Logger
}

// NewClient wraps an accepted WebSocket connection as a session for the
// given room. roomNum is the parsed numeric form of roomID used for
// persistence.
func NewClient(conn *websocket.Conn, h *Hub, roomID string, roomNum uint, addr string, deps SessionDeps, limits SessionLimits, log *slog.Logger) *Client {
	if conn != nil && limits.MaxMessageSize > 0 {
		conn.SetReadLimit(limits.MaxMessageSize)
	}

	id := uuid.NewString()
	return &Client{
		id:             id,
		conn:           conn,
		send:           make(chan []byte, sendBufferSize),
		hub:            h,
		addr:           addr,
		roomID:         roomID,
		roomNum:        roomNum,
		deps:           deps,
		limiter:        newTokenBucket(limits.RateBurst, limits.RateRefill),
		maxMessageSize: limits.MaxMessageSize,
		log:            log.With("room_id", roomID, "session_id", id[:8]),
	}
}

// ID returns the session identifier.
func (c *Client) ID() string {
	return c.id
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("set initial read deadline", "err", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.Warn("set read deadline in pong handler", "err", err)
		}
		return nil
	})
}

// logReadError records why the read loop is ending.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("frame exceeded maximum size", "max_bytes", c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Info("session disconnected", "err", err)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		c.log.Info("connection closed", "err", err)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.log.Warn("unexpected close", "err", err)
	default:
		c.log.Warn("read error", "err", err)
	}
}

// readPump receives frames until the socket closes, then runs the
// disconnect transition: presence removal, user_left broadcast, and
// unsubscription from both room groups.
func (c *Client) readPump() {
	defer func() {
		c.disconnect()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("close connection in readPump", "err", err)
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			break
		}

		if c.limiter != nil && !c.limiter.take() {
			c.log.Warn("rate limit exceeded, frame discarded")
			continue
		}

		c.handleFrame(raw)
	}
}

// handleFrame runs one step of the session state machine. Each inbound
// event is handled independently, in arrival order.
func (c *Client) handleFrame(raw []byte) {
	frame := chat.DecodeFrame(raw)

	switch frame.Kind {
	case chat.FramePing:
		c.enqueue(chat.Pong)

	case chat.FrameUserConnected:
		if frame.UserID == 0 {
			// An identification without an id carries nothing to bind.
			return
		}
		c.identify(frame.UserID, frame.UserName)

	case chat.FrameHeartbeat:
		if c.userID == 0 {
			// Heartbeat before identification is ignored.
			return
		}
		c.deps.Presence.Heartbeat(c.roomID, c.userID)

	case chat.FrameChat:
		if c.userID == 0 && frame.UserID != 0 {
			c.identify(frame.UserID, frame.UserName)
		} else if c.userID != 0 {
			// A chat message refreshes liveness the same as a heartbeat.
			c.deps.Presence.Heartbeat(c.roomID, c.userID)
		}
		msg, err := c.deps.Ingest.Ingest(c.roomNum, frame.UserName, frame.UserID, frame.Content)
		if err != nil {
			// Fire-once: no broadcast, no retry; the connection stays
			// open for further attempts.
			c.log.Error("message ingest failed", "err", err)
			return
		}
		c.deps.Router.NewMessage(c.roomID, msg)

	case chat.FrameUnrecognized:
		// Malformed frames are dropped without surfacing an error.
		c.log.Debug("unrecognized frame dropped")
	}
}

// identify binds the session to a user (first identifying event wins),
// upserts the presence entry, and announces the join. Repeat identifications
// refresh presence but never rebind.
func (c *Client) identify(userID uint, userName string) {
	if c.userID == 0 {
		if userName == "" {
			userName = chat.AnonymousName
		}
		c.userID = userID
		c.userName = userName
	}

	online := c.deps.Presence.MarkPresent(c.roomID, c.userID, c.userName)
	c.deps.Router.PresenceChanged(c.roomID, chat.EventUserJoined, c.userID, c.userName, online)
}

// disconnect runs the CLOSED transition: bound sessions are removed from the
// presence table (unconditionally, per session) and a user_left update is
// broadcast before the session leaves both groups.
func (c *Client) disconnect() {
	if c.userID != 0 {
		online := c.deps.Presence.MarkAbsent(c.roomID, c.userID)
		c.deps.Router.PresenceChanged(c.roomID, chat.EventUserLeft, c.userID, c.userName, online)
	}
	c.hub.Unregister(c)
}

// enqueue hands a payload to the write pump without blocking. Delivery goes
// through the hub, which holds its lock across the registration check and the
// send, so a session the fan-out already removed drops the payload instead of
// hitting a closed channel.
func (c *Client) enqueue(payload []byte) {
	if !c.hub.safeSend(c, payload) {
		c.log.Warn("payload dropped, session removed or buffer full")
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when
// the pump should stop.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case payload, ok := <-c.send:
		return c.handleOutbound(payload, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Warn("close connection in writePump", "err", err)
	}
}

// handleOutbound writes one payload, plus anything already queued, and
// returns false once the send channel has been closed.
func (c *Client) handleOutbound(payload []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("set write deadline", "err", err)
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("write close message", "err", err)
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.log.Warn("write message", "err", err)
		return false
	}

	// Drain whatever queued up while we were writing.
	n := len(c.send)
	for i := 0; i < n; i++ {
		queued, open := <-c.send
		if !open {
			return false
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, queued); err != nil {
			c.log.Warn("write queued message", "err", err)
			return false
		}
	}
	return true
}

// handlePing keeps the connection alive between frames.
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("set write deadline for ping", "err", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("write ping", "err", err)
		}
		return false
	}
	return true
}

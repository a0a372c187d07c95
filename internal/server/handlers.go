package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/parlorchat/parlor/internal/chat"
	"github.com/parlorchat/parlor/internal/store"
)

// handleHealth is a plain liveness probe.
func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "Parlor server is running!")
}

// handleListRooms lists rooms, newest first. When a user is known (token or
// ?user_id=), only rooms they created or joined are returned.
func (s *Server) handleListRooms(c *gin.Context) {
	userID := authedUserID(c)
	if userID == 0 {
		if raw := c.Query("user_id"); raw != "" {
			if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
				userID = uint(parsed)
			}
		}
	}

	var (
		rooms []store.Room
		err   error
	)
	if userID != 0 {
		rooms, err = s.rooms.ListForUser(userID)
	} else {
		rooms, err = s.rooms.List()
	}
	if err != nil {
		s.log.Error("list rooms", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not list rooms"})
		return
	}

	views := make([]roomView, 0, len(rooms))
	for i := range rooms {
		views = append(views, s.roomView(&rooms[i]))
	}
	c.JSON(http.StatusOK, views)
}

type createRoomRequest struct {
	Name      string `json:"name"`
	CreatorID uint   `json:"creator_id"`
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "room name required"})
		return
	}

	room := store.Room{Name: req.Name}
	creatorID := authedUserID(c)
	if creatorID == 0 {
		creatorID = req.CreatorID
	}
	if creatorID != 0 {
		if _, err := s.users.FindByID(creatorID); err == nil {
			room.CreatorID = &creatorID
		}
	}

	if err := s.rooms.Create(&room); err != nil {
		s.log.Error("create room", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not create room"})
		return
	}

	created, err := s.rooms.FindByID(room.ID)
	if err != nil {
		created = &room
	}
	c.JSON(http.StatusCreated, s.roomView(created))
}

func (s *Server) handleGetRoom(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	room, err := s.rooms.FindByID(roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Room not found"})
			return
		}
		s.log.Error("get room", "room_id", roomID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not load room"})
		return
	}
	c.JSON(http.StatusOK, s.roomView(room))
}

type joinRoomRequest struct {
	RoomKey   string `json:"room_key"`
	Key       string `json:"key"`
	UserID    uint   `json:"user_id"`
	UserIDAlt uint   `json:"userId"`
}

// handleJoinRoom adds a user to the room matching the (case-insensitive)
// join key.
func (s *Server) handleJoinRoom(c *gin.Context) {
	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "room_key required"})
		return
	}
	key := req.RoomKey
	if key == "" {
		key = req.Key
	}
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "room_key required"})
		return
	}

	room, err := s.rooms.FindByKey(key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Room not found"})
			return
		}
		s.log.Error("join room", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not join room"})
		return
	}

	userID := authedUserID(c)
	if userID == 0 {
		userID = req.UserID
	}
	if userID == 0 {
		userID = req.UserIDAlt
	}
	if userID != 0 {
		if user, err := s.users.FindByID(userID); err == nil {
			if err := s.rooms.AddMember(room, user); err != nil {
				s.log.Warn("add member", "room_id", room.ID, "user_id", userID, "err", err)
			}
		}
	}

	// Re-read so the member list reflects the join.
	if updated, err := s.rooms.FindByID(room.ID); err == nil {
		room = updated
	}
	c.JSON(http.StatusOK, s.roomView(room))
}

func (s *Server) handleListMessages(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	msgs, err := s.messages.ListByRoom(roomID)
	if err != nil {
		s.log.Error("list messages", "room_id", roomID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not list messages"})
		return
	}

	views := make([]chat.MessagePayload, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, messageView(m))
	}
	c.JSON(http.StatusOK, views)
}

// handlePostMessage runs the same ingest and broadcast path as the real-time
// channel, so request/response clients and sockets observe one message
// stream.
func (s *Server) handlePostMessage(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "unreadable body"})
		return
	}
	userName, userID, content, parsed := chat.DecodeChatPayload(body)
	if !parsed {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid JSON body"})
		return
	}
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Message content required"})
		return
	}

	if authed := authedUserID(c); authed != 0 {
		userID = authed
	}

	msg, err := s.ingest.Ingest(roomID, userName, userID, content)
	if err != nil {
		s.log.Error("ingest posted message", "room_id", roomID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not store message"})
		return
	}

	s.router.NewMessage(roomKey(roomID), msg)
	c.JSON(http.StatusCreated, msg)
}

// handleOnline returns the room's live presence roster.
func (s *Server) handleOnline(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	entries := s.presence.Entries(roomKey(roomID))
	users := make([]onlineUserView, 0, len(entries))
	for _, e := range entries {
		users = append(users, onlineUserView{
			UserID:   e.UserID,
			UserName: e.UserName,
			LastSeen: chat.FormatTime(e.LastSeen),
		})
	}
	c.JSON(http.StatusOK, onlineResponse{Count: len(users), Users: users})
}

type registerRequest struct {
	Username     string `json:"username"`
	UserNameAlt  string `json:"user_name"`
	Password     string `json:"password"`
	FirstName    string `json:"first_name"`
	FirstNameAlt string `json:"firstName"`
	LastName     string `json:"last_name"`
	LastNameAlt  string `json:"lastName"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "username and password required"})
		return
	}
	username := req.Username
	if username == "" {
		username = req.UserNameAlt
	}
	if username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "username and password required"})
		return
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.log.Error("hash password", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not register"})
		return
	}

	firstName := req.FirstName
	if firstName == "" {
		firstName = req.FirstNameAlt
	}
	lastName := req.LastName
	if lastName == "" {
		lastName = req.LastNameAlt
	}

	user := store.User{
		Username:     username,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
	}
	if err := s.users.Create(&user); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"detail": "Username already taken"})
			return
		}
		s.log.Error("create user", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not register"})
		return
	}

	c.JSON(http.StatusOK, userView{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

type loginRequest struct {
	Username    string `json:"username"`
	UserNameAlt string `json:"user_name"`
	Password    string `json:"password"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "username and password required"})
		return
	}
	username := req.Username
	if username == "" {
		username = req.UserNameAlt
	}
	if username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "username and password required"})
		return
	}

	user, err := s.users.FindByUsername(username)
	if err != nil || !s.hasher.Verify(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid credentials"})
		return
	}

	if err := s.logins.Record(user.ID, user.Username); err != nil {
		// The login still succeeds; audit is best effort.
		s.log.Warn("record login", "user_id", user.ID, "err", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		s.log.Error("issue token", "user_id", user.ID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not log in"})
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		userView: userView{
			ID:        user.ID,
			Username:  user.Username,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		},
		Token: token,
	})
}

// roomParam parses the numeric room id path segment, writing a 400 response
// when it is not a positive integer.
func roomParam(c *gin.Context) (uint, bool) {
	raw := c.Param("room_id")
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid room id"})
		return 0, false
	}
	return uint(parsed), true
}

// roomKey is the canonical registry key for a room id, shared by the REST
// and WebSocket paths so both reach the same groups.
func roomKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

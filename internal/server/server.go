package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parlorchat/parlor/internal/auth"
	"github.com/parlorchat/parlor/internal/chat"
	"github.com/parlorchat/parlor/internal/config"
	"github.com/parlorchat/parlor/internal/hub"
	"github.com/parlorchat/parlor/internal/presence"
	"github.com/parlorchat/parlor/internal/store"
)

// Server wires the REST handlers and the WebSocket endpoint to their
// collaborators.
type Server struct {
	cfg      config.Config
	log      *slog.Logger
	hub      *hub.Hub
	router   *hub.Router
	presence *presence.Table
	ingest   *chat.Pipeline

	rooms    *store.RoomRepository
	messages *store.MessageRepository
	users    *store.UserRepository
	logins   *store.LoginLogRepository

	hasher *auth.PasswordHasher
	tokens *auth.TokenManager

	origins  *originPolicy
	upgrader websocket.Upgrader
}

// Deps collects everything a Server needs.
type Deps struct {
	Hub      *hub.Hub
	Router   *hub.Router
	Presence *presence.Table
	Ingest   *chat.Pipeline
	Rooms    *store.RoomRepository
	Messages *store.MessageRepository
	Users    *store.UserRepository
	Logins   *store.LoginLogRepository
	Hasher   *auth.PasswordHasher
	Tokens   *auth.TokenManager
}

// New creates a Server for the given configuration and collaborators.
func New(cfg config.Config, log *slog.Logger, deps Deps) *Server {
	origins := newOriginPolicy(cfg.AllowedOrigins, log)
	s := &Server{
		cfg:      cfg,
		log:      log,
		hub:      deps.Hub,
		router:   deps.Router,
		presence: deps.Presence,
		ingest:   deps.Ingest,
		rooms:    deps.Rooms,
		messages: deps.Messages,
		users:    deps.Users,
		logins:   deps.Logins,
		hasher:   deps.Hasher,
		tokens:   deps.Tokens,
		origins:  origins,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     origins.check,
	}
	return s
}

// CreateServer creates and configures an HTTP server with the specified port
// and handler. It sets reasonable timeout values for production use.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// StartServer starts the HTTP server and begins listening for connections.
func StartServer(server *http.Server) error {
	return server.ListenAndServe()
}

// ShutdownServer gracefully shuts down the HTTP server, waiting for active
// connections to close or until the timeout is reached.
func ShutdownServer(server *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return server.Shutdown(ctx)
}

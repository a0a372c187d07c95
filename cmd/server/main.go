package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parlorchat/parlor/internal/auth"
	"github.com/parlorchat/parlor/internal/chat"
	"github.com/parlorchat/parlor/internal/config"
	"github.com/parlorchat/parlor/internal/hub"
	"github.com/parlorchat/parlor/internal/presence"
	"github.com/parlorchat/parlor/internal/server"
	"github.com/parlorchat/parlor/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.NewLogger("info").Error("load configuration", "err", err)
		os.Exit(1)
	}
	log := config.NewLogger(cfg.LogLevel)

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("open store", "err", err)
		os.Exit(1)
	}

	rooms := store.NewRoomRepository(db)
	messages := store.NewMessageRepository(db)
	users := store.NewUserRepository(db)
	logins := store.NewLoginLogRepository(db)

	table := presence.NewTable(log)
	h := hub.NewHub(log)
	router := hub.NewRouter(h, log)
	ingest := chat.NewPipeline(rooms, messages, users, log)

	sweeper := presence.NewSweeper(table, cfg.Presence.TTL, cfg.Presence.SweepInterval,
		router.PresenceEvicted, log)

	srv := server.New(cfg, log, server.Deps{
		Hub:      h,
		Router:   router,
		Presence: table,
		Ingest:   ingest,
		Rooms:    rooms,
		Messages: messages,
		Users:    users,
		Logins:   logins,
		Hasher:   auth.NewPasswordHasher(),
		Tokens:   auth.NewTokenManager(cfg.JWTSecret, 24*time.Hour),
	})

	go h.Run()
	sweeper.Start()

	httpServer := server.CreateServer(cfg.Port, srv.Routes())

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Port)
		errCh <- server.StartServer(httpServer)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}

	if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
		log.Warn("http shutdown", "err", err)
	}
	sweeper.Stop()
	if err := h.Shutdown(shutdownTimeout); err != nil {
		log.Warn("hub shutdown", "err", err)
	}
	log.Info("shutdown complete")
}

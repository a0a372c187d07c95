package server

import "github.com/gin-gonic/gin"

// Routes builds the gin engine with all application routes: health check,
// the REST API, and the per-room WebSocket endpoint.
func (s *Server) Routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.cors(), s.authOptional())

	engine.GET("/health", s.handleHealth)

	api := engine.Group("/api")
	{
		api.GET("/rooms", s.handleListRooms)
		api.POST("/rooms", s.handleCreateRoom)
		api.POST("/rooms/join", s.handleJoinRoom)
		api.GET("/rooms/:room_id", s.handleGetRoom)
		api.GET("/rooms/:room_id/messages", s.handleListMessages)
		api.POST("/rooms/:room_id/messages", s.handlePostMessage)
		api.GET("/rooms/:room_id/online", s.handleOnline)

		api.POST("/auth/register", s.handleRegister)
		api.POST("/auth/login", s.handleLogin)
	}

	engine.GET("/ws/rooms/:room_id", s.handleWebSocket)

	return engine
}

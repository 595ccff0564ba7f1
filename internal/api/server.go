// Package api assembles the gin HTTP surface: track-request creation and
// status, the supplemented suggestions endpoint, and operator auth. This
// wires the gin-based handler/service split the teacher's own repo left
// dormant (internal/radio/handler + internal/radio/service, never
// constructed from its main.go), generalized from playlist management to
// track-request management.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/myownradio/channel-bot/internal/api/handler"
	"github.com/myownradio/channel-bot/internal/api/service"
	"github.com/myownradio/channel-bot/internal/auth"
)

// Server wraps a configured gin engine behind an http.Server, matching the
// teacher's own Server{httpServer *http.Server} shape in internal/radio/server.go.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
}

// Deps collects every collaborator the HTTP surface needs.
type Deps struct {
	Auth        *auth.Auth
	Requests    *service.RequestService
	Suggestions *service.SuggestionService
}

func NewServer(bindAddress string, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), securityHeaders())

	requestHandlers := handler.NewRequestHandlers(deps.Requests)
	suggestionHandlers := handler.NewSuggestionHandlers(deps.Suggestions)
	authHandlers := handler.NewAuthHandlers(deps.Auth)

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := engine.Group("/api/auth")
	authGroup.POST("/login", authHandlers.Login)

	protected := engine.Group("/api")
	protected.Use(authRequired(deps.Auth))
	protected.GET("/auth/verify", authHandlers.VerifyToken)
	protected.POST("/requests", requestHandlers.Create)
	protected.GET("/requests", requestHandlers.List)
	protected.GET("/requests/:id", requestHandlers.GetByID)
	protected.POST("/requests/:id/retry", requestHandlers.Retry)
	protected.GET("/channels/:channelId/suggestions", suggestionHandlers.Get)

	return &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:              bindAddress,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// ListenAndServe blocks serving HTTP until the server is shut down or fails.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Package server exposes the assistant over HTTP: one endpoint to send a turn
// and receive the final text, plus history inspection and clearing. It is a
// thin presentation adapter; all conversation semantics live in the agent.
package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/nyxhq/nyx/internal/profile"
	"github.com/nyxhq/nyx/internal/version"
	"github.com/nyxhq/nyx/plugin/ai/agent"
	"github.com/nyxhq/nyx/server/middleware"
	"github.com/nyxhq/nyx/store"
)

// Assistant is the conversation surface the server drives.
type Assistant interface {
	Send(ctx context.Context, text string, image *agent.ImageInput) (string, error)
	ClearHistory(ctx context.Context) (int64, error)
}

// Server is the echo HTTP adapter around one assistant instance.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	assistant  Assistant
	echoServer *echo.Echo
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(prof *profile.Profile, st *store.Store, assistant Assistant) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.BodyLimit("32M"))

	s := &Server{
		Profile:    prof,
		Store:      st,
		assistant:  assistant,
		echoServer: e,
	}

	e.GET("/healthz", s.healthz)

	limiter := middleware.NewRateLimiter(time.Second/10, 20)
	apiGroup := e.Group("/api/v1", limiter.Middleware(), s.authMiddleware)
	apiGroup.POST("/chat", s.chat)
	apiGroup.GET("/messages", s.listMessages)
	apiGroup.DELETE("/messages", s.clearMessages)

	return s
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echoServer.Start(address)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.echoServer.Shutdown(shutdownCtx)
	}
}

// authMiddleware enforces the static bearer token when one is configured.
func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.Profile.AccessToken == "" {
			return next(c)
		}
		token := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.Profile.AccessToken)) != 1 {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}
		return next(c)
	}
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.GetCurrentVersion(s.Profile.Mode),
	})
}

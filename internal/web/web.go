// Package web assembles the server-rendered frontend.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/good-yellow-bee/toolme/internal/client"
	"github.com/good-yellow-bee/toolme/internal/i18n"
	"github.com/good-yellow-bee/toolme/internal/web/handlers"
	"github.com/good-yellow-bee/toolme/internal/web/middleware"
	"github.com/good-yellow-bee/toolme/internal/web/render"
	"github.com/good-yellow-bee/toolme/internal/web/session"
)

//go:embed static
var staticFS embed.FS

// Config holds what the frontend needs from the process configuration.
type Config struct {
	CSRFKey        []byte
	SecureCookies  bool
	VerboseLogging bool
	AuthPerMinute  int
	PageSize       int
	Attachments    handlers.AttachmentStore
	NewClient      func(*client.Credential) *client.Client
	Logger         zerolog.Logger
}

type Server struct {
	cfg      Config
	handler  *handlers.Handler
	sessions session.Store
	limiter  *middleware.RateLimiter
}

// NewServer builds the frontend around a session store and a catalog.
func NewServer(cfg Config, sessions session.Store, catalog *i18n.Catalog) (*Server, error) {
	if len(cfg.CSRFKey) != 32 {
		return nil, fmt.Errorf("csrf key must be 32 bytes, got %d", len(cfg.CSRFKey))
	}
	if cfg.NewClient == nil {
		return nil, fmt.Errorf("backend client factory is required")
	}
	if cfg.AuthPerMinute <= 0 {
		cfg.AuthPerMinute = 10
	}
	renderer, err := render.New(catalog)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg: cfg,
		handler: handlers.NewHandler(renderer, handlers.Options{
			PageSize:    cfg.PageSize,
			Attachments: cfg.Attachments,
			Sessions:    sessions,
		}),
		sessions: sessions,
		limiter:  middleware.NewRateLimiter(cfg.AuthPerMinute),
	}, nil
}

func (s *Server) StaticFS() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to create static FS: %v", err))
	}
	return http.FileServer(http.FS(sub))
}

func (s *Server) Handler() *handlers.Handler {
	return s.handler
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.limiter.Stop()
}

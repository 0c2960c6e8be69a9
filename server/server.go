package server

import (
	"aifi/core"
	"aifi/lib/sl"
	"aifi/storage"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// MediaLibrary is the part of the media library the HTTP layer needs
type MediaLibrary interface {
	Open(id string) (*storage.Asset, string, error)
	PostAssets(postId string) ([]storage.Asset, error)
}

type Server struct {
	images   core.ImageService
	settings storage.SettingsStorage
	posts    storage.PostStorage
	media    MediaLibrary
	apiToken string
	log      *slog.Logger
	http     *http.Server
}

func New(
	conf *core.Config,
	images core.ImageService,
	settings storage.SettingsStorage,
	posts storage.PostStorage,
	media MediaLibrary,
	log *slog.Logger,
) *Server {
	s := &Server{
		images:   images,
		settings: settings,
		posts:    posts,
		media:    media,
		apiToken: conf.ApiToken,
		log:      log.With(sl.Module("http")),
	}
	s.http = &http.Server{
		Addr:              conf.Listen,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.loggingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/media/:id", s.handleMedia)

	api := r.Group("/api/aifi/v1", s.authMiddleware())
	api.POST("/generate", s.handleGenerate)
	api.GET("/settings", s.handleGetSettings)
	api.PUT("/settings", s.handleUpdateSettings)
	api.GET("/posts/:id", s.handleGetPost)
	api.PUT("/posts/:id", s.handleSavePost)
	api.GET("/posts/:id/assets", s.handlePostAssets)

	return r
}

func (s *Server) Start() error {
	s.log.Info("listening", slog.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.log.With(
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(started)),
		).Debug("request")
	}
}

// authMiddleware stands in for the host's permission check when a token is configured
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.apiToken == "" {
			c.Next()
			return
		}
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || token != s.apiToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"code":    "rest_forbidden",
				"message": "Sorry, you are not allowed to do that.",
			})
			return
		}
		c.Next()
	}
}

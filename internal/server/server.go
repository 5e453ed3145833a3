package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clientgallery/internal/models"
	"clientgallery/internal/worker"
)

type Store interface {
	Ping(ctx context.Context) error
	CreateAdmin(ctx context.Context, admin *models.AdminUser) error
	GetAdmin(ctx context.Context, id uuid.UUID) (*models.AdminUser, error)
	SetWatermarkLogo(ctx context.Context, adminID uuid.UUID, path *string) error
	CreateGallery(ctx context.Context, g *models.Gallery) error
	GetGallery(ctx context.Context, id uuid.UUID) (*models.Gallery, error)
	CreatePhotos(ctx context.Context, galleryID uuid.UUID, photos []*models.Photo) error
	GetPhoto(ctx context.Context, id uuid.UUID) (*models.Photo, error)
	ListPhotos(ctx context.Context, galleryID uuid.UUID, onlyCompleted bool) ([]models.Photo, error)
	DeletePhoto(ctx context.Context, id uuid.UUID) (*models.Photo, error)
}

// Queue accepts processing jobs without waiting for them to run.
type Queue interface {
	Enqueue(ctx context.Context, job worker.Job) error
}

type LogoStore interface {
	SaveUpload(adminID uuid.UUID, r io.Reader) (string, error)
	SaveText(adminID uuid.UUID, text string) (string, error)
}

type Server struct {
	cfg    *models.Config
	router *gin.Engine
	http   *http.Server
	db     Store
	queue  Queue
	logos  LogoStore
	log    zerolog.Logger
}

func NewServer(cfg *models.Config, db Store, queue Queue, logos LogoStore, log zerolog.Logger) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(requestID(), requestLogger(log), gin.Recovery())
	r.Static("/files", cfg.StoragePath)

	s := &Server{cfg: cfg, router: r, db: db, queue: queue, logos: logos, log: log}

	r.GET("/healthz", s.handleHealth)

	r.POST("/galleries/:id/photos", s.handleUpload)
	r.GET("/galleries/:id/photos", s.handleListPhotos)
	r.GET("/photos/:id", s.handleGetPhoto)

	admin := r.Group("/admin")
	admin.POST("/admins", s.handleCreateAdmin)
	admin.POST("/admins/:id/galleries", s.handleCreateGallery)
	admin.PUT("/admins/:id/watermark", s.handleUploadWatermark)
	admin.POST("/admins/:id/watermark/text", s.handleTextWatermark)
	admin.DELETE("/admins/:id/watermark", s.handleDeleteWatermark)
	admin.GET("/galleries/:id/photos", s.handleAdminListPhotos)
	admin.DELETE("/photos/:id", s.handleDeletePhoto)

	s.http = &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.cfg.ServerAddr).Msg("http server starting")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.db.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseID(c *gin.Context, op string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return uuid.Nil, false
	}
	return id, true
}

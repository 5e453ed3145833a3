package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"clientgallery/internal/imageproc"
	"clientgallery/internal/models"
	"clientgallery/internal/storage"
	"clientgallery/internal/worker"
)

const tmpDir = "tmp"

type photoResponse struct {
	models.Photo
	URLs map[models.Tier]string `json:"urls,omitempty"`
}

func newPhotoResponse(p models.Photo) photoResponse {
	resp := photoResponse{Photo: p}
	if p.ProcessingStatus == models.StatusCompleted {
		resp.URLs = make(map[models.Tier]string, len(models.Tiers))
		for _, tier := range models.Tiers {
			resp.URLs[tier] = path.Join("/files", p.GalleryID.String(), string(tier), p.Filename)
		}
	}
	return resp
}

// clientFilename drops any directories the client sent with the name.
func clientFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" || base == "" {
		return "upload"
	}
	return base
}

// tierNames lists the names a source can end up with in the tier
// directories. Without an extension the format is only known after probing,
// so both outcomes are reserved.
func tierNames(name string) []string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	switch {
	case ext == "":
		return []string{name, imageproc.OutputFilename(name, true)}
	case imageproc.NeedsConversion(ext):
		return []string{imageproc.OutputFilename(name, true)}
	default:
		return []string{name}
	}
}

// uniqueFilename keeps name as sent unless one of its tier names is already
// used in the gallery. Then a numeric suffix is added to the stem. The chosen
// name's tier names are added to taken.
func uniqueFilename(name string, taken map[string]bool) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name
	for n := 2; collides(candidate, taken); n++ {
		candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
	}
	for _, t := range tierNames(candidate) {
		taken[t] = true
	}
	return candidate
}

func collides(name string, taken map[string]bool) bool {
	for _, t := range tierNames(name) {
		if taken[t] {
			return true
		}
	}
	return false
}

func (s *Server) handleUpload(c *gin.Context) {
	const op = "server.handleUpload"
	ctx := c.Request.Context()

	galleryID, ok := parseID(c, op)
	if !ok {
		return
	}
	if _, err := s.db.GetGallery(ctx, galleryID); err != nil {
		s.storeError(c, op, err)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	files := form.File["photos"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: no files in field \"photos\"", op)})
		return
	}

	existing, err := s.db.ListPhotos(ctx, galleryID, false)
	if err != nil {
		s.storeError(c, op, err)
		return
	}
	taken := make(map[string]bool, len(existing)+len(files))
	for _, p := range existing {
		for _, name := range tierNames(p.Filename) {
			taken[name] = true
		}
	}

	tmp := filepath.Join(s.cfg.StoragePath, tmpDir)
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	photos := make([]*models.Photo, 0, len(files))
	tempPaths := make([]string, 0, len(files))
	cleanup := func() {
		for _, p := range tempPaths {
			os.Remove(p)
		}
	}
	for _, file := range files {
		id := uuid.New()
		tempPath := filepath.Join(tmp, id.String()+strings.ToLower(filepath.Ext(file.Filename)))
		if err := c.SaveUploadedFile(file, tempPath); err != nil {
			cleanup()
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
			return
		}
		tempPaths = append(tempPaths, tempPath)
		photos = append(photos, &models.Photo{ID: id, Filename: uniqueFilename(clientFilename(file.Filename), taken)})
	}

	if err := s.db.CreatePhotos(ctx, galleryID, photos); err != nil {
		cleanup()
		s.storeError(c, op, err)
		return
	}

	accepted := make([]photoResponse, 0, len(photos))
	var rejected []gin.H
	for i, p := range photos {
		job := worker.Job{PhotoID: p.ID, GalleryID: galleryID, TempPath: tempPaths[i], Filename: p.Filename}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			s.log.Error().Err(err).Str("photo_id", p.ID.String()).Msg("enqueue failed")
			if _, delErr := s.db.DeletePhoto(ctx, p.ID); delErr != nil {
				s.log.Error().Err(delErr).Str("photo_id", p.ID.String()).Msg("placeholder not removed")
			}
			os.Remove(tempPaths[i])
			rejected = append(rejected, gin.H{"filename": files[i].Filename, "error": err.Error()})
			continue
		}
		accepted = append(accepted, newPhotoResponse(*p))
	}

	status := http.StatusAccepted
	if len(accepted) == 0 {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"photos": accepted, "rejected": rejected})
}

func (s *Server) handleListPhotos(c *gin.Context) {
	s.listPhotos(c, "server.handleListPhotos", true)
}

func (s *Server) handleAdminListPhotos(c *gin.Context) {
	s.listPhotos(c, "server.handleAdminListPhotos", false)
}

func (s *Server) listPhotos(c *gin.Context, op string, onlyCompleted bool) {
	galleryID, ok := parseID(c, op)
	if !ok {
		return
	}
	photos, err := s.db.ListPhotos(c.Request.Context(), galleryID, onlyCompleted)
	if err != nil {
		s.storeError(c, op, err)
		return
	}

	resp := make([]photoResponse, 0, len(photos))
	for _, p := range photos {
		resp = append(resp, newPhotoResponse(p))
	}
	c.JSON(http.StatusOK, gin.H{"photos": resp})
}

func (s *Server) handleGetPhoto(c *gin.Context) {
	const op = "server.handleGetPhoto"
	id, ok := parseID(c, op)
	if !ok {
		return
	}

	p, err := s.db.GetPhoto(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, op, err)
		return
	}
	if p.ProcessingStatus != models.StatusCompleted {
		c.JSON(http.StatusAccepted, gin.H{"status": p.ProcessingStatus})
		return
	}
	c.JSON(http.StatusOK, newPhotoResponse(*p))
}

func (s *Server) handleDeletePhoto(c *gin.Context) {
	const op = "server.handleDeletePhoto"
	id, ok := parseID(c, op)
	if !ok {
		return
	}

	p, err := s.db.DeletePhoto(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, op, err)
		return
	}

	for _, tier := range models.Tiers {
		file := filepath.Join(s.cfg.StoragePath, models.TierPath(p.GalleryID.String(), tier, p.Filename))
		if err := os.Remove(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn().Err(err).Str("path", file).Msg("tier file not removed")
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) storeError(c *gin.Context, op string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, storage.ErrNotFound) {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
}

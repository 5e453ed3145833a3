package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"clientgallery/internal/models"
)

type createAdminRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type createGalleryRequest struct {
	Title string `json:"title" binding:"required"`
}

type textWatermarkRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) handleCreateAdmin(c *gin.Context) {
	const op = "server.handleCreateAdmin"

	var req createAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	admin := &models.AdminUser{ID: uuid.New(), Email: req.Email}
	if err := s.db.CreateAdmin(c.Request.Context(), admin); err != nil {
		s.storeError(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, admin)
}

func (s *Server) handleCreateGallery(c *gin.Context) {
	const op = "server.handleCreateGallery"
	adminID, ok := parseID(c, op)
	if !ok {
		return
	}

	var req createGalleryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	if _, err := s.db.GetAdmin(c.Request.Context(), adminID); err != nil {
		s.storeError(c, op, err)
		return
	}
	g := &models.Gallery{ID: uuid.New(), AdminID: adminID, Title: req.Title}
	if err := s.db.CreateGallery(c.Request.Context(), g); err != nil {
		s.storeError(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (s *Server) handleUploadWatermark(c *gin.Context) {
	const op = "server.handleUploadWatermark"
	adminID, ok := parseID(c, op)
	if !ok {
		return
	}
	if _, err := s.db.GetAdmin(c.Request.Context(), adminID); err != nil {
		s.storeError(c, op, err)
		return
	}

	file, err := c.FormFile("logo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	defer src.Close()

	rel, err := s.logos.SaveUpload(adminID, src)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	s.setWatermark(c, op, adminID, &rel)
}

func (s *Server) handleTextWatermark(c *gin.Context) {
	const op = "server.handleTextWatermark"
	adminID, ok := parseID(c, op)
	if !ok {
		return
	}

	var req textWatermarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	if _, err := s.db.GetAdmin(c.Request.Context(), adminID); err != nil {
		s.storeError(c, op, err)
		return
	}

	rel, err := s.logos.SaveText(adminID, req.Text)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	s.setWatermark(c, op, adminID, &rel)
}

// handleDeleteWatermark only clears the reference; photos already processed
// keep their watermark.
func (s *Server) handleDeleteWatermark(c *gin.Context) {
	const op = "server.handleDeleteWatermark"
	adminID, ok := parseID(c, op)
	if !ok {
		return
	}
	if err := s.db.SetWatermarkLogo(c.Request.Context(), adminID, nil); err != nil {
		s.storeError(c, op, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) setWatermark(c *gin.Context, op string, adminID uuid.UUID, rel *string) {
	if err := s.db.SetWatermarkLogo(c.Request.Context(), adminID, rel); err != nil {
		s.storeError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"watermark_logo_path": *rel})
}

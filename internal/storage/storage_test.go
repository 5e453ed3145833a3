package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clientgallery/internal/models"
)

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	s, err := NewStorage(context.Background(), dsn, zerolog.Nop())
	if err != nil {
		t.Skipf("db not available: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func createTestGallery(t *testing.T, s *Storage, logo *string) *models.Gallery {
	t.Helper()
	ctx := context.Background()

	admin := &models.AdminUser{
		ID:                uuid.New(),
		Email:             fmt.Sprintf("admin_%s@test.com", uuid.New().String()[:8]),
		WatermarkLogoPath: logo,
	}
	if err := s.CreateAdmin(ctx, admin); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	g := &models.Gallery{ID: uuid.New(), AdminID: admin.ID, Title: "Wedding"}
	if err := s.CreateGallery(ctx, g); err != nil {
		t.Fatalf("create gallery: %v", err)
	}
	return g
}

func TestPhotoLifecycle(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()
	g := createTestGallery(t, s, nil)

	photos := []*models.Photo{
		{ID: uuid.New(), Filename: "a.jpg"},
		{ID: uuid.New(), Filename: "b.jpg"},
	}
	if err := s.CreatePhotos(ctx, g.ID, photos); err != nil {
		t.Fatalf("CreatePhotos: %v", err)
	}
	if photos[0].UploadOrder != 0 || photos[1].UploadOrder != 1 {
		t.Fatalf("unexpected upload order: %d, %d", photos[0].UploadOrder, photos[1].UploadOrder)
	}

	more := []*models.Photo{{ID: uuid.New(), Filename: "c.jpg"}}
	if err := s.CreatePhotos(ctx, g.ID, more); err != nil {
		t.Fatalf("CreatePhotos second batch: %v", err)
	}
	if more[0].UploadOrder != 2 {
		t.Fatalf("second batch should continue ordering, got %d", more[0].UploadOrder)
	}

	id := photos[0].ID
	if err := s.TransitionStatus(ctx, id, models.StatusCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending -> completed should be rejected, got %v", err)
	}
	if err := s.TransitionStatus(ctx, id, models.StatusProcessing); err != nil {
		t.Fatalf("pending -> processing: %v", err)
	}
	if err := s.TransitionStatus(ctx, id, models.StatusProcessing); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("processing -> processing should be rejected, got %v", err)
	}

	meta := models.ProcessedMetadata{
		Filename: "a.jpg", FilePath: models.TierPath(g.ID.String(), models.TierOriginal, "a.jpg"),
		Width: 4000, Height: 3000, FileSize: 12345, MimeType: "image/jpeg",
	}
	if err := s.CompletePhoto(ctx, id, meta); err != nil {
		t.Fatalf("CompletePhoto: %v", err)
	}
	if err := s.TransitionStatus(ctx, id, models.StatusFailed); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("completed -> failed should be rejected, got %v", err)
	}

	got, err := s.GetPhoto(ctx, id)
	if err != nil {
		t.Fatalf("GetPhoto: %v", err)
	}
	if got.ProcessingStatus != models.StatusCompleted || got.Width != 4000 || got.MimeType != "image/jpeg" {
		t.Fatalf("unexpected photo: %+v", got)
	}

	visible, err := s.ListPhotos(ctx, g.ID, true)
	if err != nil {
		t.Fatalf("ListPhotos: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != id {
		t.Fatalf("client listing should only contain the completed photo, got %d", len(visible))
	}
	all, err := s.ListPhotos(ctx, g.ID, false)
	if err != nil {
		t.Fatalf("ListPhotos all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("admin listing should contain 3 photos, got %d", len(all))
	}
}

func TestDeletedPhotoIsNotResurrected(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()
	g := createTestGallery(t, s, nil)

	p := &models.Photo{ID: uuid.New(), Filename: "x.png"}
	if err := s.CreatePhotos(ctx, g.ID, []*models.Photo{p}); err != nil {
		t.Fatalf("CreatePhotos: %v", err)
	}
	if err := s.TransitionStatus(ctx, p.ID, models.StatusProcessing); err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if _, err := s.DeletePhoto(ctx, p.ID); err != nil {
		t.Fatalf("DeletePhoto: %v", err)
	}
	if err := s.TransitionStatus(ctx, p.ID, models.StatusFailed); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for deleted photo, got %v", err)
	}
	if _, err := s.GetPhoto(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWatermarkLogoForGallery(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	g := createTestGallery(t, s, nil)
	path, err := s.WatermarkLogoForGallery(ctx, g.ID)
	if err != nil || path != "" {
		t.Fatalf("expected no logo, got %q, %v", path, err)
	}

	logo := "watermarks/logo.png"
	if err := s.SetWatermarkLogo(ctx, g.AdminID, &logo); err != nil {
		t.Fatalf("SetWatermarkLogo: %v", err)
	}
	path, err = s.WatermarkLogoForGallery(ctx, g.ID)
	if err != nil || path != logo {
		t.Fatalf("expected %q, got %q, %v", logo, path, err)
	}

	if _, err := s.WatermarkLogoForGallery(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown gallery, got %v", err)
	}
}

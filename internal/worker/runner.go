package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clientgallery/internal/imageproc"
	"clientgallery/internal/models"
)

// statusWriteTimeout bounds the final status updates, which run even after
// the job's own deadline has expired.
const statusWriteTimeout = 10 * time.Second

type PhotoStore interface {
	TransitionStatus(ctx context.Context, id uuid.UUID, to models.ProcessingStatus) error
	CompletePhoto(ctx context.Context, id uuid.UUID, meta models.ProcessedMetadata) error
	WatermarkLogoForGallery(ctx context.Context, galleryID uuid.UUID) (string, error)
}

type Processor interface {
	Process(ctx context.Context, galleryID, sourcePath, filename, watermarkPath string) (*imageproc.ProcessedImage, error)
	Root() string
}

// Runner drives one photo through pending -> processing -> completed|failed.
// It is the only writer of a photo's processing status.
type Runner struct {
	store   PhotoStore
	proc    Processor
	timeout time.Duration
	log     zerolog.Logger

	statusTimeout time.Duration
}

func NewRunner(store PhotoStore, proc Processor, timeout time.Duration, log zerolog.Logger) *Runner {
	return &Runner{store: store, proc: proc, timeout: timeout, log: log, statusTimeout: statusWriteTimeout}
}

func (r *Runner) Run(ctx context.Context, job Job) (err error) {
	log := r.log.With().
		Str("photo_id", job.PhotoID.String()).
		Str("gallery_id", job.GalleryID.String()).
		Str("filename", job.Filename).
		Logger()
	ctx = log.WithContext(ctx)
	start := time.Now()

	defer func() {
		if rmErr := os.Remove(job.TempPath); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warn().Err(rmErr).Str("path", job.TempPath).Msg("temp file not removed")
		}
	}()

	if err := r.store.TransitionStatus(ctx, job.PhotoID, models.StatusProcessing); err != nil {
		log.Warn().Err(err).Msg("photo not claimable, skipping")
		return fmt.Errorf("worker.Run: claim: %w", err)
	}
	log.Info().Msg("processing started")

	defer func() {
		if err == nil {
			return
		}
		log.Error().Err(err).Dur("took", time.Since(start)).Msg("processing failed")
		r.markFailed(ctx, log, job.PhotoID)
	}()

	jobCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	watermark, err := r.watermarkPath(jobCtx, job.GalleryID)
	if err != nil {
		return fmt.Errorf("worker.Run: watermark: %w", err)
	}

	res, err := r.proc.Process(jobCtx, job.GalleryID.String(), job.TempPath, job.Filename, watermark)
	if err != nil {
		return fmt.Errorf("worker.Run: %w", err)
	}

	meta := models.ProcessedMetadata{
		Filename: res.Filename,
		FilePath: models.TierPath(job.GalleryID.String(), models.TierOriginal, res.Filename),
		Width:    res.Width,
		Height:   res.Height,
		FileSize: res.FileSize,
		MimeType: res.MimeType,
	}
	if err := r.complete(ctx, job.PhotoID, meta); err != nil {
		removeTiers(log, res.Sizes)
		return fmt.Errorf("worker.Run: complete: %w", err)
	}

	log.Info().
		Int("width", res.Width).
		Int("height", res.Height).
		Str("mime_type", res.MimeType).
		Dur("took", time.Since(start)).
		Msg("processing completed")
	return nil
}

// watermarkPath resolves the gallery owner's logo to an absolute path, or ""
// when the admin has none.
func (r *Runner) watermarkPath(ctx context.Context, galleryID uuid.UUID) (string, error) {
	rel, err := r.store.WatermarkLogoForGallery(ctx, galleryID)
	if err != nil || rel == "" {
		return "", err
	}
	if filepath.IsAbs(rel) {
		return rel, nil
	}
	return filepath.Join(r.proc.Root(), rel), nil
}

func (r *Runner) complete(ctx context.Context, id uuid.UUID, meta models.ProcessedMetadata) error {
	ctx, cancel := context.WithTimeout(detach(ctx), r.statusTimeout)
	defer cancel()
	return r.store.CompletePhoto(ctx, id, meta)
}

func (r *Runner) markFailed(ctx context.Context, log zerolog.Logger, id uuid.UUID) {
	ctx, cancel := context.WithTimeout(detach(ctx), r.statusTimeout)
	defer cancel()

	if err := r.store.TransitionStatus(ctx, id, models.StatusFailed); err != nil {
		log.Error().Err(err).Msg("failed to mark photo failed")
	}
}

// detach keeps values (the logger) but drops cancellation, so terminal status
// writes still happen after a timeout or shutdown.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func removeTiers(log zerolog.Logger, paths map[models.Tier]string) {
	for tier, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("tier", string(tier)).Msg("tier cleanup failed")
		}
	}
}

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"clientgallery/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid processing status transition")
)

type Storage struct {
	pool *pgxpool.Pool
}

func NewStorage(ctx context.Context, dsn string, log zerolog.Logger) (*Storage, error) {
	const op = "storage.NewStorage"

	if err := runMigrations(dsn, log); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const photoColumns = `id, gallery_id, filename, file_path, width, height, file_size, mime_type,
	processing_status, upload_order, created_at`

func (s *Storage) CreateAdmin(ctx context.Context, admin *models.AdminUser) error {
	const op = "storage.CreateAdmin"
	_, err := s.pool.Exec(ctx,
		`INSERT INTO admin_users (id, email, watermark_logo_path) VALUES ($1, $2, $3)`,
		admin.ID, admin.Email, admin.WatermarkLogoPath)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) GetAdmin(ctx context.Context, id uuid.UUID) (*models.AdminUser, error) {
	const op = "storage.GetAdmin"
	rows, _ := s.pool.Query(ctx,
		`SELECT id, email, watermark_logo_path FROM admin_users WHERE id = $1`, id)
	admin, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[models.AdminUser])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return admin, nil
}

// SetWatermarkLogo stores the admin's logo path relative to the storage root.
// A nil path removes the watermark.
func (s *Storage) SetWatermarkLogo(ctx context.Context, adminID uuid.UUID, path *string) error {
	const op = "storage.SetWatermarkLogo"
	tag, err := s.pool.Exec(ctx,
		`UPDATE admin_users SET watermark_logo_path = $2 WHERE id = $1`, adminID, path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// WatermarkLogoForGallery resolves the logo of the admin owning a gallery.
// It returns an empty string when the admin has none.
func (s *Storage) WatermarkLogoForGallery(ctx context.Context, galleryID uuid.UUID) (string, error) {
	const op = "storage.WatermarkLogoForGallery"
	var path *string
	err := s.pool.QueryRow(ctx,
		`SELECT a.watermark_logo_path
		 FROM galleries g JOIN admin_users a ON a.id = g.admin_id
		 WHERE g.id = $1`, galleryID).Scan(&path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, notFound(err))
	}
	if path == nil {
		return "", nil
	}
	return *path, nil
}

func (s *Storage) CreateGallery(ctx context.Context, g *models.Gallery) error {
	const op = "storage.CreateGallery"
	_, err := s.pool.Exec(ctx,
		`INSERT INTO galleries (id, admin_id, title) VALUES ($1, $2, $3)`, g.ID, g.AdminID, g.Title)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) GetGallery(ctx context.Context, id uuid.UUID) (*models.Gallery, error) {
	const op = "storage.GetGallery"
	rows, _ := s.pool.Query(ctx, `SELECT id, admin_id, title FROM galleries WHERE id = $1`, id)
	g, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[models.Gallery])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return g, nil
}

// CreatePhotos inserts placeholder rows for one upload batch. Upload order
// continues after the gallery's current maximum; the gallery row is locked so
// concurrent batches do not interleave.
func (s *Storage) CreatePhotos(ctx context.Context, galleryID uuid.UUID, photos []*models.Photo) error {
	const op = "storage.CreatePhotos"

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var locked uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM galleries WHERE id = $1 FOR UPDATE`, galleryID).Scan(&locked); err != nil {
			return notFound(err)
		}

		var next int
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(upload_order) + 1, 0) FROM photos WHERE gallery_id = $1`, galleryID).Scan(&next); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for i, p := range photos {
			p.GalleryID = galleryID
			p.UploadOrder = next + i
			p.ProcessingStatus = models.StatusPending
			batch.Queue(
				`INSERT INTO photos (id, gallery_id, filename, processing_status, upload_order)
				 VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
				p.ID, p.GalleryID, p.Filename, p.ProcessingStatus, p.UploadOrder,
			).QueryRow(func(row pgx.Row) error {
				return row.Scan(&p.CreatedAt)
			})
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) GetPhoto(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	const op = "storage.GetPhoto"
	rows, _ := s.pool.Query(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = $1`, id)
	p, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Photo])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return p, nil
}

// ListPhotos returns a gallery's photos in upload order. Client listings pass
// onlyCompleted so unfinished and failed photos stay hidden.
func (s *Storage) ListPhotos(ctx context.Context, galleryID uuid.UUID, onlyCompleted bool) ([]models.Photo, error) {
	const op = "storage.ListPhotos"

	query := `SELECT ` + photoColumns + ` FROM photos WHERE gallery_id = $1`
	args := []any{galleryID}
	if onlyCompleted {
		query += ` AND processing_status = $2`
		args = append(args, models.StatusCompleted)
	}
	query += ` ORDER BY upload_order, created_at`

	rows, _ := s.pool.Query(ctx, query, args...)
	photos, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Photo])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return photos, nil
}

// TransitionStatus moves a photo to status to. The update only matches when
// the row still exists and sits in the single allowed predecessor state.
func (s *Storage) TransitionStatus(ctx context.Context, id uuid.UUID, to models.ProcessingStatus) error {
	const op = "storage.TransitionStatus"

	from, ok := models.Predecessor(to)
	if !ok {
		return fmt.Errorf("%s: to %s: %w", op, to, ErrInvalidTransition)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE photos SET processing_status = $3 WHERE id = $1 AND processing_status = $2`,
		id, from, to)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %s -> %s: %w", op, from, to, ErrInvalidTransition)
	}
	return nil
}

// CompletePhoto persists the derived metadata and marks the photo completed
// in one statement.
func (s *Storage) CompletePhoto(ctx context.Context, id uuid.UUID, meta models.ProcessedMetadata) error {
	const op = "storage.CompletePhoto"
	tag, err := s.pool.Exec(ctx,
		`UPDATE photos
		 SET filename = $2, file_path = $3, width = $4, height = $5, file_size = $6, mime_type = $7,
		     processing_status = $8
		 WHERE id = $1 AND processing_status = $9`,
		id, meta.Filename, meta.FilePath, meta.Width, meta.Height, meta.FileSize, meta.MimeType,
		models.StatusCompleted, models.StatusProcessing)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrInvalidTransition)
	}
	return nil
}

// DeletePhoto removes the row and returns it so the caller can remove files.
func (s *Storage) DeletePhoto(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	const op = "storage.DeletePhoto"
	rows, _ := s.pool.Query(ctx, `DELETE FROM photos WHERE id = $1 RETURNING `+photoColumns, id)
	p, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Photo])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return p, nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

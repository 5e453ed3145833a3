package models

import (
	"time"

	"github.com/google/uuid"
)

type Photo struct {
	ID               uuid.UUID        `db:"id" json:"id"`
	GalleryID        uuid.UUID        `db:"gallery_id" json:"gallery_id"`
	Filename         string           `db:"filename" json:"filename"`
	FilePath         string           `db:"file_path" json:"file_path"` // original tier, relative to storage root
	Width            int              `db:"width" json:"width"`
	Height           int              `db:"height" json:"height"`
	FileSize         int64            `db:"file_size" json:"file_size"`
	MimeType         string           `db:"mime_type" json:"mime_type"`
	ProcessingStatus ProcessingStatus `db:"processing_status" json:"processing_status"`
	UploadOrder      int              `db:"upload_order" json:"upload_order"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}

type Gallery struct {
	ID      uuid.UUID `db:"id" json:"id"`
	AdminID uuid.UUID `db:"admin_id" json:"admin_id"`
	Title   string    `db:"title" json:"title"`
}

// AdminUser owns galleries. WatermarkLogoPath is relative to the storage root.
type AdminUser struct {
	ID                uuid.UUID `db:"id" json:"id"`
	Email             string    `db:"email" json:"email"`
	WatermarkLogoPath *string   `db:"watermark_logo_path" json:"watermark_logo_path,omitempty"`
}

// ProcessedMetadata is what the pipeline hands back for persisting on a photo row.
type ProcessedMetadata struct {
	Filename string
	FilePath string
	Width    int
	Height   int
	FileSize int64
	MimeType string
}

package models

import "path/filepath"

// Tier is one of the four stored renditions of a photo.
type Tier string

const (
	TierThumbnail Tier = "thumbnail"
	TierPreview   Tier = "preview"
	TierWeb       Tier = "web"
	TierOriginal  Tier = "original"
)

// Tiers lists every tier in generation order. Original is last so its size
// can be read once everything else is on disk.
var Tiers = []Tier{TierThumbnail, TierPreview, TierWeb, TierOriginal}

// TierPath returns the path of a tier file relative to the storage root.
func TierPath(galleryID string, tier Tier, filename string) string {
	return filepath.Join(galleryID, string(tier), filename)
}

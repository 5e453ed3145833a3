package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// maxPreviewCandidates bounds how many embedded JPEG streams are inspected in
// a single RAW container.
const maxPreviewCandidates = 64

var ErrNoPreview = errors.New("no decodable embedded preview")

// Metadata is what probing learns about a source file before decoding it.
// Width and Height are zero when the container cannot report them up front.
type Metadata struct {
	Format string
	Width  int
	Height int
}

// Probe reads the format tag and dimensions of a source image. Camera RAW and
// HEIC containers are recognized by the extension of nameHint, everything
// else by content. An unrecognized file yields an empty format tag.
func Probe(path, nameHint string) (Metadata, error) {
	const op = "imageproc.Probe"

	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(nameHint), "."))
	if _, ok := convertFormats[ext]; ok {
		return Metadata{Format: ext}, nil
	}

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Metadata{}, nil
	}
	return Metadata{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Decode loads the full source image. Natively supported formats go through
// imaging with EXIF orientation applied; converted formats use the largest
// JPEG preview embedded in the container.
func Decode(path string, meta Metadata) (image.Image, error) {
	const op = "imageproc.Decode"

	if !NeedsConversion(meta.Format) {
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	img, err := decodeEmbeddedPreview(data)
	if err != nil {
		return nil, fmt.Errorf("%s: format %q: %w", op, meta.Format, err)
	}
	return img, nil
}

func decodeEmbeddedPreview(data []byte) (image.Image, error) {
	soi := []byte{0xFF, 0xD8, 0xFF}

	best, bestArea := -1, 0
	offset, seen := 0, 0
	for seen < maxPreviewCandidates {
		i := bytes.Index(data[offset:], soi)
		if i < 0 {
			break
		}
		start := offset + i
		seen++
		offset = start + len(soi)

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data[start:]))
		if err != nil {
			continue
		}
		if area := cfg.Width * cfg.Height; area > bestArea {
			best, bestArea = start, area
		}
	}
	if best < 0 {
		return nil, ErrNoPreview
	}
	return jpeg.Decode(bytes.NewReader(data[best:]))
}

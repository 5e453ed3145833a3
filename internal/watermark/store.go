// Package watermark manages the per-admin logo that the image pipeline
// composites onto thumbnail, preview and web tiers.
package watermark

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dir          = "watermarks"
	textFontSize = 96.0
	textPadding  = 16
	maxTextRunes = 64
)

var ErrEmptyText = errors.New("watermark text is empty")

// Store writes admin logos below root/watermarks. Logos are always stored as
// PNG so transparency survives.
type Store struct {
	root string
	font *truetype.Font
}

func NewStore(root string) (*Store, error) {
	f, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("watermark.NewStore: %w", err)
	}
	return &Store{root: root, font: f}, nil
}

// RelPath is the logo location relative to the storage root, as persisted on
// the admin record.
func RelPath(adminID uuid.UUID) string {
	return filepath.Join(dir, adminID.String()+".png")
}

// SaveUpload validates an uploaded logo and stores it for adminID.
func (s *Store) SaveUpload(adminID uuid.UUID, r io.Reader) (string, error) {
	const op = "watermark.Store.SaveUpload"

	img, err := imaging.Decode(r)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := s.save(adminID, img); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return RelPath(adminID), nil
}

// SaveText renders text as a logo for admins without an image of their own.
func (s *Store) SaveText(adminID uuid.UUID, text string) (string, error) {
	const op = "watermark.Store.SaveText"

	img, err := s.RenderText(text)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := s.save(adminID, img); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return RelPath(adminID), nil
}

// RenderText draws text in white with a soft shadow on a transparent canvas
// sized to fit it.
func (s *Store) RenderText(text string) (*image.NRGBA, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if r := []rune(text); len(r) > maxTextRunes {
		text = string(r[:maxTextRunes])
	}

	face := truetype.NewFace(s.font, &truetype.Options{Size: textFontSize, DPI: 72})
	defer face.Close()
	metrics := face.Metrics()
	width := font.MeasureString(face, text).Ceil() + 2*textPadding
	height := (metrics.Ascent + metrics.Descent).Ceil() + 2*textPadding

	canvas := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.Transparent, image.Point{}, draw.Src)

	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(s.font)
	c.SetFontSize(textFontSize)
	c.SetClip(canvas.Bounds())
	c.SetDst(canvas)
	c.SetHinting(font.HintingFull)

	baseline := textPadding + metrics.Ascent.Ceil()
	layers := []struct {
		offset int
		color  color.Color
	}{
		{2, color.NRGBA{A: 110}},
		{0, color.NRGBA{R: 255, G: 255, B: 255, A: 210}},
	}
	for _, l := range layers {
		c.SetSrc(image.NewUniform(l.color))
		if _, err := c.DrawString(text, freetype.Pt(textPadding+l.offset, baseline+l.offset)); err != nil {
			return nil, err
		}
	}
	return canvas, nil
}

func (s *Store) save(adminID uuid.UUID, img image.Image) error {
	dst := filepath.Join(s.root, RelPath(adminID))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".logo-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := imaging.Encode(tmp, img, imaging.PNG); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return err
	}
	return os.Chmod(dst, 0o644)
}

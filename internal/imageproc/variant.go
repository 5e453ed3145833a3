package imageproc

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"clientgallery/internal/models"
)

// originalConvertQuality is used when the original tier has to be re-encoded.
const originalConvertQuality = 95

type Fit int

const (
	FitNone   Fit = iota // stored as is
	FitCover             // crop to fill a MaxDim square
	FitInside            // bound inside a MaxDim square, never enlarge
)

type TierSpec struct {
	Tier      models.Tier
	Fit       Fit
	MaxDim    int
	Watermark bool
}

type Sizes struct {
	Thumbnail int
	Preview   int
	Web       int
}

// Source is one decoded upload ready for tier generation.
type Source struct {
	GalleryID string
	Path      string
	Image     image.Image
	Filename  string // output filename, already rewritten on conversion
	Format    string // output encoding
	Convert   bool
}

// Generator renders single tiers to disk under root.
type Generator struct {
	root       string
	specs      []TierSpec
	quality    int
	compositor *Compositor
}

func NewGenerator(root string, sizes Sizes, quality int, compositor *Compositor) (*Generator, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("imageproc.NewGenerator: %w", err)
	}
	return &Generator{
		root: abs,
		specs: []TierSpec{
			{Tier: models.TierThumbnail, Fit: FitCover, MaxDim: sizes.Thumbnail, Watermark: true},
			{Tier: models.TierPreview, Fit: FitInside, MaxDim: sizes.Preview, Watermark: true},
			{Tier: models.TierWeb, Fit: FitInside, MaxDim: sizes.Web, Watermark: true},
			{Tier: models.TierOriginal, Fit: FitNone},
		},
		quality:    quality,
		compositor: compositor,
	}, nil
}

func (g *Generator) Root() string { return g.root }

func (g *Generator) Specs() []TierSpec { return g.specs }

func (g *Generator) TierDir(galleryID string, tier models.Tier) string {
	return filepath.Join(g.root, galleryID, string(tier))
}

// EnsureDirs creates every tier directory of a gallery. Safe to call
// concurrently for the same gallery.
func (g *Generator) EnsureDirs(ctx context.Context, galleryID string) error {
	const op = "imageproc.Generator.EnsureDirs"

	for _, tier := range models.Tiers {
		dir := g.TierDir(galleryID, tier)
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		chmodBestEffort(ctx, dir, dirPerm)
	}
	return nil
}

// Generate writes one tier of src and returns its absolute path.
// watermarkPath is ignored for tiers that are never watermarked.
func (g *Generator) Generate(ctx context.Context, spec TierSpec, src Source, watermarkPath string) (string, error) {
	op := "imageproc.Generator.Generate." + string(spec.Tier)

	dst := filepath.Join(g.TierDir(src.GalleryID, spec.Tier), src.Filename)

	if spec.Fit == FitNone {
		if err := g.writeOriginal(ctx, src, dst); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		return dst, nil
	}

	out := resize(src.Image, spec)
	if spec.Watermark && watermarkPath != "" {
		out = g.compositor.Apply(ctx, out, sizeOf(src.Image), watermarkPath, spec.MaxDim)
	}

	err := writeFile(ctx, dst, func(w io.Writer) error {
		return encode(w, out, src.Format, g.quality)
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("tier", string(spec.Tier)).
		Int("width", out.Bounds().Dx()).
		Int("height", out.Bounds().Dy()).
		Str("path", dst).
		Msg("tier written")
	return dst, nil
}

func (g *Generator) writeOriginal(ctx context.Context, src Source, dst string) error {
	if !src.Convert {
		return copyFile(ctx, src.Path, dst)
	}
	return writeFile(ctx, dst, func(w io.Writer) error {
		return encode(w, src.Image, "jpeg", originalConvertQuality)
	})
}

func resize(img image.Image, spec TierSpec) image.Image {
	switch spec.Fit {
	case FitCover:
		return imaging.Fill(img, spec.MaxDim, spec.MaxDim, imaging.Center, imaging.Lanczos)
	case FitInside:
		return imaging.Fit(img, spec.MaxDim, spec.MaxDim, imaging.Lanczos)
	}
	return img
}

func encode(w io.Writer, img image.Image, format string, quality int) error {
	switch format {
	case "jpeg":
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case "png":
		return imaging.Encode(w, img, imaging.PNG)
	case "gif":
		return imaging.Encode(w, img, imaging.GIF)
	case "tiff":
		return imaging.Encode(w, img, imaging.TIFF)
	case "bmp":
		return imaging.Encode(w, img, imaging.BMP)
	case "webp":
		return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
	}
	return fmt.Errorf("unsupported output format %q", format)
}

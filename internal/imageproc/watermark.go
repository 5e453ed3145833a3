package imageproc

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

const (
	watermarkWidthRatio  = 0.15
	watermarkMinWidth    = 50
	watermarkBottomRatio = 0.03
)

type Size struct {
	Width  int
	Height int
}

func sizeOf(img image.Image) Size {
	b := img.Bounds()
	return Size{Width: b.Dx(), Height: b.Dy()}
}

// TargetSize is the canvas an inside fit without enlargement produces for src
// inside a maxDim square. Zero source dimensions fall back to maxDim.
func TargetSize(src Size, maxDim int) Size {
	w, h := src.Width, src.Height
	if w <= 0 {
		w = maxDim
	}
	if h <= 0 {
		h = maxDim
	}
	scale := math.Min(math.Min(float64(maxDim)/float64(w), float64(maxDim)/float64(h)), 1)
	return Size{
		Width:  int(math.Round(float64(w) * scale)),
		Height: int(math.Round(float64(h) * scale)),
	}
}

// WatermarkWidth is 15% of the target width, never below 50px.
func WatermarkWidth(target Size) int {
	w := int(math.Floor(float64(target.Width) * watermarkWidthRatio))
	if w < watermarkMinWidth {
		return watermarkMinWidth
	}
	return w
}

// Placement centers the watermark horizontally and lifts it 3% of the target
// height off the bottom edge.
func Placement(target, wm Size) image.Point {
	return image.Point{
		X: int(math.Floor(float64(target.Width-wm.Width) / 2)),
		Y: target.Height - wm.Height - int(math.Floor(float64(target.Height)*watermarkBottomRatio)),
	}
}

type cachedWatermark struct {
	modTime time.Time
	size    int64
	img     image.Image
}

// Compositor overlays an admin's logo onto resized tiers. Decoded logos are
// cached by path and invalidated when the file changes.
type Compositor struct {
	cache sync.Map // path -> cachedWatermark
}

func NewCompositor() *Compositor {
	return &Compositor{}
}

// Apply composites the watermark at watermarkPath onto base. src is the size
// of the image base was resized from and maxDim the bounding dimension of
// that resize. Any failure is logged and base is returned as is.
func (c *Compositor) Apply(ctx context.Context, base image.Image, src Size, watermarkPath string, maxDim int) image.Image {
	log := zerolog.Ctx(ctx)
	actual := sizeOf(base)
	if maxDim <= 0 {
		maxDim = max(actual.Width, actual.Height)
	}

	wm, err := c.load(watermarkPath)
	if err != nil {
		log.Warn().Err(err).Str("watermark", watermarkPath).Msg("watermark skipped")
		return base
	}

	target := TargetSize(src, maxDim)
	resized := imaging.Resize(wm, WatermarkWidth(target), 0, imaging.Lanczos)
	wmSize := sizeOf(resized)
	if wmSize.Width == 0 || wmSize.Height == 0 {
		log.Warn().Str("watermark", watermarkPath).Msg("watermark resized to empty image, skipped")
		return base
	}
	pos := Placement(target, wmSize)

	log.Debug().
		Int("base_w", actual.Width).Int("base_h", actual.Height).
		Int("target_w", target.Width).Int("target_h", target.Height).
		Int("wm_w", wmSize.Width).Int("wm_h", wmSize.Height).
		Int("left", pos.X).Int("top", pos.Y).
		Msg("watermark applied")

	return imaging.Overlay(base, resized, pos, 1.0)
}

func (c *Compositor) load(path string) (image.Image, error) {
	const op = "imageproc.Compositor.load"

	if path == "" {
		return nil, fmt.Errorf("%s: empty watermark path", op)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if v, ok := c.cache.Load(path); ok {
		cw := v.(cachedWatermark)
		if cw.modTime.Equal(info.ModTime()) && cw.size == info.Size() {
			return cw.img, nil
		}
	}

	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.cache.Store(path, cachedWatermark{modTime: info.ModTime(), size: info.Size(), img: img})
	return img, nil
}

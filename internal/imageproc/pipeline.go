package imageproc

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"clientgallery/internal/models"
)

// ProcessedImage is the outcome of one successful pipeline run.
type ProcessedImage struct {
	Sizes    map[models.Tier]string // absolute tier paths
	Filename string
	Width    int
	Height   int
	MimeType string
	FileSize int64
}

type Pipeline struct {
	gen *Generator
}

func NewPipeline(gen *Generator) *Pipeline {
	return &Pipeline{gen: gen}
}

func (p *Pipeline) Root() string { return p.gen.Root() }

// Process derives all four tiers of one uploaded image. watermarkPath may be
// empty. On error every tier file written by this call is removed again;
// the source file is left for the caller.
func (p *Pipeline) Process(ctx context.Context, galleryID, sourcePath, filename, watermarkPath string) (_ *ProcessedImage, err error) {
	const op = "imageproc.Pipeline.Process"
	log := zerolog.Ctx(ctx)
	start := time.Now()

	var written []string
	defer func() {
		if err == nil {
			return
		}
		for _, path := range written {
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Warn().Err(rmErr).Str("path", path).Msg("cleanup of partial tier failed")
			}
		}
	}()

	if err := p.gen.EnsureDirs(ctx, galleryID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	meta, err := Probe(sourcePath, filename)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	convert := NeedsConversion(meta.Format)
	outName := OutputFilename(filename, convert)
	outFormat := OutputFormat(meta.Format, convert)
	log.Debug().
		Str("format", meta.Format).
		Bool("convert", convert).
		Str("output", outName).
		Msg("source probed")

	img, err := Decode(sourcePath, meta)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	src := Source{
		GalleryID: galleryID,
		Path:      sourcePath,
		Image:     img,
		Filename:  outName,
		Format:    outFormat,
		Convert:   convert,
	}

	sizes := make(map[models.Tier]string, len(models.Tiers))
	for _, spec := range p.gen.Specs() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		path, err := p.gen.Generate(ctx, spec, src, watermarkPath)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		written = append(written, path)
		sizes[spec.Tier] = path
	}

	info, err := os.Stat(sizes[models.TierOriginal])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	bounds := img.Bounds()
	result := &ProcessedImage{
		Sizes:    sizes,
		Filename: outName,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		MimeType: MimeType(outFormat),
		FileSize: info.Size(),
	}
	log.Info().
		Int("width", result.Width).
		Int("height", result.Height).
		Int64("file_size", result.FileSize).
		Dur("took", time.Since(start)).
		Msg("derivatives generated")
	return result, nil
}

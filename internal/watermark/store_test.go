package watermark

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	s, err := NewStore(root)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s, root
}

func TestRenderText(t *testing.T) {
	s, _ := newTestStore(t)

	img, err := s.RenderText("Studio Lumen")
	if err != nil {
		t.Fatalf("RenderText: %v", err)
	}
	b := img.Bounds()
	if b.Dx() <= b.Dy() {
		t.Fatalf("text logo should be wider than tall, got %v", b)
	}

	var opaque int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y).A > 0 {
				opaque++
			}
		}
	}
	if opaque == 0 {
		t.Fatal("no glyph pixels were drawn")
	}
	if corner := img.NRGBAAt(0, 0); corner.A != 0 {
		t.Fatalf("background should stay transparent, got %+v", corner)
	}
}

func TestRenderTextRejectsBlank(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.RenderText("   "); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestSaveUploadStoresPNG(t *testing.T) {
	s, root := newTestStore(t)
	adminID := uuid.New()

	src := image.NewNRGBA(image.Rect(0, 0, 40, 20))
	src.Set(1, 1, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode: %v", err)
	}

	rel, err := s.SaveUpload(adminID, &buf)
	if err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}
	if rel != filepath.Join("watermarks", adminID.String()+".png") {
		t.Fatalf("unexpected relative path %q", rel)
	}

	f, err := os.Open(filepath.Join(root, rel))
	if err != nil {
		t.Fatalf("open stored logo: %v", err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode stored logo: %v", err)
	}
	if format != "png" || cfg.Width != 40 || cfg.Height != 20 {
		t.Fatalf("stored logo is %s %dx%d", format, cfg.Width, cfg.Height)
	}
}

func TestSaveUploadRejectsGarbage(t *testing.T) {
	s, root := newTestStore(t)
	adminID := uuid.New()

	if _, err := s.SaveUpload(adminID, bytes.NewReader([]byte("not an image"))); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := os.Stat(filepath.Join(root, RelPath(adminID))); !os.IsNotExist(err) {
		t.Fatalf("nothing should be stored on failure (stat err: %v)", err)
	}
}

func TestSaveTextOverwritesPreviousLogo(t *testing.T) {
	s, root := newTestStore(t)
	adminID := uuid.New()

	if _, err := s.SaveText(adminID, "A"); err != nil {
		t.Fatalf("SaveText: %v", err)
	}
	first, _ := os.Stat(filepath.Join(root, RelPath(adminID)))

	if _, err := s.SaveText(adminID, "A much longer studio name"); err != nil {
		t.Fatalf("SaveText again: %v", err)
	}
	second, _ := os.Stat(filepath.Join(root, RelPath(adminID)))
	if first == nil || second == nil || second.Size() <= first.Size() {
		t.Fatal("expected the logo file to be replaced by the longer text rendering")
	}
}

package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func solidImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func writeTestFile(t *testing.T, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

func jpegBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solidImage(w, h, c), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func createTestJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	writeTestFile(t, path, jpegBytes(t, w, h, color.NRGBA{R: 200, G: 100, B: 50, A: 255}))
}

func createTestPNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, solidImage(w, h, c)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	writeTestFile(t, path, buf.Bytes())
}

// createTestRAW builds a TIFF-like container with two embedded JPEG
// previews, the larger one being w x h.
func createTestRAW(t *testing.T, path string, w, h int) {
	t.Helper()

	var buf bytes.Buffer
	buf.Write([]byte{'I', 'I', 42, 0, 8, 0, 0, 0})
	buf.Write(bytes.Repeat([]byte{0}, 128))
	buf.Write(jpegBytes(t, w/4, h/4, color.NRGBA{G: 255, A: 255}))
	buf.Write(bytes.Repeat([]byte{0x11}, 64))
	buf.Write(jpegBytes(t, w, h, color.NRGBA{R: 255, A: 255}))
	buf.Write([]byte{0xFF, 0xD8, 0xFF, 0x00, 0x01}) // truncated stream
	writeTestFile(t, path, buf.Bytes())
}

func imageSize(t *testing.T, path string) (int, int) {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode config %s: %v", path, err)
	}
	return cfg.Width, cfg.Height
}

func imageFormat(t *testing.T, path string) (image.Config, string) {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode config %s: %v", path, err)
	}
	return cfg, format
}

package imageproc

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

const (
	filePerm os.FileMode = 0o644
	dirPerm  os.FileMode = 0o755
)

// writeFile writes through a temp file in the destination directory and
// renames it into place, so a reader never sees a half written tier.
func writeFile(ctx context.Context, dst string, write func(io.Writer) error) error {
	const op = "imageproc.writeFile"

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	chmodBestEffort(ctx, dst, filePerm)
	return nil
}

func copyFile(ctx context.Context, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("imageproc.copyFile: %w", err)
	}
	defer in.Close()

	return writeFile(ctx, dst, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}

func chmodBestEffort(ctx context.Context, path string, mode os.FileMode) {
	if err := os.Chmod(path, mode); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("chmod failed")
	}
}

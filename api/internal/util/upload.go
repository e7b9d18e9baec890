package util

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// SaveUpload copies src into dir as <uuid><ext> and returns the new path.
// ext keeps the client's spelling; an empty ext falls back to def.
func SaveUpload(dir, ext, def string, src io.Reader) (string, error) {
	if ext == "" || ext == "." {
		ext = def
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	dst := filepath.Join(dir, uuid.NewString()+ext)
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return dst, nil
}

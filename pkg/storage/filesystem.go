package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage persists tiles and manifests on disk under a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "wms_images"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// BaseDir returns the directory files are written under.
func (s *LocalStorage) BaseDir() string {
	return s.baseDir
}

// Save writes the given bytes to the provided relative path under the base dir.
func (s *LocalStorage) Save(filename string, data []byte) (string, error) {
	return s.write(filename, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// SaveWith hands a writer to fn and publishes the file only if fn succeeds.
func (s *LocalStorage) SaveWith(filename string, fn func(io.Writer) error) (string, error) {
	return s.write(filename, fn)
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(filename string) (*os.File, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	return file, nil
}

// Path exposes the path a relative filename maps to.
func (s *LocalStorage) Path(filename string) string {
	path, err := s.resolve(filename)
	if err != nil {
		return ""
	}
	return path
}

// write streams into a temp file next to the target and renames it into
// place, so readers never observe a half-written tile.
func (s *LocalStorage) write(filename string, fn func(io.Writer) error) (string, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare output directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if err := fn(tmp); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", filename, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("chmod %s: %w", filename, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("publish %s: %w", filename, err)
	}
	return filename, nil
}

func (s *LocalStorage) resolve(filename string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(filename))
	if filename == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage path %q", filename)
	}
	return filepath.Join(s.baseDir, clean), nil
}

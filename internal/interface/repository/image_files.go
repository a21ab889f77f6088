package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"fareanomaly-service/internal/domain/repository"
)

// FileImageSource implements ImageSource over a local images directory.
// Record names are file names; no traversal outside the directory.
type FileImageSource struct {
	dir string
}

// NewFileImageSource creates a new file-backed image source
func NewFileImageSource(dir string) repository.ImageSource {
	return &FileImageSource{
		dir: dir,
	}
}

// Load reads the stored bytes of an image by record name
func (s *FileImageSource) Load(_ context.Context, name string) ([]byte, error) {
	if filepath.Base(name) != name {
		return nil, fmt.Errorf("invalid image name %q", name)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", name, err)
	}
	return data, nil
}

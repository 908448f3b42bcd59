// Package source stages model artifacts into the model directory before the
// model is loaded.
package source

import (
	"context"
	"fmt"
	"os"

	"github.com/ekisa-team/visionhook/internal/config"
)

// Stager places a model artifact into a model directory.
type Stager interface {
	// Stage populates modelDir and returns the directory to load from, and whether
	// an up-to-date copy was already present.
	Stage(ctx context.Context, src config.ModelSource, modelDir string) (string, bool, error)
}

// Get returns the stager for a source type.
func Get(sourceType config.SourceType) (Stager, error) {
	switch sourceType {
	case config.SourceTypeLocal:
		return &LocalStager{}, nil
	case config.SourceTypeArchive:
		return &ArchiveStager{}, nil
	case config.SourceTypeHuggingFace:
		return NewHuggingFaceStager(ExecCommandRunner{}), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownSource, sourceType)
}

// EnsureDirectory creates dir if needed.
func EnsureDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// LocalStager uses the model directory as it is.
type LocalStager struct{}

// Stage implements Stager. The directory must already exist.
func (s *LocalStager) Stage(_ context.Context, _ config.ModelSource, modelDir string) (string, bool, error) {
	info, err := os.Stat(modelDir)
	if err != nil {
		return "", false, err
	}
	if !info.IsDir() {
		return "", false, fmt.Errorf("%w: %s", ErrNotDirectory, modelDir)
	}

	return modelDir, true, nil
}

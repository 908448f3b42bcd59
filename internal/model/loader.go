package model

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Loader deserializes the model artifact of one configured format from a model directory.
type Loader struct {
	runtimes *Registry
	format   Format
}

// NewLoader creates a loader that opens models of the given format.
func NewLoader(runtimes *Registry, format Format) *Loader {
	return &Loader{
		runtimes: runtimes,
		format:   format,
	}
}

// Load reads the runtime's fixed artifact from modelDir, deserializes it and switches
// it to evaluation mode. Errors from the runtime are returned wrapped but untranslated;
// a missing artifact matches fs.ErrNotExist.
func (l *Loader) Load(modelDir string) (Model, error) {
	rt, ok := l.runtimes.Get(l.format)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRuntimeNotFound, l.format)
	}

	path := filepath.Join(modelDir, rt.Filename())
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model artifact: %w", err)
	}

	m, err := rt.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s model %s: %w", l.format, path, err)
	}

	m.Eval()

	slog.Info("Model loaded", "format", l.format, "path", path)
	return m, nil
}

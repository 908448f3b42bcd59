package source

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/ekisa-team/visionhook/internal/config"
)

const markerFilename = ".visionhook-staged"

// ArchiveStager extracts a model.tar.gz into the model directory.
type ArchiveStager struct{}

// Stage implements Stager.
func (s *ArchiveStager) Stage(ctx context.Context, src config.ModelSource, modelDir string) (string, bool, error) {
	archive, ok := src.(config.ArchiveSource)
	if !ok {
		return "", false, fmt.Errorf("%w: %T", ErrInvalidSource, src)
	}

	info, err := os.Stat(archive.Path)
	if err != nil {
		return "", false, fmt.Errorf("failed to stat archive: %w", err)
	}

	markerPath := filepath.Join(modelDir, markerFilename)
	marker := fmt.Sprintf("archive: %s\nsize: %d\nmodified: %d\n", archive.Path, info.Size(), info.ModTime().UnixNano())

	if content, err := os.ReadFile(markerPath); err == nil && string(content) == marker {
		slog.Info("Model archive already extracted (marker match), skipping", "archive", archive.Path, "path", modelDir)
		return modelDir, true, nil
	}

	if err := EnsureDirectory(modelDir); err != nil {
		return "", false, err
	}

	slog.Info("Extracting model archive", "archive", archive.Path, "path", modelDir)
	if err := extract(ctx, archive.Path, modelDir); err != nil {
		return "", false, err
	}

	if err := os.WriteFile(markerPath, []byte(marker), 0o644); err != nil {
		slog.Warn("Failed to write stage marker", "path", markerPath, "error", err)
	}

	return modelDir, false, nil
}

func extract(ctx context.Context, archivePath, dst string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read gzip stream: %w", err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return fmt.Errorf("%w: %s", ErrUnsafeArchive, hdr.Name)
		}
		if err != nil {
			return fmt.Errorf("failed to read archive entry: %w", err)
		}

		target, err := safeJoin(dst, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		default:
			slog.Debug("Skipping archive entry", "name", hdr.Name, "type", hdr.Typeflag)
		}
	}
}

func writeFile(path string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm|0o600)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return out.Close()
}

// safeJoin joins name onto dir, rejecting entries that would land outside dir.
func safeJoin(dir, name string) (string, error) {
	target := filepath.Join(dir, name)

	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchive, name)
	}

	return target, nil
}

package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ekisa-team/visionhook/internal/config"
)

const (
	defaultRetryDelay = 2 * time.Second
	defaultMaxRetries = 3
	defaultTimeout    = 5 * time.Minute
	hfBinary          = "hf"
)

// HuggingFaceStager downloads a Hugging Face repository with the hf CLI.
type HuggingFaceStager struct {
	runner     CommandRunner
	retryDelay time.Duration
	maxRetries uint64
	timeout    time.Duration
}

// NewHuggingFaceStager creates a stager that runs the hf CLI through runner.
func NewHuggingFaceStager(runner CommandRunner) *HuggingFaceStager {
	return &HuggingFaceStager{
		runner:     runner,
		retryDelay: defaultRetryDelay,
		maxRetries: defaultMaxRetries,
		timeout:    defaultTimeout,
	}
}

// Stage implements Stager.
func (s *HuggingFaceStager) Stage(ctx context.Context, src config.ModelSource, modelDir string) (string, bool, error) {
	hfSource, ok := src.(config.HuggingFaceSource)
	if !ok {
		return "", false, fmt.Errorf("%w: %T", ErrInvalidSource, src)
	}

	repo := strings.TrimSpace(hfSource.Repo)
	if repo == "" {
		return "", false, fmt.Errorf("%w: empty repo name", ErrInvalidSource)
	}

	markerPath := filepath.Join(modelDir, markerFilename)
	marker := markerContent(repo, hfSource.Revision)

	if !hfSource.ForceDownload && !shouldRedownload(markerPath, marker) {
		slog.Info("Model already downloaded and up-to-date (marker match), skipping", "repo", repo, "path", modelDir)
		return modelDir, true, nil
	}

	if err := EnsureDirectory(modelDir); err != nil {
		return "", false, err
	}

	args := buildArgs(repo, modelDir, hfSource)

	attempt := 0
	download := func() error {
		attempt++
		slog.Info("Downloading model", "repo", repo, "path", modelDir, "attempt", attempt)

		runCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		output, err := s.runner.Run(runCtx, hfBinary, args)
		if err == nil {
			return nil
		}

		slog.Error("Failed to download model", "repo", repo, "attempt", attempt, "error", err, "output", string(output))

		if errors.Is(ctx.Err(), context.Canceled) {
			return backoff.Permanent(fmt.Errorf("download canceled: %w", err))
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			slog.Warn("Download timed out", "repo", repo, "attempt", attempt)
		}

		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryDelay), s.maxRetries-1),
		ctx,
	)
	if err := backoff.Retry(download, policy); err != nil {
		return "", false, err
	}

	if err := os.WriteFile(markerPath, []byte(marker), 0o644); err != nil {
		slog.Warn("Failed to write download marker", "path", markerPath, "error", err)
	}

	slog.Info("Model downloaded successfully", "repo", repo, "path", modelDir, "attempts", attempt)
	return modelDir, false, nil
}

func buildArgs(repo, dir string, src config.HuggingFaceSource) []string {
	args := []string{"download", repo, "--local-dir", dir}

	if src.Revision != "" {
		args = append(args, "--revision", src.Revision)
	}
	for _, inc := range src.Include {
		args = append(args, "--include", inc)
	}
	if src.ForceDownload {
		args = append(args, "--force-download")
	}
	if src.Token != "" {
		args = append(args, "--token", src.Token)
	}
	if src.MaxWorkers > 0 {
		args = append(args, "--max-workers", fmt.Sprintf("%d", src.MaxWorkers))
	}

	return args
}

// markerContent is compared against the marker file to detect config changes.
func markerContent(repo, revision string) string {
	return fmt.Sprintf("repo: %s\nrevision: %s\n", repo, revision)
}

func shouldRedownload(markerPath, expected string) bool {
	content, err := os.ReadFile(markerPath)
	if err != nil {
		slog.Debug("Marker file missing or unreadable", "path", markerPath, "error", err)
		return true
	}

	if string(content) != expected {
		slog.Info("Model config changed (marker mismatch), will redownload", "marker_path", markerPath)
		return true
	}

	return false
}

package source

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/visionhook/internal/config"
)

// --- Mock types ---

type MockCommandRunner struct {
	mock.Mock
}

func (m *MockCommandRunner) Run(ctx context.Context, name string, args []string) ([]byte, error) {
	a := m.Called(ctx, name, args)
	out, _ := a.Get(0).([]byte)
	return out, a.Error(1)
}

type tarEntry struct {
	name string
	body string
	dir  bool
}

func writeArchive(t *testing.T, path string, entries []tarEntry) {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)

	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o644, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		if e.dir {
			hdr = &tar.Header{Name: e.name, Mode: 0o755, Typeflag: tar.TypeDir}
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if !e.dir {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// --- Tests ---

func TestGet(t *testing.T) {
	for _, st := range []config.SourceType{config.SourceTypeLocal, config.SourceTypeArchive, config.SourceTypeHuggingFace} {
		s, err := Get(st)
		assert.NoError(t, err)
		assert.NotNil(t, s)
	}

	_, err := Get("s3")
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestLocalStager(t *testing.T) {
	dir := t.TempDir()

	got, present, err := (&LocalStager{}).Stage(context.Background(), config.LocalSource{}, dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)
	assert.True(t, present)

	_, _, err = (&LocalStager{}).Stage(context.Background(), config.LocalSource{}, filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, _, err = (&LocalStager{}).Stage(context.Background(), config.LocalSource{}, file)
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestArchiveStager_ExtractsOnceThenSkips(t *testing.T) {
	work := t.TempDir()
	archivePath := filepath.Join(work, "model.tar.gz")
	writeArchive(t, archivePath, []tarEntry{
		{name: "code/", dir: true},
		{name: "mobV2_full.onnx", body: "weights"},
		{name: "code/labels.txt", body: "cat\ndog\n"},
	})

	modelDir := filepath.Join(work, "model")
	src := config.ArchiveSource{Path: archivePath}
	stager := &ArchiveStager{}

	got, present, err := stager.Stage(context.Background(), src, modelDir)
	require.NoError(t, err)
	assert.Equal(t, modelDir, got)
	assert.False(t, present)

	data, err := os.ReadFile(filepath.Join(modelDir, "mobV2_full.onnx"))
	require.NoError(t, err)
	assert.Equal(t, "weights", string(data))

	data, err = os.ReadFile(filepath.Join(modelDir, "code", "labels.txt"))
	require.NoError(t, err)
	assert.Equal(t, "cat\ndog\n", string(data))

	_, present, err = stager.Stage(context.Background(), src, modelDir)
	require.NoError(t, err)
	assert.True(t, present)
}

func TestArchiveStager_RejectsTraversal(t *testing.T) {
	work := t.TempDir()
	archivePath := filepath.Join(work, "model.tar.gz")
	writeArchive(t, archivePath, []tarEntry{{name: "../evil.txt", body: "x"}})

	_, _, err := (&ArchiveStager{}).Stage(context.Background(), config.ArchiveSource{Path: archivePath}, filepath.Join(work, "model"))
	assert.ErrorIs(t, err, ErrUnsafeArchive)

	_, err = os.Stat(filepath.Join(work, "evil.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestArchiveStager_MissingArchive(t *testing.T) {
	_, _, err := (&ArchiveStager{}).Stage(context.Background(), config.ArchiveSource{Path: "/nonexistent/model.tar.gz"}, t.TempDir())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestArchiveStager_WrongSourceType(t *testing.T) {
	_, _, err := (&ArchiveStager{}).Stage(context.Background(), config.LocalSource{}, t.TempDir())
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func newTestHuggingFaceStager(runner CommandRunner) *HuggingFaceStager {
	s := NewHuggingFaceStager(runner)
	s.retryDelay = time.Millisecond
	return s
}

func TestHuggingFaceStager_DownloadsAndWritesMarker(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "model")
	src := config.HuggingFaceSource{Repo: "acme/mobilenet", Revision: "v2", Include: []string{"*.onnx"}}

	runner := new(MockCommandRunner)
	runner.On("Run", mock.Anything, "hf", []string{
		"download", "acme/mobilenet", "--local-dir", dir, "--revision", "v2", "--include", "*.onnx",
	}).Return([]byte("ok"), nil).Once()

	stager := newTestHuggingFaceStager(runner)

	got, present, err := stager.Stage(context.Background(), src, dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)
	assert.False(t, present)

	// Second call hits the marker and never runs the CLI.
	_, present, err = stager.Stage(context.Background(), src, dir)
	require.NoError(t, err)
	assert.True(t, present)

	runner.AssertExpectations(t)
}

func TestHuggingFaceStager_RetriesThenSucceeds(t *testing.T) {
	dir := t.TempDir()

	runner := new(MockCommandRunner)
	runner.On("Run", mock.Anything, "hf", mock.Anything).Return([]byte("503"), errors.New("exit status 1")).Twice()
	runner.On("Run", mock.Anything, "hf", mock.Anything).Return([]byte("ok"), nil).Once()

	_, _, err := newTestHuggingFaceStager(runner).Stage(context.Background(), config.HuggingFaceSource{Repo: "acme/m"}, dir)
	require.NoError(t, err)
	runner.AssertNumberOfCalls(t, "Run", 3)
}

func TestHuggingFaceStager_GivesUp(t *testing.T) {
	runner := new(MockCommandRunner)
	runner.On("Run", mock.Anything, "hf", mock.Anything).Return(nil, errors.New("exit status 1"))

	_, _, err := newTestHuggingFaceStager(runner).Stage(context.Background(), config.HuggingFaceSource{Repo: "acme/m"}, t.TempDir())
	assert.EqualError(t, err, "exit status 1")
	runner.AssertNumberOfCalls(t, "Run", defaultMaxRetries)
}

func TestHuggingFaceStager_RedownloadsOnRevisionChange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, markerFilename), []byte(markerContent("acme/m", "v1")), 0o644))

	runner := new(MockCommandRunner)
	runner.On("Run", mock.Anything, "hf", mock.Anything).Return([]byte("ok"), nil).Once()

	_, present, err := newTestHuggingFaceStager(runner).Stage(context.Background(), config.HuggingFaceSource{Repo: "acme/m", Revision: "v2"}, dir)
	require.NoError(t, err)
	assert.False(t, present)
	runner.AssertExpectations(t)
}

func TestHuggingFaceStager_InvalidSource(t *testing.T) {
	s := newTestHuggingFaceStager(new(MockCommandRunner))

	_, _, err := s.Stage(context.Background(), config.HuggingFaceSource{Repo: "  "}, t.TempDir())
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, _, err = s.Stage(context.Background(), config.ArchiveSource{}, t.TempDir())
	assert.ErrorIs(t, err, ErrInvalidSource)
}

package config

import (
	"errors"
)

// SourceType represents the type of model artifact source.
type SourceType string

const (
	// SourceTypeLocal uses the model directory as it already exists on disk.
	SourceTypeLocal SourceType = "local"

	// SourceTypeArchive extracts a model.tar.gz into the model directory.
	SourceTypeArchive SourceType = "archive"

	// SourceTypeHuggingFace downloads a Hugging Face repository into the model directory.
	SourceTypeHuggingFace SourceType = "huggingface"
)

// Config holds the main configuration for the application.
type Config struct {
	Version string        `json:"version"           yaml:"version"`
	Server  ServerConfig  `json:"server,omitempty"  yaml:"server,omitempty"`
	Model   ModelConfig   `json:"model"             yaml:"model"`
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// ServerConfig holds listener ports.
type ServerConfig struct {
	HTTPPort int `json:"http_port,omitempty" yaml:"http_port,omitempty"`
	GRPCPort int `json:"grpc_port,omitempty" yaml:"grpc_port,omitempty"`
}

// ModelConfig holds configuration for the served model.
type ModelConfig struct {
	Dir     string        `json:"dir,omitempty"     yaml:"dir,omitempty"`
	Runtime string        `json:"runtime,omitempty" yaml:"runtime,omitempty"`
	Source  *SourceConfig `json:"source,omitempty"  yaml:"source,omitempty"`
	ONNX    ONNXConfig    `json:"onnx,omitempty"    yaml:"onnx,omitempty"`
}

// ONNXConfig holds ONNX Runtime settings.
type ONNXConfig struct {
	SharedLibrary string `json:"shared_library,omitempty" yaml:"shared_library,omitempty"`
	InputName     string `json:"input_name,omitempty"     yaml:"input_name,omitempty"`
	OutputName    string `json:"output_name,omitempty"    yaml:"output_name,omitempty"`
}

// LoggingConfig holds logging settings. Level is applied live on reload.
type LoggingConfig struct {
	Level  string `json:"level,omitempty"   yaml:"level,omitempty"`
	File   string `json:"file,omitempty"    yaml:"file,omitempty"`
	ToFile bool   `json:"to_file,omitempty" yaml:"to_file,omitempty"`
}

// SourceConfig wraps optional sources (only one should be set).
type SourceConfig struct {
	Local       *LocalSource       `json:"local,omitempty"       yaml:"local,omitempty"`
	Archive     *ArchiveSource     `json:"archive,omitempty"     yaml:"archive,omitempty"`
	HuggingFace *HuggingFaceSource `json:"huggingface,omitempty" yaml:"huggingface,omitempty"`
}

// -------------------------
// Source definitions
// -------------------------

// ModelSource represents a source for a model artifact.
type ModelSource interface {
	Type() SourceType
}

// LocalSource is a model directory that is already populated.
type LocalSource struct{}

// Type returns the local source type.
func (LocalSource) Type() SourceType {
	return SourceTypeLocal
}

// ArchiveSource is a gzipped tarball holding the model artifact.
type ArchiveSource struct {
	Path string `json:"path" yaml:"path"`
}

// Type returns the archive source type.
func (ArchiveSource) Type() SourceType {
	return SourceTypeArchive
}

// HuggingFaceSource represents a Hugging Face model repository source.
type HuggingFaceSource struct {
	Repo          string   `json:"repo"                     yaml:"repo"`
	Revision      string   `json:"revision,omitempty"       yaml:"revision,omitempty"`
	Token         string   `json:"token,omitempty"          yaml:"token,omitempty"`
	Include       []string `json:"include,omitempty"        yaml:"include,omitempty"`
	MaxWorkers    int      `json:"max_workers,omitempty"    yaml:"max_workers,omitempty"`
	ForceDownload bool     `json:"force_download,omitempty" yaml:"force_download,omitempty"`
}

// Type returns the Hugging Face source type.
func (HuggingFaceSource) Type() SourceType {
	return SourceTypeHuggingFace
}

// GetSource returns the active source. An absent source block means local.
func (s *SourceConfig) GetSource() (ModelSource, error) {
	if s == nil {
		return LocalSource{}, nil
	}

	switch {
	case s.HuggingFace != nil:
		return *s.HuggingFace, nil
	case s.Archive != nil:
		return *s.Archive, nil
	case s.Local != nil:
		return *s.Local, nil
	}

	return nil, errors.New("no source configured for model")
}

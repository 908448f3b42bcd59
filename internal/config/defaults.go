package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/ekisa-team/visionhook/internal/envvar"
	"github.com/ekisa-team/visionhook/internal/xfs"
)

const (
	defaultHTTPPort = 8080
	defaultGRPCPort = 9090
	defaultModelDir = "/opt/ml/model"
	defaultRuntime  = "onnx"
	defaultLogFile  = "logs/visionhook.log"
)

// DefaultHTTPPort returns the HTTP port from VISIONHOOK_SERVER_HTTP_PORT, or 8080.
func DefaultHTTPPort() int {
	return envPort(envvar.VisionhookServerHTTPPort, defaultHTTPPort)
}

// DefaultGRPCPort returns the gRPC port from VISIONHOOK_SERVER_GRPC_PORT, or 9090.
func DefaultGRPCPort() int {
	return envPort(envvar.VisionhookServerGRPCPort, defaultGRPCPort)
}

// DefaultConfigPath returns the default path for the visionhook config directory.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "visionhook", "config")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "visionhook")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "visionhook")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "visionhook")
		}
		return filepath.Join(home, ".config", "visionhook")
	}
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = defaultHTTPPort
	}
	if c.Server.GRPCPort == 0 {
		c.Server.GRPCPort = defaultGRPCPort
	}
	if c.Model.Runtime == "" {
		c.Model.Runtime = defaultRuntime
	}
	if c.Logging.File == "" {
		c.Logging.File = defaultLogFile
	}
}

// ResolveModelDir returns the model directory.
// Precedence:
// 1. SM_MODEL_DIR environment variable.
// 2. Dir field in the config.
// 3. /opt/ml/model.
func (c *Config) ResolveModelDir() string {
	if p := os.Getenv(envvar.ModelDir); p != "" {
		return xfs.ExpandTilde(p)
	}
	if c.Model.Dir != "" {
		return xfs.ExpandTilde(c.Model.Dir)
	}
	return defaultModelDir
}

func envPort(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

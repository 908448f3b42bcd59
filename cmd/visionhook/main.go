package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/ekisa-team/visionhook/internal/config"
	"github.com/ekisa-team/visionhook/internal/env"
	"github.com/ekisa-team/visionhook/internal/envvar"
	"github.com/ekisa-team/visionhook/internal/handler"
	"github.com/ekisa-team/visionhook/internal/logger"
	"github.com/ekisa-team/visionhook/internal/metrics"
	"github.com/ekisa-team/visionhook/internal/model"
	"github.com/ekisa-team/visionhook/internal/model/onnx"
	grpcserver "github.com/ekisa-team/visionhook/internal/server/grpc"
	httpserver "github.com/ekisa-team/visionhook/internal/server/http"
	"github.com/ekisa-team/visionhook/internal/service"
	"github.com/ekisa-team/visionhook/internal/source"
	"github.com/ekisa-team/visionhook/internal/xfs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	var (
		flagHTTPPort   = flag.Int("http-port", config.DefaultHTTPPort(), "HTTP port to listen on")
		flagGRPCPort   = flag.Int("grpc-port", config.DefaultGRPCPort(), "GRPC port to listen on")
		flagConfigPath = flag.String("config", filepath.Join(config.DefaultConfigPath(), "config.yaml"), "Path to config file")
		flagSchemaPath = flag.String("schema", "", "Path to schema file (empty uses the embedded schema)")
	)
	flag.Parse()

	environment := env.FromEnv()
	level := new(slog.LevelVar)

	slog.SetDefault(logger.New(environment, logger.WithLevel(level)))

	watcher, err := config.NewWatcher(*flagConfigPath, *flagSchemaPath, func(cfg *config.Config, err error) {
		if err != nil {
			slog.Error("Failed to reload config", "error", err)
			return
		}

		applyLevel(level, cfg.Logging.Level)
	})
	if err != nil {
		slog.Error("Failed to create config watcher", "error", err)
		os.Exit(1)
	}
	defer watcher.Close()

	cfg := watcher.Snapshot()
	applyLevel(level, cfg.Logging.Level)

	if cfg.Logging.ToFile {
		slog.SetDefault(logger.New(environment,
			logger.WithLevel(level),
			logger.WithLogToFile(true),
			logger.WithLogFile(xfs.ExpandTilde(cfg.Logging.File)),
		))
	}

	slog.Info("Config loaded successfully", "config", *flagConfigPath, "environment", environment)

	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	httpPort := resolvePort(envvar.VisionhookServerHTTPPort, explicit["http-port"], *flagHTTPPort, cfg.Server.HTTPPort)
	grpcPort := resolvePort(envvar.VisionhookServerGRPCPort, explicit["grpc-port"], *flagGRPCPort, cfg.Server.GRPCPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, httpPort, grpcPort); err != nil {
		slog.Error("visionhook exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, httpPort, grpcPort int) error {
	runtimes := model.NewRegistry()
	if err := runtimes.Register(model.NewLinearRuntime()); err != nil {
		return err
	}
	if err := runtimes.Register(onnx.NewRuntime(onnx.Options{
		SharedLibraryPath: xfs.ExpandTilde(cfg.Model.ONNX.SharedLibrary),
		InputName:         cfg.Model.ONNX.InputName,
		OutputName:        cfg.Model.ONNX.OutputName,
	})); err != nil {
		return err
	}

	collector := metrics.NewCollector()
	classifier := handler.NewImageClassifier(model.NewLoader(runtimes, model.Format(cfg.Model.Runtime)))
	inference := service.NewInference(classifier, collector, service.WithCloser(runtimes))
	defer func() {
		if err := inference.Close(); err != nil {
			slog.Warn("Failed to release model", "error", err)
		}
	}()

	httpSrv := httpserver.NewServer(net.JoinHostPort("", strconv.Itoa(httpPort)), inference, collector)
	grpcSrv := grpcserver.NewServer(inference)

	errCh := make(chan error, 2)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	go func() { errCh <- grpcSrv.ListenAndServe(net.JoinHostPort("", strconv.Itoa(grpcPort))) }()

	// Listeners come up first so /ping reports 503 while the model is staged and loaded.
	modelDir, err := stage(ctx, cfg)
	if err == nil {
		err = inference.Start(modelDir)
	}
	if err != nil {
		shutdown(httpSrv, grpcSrv)
		return err
	}
	grpcSrv.SetServing(true)

	select {
	case <-ctx.Done():
		slog.Info("Shutting down")
	case err = <-errCh:
	}

	shutdown(httpSrv, grpcSrv)
	return err
}

func stage(ctx context.Context, cfg *config.Config) (string, error) {
	src, err := cfg.Model.Source.GetSource()
	if err != nil {
		return "", err
	}

	stager, err := source.Get(src.Type())
	if err != nil {
		return "", err
	}

	modelDir, present, err := stager.Stage(ctx, src, cfg.ResolveModelDir())
	if err != nil {
		return "", fmt.Errorf("failed to stage model from %s source: %w", src.Type(), err)
	}

	slog.Info("Model staged", "source", src.Type(), "dir", modelDir, "already_present", present)
	return modelDir, nil
}

func shutdown(httpSrv *httpserver.Server, grpcSrv *grpcserver.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := errors.Join(httpSrv.Shutdown(ctx), grpcSrv.Shutdown(ctx)); err != nil {
		slog.Warn("Unclean shutdown", "error", err)
	}
}

// resolvePort applies env > flag > config precedence. A malformed env value is
// ignored.
func resolvePort(envKey string, flagSet bool, flagValue, configValue int) int {
	if raw, ok := os.LookupEnv(envKey); ok {
		if port, err := strconv.Atoi(raw); err == nil && port > 0 {
			return port
		}
		slog.Warn("Ignoring invalid port in environment", "key", envKey, "value", raw)
	}
	if flagSet || configValue == 0 {
		return flagValue
	}
	return configValue
}

func applyLevel(level *slog.LevelVar, name string) {
	lvl, err := logger.ParseLevel(name)
	if err != nil {
		slog.Warn("Ignoring invalid log level", "level", name, "error", err)
		return
	}

	if level.Level() != lvl {
		level.Set(lvl)
		slog.Info("Log level set", "level", lvl.String())
	}
}

package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 500 * time.Millisecond

// Watcher watches for configuration changes.
type Watcher struct {
	path       string
	schemaPath string
	onReload   func(*Config, error)
	current    atomic.Pointer[Config]
	reloads    atomic.Uint32
	fsw        *fsnotify.Watcher
	done       chan struct{}
	closeOnce  sync.Once
}

// NewWatcher loads the config at path and starts watching it. The parent directory
// is watched so that editors replacing the file are picked up too.
func NewWatcher(path string, schemaPath string, onReload func(*Config, error)) (*Watcher, error) {
	path = filepath.Clean(path)

	cfg, err := LoadAndValidate(path, schemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	watcher := &Watcher{
		path:       path,
		schemaPath: schemaPath,
		onReload:   onReload,
		fsw:        fsw,
		done:       make(chan struct{}),
	}
	watcher.current.Store(cfg)

	go watcher.watch()

	return watcher, nil
}

// watch watches for configuration changes.
func (cw *Watcher) watch() {
	var timer *time.Timer

	for {
		select {
		case <-cw.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-cw.fsw.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != cw.path || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if timer != nil {
				timer.Stop()
			}

			timer = time.AfterFunc(debounce, cw.reload)

		case err, ok := <-cw.fsw.Errors:
			if !ok {
				return
			}

			slog.Error("Watcher error", "error", err)
		}
	}
}

// reload re-reads the file after a debounced change. A failed reload keeps the
// previous snapshot and reports the error to onReload.
func (cw *Watcher) reload() {
	select {
	case <-cw.done:
		return
	default:
	}

	n := cw.reloads.Add(1)

	cfg, err := LoadAndValidate(cw.path, cw.schemaPath)
	if err != nil {
		slog.Warn("Config change rejected, keeping previous config", "path", cw.path, "reload", n, "error", err)
		cw.onReload(nil, err)
		return
	}

	cw.current.Store(cfg)
	slog.Info("Config reloaded", "path", cw.path, "reload", n)
	cw.onReload(cfg, nil)
}

// Snapshot returns the most recent valid config.
func (cw *Watcher) Snapshot() *Config {
	return cw.current.Load()
}

// ReloadCount returns how many reloads were attempted, failed ones included.
func (cw *Watcher) ReloadCount() uint32 {
	return cw.reloads.Load()
}

// Close stops watching. It is safe to call more than once.
func (cw *Watcher) Close() error {
	var err error
	cw.closeOnce.Do(func() {
		close(cw.done)
		err = cw.fsw.Close()
	})
	return err
}

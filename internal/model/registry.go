package model

import (
	"errors"
	"slices"
	"sync"
)

// Registry manages model runtimes.
type Registry struct {
	runtimes map[Format]Runtime
	mu       sync.RWMutex
}

// NewRegistry creates a new runtime registry.
func NewRegistry() *Registry {
	return &Registry{
		runtimes: make(map[Format]Runtime),
	}
}

// Register adds a runtime to the registry.
func (r *Registry) Register(rt Runtime) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runtimes[rt.Format()]; ok {
		return ErrRuntimeAlreadyRegistered
	}

	r.runtimes[rt.Format()] = rt

	return nil
}

// Get retrieves a runtime by format.
func (r *Registry) Get(format Format) (Runtime, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.runtimes[format]
	return rt, ok
}

// Formats returns the registered formats in sorted order.
func (r *Registry) Formats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	formats := make([]Format, 0, len(r.runtimes))
	for f := range r.runtimes {
		formats = append(formats, f)
	}
	slices.Sort(formats)

	return formats
}

// Close closes all registered runtimes and joins their errors.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, rt := range r.runtimes {
		if err := rt.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

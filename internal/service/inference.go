// Package service hosts a handler.Handler: it loads the model once and runs the
// per-request hooks in order.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ekisa-team/visionhook/internal/handler"
	"github.com/ekisa-team/visionhook/internal/metrics"
	"github.com/ekisa-team/visionhook/internal/model"
)

// anyMediaType is treated as a request for the default response type.
const anyMediaType = "*/*"

// Result is the outcome of one invocation.
type Result struct {
	Payload     any
	Body        []byte
	ContentType string
}

// Option configures an Inference.
type Option func(*Inference)

// WithCloser registers c to be closed after the model in Close.
func WithCloser(c io.Closer) Option {
	return func(s *Inference) {
		s.closers = append(s.closers, c)
	}
}

// Inference sequences the hooks of a handler.Handler.
type Inference struct {
	handler handler.Handler
	metrics *metrics.Collector
	closers []io.Closer

	// mu is held for reading by every Invoke, so Close waits for in-flight requests.
	mu      sync.RWMutex
	model   model.Model
	started bool
}

// NewInference creates a new Inference service.
func NewInference(h handler.Handler, collector *metrics.Collector, opts ...Option) *Inference {
	s := &Inference{
		handler: h,
		metrics: collector,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start loads the model from modelDir. It runs once per process: a second
// call fails with ErrAlreadyStarted, even after Close.
func (s *Inference) Start(modelDir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	start := time.Now()
	m, err := s.handler.Load(modelDir)
	s.metrics.Observe(handler.HookLoad, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}

	s.model = m
	s.metrics.SetModelLoaded(true)

	slog.Info("Model ready", "dir", modelDir, "elapsed", time.Since(start))
	return nil
}

// Ready reports whether the model has been loaded.
func (s *Inference) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.model != nil
}

// Invoke runs Decode, Predict and Encode on one request and serializes the payload.
// An empty or wildcard accept selects application/json.
func (s *Inference) Invoke(ctx context.Context, body []byte, contentType, accept string) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := s.model
	if m == nil {
		return nil, ErrNotReady
	}

	if accept == "" || accept == anyMediaType {
		accept = handler.ContentTypeJSON
	}

	start := time.Now()
	input, err := s.handler.Decode(body, contentType)
	s.observe(handler.HookDecode, &start, err)
	if err != nil {
		return nil, err
	}

	prediction, err := s.handler.Predict(ctx, input, m)
	s.observe(handler.HookPredict, &start, err)
	if err != nil {
		return nil, err
	}

	payload, err := s.handler.Encode(prediction, accept)
	s.observe(handler.HookEncode, &start, err)
	if err != nil {
		return nil, err
	}

	out, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize prediction: %w", err)
	}

	return &Result{
		Payload:     payload,
		Body:        out,
		ContentType: accept,
	}, nil
}

// observe records a hook call that began at *start and resets *start.
func (s *Inference) observe(hook string, start *time.Time, err error) {
	now := time.Now()
	s.metrics.Observe(hook, now.Sub(*start), err)
	*start = now

	if err != nil {
		slog.Debug("Hook failed", "hook", hook, "error", err)
	}
}

// Close waits for in-flight invocations, then releases the model and every
// registered closer.
func (s *Inference) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.model != nil {
		errs = append(errs, s.model.Close())
		s.model = nil
		s.metrics.SetModelLoaded(false)
	}
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	s.closers = nil

	return errors.Join(errs...)
}

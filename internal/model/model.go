package model

import (
	"context"
	"sync/atomic"

	"github.com/ekisa-team/visionhook/internal/tensor"
)

// Format identifies a serialized model format and the runtime able to open it.
type Format string

const (
	// FormatONNX is an ONNX graph executed by ONNX Runtime.
	FormatONNX Format = "onnx"

	// FormatLinear is a YAML-encoded linear classification head over pooled channels.
	FormatLinear Format = "linear"
)

// Model is a loaded classification model.
type Model interface {
	// Forward computes raw class scores for a batch of inputs.
	Forward(ctx context.Context, input *tensor.Tensor) (*tensor.Tensor, error)

	// Eval switches the model to evaluation mode.
	Eval()

	// Training reports whether the model is in training mode.
	Training() bool

	// Close releases the resources held by the model.
	Close() error
}

// Runtime opens serialized models of one format.
type Runtime interface {
	// Format returns the model format handled by the runtime.
	Format() Format

	// Filename is the fixed artifact name looked up inside a model directory.
	Filename() string

	// Open deserializes the model stored at path.
	Open(path string) (Model, error)

	// Close releases runtime-wide resources.
	Close() error
}

// Mode is an embeddable train/eval flag. The zero value is training mode.
type Mode struct {
	eval atomic.Bool
}

// Eval switches to evaluation mode.
func (m *Mode) Eval() {
	m.eval.Store(true)
}

// Train switches back to training mode.
func (m *Mode) Train() {
	m.eval.Store(false)
}

// Training reports whether the model is in training mode.
func (m *Mode) Training() bool {
	return !m.eval.Load()
}

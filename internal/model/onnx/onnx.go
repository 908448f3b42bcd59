// Package onnx runs classification models with ONNX Runtime.
package onnx

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/ekisa-team/visionhook/internal/model"
	"github.com/ekisa-team/visionhook/internal/tensor"
)

// Filename is the artifact name looked up inside the model directory.
const Filename = "mobV2_full.onnx"

// Default tensor names of exported torchvision classifiers.
const (
	DefaultInputName  = "input"
	DefaultOutputName = "output"
)

// Options configures the ONNX runtime.
type Options struct {
	// SharedLibraryPath points at libonnxruntime. Empty uses the loader's search path.
	SharedLibraryPath string
	InputName         string
	OutputName        string
}

// Environment hooks, replaced in tests.
var (
	isInitialized         = ort.IsInitialized
	initializeEnvironment = func() error { return ort.InitializeEnvironment() }
	destroyEnvironment    = ort.DestroyEnvironment
)

// Runtime implements model.Runtime on ONNX Runtime. The first Open initializes
// the ONNX environment unless one already exists; Close destroys it only if this
// runtime created it.
type Runtime struct {
	opts        Options
	mu          sync.Mutex
	initialized bool
}

// NewRuntime creates a new ONNX runtime.
func NewRuntime(opts Options) *Runtime {
	if opts.InputName == "" {
		opts.InputName = DefaultInputName
	}
	if opts.OutputName == "" {
		opts.OutputName = DefaultOutputName
	}

	return &Runtime{opts: opts}
}

// Format implements model.Runtime.
func (r *Runtime) Format() model.Format {
	return model.FormatONNX
}

// Filename implements model.Runtime.
func (r *Runtime) Filename() string {
	return Filename
}

// Open implements model.Runtime.
func (r *Runtime) Open(path string) (model.Model, error) {
	if err := r.ensureEnvironment(); err != nil {
		return nil, err
	}

	_, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ONNX model info: %w", err)
	}

	var outputDims ort.Shape
	for _, info := range outputs {
		if info.Name == r.opts.OutputName {
			outputDims = info.Dimensions
		}
	}
	if outputDims == nil {
		return nil, fmt.Errorf("ONNX model has no output named %q", r.opts.OutputName)
	}

	session, err := ort.NewDynamicAdvancedSession(path,
		[]string{r.opts.InputName}, []string{r.opts.OutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Session{session: session, outputDims: outputDims}, nil
}

// Close implements model.Runtime.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return nil
	}
	r.initialized = false

	if err := destroyEnvironment(); err != nil {
		return fmt.Errorf("failed to destroy ONNX environment: %w", err)
	}

	return nil
}

func (r *Runtime) ensureEnvironment() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// An environment created elsewhere is used but never destroyed here.
	if r.initialized || isInitialized() {
		return nil
	}

	if r.opts.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(r.opts.SharedLibraryPath)
	}

	if err := initializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	r.initialized = true

	slog.Debug("ONNX environment initialized", "library", r.opts.SharedLibraryPath)
	return nil
}

// Session is a loaded ONNX model. Run is safe for concurrent use.
type Session struct {
	model.Mode
	session    *ort.DynamicAdvancedSession
	outputDims ort.Shape
}

// Forward implements model.Model.
func (s *Session) Forward(ctx context.Context, input *tensor.Tensor) (*tensor.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shape := input.Shape()

	in, err := ort.NewTensor(toShape(shape), input.Data())
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](outputShape(s.outputDims, shape[0]))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer out.Destroy()

	if err := s.session.Run([]ort.ArbitraryTensor{in}, []ort.ArbitraryTensor{out}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	data := append([]float32(nil), out.GetData()...)
	return tensor.New(fromShape(out.GetShape()), data)
}

// Close implements model.Model.
func (s *Session) Close() error {
	return s.session.Destroy()
}

// outputShape resolves symbolic (negative) dimensions to the batch size.
func outputShape(dims ort.Shape, batch int) ort.Shape {
	shape := make(ort.Shape, len(dims))
	for i, d := range dims {
		if d < 0 {
			d = int64(batch)
		}
		shape[i] = d
	}
	return shape
}

func toShape(dims []int) ort.Shape {
	shape := make(ort.Shape, len(dims))
	for i, d := range dims {
		shape[i] = int64(d)
	}
	return shape
}

func fromShape(shape ort.Shape) []int {
	dims := make([]int, len(shape))
	for i, d := range shape {
		dims[i] = int(d)
	}
	return dims
}

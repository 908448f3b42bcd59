package model

import (
	"context"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/ekisa-team/visionhook/internal/tensor"
)

// LinearFilename is the artifact name of the linear runtime.
const LinearFilename = "linear.yaml"

// LinearSpec is the on-disk form of a linear classification head.
type LinearSpec struct {
	Classes []string     `json:"classes" yaml:"classes"`
	Weights [][3]float32 `json:"weights" yaml:"weights"`
	Bias    []float32    `json:"bias"    yaml:"bias"`
}

// LinearRuntime opens linear heads. It needs no native libraries.
type LinearRuntime struct{}

// NewLinearRuntime creates a new linear runtime.
func NewLinearRuntime() *LinearRuntime {
	return &LinearRuntime{}
}

// Format implements Runtime.
func (LinearRuntime) Format() Format {
	return FormatLinear
}

// Filename implements Runtime.
func (LinearRuntime) Filename() string {
	return LinearFilename
}

// Open implements Runtime.
func (LinearRuntime) Open(path string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var spec LinearSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("invalid linear model: %w", err)
	}

	m, err := NewLinear(spec)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Close implements Runtime. The linear runtime holds no resources.
func (LinearRuntime) Close() error {
	return nil
}

// Linear averages each input channel over its spatial extent and applies a dense
// layer to the three pooled values.
type Linear struct {
	Mode
	spec LinearSpec
}

// NewLinear validates spec and builds a model from it.
func NewLinear(spec LinearSpec) (*Linear, error) {
	if len(spec.Weights) == 0 {
		return nil, fmt.Errorf("invalid linear model: no classes")
	}
	if len(spec.Bias) != len(spec.Weights) {
		return nil, fmt.Errorf("invalid linear model: %d weight rows, %d biases", len(spec.Weights), len(spec.Bias))
	}
	if len(spec.Classes) != 0 && len(spec.Classes) != len(spec.Weights) {
		return nil, fmt.Errorf("invalid linear model: %d classes, %d weight rows", len(spec.Classes), len(spec.Weights))
	}

	return &Linear{spec: spec}, nil
}

// Classes returns the class labels, if the artifact declares any.
func (l *Linear) Classes() []string {
	return l.spec.Classes
}

// Forward implements Model. Input must be [N, 3, ...].
func (l *Linear) Forward(ctx context.Context, input *tensor.Tensor) (*tensor.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shape := input.Shape()
	if input.Rank() < 2 || shape[1] != 3 {
		return nil, fmt.Errorf("%w: linear model expects [N, 3, ...], got %v", tensor.ErrShapeMismatch, shape)
	}

	batch, classes := shape[0], len(l.spec.Weights)
	spatial := 1
	for _, d := range shape[2:] {
		spatial *= d
	}

	data := input.Data()
	out := tensor.Zeros(batch, classes)
	logits := out.Data()

	for n := range batch {
		var pooled [3]float32
		for c := range 3 {
			base := (n*3 + c) * spatial
			var sum float64
			for _, v := range data[base : base+spatial] {
				sum += float64(v)
			}
			pooled[c] = float32(sum / float64(max(spatial, 1)))
		}

		for k, w := range l.spec.Weights {
			logits[n*classes+k] = w[0]*pooled[0] + w[1]*pooled[1] + w[2]*pooled[2] + l.spec.Bias[k]
		}
	}

	return out, nil
}

// Close implements Model.
func (l *Linear) Close() error {
	return nil
}

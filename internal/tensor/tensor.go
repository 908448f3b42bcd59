package tensor

import (
	"fmt"
	"math"
)

// Tensor is a dense, row-major float32 tensor.
type Tensor struct {
	shape []int
	data  []float32
}

// New creates a tensor over data with the given shape. The data slice is not copied.
func New(shape []int, data []float32) (*Tensor, error) {
	n, err := volume(shape)
	if err != nil {
		return nil, err
	}

	if n != len(data) {
		return nil, fmt.Errorf("%w: shape %v holds %d values, got %d", ErrShapeMismatch, shape, n, len(data))
	}

	return &Tensor{
		shape: append([]int(nil), shape...),
		data:  data,
	}, nil
}

// Zeros creates a zero-filled tensor. It panics on negative dimensions.
func Zeros(shape ...int) *Tensor {
	n, err := volume(shape)
	if err != nil {
		panic(err)
	}

	return &Tensor{
		shape: append([]int(nil), shape...),
		data:  make([]float32, n),
	}
}

// Shape returns a copy of the tensor dimensions.
func (t *Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int {
	return len(t.shape)
}

// Len returns the number of elements.
func (t *Tensor) Len() int {
	return len(t.data)
}

// Data returns the backing slice.
func (t *Tensor) Data() []float32 {
	return t.data
}

// Unsqueeze returns a view of t with a dimension of size 1 inserted at axis.
func (t *Tensor) Unsqueeze(axis int) *Tensor {
	if axis < 0 || axis > t.Rank() {
		panic(fmt.Errorf("%w: unsqueeze axis %d for rank %d", ErrAxisOutOfRange, axis, t.Rank()))
	}

	shape := make([]int, 0, len(t.shape)+1)
	shape = append(shape, t.shape[:axis]...)
	shape = append(shape, 1)
	shape = append(shape, t.shape[axis:]...)

	return &Tensor{shape: shape, data: t.data}
}

// Softmax returns a new tensor normalized along axis. Each slice along the axis is
// non-negative and sums to 1.
func (t *Tensor) Softmax(axis int) (*Tensor, error) {
	if axis < 0 || axis >= t.Rank() {
		return nil, fmt.Errorf("%w: softmax axis %d for rank %d", ErrAxisOutOfRange, axis, t.Rank())
	}

	outer, n, inner := 1, t.shape[axis], 1
	for _, d := range t.shape[:axis] {
		outer *= d
	}
	for _, d := range t.shape[axis+1:] {
		inner *= d
	}

	out := make([]float32, len(t.data))
	exps := make([]float64, n)

	for o := range outer {
		for i := range inner {
			base := o*n*inner + i

			maxVal := math.Inf(-1)
			for k := range n {
				if v := float64(t.data[base+k*inner]); v > maxVal {
					maxVal = v
				}
			}

			var sum float64
			for k := range n {
				exps[k] = math.Exp(float64(t.data[base+k*inner]) - maxVal)
				sum += exps[k]
			}

			for k := range n {
				out[base+k*inner] = float32(exps[k] / sum)
			}
		}
	}

	return &Tensor{shape: t.Shape(), data: out}, nil
}

// ToNested converts the tensor into nested []any lists mirroring its shape, with
// float32 leaves. A rank-0 tensor yields its scalar value.
func (t *Tensor) ToNested() any {
	if t.Rank() == 0 {
		return t.data[0]
	}

	return nest(t.shape, t.data)
}

func nest(shape []int, data []float32) any {
	list := make([]any, shape[0])
	if len(shape) == 1 {
		for i := range list {
			list[i] = data[i]
		}
		return list
	}

	stride := len(data) / max(shape[0], 1)
	for i := range list {
		list[i] = nest(shape[1:], data[i*stride:(i+1)*stride])
	}

	return list
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v", t.shape)
}

func volume(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative dimension in %v", ErrShapeMismatch, shape)
		}
		n *= d
	}

	return n, nil
}

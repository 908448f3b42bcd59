package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTensor_NewRejectsShapeMismatch(t *testing.T) {
	_, err := New([]int{2, 3}, make([]float32, 5))
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = New([]int{-1, 3}, nil)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestTensor_Unsqueeze(t *testing.T) {
	x := Zeros(3, 4, 5)

	y := x.Unsqueeze(0)
	assert.Equal(t, []int{1, 3, 4, 5}, y.Shape())
	assert.Equal(t, 3, x.Rank())
	assert.Equal(t, 4, y.Rank())
	assert.Equal(t, x.Len(), y.Len())

	z := x.Unsqueeze(3)
	assert.Equal(t, []int{3, 4, 5, 1}, z.Shape())

	assert.Panics(t, func() { x.Unsqueeze(5) })
}

func TestTensor_ShapeIsCopy(t *testing.T) {
	x := Zeros(2, 2)
	s := x.Shape()
	s[0] = 99
	assert.Equal(t, []int{2, 2}, x.Shape())
}

func TestTensor_SoftmaxSumsToOne(t *testing.T) {
	tests := []struct {
		name  string
		shape []int
		data  []float32
		axis  int
	}{
		{name: "row", shape: []int{1, 4}, data: []float32{1, 2, 3, 4}, axis: 1},
		{name: "large logits", shape: []int{1, 3}, data: []float32{1000, 1001, 999}, axis: 1},
		{name: "negative logits", shape: []int{2, 3}, data: []float32{-5, -1, -3, 0, 0, 0}, axis: 1},
		{name: "leading axis", shape: []int{3, 2}, data: []float32{1, 2, 3, 4, 5, 6}, axis: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, err := New(tt.shape, tt.data)
			require.NoError(t, err)

			p, err := x.Softmax(tt.axis)
			require.NoError(t, err)
			assert.Equal(t, tt.shape, p.Shape())

			for _, v := range p.Data() {
				assert.GreaterOrEqual(t, v, float32(0))
				assert.False(t, math.IsNaN(float64(v)))
			}

			outer, n, inner := 1, tt.shape[tt.axis], 1
			for _, d := range tt.shape[:tt.axis] {
				outer *= d
			}
			for _, d := range tt.shape[tt.axis+1:] {
				inner *= d
			}
			for o := range outer {
				for i := range inner {
					var sum float64
					for k := range n {
						sum += float64(p.Data()[o*n*inner+k*inner+i])
					}
					assert.InDelta(t, 1.0, sum, 1e-5)
				}
			}
		})
	}
}

func TestTensor_SoftmaxUniformForConstantLogits(t *testing.T) {
	x, err := New([]int{1, 4}, []float32{2, 2, 2, 2})
	require.NoError(t, err)

	p, err := x.Softmax(1)
	require.NoError(t, err)

	for _, v := range p.Data() {
		assert.InDelta(t, 0.25, v, 1e-6)
	}
}

func TestTensor_SoftmaxAxisOutOfRange(t *testing.T) {
	_, err := Zeros(1, 3).Softmax(2)
	assert.ErrorIs(t, err, ErrAxisOutOfRange)
}

func TestTensor_ToNested(t *testing.T) {
	x, err := New([]int{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	assert.Equal(t, []any{
		[]any{float32(1), float32(2), float32(3)},
		[]any{float32(4), float32(5), float32(6)},
	}, x.ToNested())

	scalar, err := New(nil, []float32{7})
	require.NoError(t, err)
	assert.Equal(t, float32(7), scalar.ToNested())
}

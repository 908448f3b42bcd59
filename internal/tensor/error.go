package tensor

import "errors"

// Error definitions for the tensor package.
var (
	ErrShapeMismatch  = errors.New("tensor shape does not match data")
	ErrAxisOutOfRange = errors.New("tensor axis out of range")
)

// Package patch extracts fixed-size sliding-window patches from dense
// numeric arrays for downstream tensor consumption.
package patch

import (
	"errors"
	"fmt"
)

// Array is a read-only dense numeric array in row-major order.
// The number of elements must equal the product of the shape dimensions.
type Array interface {
	Shape() []int
	Data() []float32
}

// Dense is a contiguous row-major float32 array.
type Dense struct {
	shape []int
	data  []float32
}

// ErrInvalidArray is returned for inputs that are not well-formed dense
// numeric arrays.
var ErrInvalidArray = errors.New("invalid array")

// NewDense wraps data as an array of the given shape.
// The data slice is used directly, not copied.
func NewDense(shape []int, data []float32) (*Dense, error) {
	n := 1
	for _, dim := range shape {
		if dim <= 0 {
			return nil, fmt.Errorf("%w: nonpositive dimension in %v", ErrInvalidArray, shape)
		}
		n *= dim
	}
	if len(data) != n {
		return nil, fmt.Errorf("%w: shape %v requires %d values, got %d", ErrInvalidArray, shape, n, len(data))
	}
	return &Dense{shape: append([]int{}, shape...), data: data}, nil
}

// Shape returns the dimensions of the array. An empty shape denotes a scalar.
func (d *Dense) Shape() []int {
	return d.shape
}

// Data returns the backing storage in row-major order.
func (d *Dense) Data() []float32 {
	return d.data
}

// NumElements returns the total number of elements.
func (d *Dense) NumElements() int {
	n := 1
	for _, dim := range d.shape {
		n *= dim
	}
	return n
}

// At returns the element at the given index, one coordinate per axis.
// It panics on rank mismatch or out-of-range coordinates.
func (d *Dense) At(idx ...int) float32 {
	if len(idx) != len(d.shape) {
		panic(fmt.Sprintf("patch: index rank %d does not match array rank %d", len(idx), len(d.shape)))
	}
	pos := 0
	for i, x := range idx {
		if x < 0 || x >= d.shape[i] {
			panic(fmt.Sprintf("patch: index %d out of range for axis %d of size %d", x, i, d.shape[i]))
		}
		pos = pos*d.shape[i] + x
	}
	return d.data[pos]
}

// Squeeze returns an array with every singleton axis removed, sharing
// storage with d. Squeezing a fully singleton array yields a scalar.
// The result no longer has a stable rank; callers needing the batched
// (P, C, kH, kW) layout should keep the unsqueezed array.
func (d *Dense) Squeeze() *Dense {
	shape := make([]int, 0, len(d.shape))
	for _, dim := range d.shape {
		if dim != 1 {
			shape = append(shape, dim)
		}
	}
	return &Dense{shape: shape, data: d.data}
}

package patch

import (
	"errors"
	"fmt"
)

var (
	// ErrKernelRequired is returned when the kernel size is not provided.
	ErrKernelRequired = errors.New("kernel must be given")
	// ErrStrideRequired is returned when the stride is not provided.
	ErrStrideRequired = errors.New("stride must be given")
	// ErrUnsupportedShape is returned for arrays of rank other than 2, 3 or 4.
	ErrUnsupportedShape = errors.New("unsupported array shape")
	// ErrKernelTooLarge is returned when the kernel exceeds the spatial
	// extent of the array.
	ErrKernelTooLarge = errors.New("kernel larger than array")
)

// Kernel is a patch size as (height, width).
// The zero value means the kernel was not provided.
type Kernel struct {
	H, W int
}

// Extract returns every sliding window of size k sampled at the given stride
// along both spatial axes of a.
//
// The array is interpreted positionally by rank and normalized to a batched
// (N, C, H, W) layout before windowing:
//
//	rank 2: (H, W), single channel, single sample
//	rank 3: (C, H, W), single sample
//	rank 4: (N, C, H, W)
//
// The result is a newly allocated (P, C, kH, kW) array with
// P = N * (floor((H-kH)/stride)+1) * (floor((W-kW)/stride)+1), patches
// ordered by sample, then vertical, then horizontal window position. Windows
// are copied; the result never aliases the input storage. The output rank is
// always 4; use Snapshots for the squeezed form.
func Extract(a Array, k Kernel, stride int) (*Dense, error) {
	// Preconditions fail before the array is touched.
	if k == (Kernel{}) {
		return nil, ErrKernelRequired
	}
	if k.H <= 0 || k.W <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrKernelRequired, k.H, k.W)
	}
	if stride <= 0 {
		return nil, ErrStrideRequired
	}
	if a == nil {
		return nil, fmt.Errorf("%w: nil array", ErrInvalidArray)
	}

	shape := a.Shape()
	var n, c, h, w int
	switch len(shape) {
	case 2:
		n, c, h, w = 1, 1, shape[0], shape[1]
	case 3:
		n, c, h, w = 1, shape[0], shape[1], shape[2]
	case 4:
		n, c, h, w = shape[0], shape[1], shape[2], shape[3]
	default:
		return nil, fmt.Errorf("%w: rank %d", ErrUnsupportedShape, len(shape))
	}
	if n <= 0 || c <= 0 || h <= 0 || w <= 0 {
		return nil, fmt.Errorf("%w: nonpositive dimension in %v", ErrInvalidArray, shape)
	}
	data := a.Data()
	if len(data) != n*c*h*w {
		return nil, fmt.Errorf("%w: shape %v requires %d values, got %d", ErrInvalidArray, shape, n*c*h*w, len(data))
	}
	if k.H > h || k.W > w {
		return nil, fmt.Errorf("%w: kernel %dx%d, extent %dx%d", ErrKernelTooLarge, k.H, k.W, h, w)
	}

	oh := (h-k.H)/stride + 1
	ow := (w-k.W)/stride + 1
	out := make([]float32, n*oh*ow*c*k.H*k.W)
	pos := 0
	for b := 0; b < n; b++ {
		for oy := 0; oy < oh; oy++ {
			for ox := 0; ox < ow; ox++ {
				for cc := 0; cc < c; cc++ {
					plane := (b*c + cc) * h * w
					for ky := 0; ky < k.H; ky++ {
						src := plane + (oy*stride+ky)*w + ox*stride
						copy(out[pos:pos+k.W], data[src:src+k.W])
						pos += k.W
					}
				}
			}
		}
	}
	return &Dense{shape: []int{n * oh * ow, c, k.H, k.W}, data: out}, nil
}

// Snapshots extracts patches like Extract and removes singleton axes from
// the result. A single-channel input therefore loses its channel axis and a
// single-patch result loses its batch axis. Callers requiring a stable
// 4-axis shape must use Extract instead.
func Snapshots(a Array, k Kernel, stride int) (*Dense, error) {
	d, err := Extract(a, k, stride)
	if err != nil {
		return nil, err
	}
	return d.Squeeze(), nil
}

package cloud

import (
	"errors"

	"github.com/seqsense/pcgol/mat"
	"github.com/seqsense/pcgol/pc"
)

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max mat.Vec3
}

func (b Box) IsValid() bool {
	return !(b.Min[0] > b.Max[0] ||
		b.Min[1] > b.Max[1] ||
		b.Min[2] > b.Max[2])
}

func (b Box) Contains(v mat.Vec3) bool {
	return !(v[0] < b.Min[0] ||
		v[1] < b.Min[1] ||
		v[2] < b.Min[2] ||
		b.Max[0] < v[0] ||
		b.Max[1] < v[1] ||
		b.Max[2] < v[2])
}

func (b Box) Intersection(o Box) Box {
	r := Box{}
	for i := range r.Min {
		r.Min[i] = max32(b.Min[i], o.Min[i])
		r.Max[i] = min32(b.Max[i], o.Max[i])
	}
	return r
}

// Crop returns the points of pp inside the box.
func Crop(pp *pc.PointCloud, b Box) (*pc.PointCloud, error) {
	if !b.IsValid() {
		return nil, errors.New("invalid crop box")
	}
	return PassThrough(pp, func(_ int, v mat.Vec3) bool {
		return b.Contains(v)
	})
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

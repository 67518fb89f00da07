package cloud

import (
	"github.com/seqsense/pcgol/mat"
	"github.com/seqsense/pcgol/pc"
)

// Recenter shifts all points in place so the minimum corner of the bounding
// box sits at the origin, keeping coordinates small for float32-sensitive
// consumers. It returns the offset that was subtracted.
func Recenter(pp *pc.PointCloud) (mat.Vec3, error) {
	it, err := pp.Vec3Iterator()
	if err != nil {
		return mat.Vec3{}, err
	}
	min, _, err := pc.MinMaxVec3(it)
	if err != nil {
		return mat.Vec3{}, err
	}

	it, err = pp.Vec3Iterator()
	if err != nil {
		return mat.Vec3{}, err
	}
	for i := 0; i < pp.Points; i++ {
		it.SetVec3(it.Vec3().Sub(min))
		it.Incr()
	}
	return min, nil
}

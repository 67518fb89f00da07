package cloud

import (
	"errors"
	"math"

	"github.com/seqsense/pcgol/mat"
	"github.com/seqsense/pcgol/pc"
)

// Denoise drops isolated points: a point survives only when at least
// minNeighbors other points lie within radius of it. Neighbor counting uses
// a uniform hash grid with cell size equal to the radius, so only the 27
// surrounding cells are scanned per point.
func Denoise(pp *pc.PointCloud, radius float32, minNeighbors int) (*pc.PointCloud, error) {
	if radius <= 0 {
		return nil, errors.New("radius must be positive")
	}
	if minNeighbors < 1 {
		return nil, errors.New("minNeighbors must be at least one")
	}

	it, err := pp.Vec3Iterator()
	if err != nil {
		return nil, err
	}
	pts := make([]mat.Vec3, pp.Points)
	cells := make(map[[3]int][]int, pp.Points)
	key := func(v mat.Vec3) [3]int {
		return [3]int{
			int(math.Floor(float64(v[0] / radius))),
			int(math.Floor(float64(v[1] / radius))),
			int(math.Floor(float64(v[2] / radius))),
		}
	}
	for i := 0; i < pp.Points; i++ {
		p := it.Vec3()
		pts[i] = p
		k := key(p)
		cells[k] = append(cells[k], i)
		it.Incr()
	}

	rSq := radius * radius
	keep := make([]bool, pp.Points)
	for i, p := range pts {
		k := key(p)
		n := 0
	L_CELLS:
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				for dz := -1; dz <= 1; dz++ {
					for _, j := range cells[[3]int{k[0] + dx, k[1] + dy, k[2] + dz}] {
						if j != i && p.Sub(pts[j]).NormSq() <= rSq {
							n++
							if n >= minNeighbors {
								break L_CELLS
							}
						}
					}
				}
			}
		}
		keep[i] = n >= minNeighbors
	}

	return PassThrough(pp, func(i int, _ mat.Vec3) bool {
		return keep[i]
	})
}

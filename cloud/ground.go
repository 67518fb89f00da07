package cloud

import (
	"errors"
	"fmt"

	"github.com/seqsense/pcgol/mat"
	"github.com/seqsense/pcgol/pc"
	"github.com/seqsense/pcgol/pc/sac"
	vgs "github.com/seqsense/pcgol/pc/segmentation/voxelgrid"
)

// Voxel cell budget for the segmentation grid.
const maxGroundCells = 1 << 24

// GroundConfig tunes dominant-surface removal.
type GroundConfig struct {
	Resolution float32 // segmentation voxel size
	Distance   float32 // max distance from the fitted surface to count as ground
	Iterations int     // SAC iterations
	MinPoints  int     // minimum inliers required to accept a surface
}

func DefaultGroundConfig() GroundConfig {
	return GroundConfig{
		Resolution: 0.3,
		Distance:   0.2,
		Iterations: 20,
		MinPoints:  50,
	}
}

// RemoveGround fits the dominant surface of the cloud with a sample
// consensus model over a voxel grid and drops its inliers. If no surface
// with at least MinPoints inliers is found, the cloud is returned unchanged.
func RemoveGround(pp *pc.PointCloud, cfg GroundConfig) (*pc.PointCloud, error) {
	if cfg.Resolution <= 0 || cfg.Distance <= 0 {
		return nil, errors.New("resolution and distance must be positive")
	}
	if cfg.Iterations <= 0 {
		return nil, errors.New("iterations must be positive")
	}

	it, err := pp.Vec3Iterator()
	if err != nil {
		return nil, err
	}
	min, max, err := pc.MinMaxVec3(it)
	if err != nil {
		return nil, err
	}
	size := max.Sub(min)
	nx := int(size[0]/cfg.Resolution) + 1
	ny := int(size[1]/cfg.Resolution) + 1
	nz := int(size[2]/cfg.Resolution) + 1
	if nx*ny*nz > maxGroundCells {
		return nil, fmt.Errorf("segmentation grid %dx%dx%d too fine for cloud extent", nx, ny, nz)
	}

	v := vgs.New(cfg.Resolution, [3]int{nx, ny, nz}, min)
	it, err = pp.Vec3Iterator()
	if err != nil {
		return nil, err
	}
	for i := 0; i < pp.Points; i++ {
		if a, ok := v.Addr(it.Vec3()); ok {
			v.AddByAddr(a, i)
		}
		it.Incr()
	}

	vIndice := v.Storage().Indice()
	it, err = pp.Vec3Iterator()
	if err != nil {
		return nil, err
	}
	raIn := pc.NewIndiceVec3RandomAccessor(it, vIndice)
	surface := sac.New(
		sac.NewRandomSampler(raIn.Len()),
		sac.NewVoxelGridSurfaceModel(v.Storage(), raIn),
	)
	if !surface.Compute(cfg.Iterations) {
		return pp, nil
	}
	inliers := surface.Coefficients().Inliers(cfg.Distance)
	if len(inliers) < cfg.MinPoints {
		return pp, nil
	}

	drop := make([]bool, pp.Points)
	for _, i := range inliers {
		drop[vIndice[i]] = true
	}
	return PassThrough(pp, func(i int, _ mat.Vec3) bool {
		return !drop[i]
	})
}

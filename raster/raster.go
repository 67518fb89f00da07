// Package raster projects point clouds onto 2D multi-channel grids
// consumable by the patch extractor.
package raster

import (
	"errors"
	"fmt"

	"github.com/seqsense/pcgol/pc"

	"github.com/pcdtools/lidarprep/patch"
)

// Channel layout of rasterized arrays.
const (
	ChannelHeight    = iota // maximum z per cell
	ChannelIntensity        // mean intensity per cell, zero without the field
	ChannelDensity          // point count per cell, normalized to [0, 1]
	NumChannels
)

// Cell budget guarding against a resolution far below the cloud extent.
const maxCells = 1 << 26

type Options struct {
	// Resolution is the cell edge length in cloud units.
	Resolution float32
}

// Rasterize projects pp onto the XY plane with the given cell resolution and
// returns a (NumChannels, H, W) array. The grid origin is the minimum corner
// of the bounding box; the row index grows with y, the column index with x.
// Cells without points are zero in every channel.
func Rasterize(pp *pc.PointCloud, opt Options) (*patch.Dense, error) {
	if opt.Resolution <= 0 {
		return nil, errors.New("resolution must be positive")
	}
	it, err := pp.Vec3Iterator()
	if err != nil {
		return nil, err
	}
	min, max, err := pc.MinMaxVec3(it)
	if err != nil {
		return nil, err
	}
	w := int((max[0]-min[0])/opt.Resolution) + 1
	h := int((max[1]-min[1])/opt.Resolution) + 1
	if w*h > maxCells {
		return nil, fmt.Errorf("raster grid %dx%d too fine for cloud extent", h, w)
	}

	heights := make([]float32, h*w)
	sums := make([]float32, h*w)
	counts := make([]int, h*w)

	var in pc.Float32Iterator
	for _, f := range pp.Fields {
		if f == "intensity" {
			if in, err = pp.Float32Iterator("intensity"); err != nil {
				return nil, err
			}
			break
		}
	}

	it, err = pp.Vec3Iterator()
	if err != nil {
		return nil, err
	}
	maxCount := 0
	for i := 0; i < pp.Points; i++ {
		p := it.Vec3()
		col := int((p[0] - min[0]) / opt.Resolution)
		row := int((p[1] - min[1]) / opt.Resolution)
		idx := row*w + col
		if counts[idx] == 0 || p[2] > heights[idx] {
			heights[idx] = p[2]
		}
		counts[idx]++
		if counts[idx] > maxCount {
			maxCount = counts[idx]
		}
		if in != nil {
			sums[idx] += in.Float32()
			in.Incr()
		}
		it.Incr()
	}

	data := make([]float32, NumChannels*h*w)
	for i, n := range counts {
		if n == 0 {
			continue
		}
		data[ChannelHeight*h*w+i] = heights[i]
		data[ChannelIntensity*h*w+i] = sums[i] / float32(n)
		data[ChannelDensity*h*w+i] = float32(n) / float32(maxCount)
	}
	return patch.NewDense([]int{NumChannels, h, w}, data)
}

// Package cloud prepares LiDAR point clouds for downstream processing:
// recentering, colorizing, cropping and cleanup filtering.
package cloud

import (
	"github.com/seqsense/pcgol/mat"
	"github.com/seqsense/pcgol/pc"
)

// PassThrough returns a new cloud containing the points accepted by fn.
// fn receives the point index and position. Runs of accepted points are
// copied in blocks. The input cloud is left untouched.
func PassThrough(pp *pc.PointCloud, fn func(int, mat.Vec3) bool) (*pc.PointCloud, error) {
	it, err := pp.Vec3Iterator()
	if err != nil {
		return nil, err
	}
	out := &pc.PointCloud{
		PointCloudHeader: pp.PointCloudHeader.Clone(),
		Points:           pp.Points,
		Data:             make([]byte, len(pp.Data)),
	}

	var kept int
	runStart := -1
	runDst := 0
	flush := func(end int) {
		if runStart >= 0 {
			pc.Copy(out, runDst, pp, runStart, end-runStart)
			runStart = -1
		}
	}
	for i := 0; i < pp.Points; i++ {
		if fn(i, it.Vec3()) {
			if runStart < 0 {
				runStart, runDst = i, kept
			}
			kept++
		} else {
			flush(i)
		}
		it.Incr()
	}
	flush(pp.Points)

	out.Points = kept
	out.Width = kept
	out.Height = 1
	out.Data = out.Data[: kept*out.Stride() : kept*out.Stride()]
	return out, nil
}

func hasField(pp *pc.PointCloud, name string) bool {
	for _, f := range pp.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// withField returns a copy of pp extended by one scalar field of the given
// PCD type letter. Existing per-point data is re-strided into the wider
// layout; the new field starts zeroed.
func withField(pp *pc.PointCloud, name, typ string, size int) *pc.PointCloud {
	out := &pc.PointCloud{
		PointCloudHeader: pp.PointCloudHeader.Clone(),
		Points:           pp.Points,
	}
	out.Fields = append(out.Fields, name)
	out.Size = append(out.Size, size)
	out.Type = append(out.Type, typ)
	out.Count = append(out.Count, 1)

	oldStride, newStride := pp.Stride(), out.Stride()
	out.Data = make([]byte, pp.Points*newStride)
	for i := 0; i < pp.Points; i++ {
		copy(out.Data[i*newStride:i*newStride+oldStride], pp.Data[i*oldStride:(i+1)*oldStride])
	}
	return out
}

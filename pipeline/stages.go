package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/seqsense/pcgol/mat"
	"github.com/seqsense/pcgol/pc"
	"github.com/seqsense/pcgol/pc/filter/voxelgrid"

	"github.com/pcdtools/lidarprep/cloud"
	"github.com/pcdtools/lidarprep/patch"
	"github.com/pcdtools/lidarprep/patchfile"
	"github.com/pcdtools/lidarprep/raster"
)

func init() {
	stageTypes["readers.pcd"] = func(rm json.RawMessage) (Stage, error) {
		s := &readPCD{}
		return s, decodeStrict(rm, s)
	}
	stageTypes["writers.pcd"] = func(rm json.RawMessage) (Stage, error) {
		s := &writePCD{}
		return s, decodeStrict(rm, s)
	}
	stageTypes["writers.patches"] = func(rm json.RawMessage) (Stage, error) {
		s := &writePatches{}
		return s, decodeStrict(rm, s)
	}
	stageTypes["filters.recenter"] = func(rm json.RawMessage) (Stage, error) {
		s := &recenterFilter{}
		return s, decodeStrict(rm, s)
	}
	stageTypes["filters.colorize"] = func(rm json.RawMessage) (Stage, error) {
		s := &colorizeFilter{}
		return s, decodeStrict(rm, s)
	}
	stageTypes["filters.crop"] = func(rm json.RawMessage) (Stage, error) {
		s := &cropFilter{}
		return s, decodeStrict(rm, s)
	}
	stageTypes["filters.voxelgrid"] = func(rm json.RawMessage) (Stage, error) {
		s := &voxelgridFilter{}
		return s, decodeStrict(rm, s)
	}
	stageTypes["filters.ground"] = func(rm json.RawMessage) (Stage, error) {
		s := &groundFilter{}
		return s, decodeStrict(rm, s)
	}
	stageTypes["filters.denoise"] = func(rm json.RawMessage) (Stage, error) {
		s := &denoiseFilter{}
		return s, decodeStrict(rm, s)
	}
}

type readPCD struct {
	Type     string `json:"type,omitempty"`
	Filename string `json:"filename"`
}

func (s *readPCD) Name() string { return "readers.pcd" }

func (s *readPCD) Run(_ *pc.PointCloud) (*pc.PointCloud, error) {
	if s.Filename == "" {
		return nil, errors.New("filename is required")
	}
	f, err := os.Open(s.Filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return pc.Unmarshal(f)
}

type writePCD struct {
	Type     string `json:"type,omitempty"`
	Filename string `json:"filename"`
}

func (s *writePCD) Name() string { return "writers.pcd" }

func (s *writePCD) Run(pp *pc.PointCloud) (*pc.PointCloud, error) {
	if s.Filename == "" {
		return nil, errors.New("filename is required")
	}
	f, err := os.Create(s.Filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := pc.Marshal(pp, f); err != nil {
		return nil, err
	}
	return pp, nil
}

type recenterFilter struct {
	Type string `json:"type,omitempty"`
}

func (s *recenterFilter) Name() string { return "filters.recenter" }

func (s *recenterFilter) Run(pp *pc.PointCloud) (*pc.PointCloud, error) {
	offset, err := cloud.Recenter(pp)
	if err != nil {
		return nil, err
	}
	log.Printf("filters.recenter: applied offset (%f, %f, %f)", -offset[0], -offset[1], -offset[2])
	return pp, nil
}

type colorizeFilter struct {
	Type string `json:"type,omitempty"`
}

func (s *colorizeFilter) Name() string { return "filters.colorize" }

func (s *colorizeFilter) Run(pp *pc.PointCloud) (*pc.PointCloud, error) {
	return cloud.Colorize(pp)
}

type cropFilter struct {
	Type string    `json:"type,omitempty"`
	Min  []float32 `json:"min"`
	Max  []float32 `json:"max"`
}

func (s *cropFilter) Name() string { return "filters.crop" }

func (s *cropFilter) Run(pp *pc.PointCloud) (*pc.PointCloud, error) {
	if len(s.Min) != 3 || len(s.Max) != 3 {
		return nil, errors.New("min and max must each have three components")
	}
	box := cloud.Box{
		Min: mat.Vec3{s.Min[0], s.Min[1], s.Min[2]},
		Max: mat.Vec3{s.Max[0], s.Max[1], s.Max[2]},
	}
	if !box.IsValid() {
		return nil, fmt.Errorf("invalid crop box min=%v max=%v", s.Min, s.Max)
	}
	return cloud.Crop(pp, box)
}

type voxelgridFilter struct {
	Type string  `json:"type,omitempty"`
	Leaf float32 `json:"leaf"`
}

func (s *voxelgridFilter) Name() string { return "filters.voxelgrid" }

func (s *voxelgridFilter) Run(pp *pc.PointCloud) (*pc.PointCloud, error) {
	if s.Leaf <= 0 {
		return nil, errors.New("leaf must be positive")
	}
	vg := voxelgrid.New(mat.Vec3{s.Leaf, s.Leaf, s.Leaf})
	return vg.Filter(pp)
}

type groundFilter struct {
	Type       string  `json:"type,omitempty"`
	Resolution float32 `json:"resolution,omitempty"`
	Distance   float32 `json:"distance,omitempty"`
	Iterations int     `json:"iterations,omitempty"`
	MinPoints  int     `json:"min_points,omitempty"`
}

func (s *groundFilter) Name() string { return "filters.ground" }

func (s *groundFilter) Run(pp *pc.PointCloud) (*pc.PointCloud, error) {
	cfg := cloud.DefaultGroundConfig()
	if s.Resolution > 0 {
		cfg.Resolution = s.Resolution
	}
	if s.Distance > 0 {
		cfg.Distance = s.Distance
	}
	if s.Iterations > 0 {
		cfg.Iterations = s.Iterations
	}
	if s.MinPoints > 0 {
		cfg.MinPoints = s.MinPoints
	}
	return cloud.RemoveGround(pp, cfg)
}

type denoiseFilter struct {
	Type         string  `json:"type,omitempty"`
	Radius       float32 `json:"radius"`
	MinNeighbors int     `json:"min_neighbors,omitempty"`
}

func (s *denoiseFilter) Name() string { return "filters.denoise" }

func (s *denoiseFilter) Run(pp *pc.PointCloud) (*pc.PointCloud, error) {
	minNeighbors := s.MinNeighbors
	if minNeighbors == 0 {
		minNeighbors = 2
	}
	return cloud.Denoise(pp, s.Radius, minNeighbors)
}

type writePatches struct {
	Type        string  `json:"type,omitempty"`
	Filename    string  `json:"filename"`
	Resolution  float32 `json:"resolution"`
	Kernel      []int   `json:"kernel"`
	Stride      int     `json:"stride"`
	Squeeze     bool    `json:"squeeze,omitempty"`
	Compression string  `json:"compression,omitempty"`
}

func (s *writePatches) Name() string { return "writers.patches" }

func (s *writePatches) Run(pp *pc.PointCloud) (*pc.PointCloud, error) {
	if s.Filename == "" {
		return nil, errors.New("filename is required")
	}
	if len(s.Kernel) != 2 {
		return nil, errors.New("kernel must be [height, width]")
	}
	format := patchfile.Binary
	switch s.Compression {
	case "", "none":
	case "lzf":
		format = patchfile.BinaryCompressed
	default:
		return nil, fmt.Errorf("unknown compression %q", s.Compression)
	}

	arr, err := raster.Rasterize(pp, raster.Options{Resolution: s.Resolution})
	if err != nil {
		return nil, err
	}
	kernel := patch.Kernel{H: s.Kernel[0], W: s.Kernel[1]}
	var patches *patch.Dense
	if s.Squeeze {
		patches, err = patch.Snapshots(arr, kernel, s.Stride)
	} else {
		patches, err = patch.Extract(arr, kernel, s.Stride)
	}
	if err != nil {
		return nil, err
	}

	f, err := os.Create(s.Filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	batch := &patchfile.Batch{Kernel: kernel, Stride: s.Stride, Array: patches}
	if err := patchfile.Write(f, batch, format); err != nil {
		return nil, err
	}
	return pp, nil
}

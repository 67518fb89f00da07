package main

import (
	"flag"
	"log"
	"os"

	"github.com/seqsense/pcgol/mat"
	"github.com/seqsense/pcgol/pc"
	"github.com/seqsense/pcgol/pc/filter/voxelgrid"

	"github.com/pcdtools/lidarprep/cloud"
	"github.com/pcdtools/lidarprep/patch"
	"github.com/pcdtools/lidarprep/patchfile"
	"github.com/pcdtools/lidarprep/pipeline"
	"github.com/pcdtools/lidarprep/raster"
)

func main() {
	in := flag.String("in", "", "Input PCD file")
	out := flag.String("out", "", "Output PCD file (recentered, colorized)")
	patchesOut := flag.String("patches", "", "Output patch file (rasterized sliding windows)")
	pipelineFile := flag.String("pipeline", "", "Pipeline JSON file (overrides the linear flow)")
	configFile := flag.String("config", "", "YAML config file with processing defaults")

	resolution := flag.Float64("resolution", 0, "Raster cell size in meters (overrides config)")
	kernel := flag.Int("kernel", 0, "Square window size in cells (overrides config)")
	stride := flag.Int("stride", 0, "Window step in cells (overrides config)")
	voxelLeaf := flag.Float64("voxel-leaf", 0, "Voxel grid leaf size, 0 disables downsampling")
	removeGround := flag.Bool("remove-ground", false, "Drop the dominant ground plane before export")
	denoise := flag.Bool("denoise", false, "Drop isolated outlier points before export")
	flag.Parse()

	if *pipelineFile != "" {
		b, err := os.ReadFile(*pipelineFile)
		if err != nil {
			log.Fatalf("Could not read pipeline file: %v", err)
		}
		p, err := pipeline.Parse(b)
		if err != nil {
			log.Fatalf("Invalid pipeline: %v", err)
		}
		if err := p.Run(); err != nil {
			log.Fatalf("Pipeline failed: %v", err)
		}
		return
	}

	if *in == "" {
		log.Fatal("Either -in or -pipeline is required")
	}
	if *out == "" && *patchesOut == "" {
		log.Fatal("Nothing to do: set -out and/or -patches")
	}

	cfg := defaultConfig()
	if *configFile != "" {
		var err error
		cfg, err = loadConfig(*configFile)
		if err != nil {
			log.Fatalf("Could not load config: %v", err)
		}
	}
	if *resolution > 0 {
		cfg.Resolution = float32(*resolution)
	}
	if *kernel > 0 {
		cfg.Kernel = []int{*kernel, *kernel}
	}
	if *stride > 0 {
		cfg.Stride = *stride
	}
	if *voxelLeaf > 0 {
		cfg.VoxelLeaf = float32(*voxelLeaf)
	}
	if *removeGround {
		cfg.Ground.Enabled = true
	}
	if *denoise {
		cfg.Denoise.Enabled = true
	}
	if err := cfg.validate(); err != nil {
		log.Fatalf("Invalid settings: %v", err)
	}

	pp := loadPCD(*in)
	log.Printf("Loaded %s: %d points", *in, pp.Points)

	offset, err := cloud.Recenter(pp)
	if err != nil {
		log.Fatalf("Recenter failed: %v", err)
	}
	log.Printf("Recentered by (%f, %f, %f)", -offset[0], -offset[1], -offset[2])

	pp, err = cloud.Colorize(pp)
	if err != nil {
		log.Fatalf("Colorize failed: %v", err)
	}

	if cfg.VoxelLeaf > 0 {
		vg := voxelgrid.New(mat.Vec3{cfg.VoxelLeaf, cfg.VoxelLeaf, cfg.VoxelLeaf})
		pp, err = vg.Filter(pp)
		if err != nil {
			log.Fatalf("Voxel grid filter failed: %v", err)
		}
		log.Printf("Downsampled to %d points (leaf %f)", pp.Points, cfg.VoxelLeaf)
	}
	if cfg.Ground.Enabled {
		gc := cloud.DefaultGroundConfig()
		if cfg.Ground.Resolution > 0 {
			gc.Resolution = cfg.Ground.Resolution
		}
		if cfg.Ground.Distance > 0 {
			gc.Distance = cfg.Ground.Distance
		}
		if cfg.Ground.Iterations > 0 {
			gc.Iterations = cfg.Ground.Iterations
		}
		if cfg.Ground.MinPoints > 0 {
			gc.MinPoints = cfg.Ground.MinPoints
		}
		pp, err = cloud.RemoveGround(pp, gc)
		if err != nil {
			log.Fatalf("Ground removal failed: %v", err)
		}
		log.Printf("Ground removed, %d points remain", pp.Points)
	}
	if cfg.Denoise.Enabled {
		pp, err = cloud.Denoise(pp, cfg.Denoise.Radius, cfg.Denoise.MinNeighbors)
		if err != nil {
			log.Fatalf("Denoise failed: %v", err)
		}
		log.Printf("Denoised, %d points remain", pp.Points)
	}

	if *out != "" {
		savePCD(*out, pp)
		log.Printf("Wrote %s", *out)
	}
	if *patchesOut != "" {
		writePatches(*patchesOut, pp, cfg)
	}
}

func loadPCD(path string) *pc.PointCloud {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Could not open %s: %v", path, err)
	}
	defer f.Close()
	pp, err := pc.Unmarshal(f)
	if err != nil {
		log.Fatalf("Could not parse %s: %v", path, err)
	}
	return pp
}

func savePCD(path string, pp *pc.PointCloud) {
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("Could not create %s: %v", path, err)
	}
	defer f.Close()
	if err := pc.Marshal(pp, f); err != nil {
		log.Fatalf("Could not write %s: %v", path, err)
	}
}

func writePatches(path string, pp *pc.PointCloud, cfg config) {
	arr, err := raster.Rasterize(pp, raster.Options{Resolution: cfg.Resolution})
	if err != nil {
		log.Fatalf("Rasterize failed: %v", err)
	}
	k := patch.Kernel{H: cfg.Kernel[0], W: cfg.Kernel[1]}
	var patches *patch.Dense
	if cfg.Squeeze {
		patches, err = patch.Snapshots(arr, k, cfg.Stride)
	} else {
		patches, err = patch.Extract(arr, k, cfg.Stride)
	}
	if err != nil {
		log.Fatalf("Patch extraction failed: %v", err)
	}

	format := patchfile.Binary
	if cfg.Compression == "lzf" {
		format = patchfile.BinaryCompressed
	}
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("Could not create %s: %v", path, err)
	}
	defer f.Close()
	batch := &patchfile.Batch{Kernel: k, Stride: cfg.Stride, Array: patches}
	if err := patchfile.Write(f, batch, format); err != nil {
		log.Fatalf("Could not write %s: %v", path, err)
	}
	log.Printf("Wrote %s: %v patches", path, patches.Shape()[0])
}

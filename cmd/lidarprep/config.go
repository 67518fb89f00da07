package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// config carries defaults for the linear flow. Flags override any value
// set here.
type config struct {
	Resolution  float32 `yaml:"resolution"`
	Kernel      []int   `yaml:"kernel"`
	Stride      int     `yaml:"stride"`
	Squeeze     bool    `yaml:"squeeze"`
	Compression string  `yaml:"compression"`

	VoxelLeaf float32 `yaml:"voxel_leaf"`

	Ground struct {
		Enabled    bool    `yaml:"enabled"`
		Resolution float32 `yaml:"resolution"`
		Distance   float32 `yaml:"distance"`
		Iterations int     `yaml:"iterations"`
		MinPoints  int     `yaml:"min_points"`
	} `yaml:"ground"`

	Denoise struct {
		Enabled      bool    `yaml:"enabled"`
		Radius       float32 `yaml:"radius"`
		MinNeighbors int     `yaml:"min_neighbors"`
	} `yaml:"denoise"`
}

func defaultConfig() config {
	c := config{
		Resolution:  0.1,
		Kernel:      []int{32, 32},
		Stride:      16,
		Compression: "lzf",
	}
	c.Denoise.Radius = 0.5
	c.Denoise.MinNeighbors = 2
	return c
}

func loadConfig(path string) (config, error) {
	c := defaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (c *config) validate() error {
	if c.Resolution <= 0 {
		return fmt.Errorf("resolution must be positive, got %f", c.Resolution)
	}
	if len(c.Kernel) != 2 || c.Kernel[0] < 1 || c.Kernel[1] < 1 {
		return fmt.Errorf("kernel must be two positive integers, got %v", c.Kernel)
	}
	if c.Stride < 1 {
		return fmt.Errorf("stride must be positive, got %d", c.Stride)
	}
	switch c.Compression {
	case "", "none", "lzf":
	default:
		return fmt.Errorf("unknown compression %q", c.Compression)
	}
	return nil
}

package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/seqsense/pcgol/mat"
	"github.com/seqsense/pcgol/pc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcdtools/lidarprep/patchfile"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("InferredStages", func(t *testing.T) {
		t.Parallel()
		p, err := Parse([]byte(`{"pipeline": ["in.pcd", {"type": "filters.recenter"}, "out.pcd"]}`))
		require.NoError(t, err)
		require.Len(t, p.Stages(), 3)
		assert.Equal(t, "readers.pcd", p.Stages()[0].Name())
		assert.Equal(t, "filters.recenter", p.Stages()[1].Name())
		assert.Equal(t, "writers.pcd", p.Stages()[2].Name())
	})

	t.Run("Errors", func(t *testing.T) {
		t.Parallel()
		for name, in := range map[string]string{
			"Empty":             `{"pipeline": []}`,
			"UnknownType":       `{"pipeline": [{"type": "readers.las", "filename": "a.las"}]}`,
			"UnknownOption":     `{"pipeline": ["in.pcd", {"type": "filters.denoise", "radius": 1, "bogus": true}]}`,
			"UninferrableName":  `{"pipeline": ["in.las"]}`,
			"FilterFirst":       `{"pipeline": [{"type": "filters.recenter"}]}`,
			"SecondReader":      `{"pipeline": ["in.pcd", {"type": "readers.pcd", "filename": "other.pcd"}]}`,
			"FilterAfterWriter": `{"pipeline": ["in.pcd", "out.pcd", {"type": "filters.recenter"}]}`,
		} {
			in := in
			t.Run(name, func(t *testing.T) {
				t.Parallel()
				_, err := Parse([]byte(in))
				assert.Error(t, err)
			})
		}
	})

	t.Run("BareStringWriter", func(t *testing.T) {
		t.Parallel()
		// A bare .pcd string after the reader is a writer, not a second
		// reader.
		p, err := Parse([]byte(`{"pipeline": ["in.pcd", "out.pcd"]}`))
		require.NoError(t, err)
		assert.Equal(t, "writers.pcd", p.Stages()[1].Name())
	})
}

func testCloud(t *testing.T, n int) *pc.PointCloud {
	t.Helper()
	pp := &pc.PointCloud{
		PointCloudHeader: pc.PointCloudHeader{
			Version:   0.7,
			Fields:    []string{"x", "y", "z"},
			Size:      []int{4, 4, 4},
			Type:      []string{"F", "F", "F"},
			Count:     []int{1, 1, 1},
			Viewpoint: []float32{0, 0, 0, 1, 0, 0, 0},
			Width:     n,
			Height:    1,
		},
		Points: n,
	}
	pp.Data = make([]byte, n*pp.Stride())
	it, err := pp.Vec3Iterator()
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		it.SetVec3(mat.Vec3{float32(i%5) + 10, float32(i/5) + 20, 1})
		it.Incr()
	}
	return pp
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pcd")
	out := filepath.Join(dir, "out.pcd")
	patches := filepath.Join(dir, "out.snap")

	f, err := os.Create(in)
	require.NoError(t, err)
	require.NoError(t, pc.Marshal(testCloud(t, 25), f))
	require.NoError(t, f.Close())

	p, err := Parse([]byte(`{"pipeline": [
		{"type": "readers.pcd", "filename": "` + in + `"},
		{"type": "filters.recenter"},
		{"type": "writers.pcd", "filename": "` + out + `"},
		{"type": "writers.patches", "filename": "` + patches + `",
		 "resolution": 1, "kernel": [2, 2], "stride": 1, "compression": "lzf"}
	]}`))
	require.NoError(t, err)
	require.NoError(t, p.Run())

	fo, err := os.Open(out)
	require.NoError(t, err)
	defer fo.Close()
	pp, err := pc.Unmarshal(fo)
	require.NoError(t, err)
	require.Equal(t, 25, pp.Points)

	// Recentered: the minimum corner is at the origin.
	it, err := pp.Vec3Iterator()
	require.NoError(t, err)
	min, _, err := pc.MinMaxVec3(it)
	require.NoError(t, err)
	assert.True(t, min.Equal(mat.Vec3{0, 0, 0}), "min = %v", min)

	fp, err := os.Open(patches)
	require.NoError(t, err)
	defer fp.Close()
	batch, err := patchfile.Read(fp)
	require.NoError(t, err)
	// 5x5 raster, 2x2 kernel, stride 1: 4x4 windows over 3 channels.
	assert.Equal(t, []int{16, 3, 2, 2}, batch.Array.Shape())
	assert.Equal(t, 1, batch.Stride)
}

func TestRunPropagatesStageError(t *testing.T) {
	t.Parallel()
	p, err := Parse([]byte(`{"pipeline": [{"type": "readers.pcd", "filename": "/nonexistent/x.pcd"}]}`))
	require.NoError(t, err)
	err = p.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "readers.pcd")
}

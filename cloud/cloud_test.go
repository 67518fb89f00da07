package cloud

import (
	"reflect"
	"testing"

	"github.com/seqsense/pcgol/mat"
	"github.com/seqsense/pcgol/pc"
)

func newXYZCloud(t *testing.T, pts []mat.Vec3) *pc.PointCloud {
	t.Helper()
	pp := &pc.PointCloud{
		PointCloudHeader: pc.PointCloudHeader{
			Fields: []string{"x", "y", "z"},
			Size:   []int{4, 4, 4},
			Type:   []string{"F", "F", "F"},
			Count:  []int{1, 1, 1},
			Width:  len(pts),
			Height: 1,
		},
		Points: len(pts),
	}
	pp.Data = make([]byte, len(pts)*pp.Stride())
	it, err := pp.Vec3Iterator()
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range pts {
		it.SetVec3(p)
		it.Incr()
	}
	return pp
}

func newXYZICloud(t *testing.T, pts []mat.Vec3, intensity []float32) *pc.PointCloud {
	t.Helper()
	if len(pts) != len(intensity) {
		t.Fatal("points and intensities must have same length")
	}
	pp := &pc.PointCloud{
		PointCloudHeader: pc.PointCloudHeader{
			Fields: []string{"x", "y", "z", "intensity"},
			Size:   []int{4, 4, 4, 4},
			Type:   []string{"F", "F", "F", "F"},
			Count:  []int{1, 1, 1, 1},
			Width:  len(pts),
			Height: 1,
		},
		Points: len(pts),
	}
	pp.Data = make([]byte, len(pts)*pp.Stride())
	it, err := pp.Vec3Iterator()
	if err != nil {
		t.Fatal(err)
	}
	ft, err := pp.Float32Iterator("intensity")
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range pts {
		it.SetVec3(p)
		ft.SetFloat32(intensity[i])
		it.Incr()
		ft.Incr()
	}
	return pp
}

func cloudVecs(t *testing.T, pp *pc.PointCloud) []mat.Vec3 {
	t.Helper()
	it, err := pp.Vec3Iterator()
	if err != nil {
		t.Fatal(err)
	}
	out := make([]mat.Vec3, pp.Points)
	for i := 0; i < pp.Points; i++ {
		out[i] = it.Vec3()
		it.Incr()
	}
	return out
}

func TestPassThrough(t *testing.T) {
	pts := []mat.Vec3{
		{0, 0, 0},
		{1, 0, 0},
		{2, 0, 0},
		{3, 0, 0},
		{4, 0, 0},
	}
	pp := newXYZCloud(t, pts)

	out, err := PassThrough(pp, func(i int, _ mat.Vec3) bool {
		return i%2 == 0
	})
	if err != nil {
		t.Fatal(err)
	}

	expected := []mat.Vec3{pts[0], pts[2], pts[4]}
	if out.Points != len(expected) {
		t.Fatalf("Expected %d points, got %d", len(expected), out.Points)
	}
	if got := cloudVecs(t, out); !reflect.DeepEqual(expected, got) {
		t.Errorf("Expected:\n%v\nGot:\n%v", expected, got)
	}
	if pp.Points != len(pts) {
		t.Errorf("Input cloud must not be modified, got %d points", pp.Points)
	}
}

func TestCrop(t *testing.T) {
	pts := []mat.Vec3{
		{0, 0, 0},
		{1, 1, 1},
		{2, 2, 2},
		{5, 1, 1},
	}
	pp := newXYZCloud(t, pts)

	out, err := Crop(pp, Box{Min: mat.Vec3{0.5, 0.5, 0.5}, Max: mat.Vec3{3, 3, 3}})
	if err != nil {
		t.Fatal(err)
	}
	expected := []mat.Vec3{pts[1], pts[2]}
	if got := cloudVecs(t, out); !reflect.DeepEqual(expected, got) {
		t.Errorf("Expected:\n%v\nGot:\n%v", expected, got)
	}

	if _, err := Crop(pp, Box{Min: mat.Vec3{1, 0, 0}, Max: mat.Vec3{0, 1, 1}}); err == nil {
		t.Error("Expected error for invalid box")
	}
}

func TestBoxIntersection(t *testing.T) {
	a := Box{Min: mat.Vec3{0, 0, 0}, Max: mat.Vec3{2, 2, 2}}
	b := Box{Min: mat.Vec3{1, 1, 1}, Max: mat.Vec3{3, 3, 3}}
	is := a.Intersection(b)
	expected := Box{Min: mat.Vec3{1, 1, 1}, Max: mat.Vec3{2, 2, 2}}
	if !reflect.DeepEqual(expected, is) {
		t.Errorf("Expected: %v, got: %v", expected, is)
	}
	if !is.IsValid() {
		t.Error("Intersection of overlapping boxes must be valid")
	}

	c := Box{Min: mat.Vec3{5, 5, 5}, Max: mat.Vec3{6, 6, 6}}
	if a.Intersection(c).IsValid() {
		t.Error("Intersection of disjoint boxes must be invalid")
	}
}

func TestWithField(t *testing.T) {
	pts := []mat.Vec3{{1, 2, 3}, {4, 5, 6}}
	pp := newXYZCloud(t, pts)

	out := withField(pp, "rgb", "F", 4)
	if expected := []string{"x", "y", "z", "rgb"}; !reflect.DeepEqual(expected, out.Fields) {
		t.Errorf("Expected fields: %v, got: %v", expected, out.Fields)
	}
	if out.Stride() != pp.Stride()+4 {
		t.Errorf("Expected stride %d, got %d", pp.Stride()+4, out.Stride())
	}
	if got := cloudVecs(t, out); !reflect.DeepEqual(pts, got) {
		t.Errorf("Point data must survive re-striding, expected %v, got %v", pts, got)
	}
}

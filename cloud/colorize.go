package cloud

import (
	"math"

	"github.com/seqsense/pcgol/pc"
	"gonum.org/v1/gonum/floats"
)

const colorDepth16 = 65535.0

// Colorize returns a cloud carrying a packed PCD rgb field.
//
// Color sources are tried in order: existing red/green/blue fields (16-bit
// range, scaled down to 8-bit), then an intensity field mapped to grayscale
// after normalization by the cloud maximum. A cloud that already has rgb,
// or has no usable attribute, is returned as is. Source fields must be
// 4-byte scalars.
func Colorize(pp *pc.PointCloud) (*pc.PointCloud, error) {
	switch {
	case hasField(pp, "rgb"):
		return pp, nil
	case hasField(pp, "red") && hasField(pp, "green") && hasField(pp, "blue"):
		return colorizeRGB(pp)
	case hasField(pp, "intensity"):
		return colorizeIntensity(pp)
	}
	return pp, nil
}

func colorizeRGB(pp *pc.PointCloud) (*pc.PointCloud, error) {
	out := withField(pp, "rgb", "F", 4)
	its, err := out.Float32Iterators("red", "green", "blue", "rgb")
	if err != nil {
		return nil, err
	}
	rt, gt, bt, ct := its[0], its[1], its[2], its[3]
	for i := 0; i < out.Points; i++ {
		ct.SetFloat32(packRGB(scale16(rt.Float32()), scale16(gt.Float32()), scale16(bt.Float32())))
		rt.Incr()
		gt.Incr()
		bt.Incr()
		ct.Incr()
	}
	return out, nil
}

func colorizeIntensity(pp *pc.PointCloud) (*pc.PointCloud, error) {
	out := withField(pp, "rgb", "F", 4)
	if out.Points == 0 {
		return out, nil
	}

	in, err := out.Float32Iterator("intensity")
	if err != nil {
		return nil, err
	}
	vals := make([]float64, out.Points)
	for i := 0; i < out.Points; i++ {
		vals[i] = float64(in.Float32())
		in.Incr()
	}
	scale := floats.Max(vals)
	if scale <= 0 {
		scale = 1
	}

	its, err := out.Float32Iterators("intensity", "rgb")
	if err != nil {
		return nil, err
	}
	in, ct := its[0], its[1]
	for i := 0; i < out.Points; i++ {
		g := scaleUnit(float64(in.Float32()) / scale)
		ct.SetFloat32(packRGB(g, g, g))
		in.Incr()
		ct.Incr()
	}
	return out, nil
}

// scale16 maps a 16-bit color component to 8 bits.
func scale16(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= colorDepth16 {
		return 255
	}
	return uint8(v/colorDepth16*255 + 0.5)
}

func scaleUnit(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// packRGB packs 8-bit components into the PCD rgb float convention
// (0x00RRGGBB in the float's bit pattern).
func packRGB(r, g, b uint8) float32 {
	return math.Float32frombits(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// UnpackRGB is the inverse of the packed PCD rgb float convention.
func UnpackRGB(v float32) (r, g, b uint8) {
	bits := math.Float32bits(v)
	return uint8(bits >> 16), uint8(bits >> 8), uint8(bits)
}

package patchfile

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/pcdtools/lidarprep/patch"
)

func testBatch(t *testing.T) *Batch {
	t.Helper()
	data := make([]float32, 2*3*2*2)
	for i := range data {
		data[i] = float32(i) * 0.5
	}
	arr, err := patch.NewDense([]int{2, 3, 2, 2}, data)
	if err != nil {
		t.Fatal(err)
	}
	return &Batch{
		Kernel: patch.Kernel{H: 2, W: 2},
		Stride: 2,
		Array:  arr,
	}
}

func TestWriteRead(t *testing.T) {
	for name, format := range map[string]Format{
		"Binary":           Binary,
		"BinaryCompressed": BinaryCompressed,
	} {
		t.Run(name, func(t *testing.T) {
			in := testBatch(t)
			var buf bytes.Buffer
			if err := Write(&buf, in, format); err != nil {
				t.Fatal(err)
			}
			out, err := Read(&buf)
			if err != nil {
				t.Fatal(err)
			}
			if out.Kernel != in.Kernel {
				t.Errorf("Expected kernel: %v, got: %v", in.Kernel, out.Kernel)
			}
			if out.Stride != in.Stride {
				t.Errorf("Expected stride: %d, got: %d", in.Stride, out.Stride)
			}
			if !reflect.DeepEqual(in.Array.Shape(), out.Array.Shape()) {
				t.Errorf("Expected shape: %v, got: %v", in.Array.Shape(), out.Array.Shape())
			}
			if !reflect.DeepEqual(in.Array.Data(), out.Array.Data()) {
				t.Errorf("Data mismatch after roundtrip")
			}
		})
	}
}

func TestReadInvalidHeader(t *testing.T) {
	for name, in := range map[string]string{
		"MissingValue":  "VERSION 1\nSHAPE\nDATA binary\n",
		"UnknownFormat": "VERSION 1\nSHAPE 4\nDATA base64\n",
		"MissingShape":  "VERSION 1\nKERNEL 2 2\nSTRIDE 1\nDATA binary\n",
		"BadKernel":     "VERSION 1\nSHAPE 4\nKERNEL 2\nDATA binary\n",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(in)); err == nil {
				t.Error("Expected error for malformed header")
			}
		})
	}
}

func TestReadTruncatedData(t *testing.T) {
	in := testBatch(t)
	var buf bytes.Buffer
	if err := Write(&buf, in, Binary); err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()
	if _, err := Read(bytes.NewReader(b[:len(b)-4])); err == nil {
		t.Error("Expected error for truncated payload")
	}
}

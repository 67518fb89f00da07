// Package patchfile reads and writes extracted patch batches as a simple
// container: a plain-text header describing the array, followed by the
// little-endian float32 payload, raw or LZF-compressed.
package patchfile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/zhuyie/golzf"

	"github.com/pcdtools/lidarprep/patch"
	"github.com/pcdtools/lidarprep/internal/float"
)

type Format int

const (
	Binary Format = iota
	BinaryCompressed
)

// Batch is a stored patch batch: the extracted array plus the kernel and
// stride that produced it.
type Batch struct {
	Kernel patch.Kernel
	Stride int
	Array  *patch.Dense
}

// Write serializes b. A squeezed scalar array is stored with shape "1".
func Write(w io.Writer, b *Batch, format Format) error {
	if b == nil || b.Array == nil {
		return errors.New("nil batch")
	}
	shape := b.Array.Shape()
	if len(shape) == 0 {
		shape = []int{1}
	}
	data := float.Float32SliceAsByteSlice(b.Array.Data())

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "VERSION 1")
	fmt.Fprintln(bw, "SHAPE "+joinInts(shape))
	fmt.Fprintf(bw, "KERNEL %d %d\n", b.Kernel.H, b.Kernel.W)
	fmt.Fprintf(bw, "STRIDE %d\n", b.Stride)
	fmt.Fprintf(bw, "VALUES %d\n", b.Array.NumElements())

	switch format {
	case BinaryCompressed:
		comp := make([]byte, len(data))
		n, err := lzf.Compress(data, comp)
		if err == nil && n > 0 {
			fmt.Fprintln(bw, "DATA binary_compressed")
			if err := binary.Write(bw, binary.LittleEndian, int32(n)); err != nil {
				return err
			}
			if err := binary.Write(bw, binary.LittleEndian, int32(len(data))); err != nil {
				return err
			}
			if _, err := bw.Write(comp[:n]); err != nil {
				return err
			}
			break
		}
		// Incompressible payload, store it raw.
		fallthrough
	case Binary:
		fmt.Fprintln(bw, "DATA binary")
		if _, err := bw.Write(data); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown data format %d", format)
	}
	return bw.Flush()
}

// Read parses a stored patch batch.
func Read(r io.Reader) (*Batch, error) {
	rb := bufio.NewReader(r)
	b := &Batch{}
	var shape []int
	values := -1
	var format Format

L_HEADER:
	for {
		line, _, err := rb.ReadLine()
		if err != nil {
			return nil, err
		}
		args := strings.Fields(string(line))
		if len(args) < 2 {
			return nil, errors.New("header field must have value")
		}
		switch args[0] {
		case "VERSION":
		case "SHAPE":
			shape = make([]int, len(args)-1)
			for i, s := range args[1:] {
				if shape[i], err = strconv.Atoi(s); err != nil {
					return nil, err
				}
			}
		case "KERNEL":
			if len(args) != 3 {
				return nil, errors.New("kernel must have two values")
			}
			if b.Kernel.H, err = strconv.Atoi(args[1]); err != nil {
				return nil, err
			}
			if b.Kernel.W, err = strconv.Atoi(args[2]); err != nil {
				return nil, err
			}
		case "STRIDE":
			if b.Stride, err = strconv.Atoi(args[1]); err != nil {
				return nil, err
			}
		case "VALUES":
			if values, err = strconv.Atoi(args[1]); err != nil {
				return nil, err
			}
		case "DATA":
			switch args[1] {
			case "binary":
				format = Binary
			case "binary_compressed":
				format = BinaryCompressed
			default:
				return nil, errors.New("unknown data format")
			}
			break L_HEADER
		}
	}
	if len(shape) == 0 {
		return nil, errors.New("missing shape")
	}

	var raw []byte
	switch format {
	case Binary:
		var err error
		if raw, err = io.ReadAll(rb); err != nil {
			return nil, err
		}
	case BinaryCompressed:
		var nCompressed, nUncompressed int32
		if err := binary.Read(rb, binary.LittleEndian, &nCompressed); err != nil {
			return nil, err
		}
		if err := binary.Read(rb, binary.LittleEndian, &nUncompressed); err != nil {
			return nil, err
		}
		comp, err := io.ReadAll(rb)
		if err != nil {
			return nil, err
		}
		if nCompressed < 0 || nUncompressed < 0 {
			return nil, errors.New("negative data size")
		}
		if int(nCompressed) > len(comp) {
			return nil, errors.New("truncated compressed data")
		}
		raw = make([]byte, nUncompressed)
		n, err := lzf.Decompress(comp[:nCompressed], raw)
		if err != nil {
			return nil, err
		}
		if n != int(nUncompressed) {
			return nil, errors.New("wrong uncompressed size")
		}
	}

	n := 1
	for _, dim := range shape {
		n *= dim
	}
	if len(raw) != n*4 {
		return nil, fmt.Errorf("shape %v requires %d bytes of data, got %d", shape, n*4, len(raw))
	}
	if values >= 0 && values != n {
		return nil, fmt.Errorf("value count %d does not match shape %v", values, shape)
	}

	arr, err := patch.NewDense(shape, float.ByteSliceAsFloat32Slice(raw))
	if err != nil {
		return nil, err
	}
	b.Array = arr
	return b, nil
}

func joinInts(v []int) string {
	s := make([]string, len(v))
	for i, x := range v {
		s[i] = strconv.Itoa(x)
	}
	return strings.Join(s, " ")
}

package cpu

import (
	"fmt"

	"github.com/axon-ml/axon/internal/tensor"
)

// kernel selects the scalar function for a binary operation by dtype.
type kernel struct {
	f32 func(a, b float32) float32
	f64 func(a, b float64) float64
	i32 func(a, b int32) int32
	i64 func(a, b int64) int64
}

var addKernel = kernel{
	f32: func(a, b float32) float32 { return a + b },
	f64: func(a, b float64) float64 { return a + b },
	i32: func(a, b int32) int32 { return a + b },
	i64: func(a, b int64) int64 { return a + b },
}

var subKernel = kernel{
	f32: func(a, b float32) float32 { return a - b },
	f64: func(a, b float64) float64 { return a - b },
	i32: func(a, b int32) int32 { return a - b },
	i64: func(a, b int64) int64 { return a - b },
}

var mulKernel = kernel{
	f32: func(a, b float32) float32 { return a * b },
	f64: func(a, b float64) float64 { return a * b },
	i32: func(a, b int32) int32 { return a * b },
	i64: func(a, b int64) int64 { return a * b },
}

var divKernel = kernel{
	f32: func(a, b float32) float32 { return a / b },
	f64: func(a, b float64) float64 { return a / b },
	i32: func(a, b int32) int32 { return a / b },
	i64: func(a, b int64) int64 { return a / b },
}

// applySameShape runs a kernel over operands whose shapes already match.
// dst may alias a for in-place updates.
func applySameShape(dst, a, b *tensor.RawTensor, k kernel) {
	switch a.DType() {
	case tensor.Float32:
		loop(dst.AsFloat32(), a.AsFloat32(), b.AsFloat32(), k.f32)
	case tensor.Float64:
		loop(dst.AsFloat64(), a.AsFloat64(), b.AsFloat64(), k.f64)
	case tensor.Int32:
		loop(dst.AsInt32(), a.AsInt32(), b.AsInt32(), k.i32)
	case tensor.Int64:
		loop(dst.AsInt64(), a.AsInt64(), b.AsInt64(), k.i64)
	default:
		panic(fmt.Sprintf("unsupported dtype %s", a.DType()))
	}
}

func loop[T any](dst, a, b []T, f func(T, T) T) {
	for i := range dst {
		dst[i] = f(a[i], b[i])
	}
}

// applyBroadcast runs a kernel over operands that require broadcasting.
// Indices are mapped per element; broadcast axes read with stride 0.
func applyBroadcast(dst, a, b *tensor.RawTensor, outShape tensor.Shape, k kernel) {
	aIdx := broadcastIndexer(a.Shape(), outShape)
	bIdx := broadcastIndexer(b.Shape(), outShape)

	switch a.DType() {
	case tensor.Float32:
		d, x, y := dst.AsFloat32(), a.AsFloat32(), b.AsFloat32()
		for i := range d {
			d[i] = k.f32(x[aIdx(i)], y[bIdx(i)])
		}
	case tensor.Float64:
		d, x, y := dst.AsFloat64(), a.AsFloat64(), b.AsFloat64()
		for i := range d {
			d[i] = k.f64(x[aIdx(i)], y[bIdx(i)])
		}
	case tensor.Int32:
		d, x, y := dst.AsInt32(), a.AsInt32(), b.AsInt32()
		for i := range d {
			d[i] = k.i32(x[aIdx(i)], y[bIdx(i)])
		}
	case tensor.Int64:
		d, x, y := dst.AsInt64(), a.AsInt64(), b.AsInt64()
		for i := range d {
			d[i] = k.i64(x[aIdx(i)], y[bIdx(i)])
		}
	default:
		panic(fmt.Sprintf("unsupported dtype %s", a.DType()))
	}
}

// broadcastIndexer returns a function mapping a flat output index to the
// flat index in a tensor of shape inShape broadcast to outShape.
func broadcastIndexer(inShape, outShape tensor.Shape) func(int) int {
	if inShape.Equal(outShape) {
		return func(i int) int { return i }
	}

	outStrides := outShape.ComputeStrides()
	inStrides := inShape.ComputeStrides()
	offset := len(outShape) - len(inShape)

	return func(flat int) int {
		idx := 0
		for axis := 0; axis < len(outShape); axis++ {
			coord := (flat / outStrides[axis]) % outShape[axis]
			inAxis := axis - offset
			if inAxis < 0 {
				continue
			}
			if inShape[inAxis] == 1 {
				continue
			}
			idx += coord * inStrides[inAxis]
		}
		return idx
	}
}

package cpu

import (
	"fmt"

	"github.com/axon-ml/axon/internal/tensor"
)

// Reshape returns a tensor with the same data and a new shape.
// The data buffer is shared; only the metadata changes.
func (b *Backend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("reshape: cannot reshape %v (%d elements) to %v (%d elements)",
			t.Shape(), t.NumElements(), newShape, newShape.NumElements()))
	}

	reshaped := mustNewRaw(newShape, t.DType(), t.Device())
	copy(reshaped.Data(), t.Data())
	return reshaped
}

// Transpose permutes the tensor's dimensions, copying data into the new
// layout. With no axes all dimensions are reversed.
func (b *Backend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: got %d axes for %dD tensor", len(axes), ndim))
	}

	outShape := make(tensor.Shape, ndim)
	for i, axis := range axes {
		if axis < 0 || axis >= ndim {
			panic(fmt.Sprintf("transpose: axis %d out of range for %dD tensor", axis, ndim))
		}
		outShape[i] = shape[axis]
	}

	result := mustNewRaw(outShape, t.DType(), b.device)

	inStrides := shape.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	n := t.NumElements()

	// Map each output element back to its source position.
	srcIndex := func(flat int) int {
		src := 0
		for axis := 0; axis < ndim; axis++ {
			coord := (flat / outStrides[axis]) % outShape[axis]
			src += coord * inStrides[axes[axis]]
		}
		return src
	}

	switch t.DType() {
	case tensor.Float32:
		src, dst := t.AsFloat32(), result.AsFloat32()
		for i := 0; i < n; i++ {
			dst[i] = src[srcIndex(i)]
		}
	case tensor.Float64:
		src, dst := t.AsFloat64(), result.AsFloat64()
		for i := 0; i < n; i++ {
			dst[i] = src[srcIndex(i)]
		}
	case tensor.Int32:
		src, dst := t.AsInt32(), result.AsInt32()
		for i := 0; i < n; i++ {
			dst[i] = src[srcIndex(i)]
		}
	case tensor.Int64:
		src, dst := t.AsInt64(), result.AsInt64()
		for i := 0; i < n; i++ {
			dst[i] = src[srcIndex(i)]
		}
	default:
		panic(fmt.Sprintf("transpose: unsupported dtype %s", t.DType()))
	}

	return result
}

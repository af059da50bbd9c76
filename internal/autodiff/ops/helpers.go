package ops

import (
	"fmt"

	"github.com/axon-ml/axon/internal/tensor"
)

// reduceBroadcast shrinks a gradient back to the shape of a forward-pass
// operand that was broadcast. Broadcast axes receive the sum of the
// gradients that flowed through them.
//
// Example: forward a[1,5] + b[3,5] -> c[3,5]; backward grad_c[3,5] is
// summed over axis 0 to produce grad_a[1,5].
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()

	// Clone when shapes already match so in-place backend ops cannot
	// corrupt a gradient shared between operations.
	if gradShape.Equal(targetShape) {
		return grad.Clone()
	}

	// Sum away leading axes the target does not have.
	result := grad
	for len(result.Shape()) > len(targetShape) {
		result = backend.SumDim(result, 0, false)
	}

	// Sum along axes where the target is 1.
	for axis := 0; axis < len(targetShape); axis++ {
		if targetShape[axis] == 1 && result.Shape()[axis] > 1 {
			result = backend.SumDim(result, axis, true)
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}
	return result
}

// OnesLike allocates a gradient seed of ones matching the given tensor.
func OnesLike(t *tensor.RawTensor) *tensor.RawTensor {
	out, err := tensor.NewRaw(t.Shape(), t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("OnesLike: %v", err))
	}
	switch t.DType() {
	case tensor.Float32:
		data := out.AsFloat32()
		for i := range data {
			data[i] = 1
		}
	case tensor.Float64:
		data := out.AsFloat64()
		for i := range data {
			data[i] = 1
		}
	default:
		panic(fmt.Sprintf("OnesLike: unsupported dtype %s", t.DType()))
	}
	return out
}

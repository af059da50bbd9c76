package cpu

import (
	"fmt"
	"math"

	"github.com/axon-ml/axon/internal/tensor"
)

// ReLU computes max(0, x) element-wise.
func (b *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unaryFloat("relu", x, func(v float64) float64 {
		if v > 0 {
			return v
		}
		return 0
	})
}

// Sigmoid computes 1 / (1 + exp(-x)) element-wise.
func (b *Backend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unaryFloat("sigmoid", x, func(v float64) float64 {
		return 1.0 / (1.0 + math.Exp(-v))
	})
}

// Tanh computes the hyperbolic tangent element-wise.
func (b *Backend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unaryFloat("tanh", x, math.Tanh)
}

// Softmax applies softmax along the last dimension of a 2D tensor.
// Inputs are shifted by the row maximum before exponentiation so large
// logits cannot overflow.
func (b *Backend) Softmax(x *tensor.RawTensor) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("softmax: expected 2D tensor, got shape %v", shape))
	}

	rows, cols := shape[0], shape[1]
	result := mustNewRaw(shape, x.DType(), b.device)

	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), result.AsFloat32()
		for r := 0; r < rows; r++ {
			softmaxRow(src[r*cols:(r+1)*cols], dst[r*cols:(r+1)*cols])
		}
	case tensor.Float64:
		src, dst := x.AsFloat64(), result.AsFloat64()
		for r := 0; r < rows; r++ {
			softmaxRow(src[r*cols:(r+1)*cols], dst[r*cols:(r+1)*cols])
		}
	default:
		panic(fmt.Sprintf("softmax: unsupported dtype %s", x.DType()))
	}

	return result
}

func softmaxRow[T float32 | float64](src, dst []T) {
	maxVal := src[0]
	for _, v := range src[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	var sum T
	for i, v := range src {
		e := T(math.Exp(float64(v - maxVal)))
		dst[i] = e
		sum += e
	}
	for i := range dst {
		dst[i] /= sum
	}
}

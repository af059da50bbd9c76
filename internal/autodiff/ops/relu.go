package ops

import (
	"fmt"

	"github.com/axon-ml/axon/internal/tensor"
)

// ReLUOp records output = max(x, 0).
type ReLUOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(x, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{inputs: []*tensor.RawTensor{x}, output: output}
}

// Backward masks the output gradient where the input was non-positive.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	grad, err := tensor.NewRaw(x.Shape(), x.DType(), x.Device())
	if err != nil {
		panic(fmt.Sprintf("relu backward: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		in, g, dst := x.AsFloat32(), outputGrad.AsFloat32(), grad.AsFloat32()
		for i, v := range in {
			if v > 0 {
				dst[i] = g[i]
			}
		}
	case tensor.Float64:
		in, g, dst := x.AsFloat64(), outputGrad.AsFloat64(), grad.AsFloat64()
		for i, v := range in {
			if v > 0 {
				dst[i] = g[i]
			}
		}
	default:
		panic(fmt.Sprintf("relu backward: unsupported dtype %s", x.DType()))
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns [x].
func (op *ReLUOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns max(x, 0).
func (op *ReLUOp) Output() *tensor.RawTensor { return op.output }

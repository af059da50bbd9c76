package ops

import (
	"fmt"

	"github.com/axon-ml/axon/internal/tensor"
)

// TanhOp records output = tanh(x).
type TanhOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewTanhOp creates a new TanhOp.
func NewTanhOp(x, output *tensor.RawTensor) *TanhOp {
	return &TanhOp{inputs: []*tensor.RawTensor{x}, output: output}
}

// Backward computes grad * (1 - out^2) from the recorded output.
func (op *TanhOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	out := op.output
	grad, err := tensor.NewRaw(out.Shape(), out.DType(), out.Device())
	if err != nil {
		panic(fmt.Sprintf("tanh backward: %v", err))
	}

	switch out.DType() {
	case tensor.Float32:
		o, g, dst := out.AsFloat32(), outputGrad.AsFloat32(), grad.AsFloat32()
		for i, v := range o {
			dst[i] = g[i] * (1 - v*v)
		}
	case tensor.Float64:
		o, g, dst := out.AsFloat64(), outputGrad.AsFloat64(), grad.AsFloat64()
		for i, v := range o {
			dst[i] = g[i] * (1 - v*v)
		}
	default:
		panic(fmt.Sprintf("tanh backward: unsupported dtype %s", out.DType()))
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns [x].
func (op *TanhOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns tanh(x).
func (op *TanhOp) Output() *tensor.RawTensor { return op.output }

package ops

import (
	"fmt"

	"github.com/axon-ml/axon/internal/tensor"
)

// SigmoidOp records output = 1 / (1 + exp(-x)).
type SigmoidOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewSigmoidOp creates a new SigmoidOp.
func NewSigmoidOp(x, output *tensor.RawTensor) *SigmoidOp {
	return &SigmoidOp{inputs: []*tensor.RawTensor{x}, output: output}
}

// Backward computes grad * out * (1 - out) from the recorded output.
func (op *SigmoidOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	out := op.output
	grad, err := tensor.NewRaw(out.Shape(), out.DType(), out.Device())
	if err != nil {
		panic(fmt.Sprintf("sigmoid backward: %v", err))
	}

	switch out.DType() {
	case tensor.Float32:
		o, g, dst := out.AsFloat32(), outputGrad.AsFloat32(), grad.AsFloat32()
		for i, v := range o {
			dst[i] = g[i] * v * (1 - v)
		}
	case tensor.Float64:
		o, g, dst := out.AsFloat64(), outputGrad.AsFloat64(), grad.AsFloat64()
		for i, v := range o {
			dst[i] = g[i] * v * (1 - v)
		}
	default:
		panic(fmt.Sprintf("sigmoid backward: unsupported dtype %s", out.DType()))
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns [x].
func (op *SigmoidOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns sigmoid(x).
func (op *SigmoidOp) Output() *tensor.RawTensor { return op.output }

package ops

import "github.com/axon-ml/axon/internal/tensor"

// SumOp records output = sum(x) over all elements.
type SumOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewSumOp creates a new SumOp.
func NewSumOp(x, output *tensor.RawTensor) *SumOp {
	return &SumOp{inputs: []*tensor.RawTensor{x}, output: output}
}

// Backward broadcasts the scalar output gradient to every input element.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	grad := OnesLike(x)
	scaled := backend.Mul(grad, outputGrad)
	if scaled != grad {
		grad.Release()
	}
	return []*tensor.RawTensor{scaled}
}

// Inputs returns [x].
func (op *SumOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns sum(x).
func (op *SumOp) Output() *tensor.RawTensor { return op.output }

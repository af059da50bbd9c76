package ops

import "github.com/axon-ml/axon/internal/tensor"

// MulOp records output = a * b (elementwise).
type MulOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewMulOp creates a new MulOp.
func NewMulOp(a, b, output *tensor.RawTensor) *MulOp {
	return &MulOp{inputs: []*tensor.RawTensor{a, b}, output: output}
}

// Backward computes grad_a = grad * b, grad_b = grad * a.
func (op *MulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]

	gradTimesB := backend.Mul(outputGrad, b)
	gradA := reduceBroadcast(gradTimesB, a.Shape(), backend)
	if gradA != gradTimesB {
		gradTimesB.Release()
	}

	gradTimesA := backend.Mul(outputGrad, a)
	gradB := reduceBroadcast(gradTimesA, b.Shape(), backend)
	if gradB != gradTimesA {
		gradTimesA.Release()
	}

	return []*tensor.RawTensor{gradA, gradB}
}

// Inputs returns [a, b].
func (op *MulOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns a * b.
func (op *MulOp) Output() *tensor.RawTensor { return op.output }

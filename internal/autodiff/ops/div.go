package ops

import "github.com/axon-ml/axon/internal/tensor"

// DivOp records output = a / b (elementwise).
type DivOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewDivOp creates a new DivOp.
func NewDivOp(a, b, output *tensor.RawTensor) *DivOp {
	return &DivOp{inputs: []*tensor.RawTensor{a, b}, output: output}
}

// Backward computes grad_a = grad / b, grad_b = -grad * a / b^2.
//
// The b^2 term reuses the recorded output: a/b^2 = (a/b)/b = output/b,
// which avoids re-materialising a/b.
func (op *DivOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]

	gradOverB := backend.Div(outputGrad, b)
	gradA := reduceBroadcast(gradOverB, a.Shape(), backend)
	if gradA != gradOverB {
		gradOverB.Release()
	}

	outOverB := backend.Div(op.output, b)
	scaled := backend.Mul(outputGrad, outOverB)
	outOverB.Release()
	neg := backend.MulScalar(scaled, -1)
	gradB := reduceBroadcast(neg, b.Shape(), backend)
	if gradB != neg {
		neg.Release()
	}
	if scaled != neg {
		scaled.Release()
	}

	return []*tensor.RawTensor{gradA, gradB}
}

// Inputs returns [a, b].
func (op *DivOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns a / b.
func (op *DivOp) Output() *tensor.RawTensor { return op.output }

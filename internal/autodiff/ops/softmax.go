package ops

import (
	"fmt"

	"github.com/axon-ml/axon/internal/tensor"
)

// SoftmaxOp records output = softmax(x) along the last dimension of a 2D
// tensor.
type SoftmaxOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewSoftmaxOp creates a new SoftmaxOp.
func NewSoftmaxOp(x, output *tensor.RawTensor) *SoftmaxOp {
	return &SoftmaxOp{inputs: []*tensor.RawTensor{x}, output: output}
}

// Backward computes, per row, grad_x_i = out_i * (g_i - sum_j g_j * out_j).
func (op *SoftmaxOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	out := op.output
	shape := out.Shape()
	rows, cols := shape[0], shape[1]

	grad, err := tensor.NewRaw(shape, out.DType(), out.Device())
	if err != nil {
		panic(fmt.Sprintf("softmax backward: %v", err))
	}

	switch out.DType() {
	case tensor.Float32:
		o, g, dst := out.AsFloat32(), outputGrad.AsFloat32(), grad.AsFloat32()
		for r := 0; r < rows; r++ {
			base := r * cols
			var dot float32
			for c := 0; c < cols; c++ {
				dot += g[base+c] * o[base+c]
			}
			for c := 0; c < cols; c++ {
				dst[base+c] = o[base+c] * (g[base+c] - dot)
			}
		}
	case tensor.Float64:
		o, g, dst := out.AsFloat64(), outputGrad.AsFloat64(), grad.AsFloat64()
		for r := 0; r < rows; r++ {
			base := r * cols
			var dot float64
			for c := 0; c < cols; c++ {
				dot += g[base+c] * o[base+c]
			}
			for c := 0; c < cols; c++ {
				dst[base+c] = o[base+c] * (g[base+c] - dot)
			}
		}
	default:
		panic(fmt.Sprintf("softmax backward: unsupported dtype %s", out.DType()))
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns [x].
func (op *SoftmaxOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns softmax(x).
func (op *SoftmaxOp) Output() *tensor.RawTensor { return op.output }

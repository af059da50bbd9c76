package ops

import (
	"fmt"

	"github.com/axon-ml/axon/internal/tensor"
)

// CrossEntropyOp records the fused softmax + negative-log-likelihood loss.
// The forward pass keeps the softmax probabilities so the backward pass can
// use the closed-form gradient (probs - onehot) / batch instead of
// differentiating through the log-softmax graph.
type CrossEntropyOp struct {
	inputs  []*tensor.RawTensor
	output  *tensor.RawTensor
	probs   *tensor.RawTensor
	targets *tensor.RawTensor
}

// NewCrossEntropyOp creates a new CrossEntropyOp. probs holds softmax(logits)
// and targets holds the class indices, one per row of logits.
func NewCrossEntropyOp(logits, probs, targets, output *tensor.RawTensor) *CrossEntropyOp {
	return &CrossEntropyOp{
		inputs:  []*tensor.RawTensor{logits},
		output:  output,
		probs:   probs,
		targets: targets,
	}
}

// Backward computes grad_logits = g * (probs - onehot(targets)) / batch,
// where g is the upstream scalar gradient.
func (op *CrossEntropyOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	shape := op.probs.Shape()
	rows, cols := shape[0], shape[1]
	labels := classIndices(op.targets)

	grad, err := tensor.NewRaw(shape, op.probs.DType(), op.probs.Device())
	if err != nil {
		panic(fmt.Sprintf("cross-entropy backward: %v", err))
	}

	switch op.probs.DType() {
	case tensor.Float32:
		p, dst := op.probs.AsFloat32(), grad.AsFloat32()
		g := outputGrad.AsFloat32()[0]
		scale := g / float32(rows)
		for r := 0; r < rows; r++ {
			base := r * cols
			for c := 0; c < cols; c++ {
				dst[base+c] = p[base+c] * scale
			}
			dst[base+labels[r]] -= scale
		}
	case tensor.Float64:
		p, dst := op.probs.AsFloat64(), grad.AsFloat64()
		g := outputGrad.AsFloat64()[0]
		scale := g / float64(rows)
		for r := 0; r < rows; r++ {
			base := r * cols
			for c := 0; c < cols; c++ {
				dst[base+c] = p[base+c] * scale
			}
			dst[base+labels[r]] -= scale
		}
	default:
		panic(fmt.Sprintf("cross-entropy backward: unsupported dtype %s", op.probs.DType()))
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns [logits]. Targets are class indices and carry no gradient.
func (op *CrossEntropyOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the scalar mean loss.
func (op *CrossEntropyOp) Output() *tensor.RawTensor { return op.output }

// classIndices flattens an integer label tensor to []int.
func classIndices(t *tensor.RawTensor) []int {
	out := make([]int, t.NumElements())
	switch t.DType() {
	case tensor.Int32:
		for i, v := range t.AsInt32() {
			out[i] = int(v)
		}
	case tensor.Int64:
		for i, v := range t.AsInt64() {
			out[i] = int(v)
		}
	default:
		panic(fmt.Sprintf("cross-entropy: labels must be int32 or int64, got %s", t.DType()))
	}
	return out
}

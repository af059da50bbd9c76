package autodiff

import (
	"fmt"
	"math"

	"github.com/axon-ml/axon/internal/autodiff/ops"
	"github.com/axon-ml/axon/internal/tensor"
)

// activations is the optional interface a wrapped backend must satisfy for
// the activation operations.
type activations interface {
	ReLU(x *tensor.RawTensor) *tensor.RawTensor
	Sigmoid(x *tensor.RawTensor) *tensor.RawTensor
	Tanh(x *tensor.RawTensor) *tensor.RawTensor
}

// Backend decorates a compute backend with gradient recording. Every
// differentiable operation is forwarded to the inner backend and, while the
// tape is recording, appended to it for the backward pass. Non-differentiable
// operations (reductions over integers, Argmax) pass straight through.
type Backend[B tensor.Backend] struct {
	inner B
	tape  *Tape
}

// NewBackend wraps the given backend with a fresh tape.
func NewBackend[B tensor.Backend](inner B) *Backend[B] {
	return &Backend[B]{inner: inner, tape: NewTape()}
}

// Inner returns the wrapped backend.
func (a *Backend[B]) Inner() B { return a.inner }

// Tape returns the gradient tape.
func (a *Backend[B]) Tape() *Tape { return a.tape }

// Name returns the wrapped backend's name with an autodiff marker.
func (a *Backend[B]) Name() string { return "Autodiff(" + a.inner.Name() + ")" }

// Device returns the wrapped backend's device.
func (a *Backend[B]) Device() tensor.Device { return a.inner.Device() }

// pin protects forward-pass operands from in-place reuse while recording.
// The inner backend recycles uniquely-owned buffers; a recorded operand must
// keep its forward value until Tape.Clear.
func (a *Backend[B]) pin(operands ...*tensor.RawTensor) func() {
	if !a.tape.IsRecording() {
		return func() {}
	}
	unpins := make([]func(), len(operands))
	for i, t := range operands {
		unpins[i] = t.ForceNonUnique()
	}
	return func() {
		for _, u := range unpins {
			u()
		}
	}
}

// Add records x + y.
func (a *Backend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	unpin := a.pin(x, y)
	out := a.inner.Add(x, y)
	unpin()
	a.tape.record(ops.NewAddOp(x, y, out))
	return out
}

// Sub records x - y.
func (a *Backend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	unpin := a.pin(x, y)
	out := a.inner.Sub(x, y)
	unpin()
	a.tape.record(ops.NewSubOp(x, y, out))
	return out
}

// Mul records x * y.
func (a *Backend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	unpin := a.pin(x, y)
	out := a.inner.Mul(x, y)
	unpin()
	a.tape.record(ops.NewMulOp(x, y, out))
	return out
}

// Div records x / y.
func (a *Backend[B]) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	unpin := a.pin(x, y)
	out := a.inner.Div(x, y)
	unpin()
	a.tape.record(ops.NewDivOp(x, y, out))
	return out
}

// MatMul records x @ y.
func (a *Backend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	unpin := a.pin(x, y)
	out := a.inner.MatMul(x, y)
	unpin()
	a.tape.record(ops.NewMatMulOp(x, y, out))
	return out
}

// Reshape records the shape change.
func (a *Backend[B]) Reshape(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	unpin := a.pin(x)
	out := a.inner.Reshape(x, newShape)
	unpin()
	a.tape.record(ops.NewReshapeOp(x, out))
	return out
}

// Transpose records the axis permutation.
func (a *Backend[B]) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	unpin := a.pin(x)
	out := a.inner.Transpose(x, axes...)
	unpin()
	a.tape.record(ops.NewTransposeOp(x, out, axes))
	return out
}

// MulScalar records x * s.
func (a *Backend[B]) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	unpin := a.pin(x)
	out := a.inner.MulScalar(x, scalar)
	unpin()
	a.tape.record(ops.NewMulScalarOp(x, out, scalar))
	return out
}

// Softmax records softmax(x) along the last dimension.
func (a *Backend[B]) Softmax(x *tensor.RawTensor) *tensor.RawTensor {
	unpin := a.pin(x)
	out := a.inner.Softmax(x)
	unpin()
	a.tape.record(ops.NewSoftmaxOp(x, out))
	return out
}

// ReLU records max(x, 0). The wrapped backend must implement activations.
func (a *Backend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	act := a.mustActivations("relu")
	unpin := a.pin(x)
	out := act.ReLU(x)
	unpin()
	a.tape.record(ops.NewReLUOp(x, out))
	return out
}

// Sigmoid records 1 / (1 + exp(-x)).
func (a *Backend[B]) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	act := a.mustActivations("sigmoid")
	unpin := a.pin(x)
	out := act.Sigmoid(x)
	unpin()
	a.tape.record(ops.NewSigmoidOp(x, out))
	return out
}

// Tanh records tanh(x).
func (a *Backend[B]) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	act := a.mustActivations("tanh")
	unpin := a.pin(x)
	out := act.Tanh(x)
	unpin()
	a.tape.record(ops.NewTanhOp(x, out))
	return out
}

func (a *Backend[B]) mustActivations(name string) activations {
	act, ok := any(a.inner).(activations)
	if !ok {
		panic(fmt.Sprintf("%s: backend %s does not implement activations", name, a.inner.Name()))
	}
	return act
}

// CrossEntropy records the fused softmax + negative-log-likelihood loss of
// 2D logits against integer class labels. The result is a scalar holding the
// mean loss over the batch.
func (a *Backend[B]) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("cross-entropy: logits must be 2D, got shape %v", shape))
	}
	if targets.NumElements() != shape[0] {
		panic(fmt.Sprintf("cross-entropy: %d labels for batch of %d", targets.NumElements(), shape[0]))
	}

	unpin := a.pin(logits)
	probs := a.inner.Softmax(logits)
	unpin()

	rows, cols := shape[0], shape[1]
	labels := classIndices(targets)
	loss := mustRaw(tensor.Shape{1}, logits.DType(), logits.Device())

	// Mean negative log-likelihood via a per-row log-sum-exp, which stays
	// finite even when the softmax saturates.
	var total float64
	switch logits.DType() {
	case tensor.Float32:
		data := logits.AsFloat32()
		for r := 0; r < rows; r++ {
			total += rowNLL64(toRow64(data[r*cols:(r+1)*cols]), labels[r])
		}
		loss.AsFloat32()[0] = float32(total / float64(rows))
	case tensor.Float64:
		data := logits.AsFloat64()
		for r := 0; r < rows; r++ {
			total += rowNLL64(data[r*cols:(r+1)*cols], labels[r])
		}
		loss.AsFloat64()[0] = total / float64(rows)
	default:
		panic(fmt.Sprintf("cross-entropy: unsupported dtype %s", logits.DType()))
	}

	a.tape.record(ops.NewCrossEntropyOp(logits, probs, targets, loss))
	if !a.tape.IsRecording() {
		probs.Release()
	}
	return loss
}

// rowNLL64 computes -log softmax(row)[label] with a max shift.
func rowNLL64(row []float64, label int) float64 {
	if label < 0 || label >= len(row) {
		panic(fmt.Sprintf("cross-entropy: label %d out of range [0, %d)", label, len(row)))
	}
	max := row[0]
	for _, v := range row[1:] {
		if v > max {
			max = v
		}
	}
	var sum float64
	for _, v := range row {
		sum += math.Exp(v - max)
	}
	return math.Log(sum) - (row[label] - max)
}

func toRow64(row []float32) []float64 {
	out := make([]float64, len(row))
	for i, v := range row {
		out[i] = float64(v)
	}
	return out
}

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

func mustRaw(shape tensor.Shape, dtype tensor.DataType, device tensor.Device) *tensor.RawTensor {
	raw, err := tensor.NewRaw(shape, dtype, device)
	if err != nil {
		panic(err)
	}
	return raw
}

// Sum records the full reduction. Mean-style losses are built from Sum and
// MulScalar, so the reduction has to participate in the graph.
func (a *Backend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	unpin := a.pin(x)
	out := a.inner.Sum(x)
	unpin()
	a.tape.record(ops.NewSumOp(x, out))
	return out
}

// Non-differentiable passthroughs.

// AddScalar forwards to the inner backend without recording.
func (a *Backend[B]) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return a.inner.AddScalar(x, scalar)
}

// Exp forwards to the inner backend without recording.
func (a *Backend[B]) Exp(x *tensor.RawTensor) *tensor.RawTensor { return a.inner.Exp(x) }

// Log forwards to the inner backend without recording.
func (a *Backend[B]) Log(x *tensor.RawTensor) *tensor.RawTensor { return a.inner.Log(x) }

// Sqrt forwards to the inner backend without recording.
func (a *Backend[B]) Sqrt(x *tensor.RawTensor) *tensor.RawTensor { return a.inner.Sqrt(x) }

// SumDim forwards to the inner backend without recording.
func (a *Backend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return a.inner.SumDim(x, dim, keepDim)
}

// MeanDim forwards to the inner backend without recording.
func (a *Backend[B]) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return a.inner.MeanDim(x, dim, keepDim)
}

// Argmax forwards to the inner backend without recording.
func (a *Backend[B]) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return a.inner.Argmax(x, dim)
}

package nn

import (
	"fmt"

	"github.com/axon-ml/axon/internal/tensor"
)

// crossEntropyBackend is the interface a backend must satisfy for the fused
// cross-entropy loss.
type crossEntropyBackend interface {
	CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor
}

// CrossEntropyLoss computes the mean softmax cross-entropy of logits
// against integer class labels. The softmax and the negative
// log-likelihood are fused in the backend, which is both faster and
// numerically safer than composing them from primitives.
type CrossEntropyLoss[B tensor.Backend] struct{}

// NewCrossEntropyLoss creates the loss.
func NewCrossEntropyLoss[B tensor.Backend]() *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{}
}

// Forward returns the scalar mean loss of (batch, classes) logits against
// (batch,) class indices.
func (l *CrossEntropyLoss[B]) Forward(logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	ce, ok := any(logits.Backend()).(crossEntropyBackend)
	if !ok {
		panic(fmt.Sprintf("backend %T does not implement cross-entropy", logits.Backend()))
	}
	out := ce.CrossEntropy(logits.Raw(), targets.Raw())
	return tensor.New[float32](out, logits.Backend())
}

// MSELoss computes the mean squared error between a prediction and a
// target of the same shape. It is built from recorded primitives, so
// gradients flow without a dedicated backward rule.
type MSELoss[B tensor.Backend] struct{}

// NewMSELoss creates the loss.
func NewMSELoss[B tensor.Backend]() *MSELoss[B] {
	return &MSELoss[B]{}
}

// Forward returns the scalar mean of (pred - target)^2.
func (l *MSELoss[B]) Forward(pred, target *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	diff := pred.Sub(target)
	return diff.Mul(diff).Sum().MulScalar(1 / float32(pred.NumElements()))
}

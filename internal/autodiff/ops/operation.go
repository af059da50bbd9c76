// Package ops defines the differentiable operations recorded by the
// gradient tape. Each operation stores its forward-pass operands and knows
// how to turn an output gradient into input gradients.
package ops

import "github.com/axon-ml/axon/internal/tensor"

// Operation is one node of the recorded computation graph.
type Operation interface {
	// Backward computes gradients for the operation's inputs given the
	// gradient of the loss with respect to its output. The returned slice
	// is ordered like Inputs().
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the tensors the operation consumed.
	Inputs() []*tensor.RawTensor

	// Output returns the tensor the operation produced.
	Output() *tensor.RawTensor
}

package autodiff

import "github.com/axon-ml/axon/internal/tensor"

// Gradients maps a forward-pass tensor to its accumulated gradient.
type Gradients map[*tensor.RawTensor]*tensor.RawTensor

// For returns the gradient of the given tensor, or nil when the tensor did
// not contribute to the loss.
func (g Gradients) For(t *tensor.RawTensor) *tensor.RawTensor {
	return g[t]
}

// Release drops every gradient buffer. Call once the optimizer step has
// consumed the gradients.
func (g Gradients) Release() {
	for _, grad := range g {
		grad.Release()
	}
}

// Backward runs backpropagation from a typed scalar loss and returns the
// gradients of every tensor that contributed to it.
func Backward[T tensor.DType, B tensor.Backend](loss *tensor.Tensor[T, B], tape *Tape, backend tensor.Backend) Gradients {
	return tape.Backward(loss.Raw(), backend)
}

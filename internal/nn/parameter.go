package nn

import "github.com/axon-ml/axon/internal/tensor"

// Parameter is a learnable tensor together with its accumulated gradient.
// Gradients are attached by the training loop after backpropagation and
// consumed by optimizers.
type Parameter[B tensor.Backend] struct {
	name string
	data *tensor.Tensor[float32, B]
	grad *tensor.RawTensor
}

// NewParameter wraps a tensor as a learnable parameter.
func NewParameter[B tensor.Backend](name string, data *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{name: name, data: data}
}

// Name returns the parameter's name within its module.
func (p *Parameter[B]) Name() string { return p.name }

// Tensor returns the typed parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] { return p.data }

// Raw returns the underlying RawTensor. Autodiff gradients are keyed by
// this pointer.
func (p *Parameter[B]) Raw() *tensor.RawTensor { return p.data.Raw() }

// Grad returns the accumulated gradient, or nil if none is attached.
func (p *Parameter[B]) Grad() *tensor.RawTensor { return p.grad }

// SetGrad attaches a gradient, taking ownership of it. Any previously
// attached gradient is released.
func (p *Parameter[B]) SetGrad(grad *tensor.RawTensor) {
	if p.grad != nil {
		p.grad.Release()
	}
	p.grad = grad
}

// ZeroGrad detaches and releases the gradient.
func (p *Parameter[B]) ZeroGrad() {
	if p.grad != nil {
		p.grad.Release()
		p.grad = nil
	}
}

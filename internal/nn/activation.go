package nn

import (
	"fmt"

	"github.com/axon-ml/axon/internal/tensor"
)

// activationBackend is the interface a backend must satisfy to run
// activation layers. Both the CPU backend and the autodiff decorator
// implement it.
type activationBackend interface {
	ReLU(x *tensor.RawTensor) *tensor.RawTensor
	Sigmoid(x *tensor.RawTensor) *tensor.RawTensor
	Tanh(x *tensor.RawTensor) *tensor.RawTensor
}

func mustActivations(b any) activationBackend {
	act, ok := b.(activationBackend)
	if !ok {
		panic(fmt.Sprintf("backend %T does not implement activations", b))
	}
	return act
}

// ReLU applies max(x, 0) element-wise.
type ReLU[B tensor.Backend] struct{}

// NewReLU creates a ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] { return &ReLU[B]{} }

// Forward applies the activation.
func (r *ReLU[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	out := mustActivations(x.Backend()).ReLU(x.Raw())
	return tensor.New[float32](out, x.Backend())
}

// Parameters returns nil; the activation has no learnable state.
func (r *ReLU[B]) Parameters() []*Parameter[B] { return nil }

// StateDict returns an empty dict.
func (r *ReLU[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict accepts only an empty dict.
func (r *ReLU[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	return rejectKeys("relu", state)
}

// Sigmoid applies 1 / (1 + exp(-x)) element-wise.
type Sigmoid[B tensor.Backend] struct{}

// NewSigmoid creates a Sigmoid activation module.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] { return &Sigmoid[B]{} }

// Forward applies the activation.
func (s *Sigmoid[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	out := mustActivations(x.Backend()).Sigmoid(x.Raw())
	return tensor.New[float32](out, x.Backend())
}

// Parameters returns nil; the activation has no learnable state.
func (s *Sigmoid[B]) Parameters() []*Parameter[B] { return nil }

// StateDict returns an empty dict.
func (s *Sigmoid[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict accepts only an empty dict.
func (s *Sigmoid[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	return rejectKeys("sigmoid", state)
}

// Tanh applies tanh(x) element-wise.
type Tanh[B tensor.Backend] struct{}

// NewTanh creates a Tanh activation module.
func NewTanh[B tensor.Backend]() *Tanh[B] { return &Tanh[B]{} }

// Forward applies the activation.
func (t *Tanh[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	out := mustActivations(x.Backend()).Tanh(x.Raw())
	return tensor.New[float32](out, x.Backend())
}

// Parameters returns nil; the activation has no learnable state.
func (t *Tanh[B]) Parameters() []*Parameter[B] { return nil }

// StateDict returns an empty dict.
func (t *Tanh[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict accepts only an empty dict.
func (t *Tanh[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	return rejectKeys("tanh", state)
}

package nn

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/axon-ml/axon/internal/tensor"
)

// Linear is a fully-connected layer computing y = x @ W^T + b. The weight
// has shape (outFeatures, inFeatures) and the bias shape (outFeatures).
type Linear[B tensor.Backend] struct {
	weight      *Parameter[B]
	bias        *Parameter[B]
	inFeatures  int
	outFeatures int
}

// NewLinear creates a linear layer with Xavier-initialized weights and a
// zero bias. The rng drives initialization so a fixed seed reproduces the
// exact same weights.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, rng *rand.Rand, backend B) *Linear[B] {
	weight := tensor.Zeros[float32](tensor.Shape{outFeatures, inFeatures}, backend)
	XavierUniform(weight, inFeatures, outFeatures, rng)
	bias := tensor.Zeros[float32](tensor.Shape{outFeatures}, backend)

	return &Linear[B]{
		weight:      NewParameter("weight", weight),
		bias:        NewParameter("bias", bias),
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
	}
}

// InFeatures returns the layer's input width.
func (l *Linear[B]) InFeatures() int { return l.inFeatures }

// OutFeatures returns the layer's output width.
func (l *Linear[B]) OutFeatures() int { return l.outFeatures }

// Forward computes x @ W^T + b for a (batch, inFeatures) input.
func (l *Linear[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return x.MatMul(l.weight.Tensor().T()).Add(l.bias.Tensor())
}

// Parameters returns [weight, bias].
func (l *Linear[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.weight, l.bias}
}

// StateDict returns {"weight": W, "bias": b}.
func (l *Linear[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		"weight": l.weight.Raw(),
		"bias":   l.bias.Raw(),
	}
}

// LoadStateDict copies weight and bias from the state dict, rejecting
// missing keys, unknown keys, and any shape or dtype mismatch.
func (l *Linear[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	for key := range state {
		if key != "weight" && key != "bias" {
			return errors.Errorf("linear: unexpected key %q in state dict", key)
		}
	}
	if err := loadParameter(l.weight, state, "weight"); err != nil {
		return err
	}
	return loadParameter(l.bias, state, "bias")
}

// loadParameter validates and copies one state-dict entry into a parameter.
func loadParameter[B tensor.Backend](p *Parameter[B], state map[string]*tensor.RawTensor, key string) error {
	src, ok := state[key]
	if !ok {
		return errors.Errorf("missing key %q in state dict", key)
	}
	dst := p.Raw()
	if !src.Shape().Equal(dst.Shape()) {
		return errors.Errorf("shape mismatch for %q: checkpoint has %v, model expects %v",
			key, src.Shape(), dst.Shape())
	}
	if src.DType() != dst.DType() {
		return errors.Errorf("dtype mismatch for %q: checkpoint has %s, model expects %s",
			key, src.DType(), dst.DType())
	}
	copy(dst.Data(), src.Data())
	return nil
}

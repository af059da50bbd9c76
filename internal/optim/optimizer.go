// Package optim implements gradient-descent optimizers. An optimizer owns
// a parameter list; after the training loop attaches gradients, Step
// applies one update and ZeroGrad clears the slate for the next batch.
// Optimizer state (momentum buffers, moment estimates) round-trips through
// StateDict for resumable checkpoints.
package optim

import (
	"github.com/pkg/errors"

	"github.com/axon-ml/axon/internal/nn"
	"github.com/axon-ml/axon/internal/tensor"
)

// Optimizer updates parameters from their attached gradients.
type Optimizer[B tensor.Backend] interface {
	// Step applies one update to every parameter that has a gradient.
	Step() error

	// ZeroGrad detaches all gradients.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32

	// SetLR updates the learning rate, for scheduling during training.
	SetLR(lr float32)

	// Name identifies the optimizer in checkpoints.
	Name() string

	// StateDict returns the optimizer's internal buffers.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict restores buffers saved by StateDict.
	LoadStateDict(state map[string]*tensor.RawTensor) error
}

// gradData returns the float32 views of a parameter and its gradient, or
// nil if no gradient is attached.
func gradData[B tensor.Backend](p *nn.Parameter[B]) (param, grad []float32, err error) {
	g := p.Grad()
	if g == nil {
		return nil, nil, nil
	}
	if !g.Shape().Equal(p.Raw().Shape()) {
		return nil, nil, errors.Errorf("gradient shape %v does not match parameter %q shape %v",
			g.Shape(), p.Name(), p.Raw().Shape())
	}
	return p.Raw().AsFloat32(), g.AsFloat32(), nil
}

// zeroGrads detaches the gradient from every parameter.
func zeroGrads[B tensor.Backend](params []*nn.Parameter[B]) {
	for _, p := range params {
		p.ZeroGrad()
	}
}

// loadBuffer validates and copies one optimizer buffer from a state dict.
func loadBuffer(state map[string]*tensor.RawTensor, key string, want tensor.Shape) (*tensor.RawTensor, error) {
	src, ok := state[key]
	if !ok {
		return nil, errors.Errorf("missing key %q in optimizer state", key)
	}
	if !src.Shape().Equal(want) {
		return nil, errors.Errorf("shape mismatch for %q: state has %v, optimizer expects %v",
			key, src.Shape(), want)
	}
	if src.DType() != tensor.Float32 {
		return nil, errors.Errorf("dtype mismatch for %q: state has %s, optimizer expects %s",
			key, src.DType(), tensor.Float32)
	}
	return src.DeepCopy(), nil
}

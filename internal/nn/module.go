// Package nn provides neural-network building blocks: layers, activations,
// loss functions, weight initialization, and model checkpointing. Modules
// compose into networks via Sequential; the MLP type bundles the usual
// linear-plus-activation stack behind a single config.
package nn

import "github.com/axon-ml/axon/internal/tensor"

// Module is the interface every layer implements. A module transforms a
// float32 tensor and exposes its learnable state both as live parameters
// (for optimizers) and as a flat state dict (for checkpoints).
type Module[B tensor.Backend] interface {
	// Forward computes the module's output for the given input.
	Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns the module's learnable parameters, in a stable
	// order.
	Parameters() []*Parameter[B]

	// StateDict returns the parameter tensors keyed by hierarchical name.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict copies the given tensors into the module's parameters.
	// It fails on missing keys, unknown keys, and shape or dtype
	// mismatches.
	LoadStateDict(state map[string]*tensor.RawTensor) error
}

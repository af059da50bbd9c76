// Copyright 2026 Axon ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public API for neural-network building blocks:
// layers, activations, loss functions, and model checkpointing.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	model, err := nn.NewMLP(nn.MLPConfig{
//	    InputSize:   784,
//	    HiddenSizes: []int{128, 64},
//	    OutputSize:  10,
//	    Activation:  nn.ActivationReLU,
//	    Seed:        42,
//	}, backend)
package nn

import (
	"math/rand"

	"github.com/axon-ml/axon/internal/nn"
	"github.com/axon-ml/axon/internal/serialization"
	"github.com/axon-ml/axon/internal/tensor"
)

// Module is the interface every neural-network layer implements.
type Module[B tensor.Backend] = nn.Module[B]

// Parameter is a learnable tensor with its accumulated gradient.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter wraps a tensor as a learnable parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Layers

// Linear is a fully-connected layer computing y = x @ W^T + b.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a linear layer with Xavier-initialized weights.
//
// Example:
//
//	rng := rand.New(rand.NewSource(42))
//	layer := nn.NewLinear(784, 128, rng, backend)
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, rng *rand.Rand, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, rng, backend)
}

// Sequential chains modules, feeding each output into the next module.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a chain of the given modules.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}

// Activations

// ReLU applies max(x, 0) element-wise.
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU creates a ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] { return nn.NewReLU[B]() }

// Sigmoid applies 1 / (1 + exp(-x)) element-wise.
type Sigmoid[B tensor.Backend] = nn.Sigmoid[B]

// NewSigmoid creates a Sigmoid activation module.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] { return nn.NewSigmoid[B]() }

// Tanh applies tanh(x) element-wise.
type Tanh[B tensor.Backend] = nn.Tanh[B]

// NewTanh creates a Tanh activation module.
func NewTanh[B tensor.Backend]() *Tanh[B] { return nn.NewTanh[B]() }

// Models

// Activation names a hidden-layer activation function.
type Activation = nn.Activation

// Supported hidden-layer activations.
const (
	ActivationReLU    = nn.ActivationReLU
	ActivationSigmoid = nn.ActivationSigmoid
	ActivationTanh    = nn.ActivationTanh
)

// MLPConfig describes a multilayer-perceptron classifier.
type MLPConfig = nn.MLPConfig

// MLP is a multilayer-perceptron classifier producing logits.
type MLP[B tensor.Backend] = nn.MLP[B]

// NewMLP builds an MLP from its config, initializing weights from the
// config's seed.
func NewMLP[B tensor.Backend](config MLPConfig, backend B) (*MLP[B], error) {
	return nn.NewMLP(config, backend)
}

// Losses

// CrossEntropyLoss computes the mean softmax cross-entropy of logits
// against integer class labels.
type CrossEntropyLoss[B tensor.Backend] = nn.CrossEntropyLoss[B]

// NewCrossEntropyLoss creates the loss.
func NewCrossEntropyLoss[B tensor.Backend]() *CrossEntropyLoss[B] {
	return nn.NewCrossEntropyLoss[B]()
}

// MSELoss computes the mean squared error between prediction and target.
type MSELoss[B tensor.Backend] = nn.MSELoss[B]

// NewMSELoss creates the loss.
func NewMSELoss[B tensor.Backend]() *MSELoss[B] {
	return nn.NewMSELoss[B]()
}

// Checkpointing

// SaveOptions controls the on-disk checkpoint layout.
type SaveOptions = serialization.SaveOptions

// Checkpoint bundles a model with optimizer state and training progress.
type Checkpoint[B tensor.Backend] = nn.Checkpoint[B]

// SaveModel writes the model's architecture and parameters to an .axon
// file. The file is self-contained: LoadModel rebuilds the network from
// the stored config.
func SaveModel[B tensor.Backend](path string, model *MLP[B], opts SaveOptions) error {
	return nn.SaveModel(path, model, opts)
}

// LoadModel rebuilds an MLP from a checkpoint. A checkpoint whose stored
// shapes do not match the rebuilt architecture is rejected outright.
func LoadModel[B tensor.Backend](path string, backend B) (*MLP[B], error) {
	return nn.LoadModel(path, backend)
}

// SaveCheckpoint writes a resumable training checkpoint.
func SaveCheckpoint[B tensor.Backend](path string, ckpt *Checkpoint[B], opts SaveOptions) error {
	return nn.SaveCheckpoint(path, ckpt, opts)
}

// LoadCheckpoint rebuilds a training checkpoint, model and optimizer state
// included.
func LoadCheckpoint[B tensor.Backend](path string, backend B) (*Checkpoint[B], error) {
	return nn.LoadCheckpoint(path, backend)
}

// XavierUniform fills t with Xavier-uniform random values.
func XavierUniform[B tensor.Backend](t *tensor.Tensor[float32, B], fanIn, fanOut int, rng *rand.Rand) {
	nn.XavierUniform(t, fanIn, fanOut, rng)
}

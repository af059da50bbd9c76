// Copyright 2026 Axon ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the public API for gradient-descent optimizers.
//
// Example:
//
//	optimizer := optim.NewSGD(model.Parameters(), 0.01, 0.9)
//	// ... attach gradients ...
//	if err := optimizer.Step(); err != nil {
//	    log.Fatal(err)
//	}
//	optimizer.ZeroGrad()
package optim

import (
	"github.com/axon-ml/axon/internal/nn"
	"github.com/axon-ml/axon/internal/optim"
	"github.com/axon-ml/axon/internal/tensor"
)

// Optimizer updates parameters from their attached gradients.
type Optimizer[B tensor.Backend] = optim.Optimizer[B]

// SGD is stochastic gradient descent with optional momentum.
type SGD[B tensor.Backend] = optim.SGD[B]

// NewSGD creates an SGD optimizer. With zero momentum the update is the
// plain p = p - lr*grad.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], lr, momentum float32) *SGD[B] {
	return optim.NewSGD(params, lr, momentum)
}

// Adam implements the Adam optimizer with bias-corrected moments.
type Adam[B tensor.Backend] = optim.Adam[B]

// AdamConfig holds Adam hyperparameters; zero values fall back to the usual
// defaults (beta1=0.9, beta2=0.999, eps=1e-8).
type AdamConfig = optim.AdamConfig

// NewAdam creates an Adam optimizer.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig) *Adam[B] {
	return optim.NewAdam(params, config)
}

// Copyright 2026 Axon ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides the public API for tape-based reverse-mode
// automatic differentiation. Wrap any backend with New to record
// operations; run Tape.Backward to get gradients.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	tape := backend.Tape()
//	tape.StartRecording()
//
//	loss := model.Forward(x) // operations recorded
//	grads := tape.Backward(loss.Raw(), backend.Inner())
//
//	tape.StopRecording()
//	tape.Clear()
package autodiff

import (
	"github.com/axon-ml/axon/internal/autodiff"
	"github.com/axon-ml/axon/internal/tensor"
)

// Backend decorates a compute backend with gradient recording.
type Backend[B tensor.Backend] = autodiff.Backend[B]

// New wraps the given backend with a fresh tape.
func New[B tensor.Backend](inner B) *Backend[B] {
	return autodiff.NewBackend(inner)
}

// Tape records forward-pass operations for backpropagation.
type Tape = autodiff.Tape

// Gradients maps a forward-pass tensor to its accumulated gradient.
type Gradients = autodiff.Gradients

// Backward runs backpropagation from a typed scalar loss.
func Backward[T tensor.DType, B tensor.Backend](loss *tensor.Tensor[T, B], tape *Tape, backend tensor.Backend) Gradients {
	return autodiff.Backward(loss, tape, backend)
}

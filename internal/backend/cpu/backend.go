// Package cpu implements the pure-Go CPU backend.
package cpu

import (
	"fmt"

	"github.com/klauspost/cpuid/v2"

	"github.com/axon-ml/axon/internal/parallel"
	"github.com/axon-ml/axon/internal/tensor"
)

// Backend implements tensor.Backend with portable Go kernels.
type Backend struct {
	device   tensor.Device
	name     string
	parallel parallel.Config
}

// New creates a new CPU backend.
func New() *Backend {
	name := "CPU"
	if brand := cpuid.CPU.BrandName; brand != "" {
		name = "CPU (" + brand + ")"
	}
	return &Backend{
		device:   tensor.CPU,
		name:     name,
		parallel: parallel.DefaultConfig(),
	}
}

// Name returns the backend name, including the detected CPU brand.
func (b *Backend) Name() string { return b.name }

// Device returns the compute device.
func (b *Backend) Device() tensor.Device { return b.device }

// Add performs element-wise addition with broadcasting.
func (b *Backend) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binaryOp("add", x, y, addKernel)
}

// Sub performs element-wise subtraction with broadcasting.
func (b *Backend) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binaryOp("sub", x, y, subKernel)
}

// Mul performs element-wise multiplication with broadcasting.
func (b *Backend) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binaryOp("mul", x, y, mulKernel)
}

// Div performs element-wise division with broadcasting.
func (b *Backend) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binaryOp("div", x, y, divKernel)
}

// binaryOp dispatches an element-wise binary operation, handling shape
// broadcasting and the in-place fast path for uniquely-owned operands.
func (b *Backend) binaryOp(name string, x, y *tensor.RawTensor, k kernel) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(x.Shape(), y.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	if !needsBroadcast {
		// Rank-mismatched shapes like (5) + (1, 5) need no broadcasting
		// but still change the result shape, so the in-place path also
		// requires x to already have the output shape.
		if x.IsUnique() && x.Shape().Equal(outShape) {
			applySameShape(x, x, y, k)
			return x
		}
		result := mustNewRaw(outShape, x.DType(), b.device)
		applySameShape(result, x, y, k)
		return result
	}

	result := mustNewRaw(outShape, x.DType(), b.device)
	applyBroadcast(result, x, y, outShape, k)
	return result
}

func mustNewRaw(shape tensor.Shape, dtype tensor.DataType, device tensor.Device) *tensor.RawTensor {
	raw, err := tensor.NewRaw(shape, dtype, device)
	if err != nil {
		panic(err)
	}
	return raw
}

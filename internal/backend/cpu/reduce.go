package cpu

import (
	"fmt"

	"github.com/axon-ml/axon/internal/tensor"
)

// Sum reduces all elements to a single-element tensor.
func (b *Backend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := mustNewRaw(tensor.Shape{1}, x.DType(), b.device)

	switch x.DType() {
	case tensor.Float32:
		var total float32
		for _, v := range x.AsFloat32() {
			total += v
		}
		result.AsFloat32()[0] = total
	case tensor.Float64:
		var total float64
		for _, v := range x.AsFloat64() {
			total += v
		}
		result.AsFloat64()[0] = total
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}

	return result
}

// SumDim sums along a dimension. With keepDim the reduced axis stays as size 1.
func (b *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return b.reduceDim("sumdim", x, dim, keepDim, false)
}

// MeanDim averages along a dimension. With keepDim the reduced axis stays as size 1.
func (b *Backend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return b.reduceDim("meandim", x, dim, keepDim, true)
}

// reduceDim implements the shared shape bookkeeping for SumDim and MeanDim.
// Every dimension is decomposed as outer × reduced × inner, so a single pair
// of loops covers any axis.
func (b *Backend) reduceDim(name string, x *tensor.RawTensor, dim int, keepDim, mean bool) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("%s: dimension %d out of range for shape %v", name, dim, shape))
	}

	outer, inner := 1, 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	reduced := shape[dim]

	outShape := make(tensor.Shape, 0, len(shape))
	for i, d := range shape {
		if i == dim {
			if keepDim {
				outShape = append(outShape, 1)
			}
			continue
		}
		outShape = append(outShape, d)
	}
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}

	result := mustNewRaw(outShape, x.DType(), b.device)

	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), result.AsFloat32()
		for o := 0; o < outer; o++ {
			for in := 0; in < inner; in++ {
				var total float32
				for r := 0; r < reduced; r++ {
					total += src[(o*reduced+r)*inner+in]
				}
				if mean {
					total /= float32(reduced)
				}
				dst[o*inner+in] = total
			}
		}
	case tensor.Float64:
		src, dst := x.AsFloat64(), result.AsFloat64()
		for o := 0; o < outer; o++ {
			for in := 0; in < inner; in++ {
				var total float64
				for r := 0; r < reduced; r++ {
					total += src[(o*reduced+r)*inner+in]
				}
				if mean {
					total /= float64(reduced)
				}
				dst[o*inner+in] = total
			}
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}

	return result
}

// Argmax returns the index of the maximum value along a dimension as an
// Int32 tensor.
func (b *Backend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("argmax: dimension %d out of range for shape %v", dim, shape))
	}

	outer, inner := 1, 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	reduced := shape[dim]

	outShape := make(tensor.Shape, 0, len(shape))
	for i, d := range shape {
		if i != dim {
			outShape = append(outShape, d)
		}
	}
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}

	result := mustNewRaw(outShape, tensor.Int32, b.device)
	dst := result.AsInt32()

	argmax := func(value func(int) float64) {
		for o := 0; o < outer; o++ {
			for in := 0; in < inner; in++ {
				best := 0
				bestVal := value((o*reduced+0)*inner + in)
				for r := 1; r < reduced; r++ {
					if v := value((o*reduced+r)*inner + in); v > bestVal {
						best, bestVal = r, v
					}
				}
				dst[o*inner+in] = int32(best)
			}
		}
	}

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		argmax(func(i int) float64 { return float64(src[i]) })
	case tensor.Float64:
		src := x.AsFloat64()
		argmax(func(i int) float64 { return src[i] })
	default:
		panic(fmt.Sprintf("argmax: unsupported dtype %s", x.DType()))
	}

	return result
}

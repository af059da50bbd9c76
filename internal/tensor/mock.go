package tensor

import (
	"fmt"
	"math"
)

// Verify that MockBackend implements Backend.
var _ Backend = (*MockBackend)(nil)

// MockBackend is a naive float64 backend for tests in this package. The
// real kernels live in backend/cpu; this exists so tensor tests do not
// depend on that package.
type MockBackend struct{}

// NewMockBackend creates a new MockBackend.
func NewMockBackend() *MockBackend { return &MockBackend{} }

// Name returns "mock".
func (m *MockBackend) Name() string { return "mock" }

// Device returns CPU.
func (m *MockBackend) Device() Device { return CPU }

// Add performs element-wise addition with broadcasting.
func (m *MockBackend) Add(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (m *MockBackend) Sub(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (m *MockBackend) Mul(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (m *MockBackend) Div(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x / y })
}

// MatMul performs naive 2D matrix multiplication.
func (m *MockBackend) MatMul(a, b *RawTensor) *RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 || aShape[1] != bShape[0] {
		panic(fmt.Sprintf("mock matmul: incompatible shapes %v and %v", aShape, bShape))
	}
	rows, inner, cols := aShape[0], aShape[1], bShape[1]

	result := m.mustRaw(Shape{rows, cols}, a.DType())
	av, bv, rv := m.values(a), m.values(b), m.values(result)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			var sum float64
			for k := 0; k < inner; k++ {
				sum += av[i*inner+k] * bv[k*cols+j]
			}
			rv[i*cols+j] = sum
		}
	}
	m.store(rv, result)
	return result
}

// Reshape copies the data under a new shape.
func (m *MockBackend) Reshape(t *RawTensor, newShape Shape) *RawTensor {
	if newShape.NumElements() != t.NumElements() {
		panic(fmt.Sprintf("mock reshape: %v incompatible with %v", t.Shape(), newShape))
	}
	result := m.mustRaw(newShape, t.DType())
	copy(result.Data(), t.Data())
	return result
}

// Transpose permutes dimensions by explicit index remapping.
func (m *MockBackend) Transpose(t *RawTensor, axes ...int) *RawTensor {
	shape := t.Shape()
	if len(axes) == 0 {
		axes = make([]int, len(shape))
		for i := range axes {
			axes[i] = len(shape) - 1 - i
		}
	}
	outShape := make(Shape, len(shape))
	for i, ax := range axes {
		outShape[i] = shape[ax]
	}
	result := m.mustRaw(outShape, t.DType())

	src, dst := m.values(t), m.values(result)
	inStrides, outStrides := shape.ComputeStrides(), outShape.ComputeStrides()
	for i := 0; i < t.NumElements(); i++ {
		rem := i
		srcIdx := 0
		for d := 0; d < len(outShape); d++ {
			coord := rem / outStrides[d]
			rem %= outStrides[d]
			srcIdx += coord * inStrides[axes[d]]
		}
		dst[i] = src[srcIdx]
	}
	m.store(dst, result)
	return result
}

// AddScalar adds a scalar to every element.
func (m *MockBackend) AddScalar(x *RawTensor, scalar any) *RawTensor {
	s := m.scalar(scalar)
	return m.unary(x, func(v float64) float64 { return v + s })
}

// MulScalar multiplies every element by a scalar.
func (m *MockBackend) MulScalar(x *RawTensor, scalar any) *RawTensor {
	s := m.scalar(scalar)
	return m.unary(x, func(v float64) float64 { return v * s })
}

// Exp computes the element-wise exponential.
func (m *MockBackend) Exp(x *RawTensor) *RawTensor { return m.unary(x, math.Exp) }

// Log computes the element-wise natural logarithm.
func (m *MockBackend) Log(x *RawTensor) *RawTensor { return m.unary(x, math.Log) }

// Sqrt computes the element-wise square root.
func (m *MockBackend) Sqrt(x *RawTensor) *RawTensor { return m.unary(x, math.Sqrt) }

// Softmax applies softmax along the last dimension of a 2D tensor.
func (m *MockBackend) Softmax(x *RawTensor) *RawTensor {
	shape := x.Shape()
	if len(shape) != 2 {
		panic("mock softmax: input must be 2D")
	}
	rows, cols := shape[0], shape[1]
	result := m.mustRaw(shape, x.DType())
	src, dst := m.values(x), m.values(result)
	for r := 0; r < rows; r++ {
		row := src[r*cols : (r+1)*cols]
		max := row[0]
		for _, v := range row[1:] {
			if v > max {
				max = v
			}
		}
		var sum float64
		for c, v := range row {
			e := math.Exp(v - max)
			dst[r*cols+c] = e
			sum += e
		}
		for c := range row {
			dst[r*cols+c] /= sum
		}
	}
	m.store(dst, result)
	return result
}

// Sum reduces all elements to a single-element tensor.
func (m *MockBackend) Sum(x *RawTensor) *RawTensor {
	var total float64
	for _, v := range m.values(x) {
		total += v
	}
	result := m.mustRaw(Shape{1}, x.DType())
	m.store([]float64{total}, result)
	return result
}

// SumDim sums along one dimension.
func (m *MockBackend) SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor {
	return m.reduceDim(x, dim, keepDim, false)
}

// MeanDim averages along one dimension.
func (m *MockBackend) MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor {
	return m.reduceDim(x, dim, keepDim, true)
}

func (m *MockBackend) reduceDim(x *RawTensor, dim int, keepDim, mean bool) *RawTensor {
	shape := x.Shape()
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("mock reduce: dim %d out of range for shape %v", dim, shape))
	}
	outer, reduced, inner := 1, shape[dim], 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}

	var outShape Shape
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
		outShape = Shape{1}
	}

	result := m.mustRaw(outShape, x.DType())
	src, dst := m.values(x), m.values(result)
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			var sum float64
			for r := 0; r < reduced; r++ {
				sum += src[(o*reduced+r)*inner+in]
			}
			if mean {
				sum /= float64(reduced)
			}
			dst[o*inner+in] = sum
		}
	}
	m.store(dst, result)
	return result
}

// Argmax returns element indices of the maximum along a dimension.
func (m *MockBackend) Argmax(x *RawTensor, dim int) *RawTensor {
	shape := x.Shape()
	if len(shape) != 2 || dim != 1 {
		panic("mock argmax: only 2D tensors along dim 1")
	}
	rows, cols := shape[0], shape[1]
	result := m.mustRaw(Shape{rows}, Int32)
	src := m.values(x)
	out := result.AsInt32()
	for r := 0; r < rows; r++ {
		best := 0
		for c := 1; c < cols; c++ {
			if src[r*cols+c] > src[r*cols+best] {
				best = c
			}
		}
		out[r] = int32(best)
	}
	return result
}

func (m *MockBackend) elementWise(a, b *RawTensor, op func(float64, float64) float64) *RawTensor {
	outShape, _, err := BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(err)
	}
	result := m.mustRaw(outShape, a.DType())

	av, bv, rv := m.values(a), m.values(b), m.values(result)
	for i := range rv {
		rv[i] = op(av[m.broadcastIndex(i, outShape, a.Shape())], bv[m.broadcastIndex(i, outShape, b.Shape())])
	}
	m.store(rv, result)
	return result
}

// broadcastIndex maps a flat index in the output to a flat index in a
// (possibly smaller) input shape.
func (m *MockBackend) broadcastIndex(flat int, outShape, inShape Shape) int {
	if outShape.Equal(inShape) {
		return flat
	}
	outStrides := outShape.ComputeStrides()
	inStrides := inShape.ComputeStrides()
	offset := len(outShape) - len(inShape)

	idx := 0
	for d := 0; d < len(outShape); d++ {
		coord := (flat / outStrides[d]) % outShape[d]
		in := d - offset
		if in < 0 {
			continue
		}
		if inShape[in] == 1 {
			continue
		}
		idx += coord * inStrides[in]
	}
	return idx
}

func (m *MockBackend) unary(x *RawTensor, f func(float64) float64) *RawTensor {
	result := m.mustRaw(x.Shape(), x.DType())
	src, dst := m.values(x), m.values(result)
	for i := range src {
		dst[i] = f(src[i])
	}
	m.store(dst, result)
	return result
}

func (m *MockBackend) mustRaw(shape Shape, dtype DataType) *RawTensor {
	raw, err := NewRaw(shape, dtype, CPU)
	if err != nil {
		panic(err)
	}
	return raw
}

// values widens a tensor's data to float64 for naive arithmetic.
func (m *MockBackend) values(t *RawTensor) []float64 {
	out := make([]float64, t.NumElements())
	switch t.DType() {
	case Float32:
		for i, v := range t.AsFloat32() {
			out[i] = float64(v)
		}
	case Float64:
		copy(out, t.AsFloat64())
	case Int32:
		for i, v := range t.AsInt32() {
			out[i] = float64(v)
		}
	case Int64:
		for i, v := range t.AsInt64() {
			out[i] = float64(v)
		}
	case Uint8:
		for i, v := range t.AsUint8() {
			out[i] = float64(v)
		}
	default:
		panic("mock: unsupported dtype")
	}
	return out
}

// store writes float64 values back through the tensor's dtype.
func (m *MockBackend) store(values []float64, t *RawTensor) {
	switch t.DType() {
	case Float32:
		dst := t.AsFloat32()
		for i, v := range values {
			dst[i] = float32(v)
		}
	case Float64:
		copy(t.AsFloat64(), values)
	case Int32:
		dst := t.AsInt32()
		for i, v := range values {
			dst[i] = int32(v)
		}
	case Int64:
		dst := t.AsInt64()
		for i, v := range values {
			dst[i] = int64(v)
		}
	case Uint8:
		dst := t.AsUint8()
		for i, v := range values {
			dst[i] = uint8(v)
		}
	default:
		panic("mock: unsupported dtype")
	}
}

func (m *MockBackend) scalar(v any) float64 {
	switch s := v.(type) {
	case float32:
		return float64(s)
	case float64:
		return s
	case int:
		return float64(s)
	case int32:
		return float64(s)
	case int64:
		return float64(s)
	default:
		panic(fmt.Sprintf("mock: unsupported scalar type %T", v))
	}
}

package tensor

import (
	"math"
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), b.Device())
	if err != nil {
		panic(err)
	}
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T, B](shape, fromInt[T](1), b)
}

// Full creates a tensor filled with the given value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Arange creates a 1D tensor with values [start, stop) stepping by 1.
func Arange[T DType, B Backend](start, stop int, b B) *Tensor[T, B] {
	n := stop - start
	if n <= 0 {
		panic("Arange: stop must be greater than start")
	}
	t := Zeros[T, B](Shape{n}, b)
	data := t.Data()
	for i := range data {
		data[i] = fromInt[T](start + i)
	}
	return t
}

// Randn creates a tensor with values drawn from a standard normal
// distribution using the given source. Uses the Box-Muller transform.
// Only float32 and float64 are supported.
func Randn[T DType, B Backend](shape Shape, rng *rand.Rand, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := 0; i < len(data); i += 2 {
		u1 := rng.Float64()
		u2 := rng.Float64()
		r := math.Sqrt(-2.0 * math.Log(u1))
		z0 := r * math.Cos(2.0*math.Pi*u2)
		z1 := r * math.Sin(2.0*math.Pi*u2)
		assignFloat(data, i, z0)
		if i+1 < len(data) {
			assignFloat(data, i+1, z1)
		}
	}
	return t
}

// Rand creates a tensor with values uniformly distributed in [0, 1).
// Only float32 and float64 are supported.
func Rand[T DType, B Backend](shape Shape, rng *rand.Rand, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		assignFloat(data, i, rng.Float64())
	}
	return t
}

func fromInt[T DType](v int) T {
	var out T
	switch p := any(&out).(type) {
	case *float32:
		*p = float32(v)
	case *float64:
		*p = float64(v)
	case *int32:
		*p = int32(v)
	case *int64:
		*p = int64(v)
	case *uint8:
		*p = uint8(v)
	default:
		panic("integer initialization is not supported for this data type")
	}
	return out
}

func assignFloat[T DType](data []T, i int, v float64) {
	switch d := any(data).(type) {
	case []float32:
		d[i] = float32(v)
	case []float64:
		d[i] = v
	default:
		panic("random initialization supports float32 and float64 only")
	}
}

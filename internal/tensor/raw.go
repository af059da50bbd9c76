package tensor

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Device identifies where tensor data lives. Only the CPU device is
// implemented; the enum exists so checkpoint metadata and backends stay
// explicit about placement.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	default:
		return "Unknown"
	}
}

// buffer is a reference-counted byte slice shared between tensor views.
// Reference counting enables cheap Clone and lets backends reuse storage
// in place when they hold the only reference.
type buffer struct {
	data     []byte
	refCount atomic.Int32
}

func newBuffer(size int) *buffer {
	b := &buffer{data: make([]byte, size)}
	b.refCount.Store(1)
	return b
}

func (b *buffer) addRef() { b.refCount.Add(1) }

func (b *buffer) release() {
	if b.refCount.Add(-1) == 0 {
		b.data = nil
	}
}

func (b *buffer) isUnique() bool { return b.refCount.Load() == 1 }

// RawTensor is the untyped tensor representation shared by all backends.
// It couples a reference-counted byte buffer with shape, stride, and dtype
// metadata. Typed access goes through the AsFloat32/AsInt32/... views.
type RawTensor struct {
	buf    *buffer
	shape  Shape
	stride []int
	dtype  DataType
	device Device
}

// NewRaw allocates a zero-initialized RawTensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &RawTensor{
		buf:    newBuffer(shape.NumElements() * dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape { return r.shape }

// Strides returns the tensor's row-major strides.
func (r *RawTensor) Strides() []int { return r.stride }

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType { return r.dtype }

// Device returns the tensor's compute device.
func (r *RawTensor) Device() Device { return r.device }

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int { return r.shape.NumElements() }

// ByteSize returns the total memory footprint in bytes.
func (r *RawTensor) ByteSize() int { return r.NumElements() * r.dtype.Size() }

// Data returns the raw byte slice backing the tensor.
func (r *RawTensor) Data() []byte { return r.buf.data }

// AsFloat32 reinterprets the data as []float32.
// Panics if the dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	r.checkDType(Float32)
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.buf.data[0])), r.NumElements())
}

// AsFloat64 reinterprets the data as []float64.
// Panics if the dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 {
	r.checkDType(Float64)
	return unsafe.Slice((*float64)(unsafe.Pointer(&r.buf.data[0])), r.NumElements())
}

// AsInt32 reinterprets the data as []int32.
// Panics if the dtype is not Int32.
func (r *RawTensor) AsInt32() []int32 {
	r.checkDType(Int32)
	return unsafe.Slice((*int32)(unsafe.Pointer(&r.buf.data[0])), r.NumElements())
}

// AsInt64 reinterprets the data as []int64.
// Panics if the dtype is not Int64.
func (r *RawTensor) AsInt64() []int64 {
	r.checkDType(Int64)
	return unsafe.Slice((*int64)(unsafe.Pointer(&r.buf.data[0])), r.NumElements())
}

// AsUint8 reinterprets the data as []uint8.
// Panics if the dtype is not Uint8.
func (r *RawTensor) AsUint8() []uint8 {
	r.checkDType(Uint8)
	return r.buf.data
}

// AsBool reinterprets the data as []bool.
// Panics if the dtype is not Bool.
func (r *RawTensor) AsBool() []bool {
	r.checkDType(Bool)
	return unsafe.Slice((*bool)(unsafe.Pointer(&r.buf.data[0])), r.NumElements())
}

func (r *RawTensor) checkDType(want DataType) {
	if r.dtype != want {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", r.dtype, want))
	}
}

// Clone creates a view sharing the same buffer (copy-on-write via reference
// counting). The buffer is only duplicated when a backend needs to mutate a
// shared tensor.
func (r *RawTensor) Clone() *RawTensor {
	r.buf.addRef()
	return &RawTensor{
		buf:    r.buf,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		device: r.device,
	}
}

// DeepCopy allocates fresh storage and copies the data.
func (r *RawTensor) DeepCopy() *RawTensor {
	out, err := NewRaw(r.shape, r.dtype, r.device)
	if err != nil {
		panic(err)
	}
	copy(out.buf.data, r.buf.data)
	return out
}

// Release decrements the buffer reference count.
func (r *RawTensor) Release() { r.buf.release() }

// IsUnique reports whether this tensor holds the only reference to its
// buffer. Backends use this to decide whether in-place updates are safe.
func (r *RawTensor) IsUnique() bool { return r.buf.isUnique() }

// ForceNonUnique pins the buffer so backends will not modify it in place.
// The autodiff layer uses this to keep forward-pass inputs intact for the
// backward pass. The returned function must be called (usually deferred) to
// unpin.
func (r *RawTensor) ForceNonUnique() func() {
	r.buf.addRef()
	return func() { r.buf.release() }
}

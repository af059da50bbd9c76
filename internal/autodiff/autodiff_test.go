package autodiff_test

import (
	"math"
	"testing"

	"github.com/axon-ml/axon/internal/autodiff"
	"github.com/axon-ml/axon/internal/backend/cpu"
	"github.com/axon-ml/axon/internal/tensor"
)

func rawOf(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	copy(raw.AsFloat32(), data)
	return raw
}

func TestTapeRecording(t *testing.T) {
	backend := autodiff.NewBackend(cpu.New())
	tape := backend.Tape()

	x := rawOf(t, []float32{1, 2}, tensor.Shape{2})
	y := rawOf(t, []float32{3, 4}, tensor.Shape{2})

	// Not recording: nothing lands on the tape.
	backend.Add(x, y)
	if tape.NumOperations() != 0 {
		t.Fatalf("recorded %d operations while stopped", tape.NumOperations())
	}

	tape.StartRecording()
	backend.Add(x, y)
	backend.Mul(x, y)
	tape.StopRecording()

	if tape.NumOperations() != 2 {
		t.Fatalf("recorded %d operations, want 2", tape.NumOperations())
	}
	tape.Clear()
	if tape.NumOperations() != 0 {
		t.Error("Clear left operations on the tape")
	}
}

func TestRecordingKeepsOperandsIntact(t *testing.T) {
	backend := autodiff.NewBackend(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()
	defer tape.Clear()

	// x is uniquely owned; without pinning the inner backend would
	// overwrite it in place and corrupt the recorded forward value.
	x := rawOf(t, []float32{1, 2}, tensor.Shape{2})
	y := rawOf(t, []float32{10, 10}, tensor.Shape{2})
	out := backend.Add(x, y)

	if out == x {
		t.Fatal("recorded operand was reused in place")
	}
	if x.AsFloat32()[0] != 1 {
		t.Fatalf("input mutated during recording: %v", x.AsFloat32())
	}
}

func TestDetachStopsGradient(t *testing.T) {
	inner := cpu.New()
	backend := autodiff.NewBackend(inner)
	tape := backend.Tape()

	x, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	tape.StartRecording()
	y := x.MulScalar(2)
	d := y.Detach()
	loss := d.Mul(x).Sum()
	tape.StopRecording()
	defer tape.Clear()

	grads := tape.Backward(loss.Raw(), inner)
	defer grads.Release()

	// The loss sees d as a constant, so dloss/dx is d's values, not the
	// 4x that would flow through y without the detach.
	g := grads.For(x.Raw())
	if g == nil {
		t.Fatal("no gradient for x")
	}
	want := []float32{2, 4, 6}
	for i, v := range g.AsFloat32() {
		if math.Abs(float64(v-want[i])) > 1e-6 {
			t.Errorf("grad[%d] = %v, want %v", i, v, want[i])
		}
	}
	if grads.For(y.Raw()) != nil {
		t.Error("gradient flowed through the detach boundary")
	}
}

func TestBackwardChain(t *testing.T) {
	inner := cpu.New()
	backend := autodiff.NewBackend(inner)
	tape := backend.Tape()
	tape.StartRecording()
	defer tape.Clear()

	// loss = sum((x + y) * x); d/dx = 2x + y, d/dy = x.
	x := rawOf(t, []float32{1, 2, 3}, tensor.Shape{3})
	y := rawOf(t, []float32{4, 5, 6}, tensor.Shape{3})

	sum := backend.Add(x, y)
	prod := backend.Mul(sum, x)
	loss := backend.Sum(prod)
	tape.StopRecording()

	grads := tape.Backward(loss, inner)
	defer grads.Release()

	gx := grads.For(x)
	if gx == nil {
		t.Fatal("no gradient for x")
	}
	wantX := []float32{6, 9, 12} // 2x + y
	for i, w := range wantX {
		if got := gx.AsFloat32()[i]; math.Abs(float64(got-w)) > 1e-5 {
			t.Errorf("dloss/dx[%d] = %v, want %v", i, got, w)
		}
	}

	gy := grads.For(y)
	if gy == nil {
		t.Fatal("no gradient for y")
	}
	for i, w := range []float32{1, 2, 3} {
		if got := gy.AsFloat32()[i]; math.Abs(float64(got-w)) > 1e-5 {
			t.Errorf("dloss/dy[%d] = %v, want %v", i, got, w)
		}
	}
}

func TestBackwardMatMul(t *testing.T) {
	inner := cpu.New()
	backend := autodiff.NewBackend(inner)
	tape := backend.Tape()
	tape.StartRecording()
	defer tape.Clear()

	a := rawOf(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := rawOf(t, []float32{5, 6, 7, 8}, tensor.Shape{2, 2})

	out := backend.MatMul(a, b)
	loss := backend.Sum(out)
	tape.StopRecording()

	grads := tape.Backward(loss, inner)
	defer grads.Release()

	// dloss/dA = ones @ B^T: each row is the column sums of B^T rows,
	// i.e. [[5+6, 7+8], [5+6, 7+8]].
	ga := grads.For(a)
	wantA := []float32{11, 15, 11, 15}
	for i, w := range wantA {
		if got := ga.AsFloat32()[i]; math.Abs(float64(got-w)) > 1e-5 {
			t.Errorf("dloss/dA[%d] = %v, want %v", i, got, w)
		}
	}

	gb := grads.For(b)
	wantB := []float32{4, 4, 6, 6} // A^T @ ones
	for i, w := range wantB {
		if got := gb.AsFloat32()[i]; math.Abs(float64(got-w)) > 1e-5 {
			t.Errorf("dloss/dB[%d] = %v, want %v", i, got, w)
		}
	}
}

func TestBackwardBroadcastReducesGrad(t *testing.T) {
	inner := cpu.New()
	backend := autodiff.NewBackend(inner)
	tape := backend.Tape()
	tape.StartRecording()
	defer tape.Clear()

	x := rawOf(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	bias := rawOf(t, []float32{10, 20, 30}, tensor.Shape{3})

	out := backend.Add(x, bias)
	loss := backend.Sum(out)
	tape.StopRecording()

	grads := tape.Backward(loss, inner)
	defer grads.Release()

	gb := grads.For(bias)
	if gb == nil {
		t.Fatal("no gradient for bias")
	}
	if !gb.Shape().Equal(tensor.Shape{3}) {
		t.Fatalf("bias grad shape = %v, want [3]", gb.Shape())
	}
	// Gradient of each bias element is the batch size.
	for i, v := range gb.AsFloat32() {
		if v != 2 {
			t.Errorf("bias grad[%d] = %v, want 2", i, v)
		}
	}
}

// TestNumericGradient compares autodiff gradients of a small composite
// function against central finite differences.
func TestNumericGradient(t *testing.T) {
	inner := cpu.New()
	backend := autodiff.NewBackend(inner)

	input := []float32{0.5, -0.2, 0.8, 0.1}

	// f(x) = sum(sigmoid(x) * x)
	forward := func(vals []float32) (loss, x *tensor.RawTensor) {
		x = rawOf(t, vals, tensor.Shape{4})
		s := backend.Sigmoid(x)
		p := backend.Mul(s, x)
		return backend.Sum(p), x
	}

	tape := backend.Tape()
	tape.StartRecording()
	loss, x := forward(input)
	tape.StopRecording()

	grads := tape.Backward(loss, inner)
	analytic := append([]float32(nil), grads.For(x).AsFloat32()...)
	grads.Release()
	tape.Clear()

	const h = 1e-3
	for i := range input {
		plus := append([]float32(nil), input...)
		minus := append([]float32(nil), input...)
		plus[i] += h
		minus[i] -= h

		lossPlus, _ := forward(plus)
		lossMinus, _ := forward(minus)
		numeric := (lossPlus.AsFloat32()[0] - lossMinus.AsFloat32()[0]) / (2 * h)

		if math.Abs(float64(numeric-analytic[i])) > 1e-2 {
			t.Errorf("gradient %d: numeric %v vs analytic %v", i, numeric, analytic[i])
		}
	}
}

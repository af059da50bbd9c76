package tensor

import (
	"math"
	"math/rand"
	"testing"
)

func TestFromSlice(t *testing.T) {
	backend := NewMockBackend()
	data := []float32{1, 2, 3, 4, 5, 6}

	x, err := FromSlice(data, Shape{2, 3}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	if !x.Shape().Equal(Shape{2, 3}) {
		t.Errorf("shape = %v, want [2 3]", x.Shape())
	}
	if got := x.At(1, 2); got != 6 {
		t.Errorf("At(1,2) = %v, want 6", got)
	}

	// Length mismatch must fail.
	if _, err := FromSlice(data, Shape{2, 2}, backend); err == nil {
		t.Error("FromSlice accepted mismatched length")
	}
}

func TestSetAndItem(t *testing.T) {
	backend := NewMockBackend()
	x := Zeros[float32](Shape{2, 2}, backend)
	x.Set(7, 1, 0)
	if got := x.At(1, 0); got != 7 {
		t.Errorf("At(1,0) = %v, want 7", got)
	}

	s := Full[float32](Shape{1}, 3.5, backend)
	if got := s.Item(); got != 3.5 {
		t.Errorf("Item() = %v, want 3.5", got)
	}
}

func TestBoolTensors(t *testing.T) {
	backend := NewMockBackend()

	if Bool.Size() != 1 {
		t.Errorf("Bool.Size() = %d, want 1", Bool.Size())
	}
	if Bool.String() != "bool" {
		t.Errorf("Bool.String() = %q, want \"bool\"", Bool.String())
	}

	x, err := FromSlice([]bool{true, false, false, true}, Shape{2, 2}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	if x.DType() != Bool {
		t.Errorf("DType = %s, want bool", x.DType())
	}
	if !x.At(0, 0) || x.At(0, 1) {
		t.Errorf("data = %v, want [true false false true]", x.Data())
	}
}

func TestDetachCopiesData(t *testing.T) {
	backend := NewMockBackend()
	x, err := FromSlice([]float32{1, 2, 3}, Shape{3}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	d := x.Detach()
	if d.Raw() == x.Raw() {
		t.Fatal("detached tensor shares buffer identity with the original")
	}
	if !d.Shape().Equal(x.Shape()) {
		t.Errorf("detached shape = %v, want %v", d.Shape(), x.Shape())
	}
	for i, v := range d.Data() {
		if v != x.Data()[i] {
			t.Errorf("detached[%d] = %v, want %v", i, v, x.Data()[i])
		}
	}

	// Writes through the detached copy never reach the original.
	d.Set(99, 0)
	if x.At(0) != 1 {
		t.Errorf("original mutated through detached copy: %v", x.Data())
	}
}

func TestCloneIsDeep(t *testing.T) {
	backend := NewMockBackend()
	x := Full[float32](Shape{3}, 1, backend)
	y := x.Clone()
	y.Set(9, 0)
	if x.At(0) != 1 {
		t.Error("Clone shares storage with the original")
	}
}

func TestRawClone(t *testing.T) {
	raw, err := NewRaw(Shape{4}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	if !raw.IsUnique() {
		t.Error("fresh tensor should be unique")
	}

	view := raw.Clone()
	if raw.IsUnique() {
		t.Error("tensor with a live view reported unique")
	}
	view.Release()
	if !raw.IsUnique() {
		t.Error("tensor unique again after view release")
	}
}

func TestForceNonUnique(t *testing.T) {
	raw, err := NewRaw(Shape{4}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	unpin := raw.ForceNonUnique()
	if raw.IsUnique() {
		t.Error("pinned tensor reported unique")
	}
	unpin()
	if !raw.IsUnique() {
		t.Error("tensor not unique after unpin")
	}
}

func TestRandnDeterministic(t *testing.T) {
	backend := NewMockBackend()
	a := Randn[float32](Shape{100}, rand.New(rand.NewSource(7)), backend)
	b := Randn[float32](Shape{100}, rand.New(rand.NewSource(7)), backend)
	for i := range a.Data() {
		if a.Data()[i] != b.Data()[i] {
			t.Fatal("same seed produced different values")
		}
	}

	c := Randn[float32](Shape{100}, rand.New(rand.NewSource(8)), backend)
	same := true
	for i := range a.Data() {
		if a.Data()[i] != c.Data()[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical values")
	}
}

func TestRandRange(t *testing.T) {
	backend := NewMockBackend()
	x := Rand[float64](Shape{1000}, rand.New(rand.NewSource(1)), backend)
	for _, v := range x.Data() {
		if v < 0 || v >= 1 {
			t.Fatalf("Rand value %v outside [0, 1)", v)
		}
	}
}

func TestArange(t *testing.T) {
	backend := NewMockBackend()
	x := Arange[int32](3, 7, backend)
	want := []int32{3, 4, 5, 6}
	for i, v := range want {
		if x.Data()[i] != v {
			t.Fatalf("Arange = %v, want %v", x.Data(), want)
		}
	}
}

func TestTensorOpsViaBackend(t *testing.T) {
	backend := NewMockBackend()
	x, _ := FromSlice([]float32{1, 2, 3, 4}, Shape{2, 2}, backend)
	y, _ := FromSlice([]float32{10, 20, 30, 40}, Shape{2, 2}, backend)

	sum := x.Add(y)
	if got := sum.At(1, 1); got != 44 {
		t.Errorf("Add: At(1,1) = %v, want 44", got)
	}

	prod := x.MatMul(y)
	// [1 2; 3 4] @ [10 20; 30 40] = [70 100; 150 220]
	if got := prod.At(1, 0); got != 150 {
		t.Errorf("MatMul: At(1,0) = %v, want 150", got)
	}

	tr := x.T()
	if got := tr.At(0, 1); got != 3 {
		t.Errorf("T: At(0,1) = %v, want 3", got)
	}

	total := x.Sum().Item()
	if math.Abs(float64(total)-10) > 1e-6 {
		t.Errorf("Sum = %v, want 10", total)
	}
}

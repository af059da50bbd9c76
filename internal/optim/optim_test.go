package optim_test

import (
	"math"
	"testing"

	"github.com/axon-ml/axon/internal/backend/cpu"
	"github.com/axon-ml/axon/internal/nn"
	"github.com/axon-ml/axon/internal/optim"
	"github.com/axon-ml/axon/internal/tensor"
)

func newParam(t *testing.T, name string, data []float32, shape tensor.Shape) *nn.Parameter[*cpu.Backend] {
	t.Helper()
	x, err := tensor.FromSlice(data, shape, cpu.New())
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	return nn.NewParameter(name, x)
}

func attachGrad(t *testing.T, p *nn.Parameter[*cpu.Backend], data []float32) {
	t.Helper()
	raw, err := tensor.NewRaw(p.Raw().Shape(), tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	copy(raw.AsFloat32(), data)
	p.SetGrad(raw)
}

func TestSGDPlainStep(t *testing.T) {
	p := newParam(t, "w", []float32{1, 2, 3}, tensor.Shape{3})
	sgd := optim.NewSGD([]*nn.Parameter[*cpu.Backend]{p}, 0.1, 0)

	attachGrad(t, p, []float32{1, 1, 1})
	if err := sgd.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}

	want := []float32{0.9, 1.9, 2.9}
	got := p.Raw().AsFloat32()
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("param[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSGDSkipsParamsWithoutGrad(t *testing.T) {
	p := newParam(t, "w", []float32{1, 2}, tensor.Shape{2})
	sgd := optim.NewSGD([]*nn.Parameter[*cpu.Backend]{p}, 0.5, 0)

	if err := sgd.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	got := p.Raw().AsFloat32()
	if got[0] != 1 || got[1] != 2 {
		t.Errorf("params moved without a gradient: %v", got)
	}
}

func TestSGDMomentum(t *testing.T) {
	p := newParam(t, "w", []float32{0}, tensor.Shape{1})
	sgd := optim.NewSGD([]*nn.Parameter[*cpu.Backend]{p}, 1, 0.5)

	// v1 = 1, p = -1; v2 = 0.5*1 + 1 = 1.5, p = -2.5
	for range 2 {
		attachGrad(t, p, []float32{1})
		if err := sgd.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	if got := p.Raw().AsFloat32()[0]; math.Abs(float64(got+2.5)) > 1e-6 {
		t.Errorf("param = %v, want -2.5", got)
	}
}

func TestSGDConvergesOnQuadratic(t *testing.T) {
	// Minimize f(p) = p^2 with grad 2p.
	p := newParam(t, "w", []float32{5}, tensor.Shape{1})
	sgd := optim.NewSGD([]*nn.Parameter[*cpu.Backend]{p}, 0.1, 0.9)

	for range 100 {
		x := p.Raw().AsFloat32()[0]
		attachGrad(t, p, []float32{2 * x})
		if err := sgd.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
		sgd.ZeroGrad()
	}
	if got := p.Raw().AsFloat32()[0]; math.Abs(float64(got)) > 1e-3 {
		t.Errorf("did not converge: param = %v", got)
	}
}

func TestLearningRateAccessors(t *testing.T) {
	p := newParam(t, "w", []float32{1}, tensor.Shape{1})
	optimizers := []optim.Optimizer[*cpu.Backend]{
		optim.NewSGD([]*nn.Parameter[*cpu.Backend]{p}, 0.01, 0),
		optim.NewAdam([]*nn.Parameter[*cpu.Backend]{p}, optim.AdamConfig{LR: 0.01}),
	}

	for _, opt := range optimizers {
		if got := opt.GetLR(); got != 0.01 {
			t.Errorf("%s: GetLR = %v, want 0.01", opt.Name(), got)
		}
		opt.SetLR(0.001)
		if got := opt.GetLR(); got != 0.001 {
			t.Errorf("%s: GetLR after SetLR = %v, want 0.001", opt.Name(), got)
		}
	}
}

func TestSGDStateDictRoundTrip(t *testing.T) {
	p := newParam(t, "w", []float32{1, 2}, tensor.Shape{2})
	src := optim.NewSGD([]*nn.Parameter[*cpu.Backend]{p}, 0.1, 0.9)

	attachGrad(t, p, []float32{1, -1})
	if err := src.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}

	state := src.StateDict()
	if _, ok := state["velocity.0"]; !ok {
		t.Fatalf("state dict missing velocity.0: %v", state)
	}

	q := newParam(t, "w", []float32{1, 2}, tensor.Shape{2})
	dst := optim.NewSGD([]*nn.Parameter[*cpu.Backend]{q}, 0.1, 0.9)
	if err := dst.LoadStateDict(state); err != nil {
		t.Fatalf("LoadStateDict: %v", err)
	}

	// Same gradient after restore produces the same update.
	attachGrad(t, p, []float32{2, 2})
	attachGrad(t, q, []float32{2, 2})
	if err := src.Step(); err != nil {
		t.Fatalf("src Step: %v", err)
	}
	if err := dst.Step(); err != nil {
		t.Fatalf("dst Step: %v", err)
	}
	a, b := p.Raw().AsFloat32(), q.Raw().AsFloat32()
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > 1e-6 {
			t.Errorf("param[%d]: src %v, dst %v", i, a[i], b[i])
		}
	}
}

func TestSGDLoadStateDictShapeMismatch(t *testing.T) {
	p := newParam(t, "w", []float32{1, 2}, tensor.Shape{2})
	sgd := optim.NewSGD([]*nn.Parameter[*cpu.Backend]{p}, 0.1, 0.9)

	bad, err := tensor.NewRaw(tensor.Shape{3}, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	if err := sgd.LoadStateDict(map[string]*tensor.RawTensor{"velocity.0": bad}); err == nil {
		t.Fatal("expected shape mismatch error, got nil")
	}
}

func TestAdamFirstStepMagnitude(t *testing.T) {
	// On the first step the bias-corrected update is ~lr regardless of
	// the gradient's scale.
	p := newParam(t, "w", []float32{1, 1}, tensor.Shape{2})
	adam := optim.NewAdam([]*nn.Parameter[*cpu.Backend]{p}, optim.AdamConfig{LR: 0.01})

	attachGrad(t, p, []float32{100, 0.001})
	if err := adam.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	got := p.Raw().AsFloat32()
	for i, g := range got {
		if math.Abs(float64(g)-(1-0.01)) > 1e-3 {
			t.Errorf("param[%d] = %v, want ~0.99", i, g)
		}
	}
}

func TestAdamConvergesOnQuadratic(t *testing.T) {
	p := newParam(t, "w", []float32{3}, tensor.Shape{1})
	adam := optim.NewAdam([]*nn.Parameter[*cpu.Backend]{p}, optim.AdamConfig{LR: 0.1})

	for range 500 {
		x := p.Raw().AsFloat32()[0]
		attachGrad(t, p, []float32{2 * x})
		if err := adam.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
		adam.ZeroGrad()
	}
	if got := p.Raw().AsFloat32()[0]; math.Abs(float64(got)) > 1e-2 {
		t.Errorf("did not converge: param = %v", got)
	}
}

func TestAdamStateDictRoundTrip(t *testing.T) {
	p := newParam(t, "w", []float32{1}, tensor.Shape{1})
	src := optim.NewAdam([]*nn.Parameter[*cpu.Backend]{p}, optim.AdamConfig{LR: 0.01})

	for range 3 {
		attachGrad(t, p, []float32{0.5})
		if err := src.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}

	state := src.StateDict()
	for _, key := range []string{"m.0", "v.0", "step"} {
		if _, ok := state[key]; !ok {
			t.Fatalf("state dict missing %q", key)
		}
	}
	if got := state["step"].AsInt64()[0]; got != 3 {
		t.Errorf("step = %d, want 3", got)
	}

	q := newParam(t, "w", []float32{p.Raw().AsFloat32()[0]}, tensor.Shape{1})
	dst := optim.NewAdam([]*nn.Parameter[*cpu.Backend]{q}, optim.AdamConfig{LR: 0.01})
	if err := dst.LoadStateDict(state); err != nil {
		t.Fatalf("LoadStateDict: %v", err)
	}

	attachGrad(t, p, []float32{0.5})
	attachGrad(t, q, []float32{0.5})
	if err := src.Step(); err != nil {
		t.Fatalf("src Step: %v", err)
	}
	if err := dst.Step(); err != nil {
		t.Fatalf("dst Step: %v", err)
	}
	a, b := p.Raw().AsFloat32()[0], q.Raw().AsFloat32()[0]
	if math.Abs(float64(a-b)) > 1e-6 {
		t.Errorf("diverged after restore: src %v, dst %v", a, b)
	}
}

func TestAdamLoadStateDictMissingStep(t *testing.T) {
	p := newParam(t, "w", []float32{1}, tensor.Shape{1})
	adam := optim.NewAdam([]*nn.Parameter[*cpu.Backend]{p}, optim.AdamConfig{LR: 0.01})

	if err := adam.LoadStateDict(map[string]*tensor.RawTensor{}); err == nil {
		t.Fatal("expected error for missing step, got nil")
	}
}

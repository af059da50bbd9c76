package nn_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axon-ml/axon/internal/autodiff"
	"github.com/axon-ml/axon/internal/backend/cpu"
	"github.com/axon-ml/axon/internal/nn"
	"github.com/axon-ml/axon/internal/tensor"
)

type testBackend = *autodiff.Backend[*cpu.Backend]

func newTestBackend() testBackend {
	return autodiff.NewBackend(cpu.New())
}

func TestLinearForward(t *testing.T) {
	backend := newTestBackend()
	rng := rand.New(rand.NewSource(1))
	layer := nn.NewLinear(3, 2, rng, backend)

	// Overwrite the random init with known values.
	w := layer.Parameters()[0].Tensor().Data()
	copy(w, []float32{1, 0, 0, 0, 1, 0}) // row 0 selects x0, row 1 selects x1
	b := layer.Parameters()[1].Tensor().Data()
	copy(b, []float32{10, 20})

	x, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{1, 3}, backend)
	require.NoError(t, err)

	y := layer.Forward(x)
	require.Equal(t, tensor.Shape{1, 2}, y.Shape())
	assert.InDelta(t, 11.0, float64(y.At(0, 0)), 1e-5)
	assert.InDelta(t, 22.0, float64(y.At(0, 1)), 1e-5)
}

func TestLinearLoadStateDictMismatch(t *testing.T) {
	backend := newTestBackend()
	rng := rand.New(rand.NewSource(1))
	layer := nn.NewLinear(3, 2, rng, backend)

	wrong, err := tensor.NewRaw(tensor.Shape{4, 3}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	bias, err := tensor.NewRaw(tensor.Shape{2}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)

	err = layer.LoadStateDict(map[string]*tensor.RawTensor{
		"weight": wrong,
		"bias":   bias,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shape mismatch")
}

func TestMLPForwardShape(t *testing.T) {
	backend := newTestBackend()
	model, err := nn.NewMLP(nn.MLPConfig{
		InputSize:   8,
		HiddenSizes: []int{16, 4},
		OutputSize:  3,
		Activation:  nn.ActivationReLU,
		Seed:        7,
	}, backend)
	require.NoError(t, err)

	// Two hidden layers and an output layer: three Linears, six params.
	require.Len(t, model.Parameters(), 6)

	x := tensor.Zeros[float32](tensor.Shape{5, 8}, backend)
	y := model.Forward(x)
	assert.Equal(t, tensor.Shape{5, 3}, y.Shape())
}

func TestMLPSeedReproducible(t *testing.T) {
	backend := newTestBackend()
	config := nn.MLPConfig{
		InputSize:  4,
		OutputSize: 2,
		Activation: nn.ActivationTanh,
		Seed:       99,
	}

	a, err := nn.NewMLP(config, backend)
	require.NoError(t, err)
	b, err := nn.NewMLP(config, backend)
	require.NoError(t, err)

	assert.Equal(t, a.Parameters()[0].Tensor().Data(), b.Parameters()[0].Tensor().Data())
}

func TestMLPConfigValidate(t *testing.T) {
	backend := newTestBackend()

	_, err := nn.NewMLP(nn.MLPConfig{InputSize: 0, OutputSize: 2, Activation: nn.ActivationReLU}, backend)
	assert.Error(t, err)

	_, err = nn.NewMLP(nn.MLPConfig{InputSize: 4, OutputSize: 2, Activation: "swish"}, backend)
	assert.Error(t, err)

	_, err = nn.NewMLP(nn.MLPConfig{InputSize: 4, HiddenSizes: []int{-1}, OutputSize: 2, Activation: nn.ActivationReLU}, backend)
	assert.Error(t, err)
}

func TestStateDictRoundTrip(t *testing.T) {
	backend := newTestBackend()
	config := nn.MLPConfig{
		InputSize:   6,
		HiddenSizes: []int{4},
		OutputSize:  2,
		Activation:  nn.ActivationSigmoid,
		Seed:        1,
	}

	src, err := nn.NewMLP(config, backend)
	require.NoError(t, err)

	// A different seed gives different weights; loading must overwrite them.
	config.Seed = 2
	dst, err := nn.NewMLP(config, backend)
	require.NoError(t, err)

	require.NoError(t, dst.LoadStateDict(src.StateDict()))

	x := tensor.Ones[float32](tensor.Shape{1, 6}, backend)
	want := src.Forward(x).Data()
	got := dst.Forward(x).Data()
	assert.Equal(t, want, got)
}

func TestStateDictRejectsForeignKeys(t *testing.T) {
	backend := newTestBackend()
	model, err := nn.NewMLP(nn.MLPConfig{
		InputSize:  4,
		OutputSize: 2,
		Activation: nn.ActivationReLU,
		Seed:       1,
	}, backend)
	require.NoError(t, err)

	state := model.StateDict()
	stray, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	state["layers.9.weight"] = stray

	assert.Error(t, model.LoadStateDict(state))
}

func TestActivationModules(t *testing.T) {
	backend := newTestBackend()
	x, err := tensor.FromSlice([]float32{-2, 0, 2}, tensor.Shape{1, 3}, backend)
	require.NoError(t, err)

	relu := nn.NewReLU[testBackend]()
	assert.Equal(t, []float32{0, 0, 2}, relu.Forward(x).Data())
	assert.Empty(t, relu.Parameters())

	sig := nn.NewSigmoid[testBackend]()
	out := sig.Forward(x).Data()
	assert.InDelta(t, 0.5, float64(out[1]), 1e-6)
}

func TestCrossEntropyLossForward(t *testing.T) {
	backend := newTestBackend()
	logits, err := tensor.FromSlice([]float32{2, 1}, tensor.Shape{1, 2}, backend)
	require.NoError(t, err)
	targets, err := tensor.FromSlice([]int32{0}, tensor.Shape{1}, backend)
	require.NoError(t, err)

	loss := nn.NewCrossEntropyLoss[testBackend]().Forward(logits, targets)
	// -log(softmax([2,1])[0]) = log(1 + e^-1)
	assert.InDelta(t, 0.313262, float64(loss.Item()), 1e-4)
}

func TestMSELossForward(t *testing.T) {
	backend := newTestBackend()
	pred, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{1, 3}, backend)
	require.NoError(t, err)
	target, err := tensor.FromSlice([]float32{1, 1, 1}, tensor.Shape{1, 3}, backend)
	require.NoError(t, err)

	loss := nn.NewMSELoss[testBackend]().Forward(pred, target)
	// mean([0, 1, 4]) = 5/3
	assert.InDelta(t, 5.0/3.0, float64(loss.Item()), 1e-5)
}

package optim

import (
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/axon-ml/axon/internal/nn"
	"github.com/axon-ml/axon/internal/tensor"
)

// Adam implements the Adam optimizer (Kingma & Ba, 2015) with
// bias-corrected first and second moment estimates.
type Adam[B tensor.Backend] struct {
	params []*nn.Parameter[B]
	lr     float32
	beta1  float32
	beta2  float32
	eps    float32
	step   int64
	m      []*tensor.RawTensor
	v      []*tensor.RawTensor
}

// AdamConfig holds the optimizer hyperparameters. Zero values fall back to
// the usual defaults: beta1=0.9, beta2=0.999, eps=1e-8.
type AdamConfig struct {
	LR    float32
	Beta1 float32
	Beta2 float32
	Eps   float32
}

// NewAdam creates an Adam optimizer over the given parameters.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig) *Adam[B] {
	if config.Beta1 == 0 {
		config.Beta1 = 0.9
	}
	if config.Beta2 == 0 {
		config.Beta2 = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam[B]{
		params: params,
		lr:     config.LR,
		beta1:  config.Beta1,
		beta2:  config.Beta2,
		eps:    config.Eps,
		m:      make([]*tensor.RawTensor, len(params)),
		v:      make([]*tensor.RawTensor, len(params)),
	}
}

// Name returns "adam".
func (a *Adam[B]) Name() string { return "adam" }

// Step applies one bias-corrected update to every parameter with a
// gradient.
func (a *Adam[B]) Step() error {
	a.step++
	correction1 := 1 - float32(math.Pow(float64(a.beta1), float64(a.step)))
	correction2 := 1 - float32(math.Pow(float64(a.beta2), float64(a.step)))

	for i, p := range a.params {
		param, grad, err := gradData(p)
		if err != nil {
			return err
		}
		if grad == nil {
			continue
		}

		if a.m[i] == nil {
			if a.m[i], err = tensor.NewRaw(p.Raw().Shape(), tensor.Float32, p.Raw().Device()); err != nil {
				return errors.Wrap(err, "allocating first-moment buffer")
			}
			if a.v[i], err = tensor.NewRaw(p.Raw().Shape(), tensor.Float32, p.Raw().Device()); err != nil {
				return errors.Wrap(err, "allocating second-moment buffer")
			}
		}

		m, v := a.m[i].AsFloat32(), a.v[i].AsFloat32()
		for j := range param {
			g := grad[j]
			m[j] = a.beta1*m[j] + (1-a.beta1)*g
			v[j] = a.beta2*v[j] + (1-a.beta2)*g*g
			mHat := m[j] / correction1
			vHat := v[j] / correction2
			param[j] -= a.lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
		}
	}
	return nil
}

// ZeroGrad detaches all gradients.
func (a *Adam[B]) ZeroGrad() { zeroGrads(a.params) }

// GetLR returns the current learning rate.
func (a *Adam[B]) GetLR() float32 { return a.lr }

// SetLR updates the learning rate.
func (a *Adam[B]) SetLR(lr float32) { a.lr = lr }

// StateDict returns the moment buffers keyed "m.<index>" and "v.<index>",
// plus the global step count under "step".
func (a *Adam[B]) StateDict() map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor)
	for i := range a.params {
		if a.m[i] != nil {
			state["m."+strconv.Itoa(i)] = a.m[i]
			state["v."+strconv.Itoa(i)] = a.v[i]
		}
	}

	step, err := tensor.NewRaw(tensor.Shape{1}, tensor.Int64, tensor.CPU)
	if err != nil {
		panic(err)
	}
	step.AsInt64()[0] = a.step
	state["step"] = step
	return state
}

// LoadStateDict restores the moment buffers and step count.
func (a *Adam[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	step, ok := state["step"]
	if !ok {
		return errors.New("missing key \"step\" in optimizer state")
	}
	if step.DType() != tensor.Int64 || step.NumElements() != 1 {
		return errors.New("optimizer state key \"step\" must be a single int64")
	}
	a.step = step.AsInt64()[0]

	for i, p := range a.params {
		mKey := "m." + strconv.Itoa(i)
		if _, ok := state[mKey]; !ok {
			// Moments not yet allocated when the checkpoint was taken.
			a.m[i], a.v[i] = nil, nil
			continue
		}
		m, err := loadBuffer(state, mKey, p.Raw().Shape())
		if err != nil {
			return err
		}
		v, err := loadBuffer(state, "v."+strconv.Itoa(i), p.Raw().Shape())
		if err != nil {
			return err
		}
		a.m[i], a.v[i] = m, v
	}
	return nil
}

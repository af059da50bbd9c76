package optim

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/axon-ml/axon/internal/nn"
	"github.com/axon-ml/axon/internal/tensor"
)

// SGD is stochastic gradient descent with optional momentum:
//
//	v = momentum*v + grad
//	p = p - lr*v
//
// With zero momentum it degrades to the plain update p = p - lr*grad.
type SGD[B tensor.Backend] struct {
	params   []*nn.Parameter[B]
	lr       float32
	momentum float32
	velocity []*tensor.RawTensor
}

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], lr, momentum float32) *SGD[B] {
	return &SGD[B]{
		params:   params,
		lr:       lr,
		momentum: momentum,
		velocity: make([]*tensor.RawTensor, len(params)),
	}
}

// Name returns "sgd".
func (s *SGD[B]) Name() string { return "sgd" }

// Step applies one update to every parameter with a gradient.
func (s *SGD[B]) Step() error {
	for i, p := range s.params {
		param, grad, err := gradData(p)
		if err != nil {
			return err
		}
		if grad == nil {
			continue
		}

		if s.momentum == 0 {
			for j := range param {
				param[j] -= s.lr * grad[j]
			}
			continue
		}

		if s.velocity[i] == nil {
			v, err := tensor.NewRaw(p.Raw().Shape(), tensor.Float32, p.Raw().Device())
			if err != nil {
				return errors.Wrap(err, "allocating velocity buffer")
			}
			s.velocity[i] = v
		}
		vel := s.velocity[i].AsFloat32()
		for j := range param {
			vel[j] = s.momentum*vel[j] + grad[j]
			param[j] -= s.lr * vel[j]
		}
	}
	return nil
}

// ZeroGrad detaches all gradients.
func (s *SGD[B]) ZeroGrad() { zeroGrads(s.params) }

// GetLR returns the current learning rate.
func (s *SGD[B]) GetLR() float32 { return s.lr }

// SetLR updates the learning rate.
func (s *SGD[B]) SetLR(lr float32) { s.lr = lr }

// StateDict returns the velocity buffers keyed "velocity.<index>". With
// zero momentum, or before the first Step, the dict is empty.
func (s *SGD[B]) StateDict() map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor)
	for i, v := range s.velocity {
		if v != nil {
			state["velocity."+strconv.Itoa(i)] = v
		}
	}
	return state
}

// LoadStateDict restores velocity buffers. An empty dict resets momentum.
func (s *SGD[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	if len(state) == 0 {
		for i := range s.velocity {
			s.velocity[i] = nil
		}
		return nil
	}
	for i, p := range s.params {
		v, err := loadBuffer(state, "velocity."+strconv.Itoa(i), p.Raw().Shape())
		if err != nil {
			return err
		}
		s.velocity[i] = v
	}
	return nil
}

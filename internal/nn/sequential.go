package nn

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/axon-ml/axon/internal/tensor"
)

// Sequential chains modules, feeding each module's output into the next.
// State-dict keys are prefixed with the module's position, so the second
// module's weight is "1.weight".
type Sequential[B tensor.Backend] struct {
	modules []Module[B]
}

// NewSequential creates a chain of the given modules.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{modules: modules}
}

// Modules returns the chained modules in order.
func (s *Sequential[B]) Modules() []Module[B] { return s.modules }

// Forward applies every module in order.
func (s *Sequential[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	out := x
	for _, m := range s.modules {
		out = m.Forward(out)
	}
	return out
}

// Parameters returns every submodule's parameters in chain order.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, m := range s.modules {
		params = append(params, m.Parameters()...)
	}
	return params
}

// StateDict returns every submodule's state with index-prefixed keys.
func (s *Sequential[B]) StateDict() map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor)
	for i, m := range s.modules {
		prefix := strconv.Itoa(i) + "."
		for key, t := range m.StateDict() {
			state[prefix+key] = t
		}
	}
	return state
}

// LoadStateDict splits the state dict by index prefix and delegates to each
// submodule. Keys that do not belong to any submodule are an error.
func (s *Sequential[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	claimed := 0
	for i, m := range s.modules {
		prefix := strconv.Itoa(i) + "."
		sub := make(map[string]*tensor.RawTensor)
		for key, t := range state {
			if strings.HasPrefix(key, prefix) {
				sub[strings.TrimPrefix(key, prefix)] = t
			}
		}
		claimed += len(sub)
		if err := m.LoadStateDict(sub); err != nil {
			return errors.Wrapf(err, "module %d", i)
		}
	}
	if claimed != len(state) {
		return errors.Errorf("sequential: %d keys in state dict do not match any module", len(state)-claimed)
	}
	return nil
}

// rejectKeys errors when a parameterless module receives state.
func rejectKeys(name string, state map[string]*tensor.RawTensor) error {
	for key := range state {
		return errors.Errorf("%s: unexpected key %q in state dict", name, key)
	}
	return nil
}

package nn

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/axon-ml/axon/internal/tensor"
)

// Activation names a hidden-layer activation function.
type Activation string

// Supported hidden-layer activations.
const (
	ActivationReLU    Activation = "relu"
	ActivationSigmoid Activation = "sigmoid"
	ActivationTanh    Activation = "tanh"
)

// MLPConfig describes a multilayer-perceptron classifier. The same config
// is stored in checkpoints so a saved model can be rebuilt without the code
// that created it.
type MLPConfig struct {
	// InputSize is the flattened input width, e.g. 784 for MNIST.
	InputSize int `json:"input_size"`

	// HiddenSizes lists the width of each hidden layer, in order. Empty
	// means logistic regression: a single linear layer.
	HiddenSizes []int `json:"hidden_sizes"`

	// OutputSize is the number of classes.
	OutputSize int `json:"output_size"`

	// Activation is applied after every hidden layer. The output layer
	// stays linear; losses expect raw logits.
	Activation Activation `json:"activation"`

	// Seed drives weight initialization. The same seed and config always
	// produce identical initial weights.
	Seed int64 `json:"seed"`
}

// Validate checks the config for structural errors.
func (c MLPConfig) Validate() error {
	if c.InputSize <= 0 {
		return errors.Errorf("mlp: input size must be positive, got %d", c.InputSize)
	}
	if c.OutputSize <= 0 {
		return errors.Errorf("mlp: output size must be positive, got %d", c.OutputSize)
	}
	for i, h := range c.HiddenSizes {
		if h <= 0 {
			return errors.Errorf("mlp: hidden layer %d size must be positive, got %d", i, h)
		}
	}
	switch c.Activation {
	case ActivationReLU, ActivationSigmoid, ActivationTanh:
	default:
		return errors.Errorf("mlp: unknown activation %q", c.Activation)
	}
	return nil
}

// layerSizes returns the full width sequence input -> hidden... -> output.
func (c MLPConfig) layerSizes() []int {
	sizes := make([]int, 0, len(c.HiddenSizes)+2)
	sizes = append(sizes, c.InputSize)
	sizes = append(sizes, c.HiddenSizes...)
	return append(sizes, c.OutputSize)
}

// MLP is a multilayer-perceptron classifier: alternating Linear and
// activation layers ending in a linear output that produces logits.
type MLP[B tensor.Backend] struct {
	config MLPConfig
	layers *Sequential[B]
}

// NewMLP builds an MLP from its config, initializing weights from the
// config's seed.
func NewMLP[B tensor.Backend](config MLPConfig, backend B) (*MLP[B], error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(config.Seed))

	sizes := config.layerSizes()
	var modules []Module[B]
	for i := 0; i < len(sizes)-1; i++ {
		modules = append(modules, NewLinear(sizes[i], sizes[i+1], rng, backend))
		if i < len(sizes)-2 {
			modules = append(modules, newActivation[B](config.Activation))
		}
	}

	return &MLP[B]{config: config, layers: NewSequential(modules...)}, nil
}

func newActivation[B tensor.Backend](a Activation) Module[B] {
	switch a {
	case ActivationReLU:
		return NewReLU[B]()
	case ActivationSigmoid:
		return NewSigmoid[B]()
	case ActivationTanh:
		return NewTanh[B]()
	default:
		panic("unreachable: config validated")
	}
}

// Config returns the architecture config the model was built from.
func (m *MLP[B]) Config() MLPConfig { return m.config }

// Forward maps a (batch, inputSize) tensor to (batch, outputSize) logits.
func (m *MLP[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return m.layers.Forward(x)
}

// Parameters returns all linear-layer parameters in network order.
func (m *MLP[B]) Parameters() []*Parameter[B] {
	return m.layers.Parameters()
}

// StateDict returns the parameters keyed "layers.<index>.<name>".
func (m *MLP[B]) StateDict() map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor)
	for key, t := range m.layers.StateDict() {
		state["layers."+key] = t
	}
	return state
}

// LoadStateDict loads parameters saved by StateDict. Shape or dtype
// mismatches fail hard; a checkpoint from a different architecture is
// never silently adapted.
func (m *MLP[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	sub := make(map[string]*tensor.RawTensor, len(state))
	for key, t := range state {
		if len(key) <= len("layers.") || key[:len("layers.")] != "layers." {
			return errors.Errorf("mlp: unexpected key %q in state dict", key)
		}
		sub[key[len("layers."):]] = t
	}
	return m.layers.LoadStateDict(sub)
}

package nn

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/axon-ml/axon/internal/serialization"
	"github.com/axon-ml/axon/internal/tensor"
)

// archTypeMLP tags MLP checkpoints in the file header.
const archTypeMLP = "mlp"

// optimizerKeyPrefix namespaces optimizer state in a checkpoint's tensor
// map, away from model parameters.
const optimizerKeyPrefix = "optimizer."

// SaveModel writes the model's architecture and parameters to an .axon
// file. The saved file is self-contained: LoadModel rebuilds the network
// from the stored config without access to the code that created it.
func SaveModel[B tensor.Backend](path string, model *MLP[B], opts serialization.SaveOptions) error {
	file := &serialization.File{
		Header: serialization.Header{
			Architecture: archFromConfig(model.Config()),
		},
		Tensors: model.StateDict(),
	}
	return serialization.Save(path, file, opts)
}

// LoadModel rebuilds an MLP from a checkpoint: the architecture comes from
// the header, the weights from the payloads. A checkpoint whose stored
// shapes do not match the rebuilt architecture is rejected outright.
func LoadModel[B tensor.Backend](path string, backend B) (*MLP[B], error) {
	file, err := serialization.Load(path, serialization.LoadOptions{})
	if err != nil {
		return nil, err
	}
	return modelFromFile(file, backend)
}

func modelFromFile[B tensor.Backend](file *serialization.File, backend B) (*MLP[B], error) {
	config, err := configFromArch(file.Header.Architecture)
	if err != nil {
		return nil, err
	}
	model, err := NewMLP(config, backend)
	if err != nil {
		return nil, errors.Wrap(err, "rebuilding model from checkpoint")
	}

	state := make(map[string]*tensor.RawTensor, len(file.Tensors))
	for key, t := range file.Tensors {
		if strings.HasPrefix(key, optimizerKeyPrefix) {
			continue
		}
		state[key] = t
	}
	if err := model.LoadStateDict(state); err != nil {
		return nil, errors.Wrap(err, "loading model parameters")
	}
	return model, nil
}

// Checkpoint bundles a model with optimizer state and training progress so
// an interrupted run can resume exactly where it stopped.
type Checkpoint[B tensor.Backend] struct {
	Model          *MLP[B]
	OptimizerName  string
	OptimizerState map[string]*tensor.RawTensor
	Epoch          int
	Step           int
	Loss           float64
}

// SaveCheckpoint writes a resumable training checkpoint.
func SaveCheckpoint[B tensor.Backend](path string, ckpt *Checkpoint[B], opts serialization.SaveOptions) error {
	tensors := ckpt.Model.StateDict()
	for key, t := range ckpt.OptimizerState {
		tensors[optimizerKeyPrefix+key] = t
	}

	file := &serialization.File{
		Header: serialization.Header{
			Architecture: archFromConfig(ckpt.Model.Config()),
			Training: &serialization.TrainingState{
				Optimizer: ckpt.OptimizerName,
				Epoch:     ckpt.Epoch,
				Step:      ckpt.Step,
				Loss:      ckpt.Loss,
			},
		},
		Tensors: tensors,
	}
	return serialization.Save(path, file, opts)
}

// LoadCheckpoint rebuilds a training checkpoint. The optimizer state is
// returned as raw tensors; the caller hands it to the matching optimizer's
// LoadStateDict.
func LoadCheckpoint[B tensor.Backend](path string, backend B) (*Checkpoint[B], error) {
	file, err := serialization.Load(path, serialization.LoadOptions{})
	if err != nil {
		return nil, err
	}
	if file.Header.Training == nil {
		return nil, errors.New("file is a bare model, not a training checkpoint")
	}

	model, err := modelFromFile(file, backend)
	if err != nil {
		return nil, err
	}

	optimState := make(map[string]*tensor.RawTensor)
	for key, t := range file.Tensors {
		if strings.HasPrefix(key, optimizerKeyPrefix) {
			optimState[strings.TrimPrefix(key, optimizerKeyPrefix)] = t
		}
	}

	training := file.Header.Training
	return &Checkpoint[B]{
		Model:          model,
		OptimizerName:  training.Optimizer,
		OptimizerState: optimState,
		Epoch:          training.Epoch,
		Step:           training.Step,
		Loss:           training.Loss,
	}, nil
}

func archFromConfig(c MLPConfig) *serialization.Architecture {
	return &serialization.Architecture{
		Type:        archTypeMLP,
		InputSize:   c.InputSize,
		HiddenSizes: append([]int(nil), c.HiddenSizes...),
		OutputSize:  c.OutputSize,
		Activation:  string(c.Activation),
		Seed:        c.Seed,
	}
}

func configFromArch(a *serialization.Architecture) (MLPConfig, error) {
	if a == nil {
		return MLPConfig{}, errors.New("checkpoint has no architecture metadata")
	}
	if a.Type != archTypeMLP {
		return MLPConfig{}, errors.Errorf("unsupported architecture type %q", a.Type)
	}
	config := MLPConfig{
		InputSize:   a.InputSize,
		HiddenSizes: append([]int(nil), a.HiddenSizes...),
		OutputSize:  a.OutputSize,
		Activation:  Activation(a.Activation),
		Seed:        a.Seed,
	}
	return config, config.Validate()
}

// Package train drives the forward/backward/step training loop over a
// classifier and a dataset, tracking per-epoch loss and accuracy and
// optionally writing resumable checkpoints.
package train

import (
	"context"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"

	"github.com/axon-ml/axon/internal/autodiff"
	"github.com/axon-ml/axon/internal/dataset/mnist"
	"github.com/axon-ml/axon/internal/nn"
	"github.com/axon-ml/axon/internal/optim"
	"github.com/axon-ml/axon/internal/serialization"
	"github.com/axon-ml/axon/internal/tensor"
)

// Config controls a training run.
type Config struct {
	// Epochs is the number of passes over the training set.
	Epochs int

	// BatchSize is the number of examples per step.
	BatchSize int

	// Shuffle re-orders the training set before every epoch, driven by
	// the ShuffleSeed so runs stay reproducible.
	Shuffle     bool
	ShuffleSeed int64

	// Progress shows a per-epoch progress bar.
	Progress bool

	// CheckpointPath, when set, receives a resumable checkpoint every
	// CheckpointEvery epochs (and after the final epoch).
	CheckpointPath  string
	CheckpointEvery int
}

// EpochStats is one row of the training history.
type EpochStats struct {
	Epoch        int
	TrainLoss    float64
	TestLoss     float64
	TestAccuracy float64
}

// Trainer runs gradient-descent training of an MLP over an autodiff-wrapped
// backend.
type Trainer[B tensor.Backend] struct {
	backend   *autodiff.Backend[B]
	model     *nn.MLP[*autodiff.Backend[B]]
	optimizer optim.Optimizer[*autodiff.Backend[B]]
	loss      *nn.CrossEntropyLoss[*autodiff.Backend[B]]
	config    Config
	epoch     int
	step      int
}

// New creates a trainer. The model must be built over the same
// autodiff-wrapped backend.
func New[B tensor.Backend](
	backend *autodiff.Backend[B],
	model *nn.MLP[*autodiff.Backend[B]],
	optimizer optim.Optimizer[*autodiff.Backend[B]],
	config Config,
) (*Trainer[B], error) {
	if config.Epochs <= 0 {
		return nil, errors.Errorf("epochs must be positive, got %d", config.Epochs)
	}
	if config.BatchSize <= 0 {
		return nil, errors.Errorf("batch size must be positive, got %d", config.BatchSize)
	}
	return &Trainer[B]{
		backend:   backend,
		model:     model,
		optimizer: optimizer,
		loss:      nn.NewCrossEntropyLoss[*autodiff.Backend[B]](),
		config:    config,
	}, nil
}

// Resume fast-forwards the trainer's epoch and step counters to those of a
// loaded checkpoint.
func (t *Trainer[B]) Resume(epoch, step int) {
	t.epoch = epoch
	t.step = step
}

// Run trains for the configured number of epochs. The test set may be nil,
// in which case test loss and accuracy stay zero in the history.
func (t *Trainer[B]) Run(ctx context.Context, trainSet, testSet *mnist.Dataset) ([]EpochStats, error) {
	var history []EpochStats
	shuffleRNG := newShuffleRNG(t.config.ShuffleSeed)

	for t.epoch < t.config.Epochs {
		if err := ctx.Err(); err != nil {
			return history, err
		}
		if t.config.Shuffle {
			trainSet.Shuffle(shuffleRNG)
		}

		trainLoss, err := t.runEpoch(ctx, trainSet)
		if err != nil {
			return history, err
		}
		t.epoch++

		stats := EpochStats{Epoch: t.epoch, TrainLoss: trainLoss}
		if testSet != nil {
			stats.TestLoss, stats.TestAccuracy, err = t.Evaluate(testSet)
			if err != nil {
				return history, err
			}
		}
		history = append(history, stats)

		if t.shouldCheckpoint() {
			if err := t.saveCheckpoint(trainLoss); err != nil {
				return history, err
			}
		}
	}
	return history, nil
}

// runEpoch performs one pass over the training set and returns the mean
// per-batch loss.
func (t *Trainer[B]) runEpoch(ctx context.Context, ds *mnist.Dataset) (float64, error) {
	var bar *progressbar.ProgressBar
	if t.config.Progress {
		bar = progressbar.Default(int64(ds.Count()), "training")
	}

	var total float64
	var batches int
	for start := 0; start < ds.Count(); start += t.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		images, labels, err := mnist.Batch(ds, start, t.config.BatchSize, t.backend)
		if err != nil {
			return 0, err
		}

		loss, err := t.Step(images, labels)
		if err != nil {
			return 0, err
		}
		total += loss
		batches++
		if bar != nil {
			bar.Add(images.Shape()[0])
		}
	}
	if batches == 0 {
		return 0, errors.New("empty training set")
	}
	return total / float64(batches), nil
}

// Step runs one forward/backward/update cycle on a single batch and
// returns its loss.
func (t *Trainer[B]) Step(images *tensor.Tensor[float32, *autodiff.Backend[B]], labels *tensor.Tensor[int32, *autodiff.Backend[B]]) (float64, error) {
	tape := t.backend.Tape()
	tape.StartRecording()
	defer func() {
		tape.StopRecording()
		tape.Clear()
	}()

	logits := t.model.Forward(images)
	loss := t.loss.Forward(logits, labels)

	// Backpropagate through the inner backend so gradient arithmetic is
	// not itself recorded.
	grads := tape.Backward(loss.Raw(), t.backend.Inner())
	for _, p := range t.model.Parameters() {
		if g := grads.For(p.Raw()); g != nil {
			p.SetGrad(g.Clone())
		}
	}
	grads.Release()

	if err := t.optimizer.Step(); err != nil {
		return 0, err
	}
	t.optimizer.ZeroGrad()
	t.step++

	return float64(loss.Item()), nil
}

// Evaluate computes mean loss and accuracy over a dataset without touching
// the tape or the weights.
func (t *Trainer[B]) Evaluate(ds *mnist.Dataset) (loss, accuracy float64, err error) {
	var total float64
	var batches, correct int

	for start := 0; start < ds.Count(); start += t.config.BatchSize {
		images, labels, err := mnist.Batch(ds, start, t.config.BatchSize, t.backend)
		if err != nil {
			return 0, 0, err
		}

		logits := t.model.Forward(images)
		batchLoss := t.loss.Forward(logits, labels)
		total += float64(batchLoss.Item())
		batches++

		predicted := logits.Argmax(1).Data()
		want := labels.Data()
		for i := range predicted {
			if predicted[i] == want[i] {
				correct++
			}
		}
	}
	if batches == 0 {
		return 0, 0, errors.New("empty dataset")
	}
	return total / float64(batches), float64(correct) / float64(ds.Count()), nil
}

func (t *Trainer[B]) shouldCheckpoint() bool {
	if t.config.CheckpointPath == "" {
		return false
	}
	if t.epoch == t.config.Epochs {
		return true
	}
	return t.config.CheckpointEvery > 0 && t.epoch%t.config.CheckpointEvery == 0
}

func (t *Trainer[B]) saveCheckpoint(loss float64) error {
	ckpt := &nn.Checkpoint[*autodiff.Backend[B]]{
		Model:          t.model,
		OptimizerName:  t.optimizer.Name(),
		OptimizerState: t.optimizer.StateDict(),
		Epoch:          t.epoch,
		Step:           t.step,
		Loss:           loss,
	}
	return nn.SaveCheckpoint(t.config.CheckpointPath, ckpt, serialization.SaveOptions{})
}

func newShuffleRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = 1
	}
	return rand.New(rand.NewSource(seed))
}

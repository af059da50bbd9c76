package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/axon-ml/axon/autodiff"
	"github.com/axon-ml/axon/backend/cpu"
	"github.com/axon-ml/axon/internal/dataset/mnist"
	"github.com/axon-ml/axon/internal/train"
	"github.com/axon-ml/axon/nn"
	"github.com/axon-ml/axon/optim"
)

func runTrain(args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	dataDir := fs.String("data", "data/mnist", "directory holding the MNIST archives")
	download := fs.Bool("download", false, "download the archives if missing")
	epochs := fs.Int("epochs", 5, "number of training epochs")
	batchSize := fs.Int("batch", 64, "batch size")
	lr := fs.Float64("lr", 0.01, "learning rate")
	momentum := fs.Float64("momentum", 0.9, "SGD momentum (ignored by adam)")
	optimizerName := fs.String("optimizer", "sgd", "optimizer: sgd or adam")
	hidden := fs.String("hidden", "128", "comma-separated hidden layer sizes")
	activation := fs.String("activation", "relu", "hidden activation: relu, sigmoid, or tanh")
	seed := fs.Int64("seed", 42, "weight initialization seed")
	out := fs.String("out", "model.axon", "output model path")
	ckptPath := fs.String("checkpoint", "", "resumable checkpoint path (empty disables)")
	ckptEvery := fs.Int("checkpoint-every", 1, "epochs between checkpoints")
	resume := fs.String("resume", "", "resume from a training checkpoint")
	half := fs.Bool("half", false, "store float16 payloads in the output model")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	if *download {
		if err := mnist.Download(ctx, *dataDir); err != nil {
			return err
		}
	}
	trainSet, testSet, err := mnist.LoadDir(*dataDir)
	if err != nil {
		return err
	}

	backend := autodiff.New(cpu.New())
	type AB = *autodiff.Backend[*cpu.Backend]

	var model *nn.MLP[AB]
	var optimizer optim.Optimizer[AB]
	var resumeEpoch, resumeStep int

	if *resume != "" {
		ckpt, err := nn.LoadCheckpoint(*resume, backend)
		if err != nil {
			return errors.Wrap(err, "resuming")
		}
		model = ckpt.Model
		optimizer, err = newOptimizer(ckpt.OptimizerName, model, *lr, *momentum)
		if err != nil {
			return err
		}
		if err := optimizer.LoadStateDict(ckpt.OptimizerState); err != nil {
			return errors.Wrap(err, "restoring optimizer state")
		}
		resumeEpoch, resumeStep = ckpt.Epoch, ckpt.Step
		fmt.Printf("resumed from %s at epoch %d (loss %.4f)\n", *resume, ckpt.Epoch, ckpt.Loss)
	} else {
		hiddenSizes, err := parseSizes(*hidden)
		if err != nil {
			return err
		}
		model, err = nn.NewMLP(nn.MLPConfig{
			InputSize:   mnist.ImageSize,
			HiddenSizes: hiddenSizes,
			OutputSize:  mnist.NumClasses,
			Activation:  nn.Activation(*activation),
			Seed:        *seed,
		}, backend)
		if err != nil {
			return err
		}
		optimizer, err = newOptimizer(*optimizerName, model, *lr, *momentum)
		if err != nil {
			return err
		}
	}

	trainer, err := train.New(backend, model, optimizer, train.Config{
		Epochs:          *epochs,
		BatchSize:       *batchSize,
		Shuffle:         true,
		ShuffleSeed:     *seed,
		Progress:        true,
		CheckpointPath:  *ckptPath,
		CheckpointEvery: *ckptEvery,
	})
	if err != nil {
		return err
	}
	trainer.Resume(resumeEpoch, resumeStep)

	history, err := trainer.Run(ctx, trainSet, testSet)
	if err != nil {
		return err
	}
	for _, stats := range history {
		fmt.Printf("epoch %d: train loss %.4f, test loss %.4f, test accuracy %.2f%%\n",
			stats.Epoch, stats.TrainLoss, stats.TestLoss, stats.TestAccuracy*100)
	}

	if err := nn.SaveModel(*out, model, nn.SaveOptions{HalfPrecision: *half}); err != nil {
		return err
	}
	fmt.Printf("model saved to %s\n", *out)
	return nil
}

func newOptimizer(name string, model *nn.MLP[*autodiff.Backend[*cpu.Backend]], lr, momentum float64) (optim.Optimizer[*autodiff.Backend[*cpu.Backend]], error) {
	switch name {
	case "sgd":
		return optim.NewSGD(model.Parameters(), float32(lr), float32(momentum)), nil
	case "adam":
		return optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: float32(lr)}), nil
	default:
		return nil, errors.Errorf("unknown optimizer %q", name)
	}
}

func parseSizes(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	sizes := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.Errorf("invalid hidden size %q", p)
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}

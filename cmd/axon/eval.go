package main

import (
	"flag"
	"fmt"

	"github.com/axon-ml/axon/autodiff"
	"github.com/axon-ml/axon/backend/cpu"
	"github.com/axon-ml/axon/internal/dataset/mnist"
	"github.com/axon-ml/axon/internal/train"
	"github.com/axon-ml/axon/nn"
	"github.com/axon-ml/axon/optim"
)

func runEval(args []string) error {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	modelPath := fs.String("model", "model.axon", "path to a saved model")
	dataDir := fs.String("data", "data/mnist", "directory holding the MNIST archives")
	batchSize := fs.Int("batch", 256, "evaluation batch size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	backend := autodiff.New(cpu.New())
	model, err := nn.LoadModel(*modelPath, backend)
	if err != nil {
		return err
	}

	_, testSet, err := mnist.LoadDir(*dataDir)
	if err != nil {
		return err
	}

	// The trainer is only used as an evaluation harness here; the
	// optimizer never steps.
	trainer, err := train.New(backend, model, optim.NewSGD(model.Parameters(), 0, 0), train.Config{
		Epochs:    1,
		BatchSize: *batchSize,
	})
	if err != nil {
		return err
	}

	loss, accuracy, err := trainer.Evaluate(testSet)
	if err != nil {
		return err
	}
	fmt.Printf("test loss %.4f, test accuracy %.2f%% (%d examples)\n",
		loss, accuracy*100, testSet.Count())
	return nil
}

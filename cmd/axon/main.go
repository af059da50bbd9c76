// Package main provides the Axon ML Framework CLI: training, evaluation,
// and checkpoint inspection for MLP classifiers.
package main

import (
	"fmt"
	"os"
)

const version = "v0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "train":
		err = runTrain(os.Args[2:])
	case "eval":
		err = runEval(os.Args[2:])
	case "inspect":
		err = runInspect(os.Args[2:])
	case "version":
		fmt.Printf("Axon ML Framework %s\n", version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "axon %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Axon ML Framework - neural-network training in pure Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Usage: axon <command> [flags]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  train      Train an MLP classifier on MNIST")
	fmt.Println("  eval       Evaluate a saved model on the MNIST test set")
	fmt.Println("  inspect    Show the contents of an .axon checkpoint")
	fmt.Println("  version    Show version")
	fmt.Println("")
	fmt.Println("Run 'axon <command> -h' for command flags.")
}

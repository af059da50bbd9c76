package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/axon-ml/axon/internal/serialization"
)

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	skipChecksum := fs.Bool("skip-checksum", false, "inspect even if the integrity check fails")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: axon inspect [flags] <file.axon>")
		os.Exit(2)
	}
	path := fs.Arg(0)

	file, err := serialization.Load(path, serialization.LoadOptions{SkipChecksum: *skipChecksum})
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	header := file.Header
	fmt.Printf("file:      %s (%s)\n", path, humanize.Bytes(uint64(info.Size())))
	fmt.Printf("id:        %s\n", header.FileID)
	fmt.Printf("created:   %s\n", header.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("producer:  %s\n", header.Producer)

	if arch := header.Architecture; arch != nil {
		fmt.Printf("model:     %s %d -> %v -> %d (%s, seed %d)\n",
			arch.Type, arch.InputSize, arch.HiddenSizes, arch.OutputSize, arch.Activation, arch.Seed)
	}
	if t := header.Training; t != nil {
		fmt.Printf("training:  %s, epoch %d, step %d, loss %.4f\n",
			t.Optimizer, t.Epoch, t.Step, t.Loss)
	}

	keys := make([]string, 0, len(header.Tensors))
	for key := range header.Tensors {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var total uint64
	fmt.Printf("tensors:   %d\n", len(keys))
	for _, key := range keys {
		meta := header.Tensors[key]
		fmt.Printf("  %-32s %-8s %-14v %s\n", key, meta.DType,
			fmt.Sprintf("%v", meta.Shape), humanize.Bytes(meta.Size))
		total += meta.Size
	}
	fmt.Printf("payload:   %s\n", humanize.Bytes(total))
	return nil
}

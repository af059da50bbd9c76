// Package serialization reads and writes the .axon checkpoint container.
//
// An .axon file is a binary preamble followed by a JSON header and a data
// region of 64-byte-aligned tensor payloads:
//
//	v1: magic | version | headerSize | JSON header | padding | data
//	v2: fixed 64-byte preamble with a SHA-256 checksum | JSON header | padding | data
//
// The JSON header carries file identity, the model architecture, optional
// training state, and per-tensor metadata (dtype, shape, offset into the
// data region). Offsets are relative to the start of the data region, so
// readers can validate them without trusting absolute file positions.
package serialization

import (
	"time"

	"github.com/axon-ml/axon/internal/tensor"
)

const (
	// Magic identifies an .axon file.
	Magic = "AXON"

	// Version1 is the original layout: a 16-byte preamble with no
	// integrity check.
	Version1 uint32 = 1

	// Version2 adds a fixed 64-byte preamble carrying a SHA-256 checksum
	// of the header and data regions.
	Version2 uint32 = 2

	// CurrentVersion is what Save produces by default.
	CurrentVersion = Version2

	// dataAlignment is the byte alignment of every tensor payload.
	dataAlignment = 64

	// preambleSizeV1 is magic(4) + version(4) + headerSize(8).
	preambleSizeV1 = 16

	// preambleSizeV2 is the fixed v2 preamble: magic(4) + version(4) +
	// flags(4) + reserved(4) + headerSize(8) + dataSize(8) + checksum(32).
	preambleSizeV2 = 64

	// checksumOffset locates the SHA-256 digest inside the v2 preamble.
	checksumOffset = 0x20
)

// Flags stored in the v2 preamble.
const (
	// FlagHalfPrecision marks files whose float tensors were narrowed to
	// float16 on disk.
	FlagHalfPrecision uint32 = 1 << 0
)

// Header is the JSON header of an .axon file.
type Header struct {
	// FileID is a UUID assigned at save time, identifying this exact
	// file across copies and renames.
	FileID string `json:"file_id"`

	// CreatedAt is the save timestamp in UTC.
	CreatedAt time.Time `json:"created_at"`

	// Producer names the library version that wrote the file.
	Producer string `json:"producer"`

	// Architecture describes the model so it can be rebuilt from the
	// file alone. Nil for bare state-dict files.
	Architecture *Architecture `json:"architecture,omitempty"`

	// Training carries optimizer and progress state for resumable
	// checkpoints. Nil for inference-only files.
	Training *TrainingState `json:"training,omitempty"`

	// Tensors maps state-dict keys to payload metadata.
	Tensors map[string]TensorMeta `json:"tensors"`
}

// Architecture is the stored model configuration.
type Architecture struct {
	Type        string `json:"type"`
	InputSize   int    `json:"input_size"`
	HiddenSizes []int  `json:"hidden_sizes"`
	OutputSize  int    `json:"output_size"`
	Activation  string `json:"activation"`
	Seed        int64  `json:"seed"`
}

// TrainingState is the stored training progress.
type TrainingState struct {
	Optimizer string  `json:"optimizer"`
	Epoch     int     `json:"epoch"`
	Step      int     `json:"step"`
	Loss      float64 `json:"loss"`
}

// TensorMeta describes one tensor payload in the data region.
type TensorMeta struct {
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Offset uint64 `json:"offset"`
	Size   uint64 `json:"size"`
}

// File is the in-memory form of an .axon file. Tensors are keyed the same
// way as Header.Tensors.
type File struct {
	Header  Header
	Tensors map[string]*tensor.RawTensor
}

// alignUp rounds n up to the next multiple of dataAlignment.
func alignUp(n uint64) uint64 {
	return (n + dataAlignment - 1) &^ uint64(dataAlignment-1)
}

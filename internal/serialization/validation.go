package serialization

import (
	"fmt"
	"sort"
)

// ValidationLevel selects how thoroughly a loaded header is checked
// against the data region before tensors are materialized.
type ValidationLevel int

const (
	// ValidationStrict checks every tensor's bounds, alignment, and size,
	// and rejects overlapping payloads. The default.
	ValidationStrict ValidationLevel = iota

	// ValidationBasic checks bounds and sizes but allows overlap.
	ValidationBasic

	// ValidationNone trusts the header completely.
	ValidationNone
)

// Limits guarding against pathological headers.
const (
	maxTensorCount    = 65536
	maxTensorRank     = 8
	maxKeyLength      = 1024
	maxTensorElements = uint64(1) << 40
)

// validateHeader checks that every tensor metadata entry describes a
// payload that actually fits in the data region.
func validateHeader(h *Header, dataLen uint64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}
	if len(h.Tensors) > maxTensorCount {
		return &ValidationError{Reason: fmt.Sprintf("%d tensors exceeds limit of %d", len(h.Tensors), maxTensorCount)}
	}

	type span struct {
		key        string
		start, end uint64
	}
	spans := make([]span, 0, len(h.Tensors))

	for key, meta := range h.Tensors {
		if len(key) > maxKeyLength {
			return &ValidationError{Tensor: key[:32] + "...", Reason: "key too long"}
		}
		if len(meta.Shape) > maxTensorRank {
			return &ValidationError{Tensor: key, Reason: fmt.Sprintf("rank %d exceeds limit of %d", len(meta.Shape), maxTensorRank)}
		}

		elemSize, err := dtypeSize(meta.DType)
		if err != nil {
			return &ValidationError{Tensor: key, Reason: err.Error()}
		}

		elements := uint64(1)
		for _, dim := range meta.Shape {
			if dim <= 0 {
				return &ValidationError{Tensor: key, Reason: fmt.Sprintf("non-positive dimension %d", dim)}
			}
			// Guard the product against uint64 wraparound.
			if uint64(dim) > maxTensorElements/elements {
				return &ValidationError{Tensor: key, Reason: fmt.Sprintf("element count of shape %v exceeds limit of %d", meta.Shape, maxTensorElements)}
			}
			elements *= uint64(dim)
		}
		if want := elements * uint64(elemSize); meta.Size != want {
			return &ValidationError{Tensor: key, Reason: fmt.Sprintf("size %d does not match shape %v of %s (%d bytes)", meta.Size, meta.Shape, meta.DType, want)}
		}

		if meta.Offset%dataAlignment != 0 {
			return &ValidationError{Tensor: key, Reason: fmt.Sprintf("offset %d not %d-byte aligned", meta.Offset, dataAlignment)}
		}
		// Checked as two comparisons so a huge offset cannot wrap the sum
		// back into range.
		if meta.Offset > dataLen || meta.Size > dataLen-meta.Offset {
			return &ValidationError{Tensor: key, Reason: fmt.Sprintf("payload at offset %d of %d bytes extends past data region of %d bytes", meta.Offset, meta.Size, dataLen)}
		}

		spans = append(spans, span{key: key, start: meta.Offset, end: meta.Offset + meta.Size})
	}

	if level == ValidationStrict {
		sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
		for i := 1; i < len(spans); i++ {
			if spans[i].start < spans[i-1].end {
				return &ValidationError{Tensor: spans[i].key, Reason: fmt.Sprintf("payload overlaps tensor %q", spans[i-1].key)}
			}
		}
	}
	return nil
}

package serialization

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/axon-ml/axon/internal/tensor"
)

// LoadOptions controls how strictly a file is checked on load.
type LoadOptions struct {
	// Validation selects the structural checks applied to the header.
	// Zero value is ValidationStrict.
	Validation ValidationLevel

	// SkipChecksum disables the v2 integrity check. Only useful for
	// inspecting known-corrupt files.
	SkipChecksum bool
}

// Load reads an .axon file from path, verifying its integrity and layout
// before materializing any tensor.
func Load(path string, opts LoadOptions) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading checkpoint file")
	}
	return decode(raw, opts)
}

func decode(raw []byte, opts LoadOptions) (*File, error) {
	if len(raw) < preambleSizeV1 || string(raw[:4]) != Magic {
		return nil, ErrBadMagic
	}
	version := binary.LittleEndian.Uint32(raw[4:])

	var headerJSON, data []byte
	switch version {
	case Version1:
		headerSize := binary.LittleEndian.Uint64(raw[8:])
		headerEnd := uint64(preambleSizeV1) + headerSize
		if headerEnd > uint64(len(raw)) {
			return nil, &ValidationError{Reason: "header extends past end of file"}
		}
		headerJSON = raw[preambleSizeV1:headerEnd]
		data = raw[min(alignUp(headerEnd), uint64(len(raw))):]
	case Version2:
		if len(raw) < preambleSizeV2 {
			return nil, &ValidationError{Reason: "file shorter than v2 preamble"}
		}
		headerSize := binary.LittleEndian.Uint64(raw[16:])
		dataSize := binary.LittleEndian.Uint64(raw[24:])

		headerEnd := uint64(preambleSizeV2) + headerSize
		if headerEnd > uint64(len(raw)) {
			return nil, &ValidationError{Reason: "header extends past end of file"}
		}
		headerJSON = raw[preambleSizeV2:headerEnd]
		dataStart := alignUp(headerEnd)
		if dataStart+dataSize > uint64(len(raw)) {
			return nil, &ValidationError{Reason: "data region extends past end of file"}
		}
		data = raw[dataStart : dataStart+dataSize]

		if !opts.SkipChecksum {
			var stored [sha256.Size]byte
			copy(stored[:], raw[checksumOffset:checksumOffset+sha256.Size])
			if sum := computeChecksum(headerJSON, data); !bytes.Equal(sum[:], stored[:]) {
				return nil, ErrChecksumMismatch
			}
		}
	default:
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", version)
	}

	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, errors.Wrap(err, "decoding header")
	}

	if err := validateHeader(&header, uint64(len(data)), opts.Validation); err != nil {
		return nil, err
	}

	tensors := make(map[string]*tensor.RawTensor, len(header.Tensors))
	for key, meta := range header.Tensors {
		t, err := decodeTensor(meta, data)
		if err != nil {
			return nil, errors.Wrapf(err, "tensor %q", key)
		}
		tensors[key] = t
	}

	return &File{Header: header, Tensors: tensors}, nil
}

// decodeTensor materializes one payload. Float16 payloads are widened to
// float32; every other dtype is copied as-is.
func decodeTensor(meta TensorMeta, data []byte) (*tensor.RawTensor, error) {
	payload := data[meta.Offset : meta.Offset+meta.Size]

	if meta.DType == dtypeFloat16 {
		out, err := tensor.NewRaw(tensor.Shape(meta.Shape), tensor.Float32, tensor.CPU)
		if err != nil {
			return nil, err
		}
		dst := out.AsFloat32()
		for i := range dst {
			bits := binary.LittleEndian.Uint16(payload[2*i:])
			dst[i] = float16.Frombits(bits).Float32()
		}
		return out, nil
	}

	dt, err := parseDType(meta.DType)
	if err != nil {
		return nil, err
	}
	out, err := tensor.NewRaw(tensor.Shape(meta.Shape), dt, tensor.CPU)
	if err != nil {
		return nil, err
	}
	copy(out.Data(), payload)
	return out, nil
}

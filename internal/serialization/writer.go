package serialization

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/axon-ml/axon/internal/tensor"
)

// SaveOptions controls the on-disk layout.
type SaveOptions struct {
	// Version selects the container layout; zero means CurrentVersion.
	Version uint32

	// HalfPrecision narrows float32 payloads to float16 on disk, halving
	// checkpoint size. Loaded tensors are widened back to float32.
	HalfPrecision bool
}

// Save writes f to path. The header's FileID, CreatedAt, Producer, and
// Tensors fields are filled in; callers only provide Architecture,
// Training, and the tensor map.
func Save(path string, f *File, opts SaveOptions) error {
	version := opts.Version
	if version == 0 {
		version = CurrentVersion
	}
	if version != Version1 && version != Version2 {
		return errors.Wrapf(ErrUnsupportedVersion, "version %d", version)
	}

	if f.Header.FileID == "" {
		f.Header.FileID = uuid.NewString()
	}
	f.Header.CreatedAt = time.Now().UTC()
	if f.Header.Producer == "" {
		f.Header.Producer = "axon"
	}

	data, metas := buildDataRegion(f.Tensors, opts.HalfPrecision)
	f.Header.Tensors = metas

	headerJSON, err := json.Marshal(&f.Header)
	if err != nil {
		return errors.Wrap(err, "encoding header")
	}

	var preamble []byte
	switch version {
	case Version1:
		preamble = make([]byte, preambleSizeV1)
		copy(preamble, Magic)
		binary.LittleEndian.PutUint32(preamble[4:], version)
		binary.LittleEndian.PutUint64(preamble[8:], uint64(len(headerJSON)))
	case Version2:
		var flags uint32
		if opts.HalfPrecision {
			flags |= FlagHalfPrecision
		}
		preamble = make([]byte, preambleSizeV2)
		copy(preamble, Magic)
		binary.LittleEndian.PutUint32(preamble[4:], version)
		binary.LittleEndian.PutUint32(preamble[8:], flags)
		binary.LittleEndian.PutUint64(preamble[16:], uint64(len(headerJSON)))
		binary.LittleEndian.PutUint64(preamble[24:], uint64(len(data)))
		sum := computeChecksum(headerJSON, data)
		copy(preamble[checksumOffset:], sum[:])
	}

	// Pad so the data region starts on an alignment boundary.
	dataStart := alignUp(uint64(len(preamble)) + uint64(len(headerJSON)))
	padding := make([]byte, dataStart-uint64(len(preamble))-uint64(len(headerJSON)))

	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "creating checkpoint file")
	}
	for _, chunk := range [][]byte{preamble, headerJSON, padding, data} {
		if _, err := out.Write(chunk); err != nil {
			out.Close()
			os.Remove(tmp)
			return errors.Wrap(err, "writing checkpoint")
		}
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "closing checkpoint")
	}
	// Rename last so a crash mid-write never leaves a truncated file at
	// the final path.
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "renaming checkpoint")
	}
	return nil
}

// buildDataRegion lays the tensors out in sorted-key order with aligned
// offsets and returns the region plus per-tensor metadata.
func buildDataRegion(tensors map[string]*tensor.RawTensor, half bool) ([]byte, map[string]TensorMeta) {
	keys := make([]string, 0, len(tensors))
	for key := range tensors {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	metas := make(map[string]TensorMeta, len(tensors))
	var data []byte
	for _, key := range keys {
		t := tensors[key]
		payload, dtype := encodePayload(t, half)

		offset := alignUp(uint64(len(data)))
		data = append(data, make([]byte, offset-uint64(len(data)))...)
		data = append(data, payload...)

		metas[key] = TensorMeta{
			DType:  dtype,
			Shape:  append([]int(nil), t.Shape()...),
			Offset: offset,
			Size:   uint64(len(payload)),
		}
	}
	return data, metas
}

// encodePayload returns the on-disk bytes and dtype string for one tensor.
func encodePayload(t *tensor.RawTensor, half bool) ([]byte, string) {
	if half && t.DType() == tensor.Float32 {
		src := t.AsFloat32()
		payload := make([]byte, 2*len(src))
		for i, v := range src {
			binary.LittleEndian.PutUint16(payload[2*i:], float16.Fromfloat32(v).Bits())
		}
		return payload, dtypeFloat16
	}
	payload := make([]byte, t.ByteSize())
	copy(payload, t.Data())
	return payload, dtypeString(t.DType())
}

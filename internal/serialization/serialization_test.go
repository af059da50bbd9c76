package serialization_test

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/axon-ml/axon/internal/serialization"
	"github.com/axon-ml/axon/internal/tensor"
)

func rawFrom(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	copy(raw.AsFloat32(), data)
	return raw
}

func testFile(t *testing.T) *serialization.File {
	t.Helper()
	return &serialization.File{
		Header: serialization.Header{
			Architecture: &serialization.Architecture{
				Type:        "mlp",
				InputSize:   4,
				HiddenSizes: []int{3},
				OutputSize:  2,
				Activation:  "relu",
				Seed:        7,
			},
			Training: &serialization.TrainingState{
				Optimizer: "sgd",
				Epoch:     2,
				Step:      100,
				Loss:      0.5,
			},
		},
		Tensors: map[string]*tensor.RawTensor{
			"layers.0.weight": rawFrom(t, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, tensor.Shape{3, 4}),
			"layers.0.bias":   rawFrom(t, []float32{-1, 0, 1}, tensor.Shape{3}),
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, version := range []uint32{serialization.Version1, serialization.Version2} {
		path := filepath.Join(t.TempDir(), "ckpt.axon")
		src := testFile(t)
		if err := serialization.Save(path, src, serialization.SaveOptions{Version: version}); err != nil {
			t.Fatalf("v%d Save: %v", version, err)
		}

		loaded, err := serialization.Load(path, serialization.LoadOptions{})
		if err != nil {
			t.Fatalf("v%d Load: %v", version, err)
		}

		if loaded.Header.FileID == "" {
			t.Errorf("v%d: FileID not assigned", version)
		}
		arch := loaded.Header.Architecture
		if arch == nil || arch.InputSize != 4 || arch.Activation != "relu" {
			t.Errorf("v%d: architecture not preserved: %+v", version, arch)
		}
		training := loaded.Header.Training
		if training == nil || training.Epoch != 2 || training.Step != 100 {
			t.Errorf("v%d: training state not preserved: %+v", version, training)
		}

		for key, want := range src.Tensors {
			got, ok := loaded.Tensors[key]
			if !ok {
				t.Fatalf("v%d: missing tensor %q", version, key)
			}
			if !got.Shape().Equal(want.Shape()) {
				t.Errorf("v%d: %q shape = %v, want %v", version, key, got.Shape(), want.Shape())
			}
			a, b := got.AsFloat32(), want.AsFloat32()
			for i := range a {
				if a[i] != b[i] {
					t.Errorf("v%d: %q[%d] = %v, want %v", version, key, i, a[i], b[i])
				}
			}
		}
	}
}

func TestHalfPrecisionRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt.axon")
	src := testFile(t)
	if err := serialization.Save(path, src, serialization.SaveOptions{HalfPrecision: true}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := serialization.Load(path, serialization.LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := src.Tensors["layers.0.weight"].AsFloat32()
	got := loaded.Tensors["layers.0.weight"].AsFloat32()
	if loaded.Tensors["layers.0.weight"].DType() != tensor.Float32 {
		t.Errorf("loaded dtype = %s, want float32", loaded.Tensors["layers.0.weight"].DType())
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-2 {
			t.Errorf("weight[%d] = %v, want ~%v", i, got[i], want[i])
		}
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.axon")
	if err := os.WriteFile(path, []byte("BORKBORKBORKBORKBORK"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := serialization.Load(path, serialization.LoadOptions{})
	if !errors.Is(err, serialization.ErrBadMagic) {
		t.Errorf("err = %v, want ErrBadMagic", err)
	}
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.axon")
	buf := make([]byte, 16)
	copy(buf, serialization.Magic)
	binary.LittleEndian.PutUint32(buf[4:], 99)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := serialization.Load(path, serialization.LoadOptions{})
	if !errors.Is(err, serialization.ErrUnsupportedVersion) {
		t.Errorf("err = %v, want ErrUnsupportedVersion", err)
	}
}

func TestChecksumDetectsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt.axon")
	if err := serialization.Save(path, testFile(t), serialization.SaveOptions{}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Flip a bit in the last data byte.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	raw[len(raw)-1] ^= 0x01
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := serialization.Load(path, serialization.LoadOptions{}); !errors.Is(err, serialization.ErrChecksumMismatch) {
		t.Errorf("err = %v, want ErrChecksumMismatch", err)
	}

	// SkipChecksum lets the corrupt file through.
	if _, err := serialization.Load(path, serialization.LoadOptions{SkipChecksum: true}); err != nil {
		t.Errorf("Load with SkipChecksum: %v", err)
	}
}

func TestLoadRejectsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt.axon")
	if err := serialization.Save(path, testFile(t), serialization.SaveOptions{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if err := os.WriteFile(path, raw[:len(raw)/2], 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := serialization.Load(path, serialization.LoadOptions{}); err == nil {
		t.Error("expected error for truncated file, got nil")
	}
}

// writeV1 hand-crafts a v1 file so tests can exercise validation against
// headers the writer would never produce.
func writeV1(t *testing.T, path string, header serialization.Header, data []byte) {
	t.Helper()
	headerJSON, err := json.Marshal(&header)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	preamble := make([]byte, 16)
	copy(preamble, serialization.Magic)
	binary.LittleEndian.PutUint32(preamble[4:], serialization.Version1)
	binary.LittleEndian.PutUint64(preamble[8:], uint64(len(headerJSON)))

	headerEnd := len(preamble) + len(headerJSON)
	dataStart := (headerEnd + 63) &^ 63
	buf := append(preamble, headerJSON...)
	buf = append(buf, make([]byte, dataStart-headerEnd)...)
	buf = append(buf, data...)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestValidationRejectsMalformedHeaders(t *testing.T) {
	meta := func(dtype string, shape []int, offset, size uint64) map[string]serialization.TensorMeta {
		return map[string]serialization.TensorMeta{
			"w": {DType: dtype, Shape: shape, Offset: offset, Size: size},
		}
	}

	tests := []struct {
		name    string
		tensors map[string]serialization.TensorMeta
		dataLen int
	}{
		{"out of bounds", meta("float32", []int{4}, 0, 16), 8},
		// Offset chosen so offset+size wraps uint64 back into range; the
		// bound check must reject it rather than let slicing panic.
		{"wrapped offset", meta("float32", []int{32}, ^uint64(0) - 63, 128), 256},
		{"element count overflow", meta("float32", []int{1 << 32, 1 << 32, 1 << 32}, 0, 64), 256},
		{"misaligned offset", meta("float32", []int{2}, 8, 8), 128},
		{"size shape mismatch", meta("float32", []int{4}, 0, 8), 64},
		{"unknown dtype", meta("complex128", []int{2}, 0, 32), 64},
		{"non-positive dimension", meta("float32", []int{0}, 0, 0), 64},
		{
			"overlapping payloads",
			map[string]serialization.TensorMeta{
				"a": {DType: "float32", Shape: []int{32}, Offset: 0, Size: 128},
				"b": {DType: "float32", Shape: []int{16}, Offset: 64, Size: 64},
			},
			128,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.axon")
			writeV1(t, path, serialization.Header{Tensors: tt.tensors}, make([]byte, tt.dataLen))

			_, err := serialization.Load(path, serialization.LoadOptions{})
			var verr *serialization.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestValidationBasicAllowsOverlap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlap.axon")
	header := serialization.Header{
		Tensors: map[string]serialization.TensorMeta{
			"a": {DType: "float32", Shape: []int{32}, Offset: 0, Size: 128},
			"b": {DType: "float32", Shape: []int{16}, Offset: 64, Size: 64},
		},
	}
	writeV1(t, path, header, make([]byte, 128))

	if _, err := serialization.Load(path, serialization.LoadOptions{Validation: serialization.ValidationBasic}); err != nil {
		t.Errorf("ValidationBasic rejected overlapping payloads: %v", err)
	}
}

func TestSaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ckpt.axon")
	if err := serialization.Save(path, testFile(t), serialization.SaveOptions{}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "ckpt.axon" {
		t.Errorf("directory holds %v, want only ckpt.axon", entries)
	}
}

package serialization

import (
	"github.com/pkg/errors"

	"github.com/axon-ml/axon/internal/tensor"
)

// dtypeFloat16 is a storage-only dtype: float32 tensors narrowed on disk
// and widened back on load. It never appears in an in-memory RawTensor.
const dtypeFloat16 = "float16"

func dtypeString(dt tensor.DataType) string {
	switch dt {
	case tensor.Float32:
		return "float32"
	case tensor.Float64:
		return "float64"
	case tensor.Int32:
		return "int32"
	case tensor.Int64:
		return "int64"
	case tensor.Uint8:
		return "uint8"
	case tensor.Bool:
		return "bool"
	default:
		return "unknown"
	}
}

func parseDType(s string) (tensor.DataType, error) {
	switch s {
	case "float32":
		return tensor.Float32, nil
	case "float64":
		return tensor.Float64, nil
	case "int32":
		return tensor.Int32, nil
	case "int64":
		return tensor.Int64, nil
	case "uint8":
		return tensor.Uint8, nil
	case "bool":
		return tensor.Bool, nil
	default:
		return 0, errors.Errorf("unknown dtype %q", s)
	}
}

// dtypeSize returns the on-disk element size for a header dtype string.
func dtypeSize(s string) (int, error) {
	if s == dtypeFloat16 {
		return 2, nil
	}
	dt, err := parseDType(s)
	if err != nil {
		return 0, err
	}
	return dt.Size(), nil
}

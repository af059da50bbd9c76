package cpu

import (
	"fmt"
	"math"

	"github.com/axon-ml/axon/internal/tensor"
)

// CrossEntropy computes the mean negative log-likelihood of 2D logits
// against integer class labels, returning a scalar. The per-row
// log-sum-exp is shifted by the row maximum to stay finite for large
// logits.
func (b *Backend) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("crossentropy: logits must be 2D, got shape %v", shape))
	}
	rows, cols := shape[0], shape[1]
	if targets.NumElements() != rows {
		panic(fmt.Sprintf("crossentropy: %d labels for batch of %d", targets.NumElements(), rows))
	}
	labels := labelSlice(targets)

	loss := mustNewRaw(tensor.Shape{1}, logits.DType(), b.device)
	var total float64
	switch logits.DType() {
	case tensor.Float32:
		data := logits.AsFloat32()
		for r := 0; r < rows; r++ {
			row := data[r*cols : (r+1)*cols]
			total += nllRow(len(row), labels[r], func(i int) float64 { return float64(row[i]) })
		}
		loss.AsFloat32()[0] = float32(total / float64(rows))
	case tensor.Float64:
		data := logits.AsFloat64()
		for r := 0; r < rows; r++ {
			row := data[r*cols : (r+1)*cols]
			total += nllRow(len(row), labels[r], func(i int) float64 { return row[i] })
		}
		loss.AsFloat64()[0] = total / float64(rows)
	default:
		panic(fmt.Sprintf("crossentropy: unsupported dtype %s", logits.DType()))
	}
	return loss
}

func nllRow(n, label int, at func(int) float64) float64 {
	if label < 0 || label >= n {
		panic(fmt.Sprintf("crossentropy: label %d out of range [0, %d)", label, n))
	}
	max := at(0)
	for i := 1; i < n; i++ {
		if v := at(i); v > max {
			max = v
		}
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Exp(at(i) - max)
	}
	return math.Log(sum) - (at(label) - max)
}

func labelSlice(t *tensor.RawTensor) []int {
	out := make([]int, t.NumElements())
	switch t.DType() {
	case tensor.Int32:
		for i, v := range t.AsInt32() {
			out[i] = int(v)
		}
	case tensor.Int64:
		for i, v := range t.AsInt64() {
			out[i] = int(v)
		}
	default:
		panic(fmt.Sprintf("crossentropy: labels must be int32 or int64, got %s", t.DType()))
	}
	return out
}

package cpu

import (
	"fmt"

	"github.com/axon-ml/axon/internal/parallel"
	"github.com/axon-ml/axon/internal/tensor"
)

// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
// Rows of the output are computed in parallel.
func (b *Backend) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	xShape, yShape := x.Shape(), y.Shape()
	if len(xShape) != 2 || len(yShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %dD and %dD", len(xShape), len(yShape)))
	}

	m, k := xShape[0], xShape[1]
	k2, n := yShape[0], yShape[1]
	if k != k2 {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, k2, n))
	}

	result := mustNewRaw(tensor.Shape{m, n}, x.DType(), b.device)

	switch x.DType() {
	case tensor.Float32:
		matmulRows(result.AsFloat32(), x.AsFloat32(), y.AsFloat32(), m, k, n, b.parallel)
	case tensor.Float64:
		matmulRows(result.AsFloat64(), x.AsFloat64(), y.AsFloat64(), m, k, n, b.parallel)
	default:
		panic(fmt.Sprintf("matmul: unsupported dtype %s", x.DType()))
	}

	return result
}

// matmulRows computes C[i,j] = sum_k A[i,k] * B[k,j] one output row per task.
// The k-inner ordering keeps the B accesses sequential per row of A.
func matmulRows[T float32 | float64](c, a, b []T, m, k, n int, cfg parallel.Config) {
	parallel.For(m, func(i int) {
		row := c[i*n : (i+1)*n]
		for j := range row {
			row[j] = 0
		}
		for kk := 0; kk < k; kk++ {
			av := a[i*k+kk]
			if av == 0 {
				continue
			}
			bRow := b[kk*n : (kk+1)*n]
			for j, bv := range bRow {
				row[j] += av * bv
			}
		}
	}, cfg)
}

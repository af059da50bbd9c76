package nn

import (
	"math"
	"math/rand"

	"github.com/axon-ml/axon/internal/tensor"
)

// XavierUniform fills t with samples from U(-limit, limit) where
// limit = sqrt(6 / (fanIn + fanOut)). This keeps activation variance
// roughly constant across layers at the start of training.
func XavierUniform[B tensor.Backend](t *tensor.Tensor[float32, B], fanIn, fanOut int, rng *rand.Rand) {
	limit := float32(math.Sqrt(6.0 / float64(fanIn+fanOut)))
	data := t.Data()
	for i := range data {
		data[i] = (rng.Float32()*2 - 1) * limit
	}
}

// Package autodiff implements tape-based reverse-mode automatic
// differentiation. A Backend decorator wraps any compute backend and records
// every differentiable operation onto a Tape; Tape.Backward then walks the
// recorded operations in reverse, applying the chain rule to produce a
// gradient for every tensor that contributed to the loss.
package autodiff

import (
	"sync"

	"github.com/axon-ml/axon/internal/autodiff/ops"
	"github.com/axon-ml/axon/internal/tensor"
)

// Tape records the forward-pass operations needed for backpropagation.
// Recording pins every operand so backends cannot recycle their buffers in
// place before the backward pass has run.
type Tape struct {
	mu         sync.Mutex
	operations []ops.Operation
	unpins     []func()
	recording  bool
}

// NewTape creates an empty, non-recording tape.
func NewTape() *Tape {
	return &Tape{}
}

// StartRecording enables recording of operations onto the tape.
func (t *Tape) StartRecording() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recording = true
}

// StopRecording disables recording. Already-recorded operations are kept.
func (t *Tape) StopRecording() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recording = false
}

// IsRecording reports whether operations are currently being recorded.
func (t *Tape) IsRecording() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recording
}

// NumOperations returns the number of recorded operations.
func (t *Tape) NumOperations() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.operations)
}

// Clear drops all recorded operations and unpins their operands. Call after
// every optimizer step; a tape is single-use per forward/backward cycle.
func (t *Tape) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, unpin := range t.unpins {
		unpin()
	}
	t.operations = t.operations[:0]
	t.unpins = t.unpins[:0]
}

// record appends an operation and pins its operands for the backward pass.
func (t *Tape) record(op ops.Operation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.recording {
		return
	}
	for _, in := range op.Inputs() {
		t.unpins = append(t.unpins, in.ForceNonUnique())
	}
	t.unpins = append(t.unpins, op.Output().ForceNonUnique())
	t.operations = append(t.operations, op)
}

// Backward seeds the loss gradient with ones and propagates it through the
// recorded operations in reverse order. It returns the accumulated gradient
// for every tensor reached by the chain rule, keyed by the forward-pass
// RawTensor.
func (t *Tape) Backward(loss *tensor.RawTensor, backend tensor.Backend) Gradients {
	t.mu.Lock()
	defer t.mu.Unlock()

	grads := Gradients{
		loss: ops.OnesLike(loss),
	}

	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]
		outGrad, ok := grads[op.Output()]
		if !ok {
			// This operation did not contribute to the loss.
			continue
		}

		// Pin the upstream gradient: it is read once per input and must
		// not be recycled in place by backend kernels.
		unpin := outGrad.ForceNonUnique()
		inputGrads := op.Backward(outGrad, backend)
		unpin()

		for j, in := range op.Inputs() {
			g := inputGrads[j]
			if g == nil {
				continue
			}
			if existing, ok := grads[in]; ok {
				summed := backend.Add(existing, g)
				if summed != existing {
					existing.Release()
				}
				if summed != g {
					g.Release()
				}
				grads[in] = summed
			} else {
				grads[in] = g
			}
		}
	}

	return grads
}

// Package aug applies randomized transforms to batches of EEG signals for
// data augmentation. Each transform is gated by an activation probability
// and draws from its own random source so that pipelines are reproducible.
package aug

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Operation maps one batch to another. x has shape [batch, channels, time]
// and y is the matching label tensor with the same leading dimension.
// Implementations must preserve both shapes and must not modify the inputs
// in place.
type Operation func(x, y *tensor.Dense, rng *rand.Rand) (*tensor.Dense, *tensor.Dense, error)

// Transform is an operation together with its activation probability.
type Transform struct {
	op          Operation
	probability float64
	rng         *rand.Rand
}

// New creates a transform which applies op with the given probability.
// The probability must be in [0,1] else construction fails.
func New(op Operation, probability float64, seed int64) (*Transform, error) {
	if op == nil {
		return nil, errors.New("aug: operation must not be nil")
	}
	if math.IsNaN(probability) || probability < 0 || probability > 1 {
		return nil, errors.Errorf("aug: probability must be a value in [0,1], got %v", probability)
	}
	return &Transform{
		op:          op,
		probability: probability,
		rng:         rand.New(rand.NewSource(seed)),
	}, nil
}

// Probability returns the configured activation probability.
func (t *Transform) Probability() float64 { return t.probability }

// Apply draws a uniform value and runs the operation if it falls below the
// activation probability, else the batch passes through unchanged.
func (t *Transform) Apply(x, y *tensor.Dense) (*tensor.Dense, *tensor.Dense, error) {
	if t.rng.Float64() >= t.probability {
		return x, y, nil
	}
	tx, ty, err := t.op(x, y, t.rng)
	if err != nil {
		return nil, nil, err
	}
	if !tx.Shape().Eq(x.Shape()) {
		return nil, nil, errors.Errorf("aug: operation changed signal shape from %v to %v", x.Shape(), tx.Shape())
	}
	if ty != nil && y != nil && ty.Shape()[0] != tx.Shape()[0] {
		return nil, nil, errors.Errorf("aug: label batch %d does not match signal batch %d", ty.Shape()[0], tx.Shape()[0])
	}
	return tx, ty, nil
}

// Compose applies a sequence of transforms left to right, each gated by
// its own probability and random source.
type Compose []*Transform

// Apply runs each transform in order on the batch.
func (c Compose) Apply(x, y *tensor.Dense) (*tensor.Dense, *tensor.Dense, error) {
	var err error
	for _, t := range c {
		if x, y, err = t.Apply(x, y); err != nil {
			return nil, nil, err
		}
	}
	return x, y, nil
}

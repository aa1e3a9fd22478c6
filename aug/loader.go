package aug

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// BatchIterator is the surface of the wrapped batch source: x is a signal
// tensor [batch, channels, time], y the matching label tensor.
// nnet.Dataset satisfies it.
type BatchIterator interface {
	Batches() int
	NextBatch() (x, y *tensor.Dense, err error)
}

// Loader wraps a batch iterator so that every batch drawn is passed
// through the transform pipeline before it is yielded to the caller.
type Loader struct {
	src      BatchIterator
	pipeline Compose
}

// Pipeline normalizes a transform specification, which may be nil
// (identity), a *Transform, a []*Transform or a Compose. Any other type
// is rejected with a type error.
func Pipeline(transforms interface{}) (Compose, error) {
	var pipeline Compose
	switch t := transforms.(type) {
	case nil:
	case *Transform:
		pipeline = Compose{t}
	case []*Transform:
		pipeline = Compose(t)
	case Compose:
		pipeline = t
	default:
		return nil, errors.Errorf("aug: transforms must be a Transform or a list of Transforms, got %T", transforms)
	}
	for i, t := range pipeline {
		if t == nil {
			return nil, errors.Errorf("aug: transform %d is nil", i)
		}
	}
	return pipeline, nil
}

// NewLoader wraps src with the given transform specification. Invalid
// specifications are rejected here, before any batch is drawn.
func NewLoader(src BatchIterator, transforms interface{}) (*Loader, error) {
	if src == nil {
		return nil, errors.New("aug: batch iterator must not be nil")
	}
	pipeline, err := Pipeline(transforms)
	if err != nil {
		return nil, err
	}
	return &Loader{src: src, pipeline: pipeline}, nil
}

// Batches in one pass over the wrapped source.
func (l *Loader) Batches() int { return l.src.Batches() }

// NextBatch draws the next batch from the wrapped source and applies the
// transform pipeline to it.
func (l *Loader) NextBatch() (x, y *tensor.Dense, err error) {
	if x, y, err = l.src.NextBatch(); err != nil {
		return nil, nil, err
	}
	return l.pipeline.Apply(x, y)
}

package aug

import (
	"math/rand"
	"testing"

	"gorgonia.org/tensor"
)

type sliceIterator struct {
	x, y  []*tensor.Dense
	batch int
}

func newSliceIterator(rng *rand.Rand, batches, batch, channels, samples int) *sliceIterator {
	it := &sliceIterator{}
	for i := 0; i < batches; i++ {
		x, y := randomBatch(rng, batch, channels, samples)
		it.x = append(it.x, x)
		it.y = append(it.y, y)
	}
	return it
}

func (it *sliceIterator) Batches() int { return len(it.x) }

func (it *sliceIterator) NextBatch() (*tensor.Dense, *tensor.Dense, error) {
	x, y := it.x[it.batch], it.y[it.batch]
	it.batch = (it.batch + 1) % len(it.x)
	return x, y, nil
}

func TestLoaderIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	src := newSliceIterator(rng, 3, 16, 4, 50)
	l, err := NewLoader(src, nil)
	if err != nil {
		t.Fatal(err)
	}
	if l.Batches() != 3 {
		t.Fatalf("batches: got %d expect 3", l.Batches())
	}
	for i := 0; i < 3; i++ {
		x, y, err := l.NextBatch()
		if err != nil {
			t.Fatal(err)
		}
		if x != src.x[i] || y != src.y[i] {
			t.Fatalf("batch %d: loader with no transforms must yield source batches unchanged", i)
		}
	}
}

func TestLoaderTransformSpecs(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	tr, err := New(GaussianNoise(0.1), 1, 6)
	if err != nil {
		t.Fatal(err)
	}
	specs := []interface{}{
		tr,
		[]*Transform{tr},
		[]*Transform{tr, tr},
		Compose{tr, tr},
	}
	for i, spec := range specs {
		src := newSliceIterator(rng, 4, 8, 2, 30)
		l, err := NewLoader(src, spec)
		if err != nil {
			t.Fatalf("spec %d: %s", i, err)
		}
		for b := 0; b < 3; b++ {
			x, y, err := l.NextBatch()
			if err != nil {
				t.Fatal(err)
			}
			checkBatch(t, src.x[b], src.y[b], x, y, 0, false)
		}
	}
}

func TestLoaderInvalidSpec(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	src := newSliceIterator(rng, 1, 4, 2, 20)
	if _, err := NewLoader(src, "a"); err == nil {
		t.Error("string transform spec: expect construction error")
	}
	if _, err := NewLoader(src, 42); err == nil {
		t.Error("int transform spec: expect construction error")
	}
	if _, err := NewLoader(src, []*Transform{nil}); err == nil {
		t.Error("nil transform in list: expect construction error")
	}
	if _, err := NewLoader(nil, nil); err == nil {
		t.Error("nil source: expect construction error")
	}
}

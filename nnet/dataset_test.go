package nnet

import (
	"math/rand"
	"testing"

	"github.com/marialco/braindecode-1/eeg"
	"gorgonia.org/tensor"
)

func testData(t *testing.T, trials, channels, samples, classes, winSize, stride int) *eeg.Data {
	t.Helper()
	rng := rand.New(rand.NewSource(99))
	d, err := eeg.Windower{Size: winSize, Stride: stride}.Split(
		eeg.Synthetic(rng, trials, channels, samples, classes), eeg.ClassNames(classes))
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestDatasetBatches(t *testing.T) {
	d := testData(t, 5, 2, 100, 2, 50, 25) // 3 windows per trial
	if d.Len() != 15 {
		t.Fatalf("windows: got %d expect 15", d.Len())
	}
	dset := NewDataset(d, 4, 0, nil)
	if dset.Batches() != 4 {
		t.Fatalf("batches: got %d expect 4", dset.Batches())
	}
	total := 0
	for b := 0; b < dset.Batches(); b++ {
		x, y, err := dset.NextBatch()
		if err != nil {
			t.Fatal(err)
		}
		n := x.Shape()[0]
		if b < 3 && n != 4 || b == 3 && n != 3 {
			t.Errorf("batch %d: size %d", b, n)
		}
		if x.Shape()[1] != 2 || x.Shape()[2] != 50 {
			t.Errorf("batch %d: shape %v", b, x.Shape())
		}
		if y.Shape()[0] != n || y.Shape()[1] != 1 {
			t.Errorf("batch %d: target shape %v", b, y.Shape())
		}
		if len(dset.LastWindows()) != n || len(dset.LastLabels()) != n {
			t.Errorf("batch %d: bookkeeping size mismatch", b)
		}
		total += n
	}
	if total != 15 {
		t.Errorf("total samples: got %d expect 15", total)
	}
}

func TestDatasetWindowOrder(t *testing.T) {
	d := testData(t, 3, 2, 100, 2, 50, 25)
	dset := NewDataset(d, 5, 0, nil)
	var inds []eeg.WindowIndex
	for b := 0; b < dset.Batches(); b++ {
		if _, _, err := dset.NextBatch(); err != nil {
			t.Fatal(err)
		}
		inds = append(inds, dset.LastWindows()...)
	}
	for i, ix := range inds {
		if ix != d.Inds[i] {
			t.Fatalf("window %d: got %v expect %v", i, ix, d.Inds[i])
		}
	}
}

func TestDatasetSetTargets(t *testing.T) {
	d := testData(t, 4, 2, 100, 2, 50, 50)
	dset := NewDataset(d, 0, 0, nil)
	vals := make([]float32, d.Len()*2)
	for i := range vals {
		vals[i] = float32(i)
	}
	y := tensor.New(tensor.WithShape(d.Len(), 2), tensor.WithBacking(vals))
	if err := dset.SetTargets(y); err != nil {
		t.Fatal(err)
	}
	_, yb, err := dset.NextBatch()
	if err != nil {
		t.Fatal(err)
	}
	if yb.Shape()[1] != 2 {
		t.Fatalf("target dim: got %d expect 2", yb.Shape()[1])
	}
	yd := yb.Data().([]float32)
	for i := range vals {
		if yd[i] != vals[i] {
			t.Fatalf("target %d: got %v expect %v", i, yd[i], vals[i])
		}
	}
	bad := tensor.New(tensor.WithShape(3), tensor.WithBacking([]float32{1, 2, 3}))
	if err := dset.SetTargets(bad); err == nil {
		t.Error("expect error for target length mismatch")
	}
}

func TestDatasetShuffle(t *testing.T) {
	d := testData(t, 10, 2, 100, 2, 50, 50)
	dset := NewDataset(d, 0, 0, rand.New(rand.NewSource(7)))
	x1, _, err := dset.NextBatch()
	if err != nil {
		t.Fatal(err)
	}
	first := append([]float32{}, x1.Data().([]float32)...)
	dset.Shuffle()
	x2, _, err := dset.NextBatch()
	if err != nil {
		t.Fatal(err)
	}
	same := true
	for i, v := range x2.Data().([]float32) {
		if v != first[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("shuffle did not permute the batch")
	}
}

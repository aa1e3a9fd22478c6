package eeg

import (
	"bytes"
	"math/rand"
	"testing"
)

func makeTrials(samples ...int) []Trial {
	trials := make([]Trial, len(samples))
	for i, n := range samples {
		sig := make([][]float32, 2)
		for ch := range sig {
			row := make([]float32, n)
			for s := range row {
				row[s] = float32(s + ch*1000)
			}
			sig[ch] = row
		}
		trials[i] = Trial{Label: int32(i % 2), Signal: sig}
	}
	return trials
}

func TestWindower(t *testing.T) {
	w := Windower{Size: 50, Stride: 50, DropLast: true}
	d, err := w.Split(makeTrials(120, 100), []string{"0", "1"})
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 4 {
		t.Fatalf("windows: got %d expect 4", d.Len())
	}
	if d.Trials() != 2 {
		t.Errorf("trials: got %d expect 2", d.Trials())
	}
	expect := []WindowIndex{
		{Trial: 0, Number: 0, Start: 0, Stop: 50},
		{Trial: 0, Number: 1, Start: 50, Stop: 100},
		{Trial: 1, Number: 0, Start: 0, Stop: 50},
		{Trial: 1, Number: 1, Start: 50, Stop: 100},
	}
	for i, e := range expect {
		if d.Inds[i] != e {
			t.Errorf("index %d: got %v expect %v", i, d.Inds[i], e)
		}
	}
	// window starts strictly increase within each trial
	for i := 1; i < d.Len(); i++ {
		if d.Inds[i].Trial == d.Inds[i-1].Trial && d.Inds[i].Start <= d.Inds[i-1].Start {
			t.Errorf("window starts not monotonic at %d: %v %v", i, d.Inds[i-1], d.Inds[i])
		}
	}
}

func TestWindowerKeepLast(t *testing.T) {
	w := Windower{Size: 50, Stride: 50}
	d, err := w.Split(makeTrials(120), []string{"0", "1"})
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 3 {
		t.Fatalf("windows: got %d expect 3", d.Len())
	}
	last := d.Inds[2]
	if last.Start != 70 || last.Stop != 120 {
		t.Errorf("last window: got %v expect start=70 stop=120", last)
	}
}

func TestWindowerErrors(t *testing.T) {
	if _, err := (Windower{Size: 0, Stride: 1}).Split(makeTrials(100), nil); err == nil {
		t.Error("expect error for zero window size")
	}
	if _, err := (Windower{Size: 200, Stride: 50}).Split(makeTrials(100), nil); err == nil {
		t.Error("expect error for window larger than trial")
	}
}

func TestWindowContent(t *testing.T) {
	w := Windower{Size: 10, Stride: 5, DropLast: true}
	d, err := w.Split(makeTrials(20), []string{"0", "1"})
	if err != nil {
		t.Fatal(err)
	}
	// second window of channel 1 starts at sample 5 offset by 1000
	win := d.Windows[1]
	if win[10] != 1005 {
		t.Errorf("got %v expect 1005", win[10])
	}
	buf := make([]float32, 2*10*2)
	d.Input([]int{0, 1}, buf)
	if buf[20] != win[0] {
		t.Errorf("input copy mismatch: %v != %v", buf[20], win[0])
	}
}

func TestNormalize(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	trials := Synthetic(rng, 6, 3, 100, 2)
	d, err := Windower{Size: 50, Stride: 25}.Split(trials, ClassNames(2))
	if err != nil {
		t.Fatal(err)
	}
	d.Mean, d.StdDev = GetStats(d)
	d.Normalize()
	mean, std := GetStats(d)
	for ch := range mean {
		if m := float64(mean[ch]); m < -1e-3 || m > 1e-3 {
			t.Errorf("channel %d: mean %v after normalize", ch, m)
		}
		if s := float64(std[ch]); s < 0.99 || s > 1.01 {
			t.Errorf("channel %d: stddev %v after normalize", ch, s)
		}
	}

	// stats not set leaves the signal untouched
	d2, err := Windower{Size: 50, Stride: 25}.Split(trials, ClassNames(2))
	if err != nil {
		t.Fatal(err)
	}
	before := append([]float32{}, d2.Windows[0]...)
	d2.Normalize()
	for i, v := range d2.Windows[0] {
		if v != before[i] {
			t.Fatal("normalize without stats should be a no-op")
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	trials := Synthetic(rng, 4, 3, 100, 2)
	d, err := Windower{Size: 50, Stride: 25}.Split(trials, ClassNames(2))
	if err != nil {
		t.Fatal(err)
	}
	d.Mean, d.StdDev = GetStats(d)
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	d2 := new(Data)
	if err := d2.Decode(&buf); err != nil {
		t.Fatal(err)
	}
	if d2.Len() != d.Len() || d2.Trials() != d.Trials() {
		t.Fatalf("roundtrip: got %d windows %d trials", d2.Len(), d2.Trials())
	}
	for i, win := range d.Windows {
		for j, v := range win {
			if d2.Windows[i][j] != v {
				t.Fatalf("window %d sample %d mismatch", i, j)
			}
		}
	}
}

package stats

import (
	"math"
	"testing"
)

func TestAverage(t *testing.T) {
	var avg Average
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		avg.Add(x)
	}
	if math.Abs(avg.Mean-5) > 1e-9 {
		t.Errorf("mean: got %v expect 5", avg.Mean)
	}
	if math.Abs(avg.StdDev-2.138089935) > 1e-6 {
		t.Errorf("stddev: got %v", avg.StdDev)
	}
}

func TestEMA(t *testing.T) {
	var e EMA
	val := e.Add(10, 10)
	if val != 10 {
		t.Errorf("first value: got %v expect 10", val)
	}
	e = EMA(val)
	val = e.Add(0, 10)
	k := 2.0 / 11.0
	if math.Abs(val-10*(1-k)) > 1e-9 {
		t.Errorf("second value: got %v", val)
	}
}

func TestAverageHTML(t *testing.T) {
	var avg Average
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		avg.Add(x)
	}
	if s := string(avg.HTML()); s != "5.00&PlusMinus;2.14" {
		t.Errorf("got %q", s)
	}
	var big Average
	for _, x := range []float64{20, 20, 20} {
		big.Add(x)
	}
	if s := string(big.HTML()); s != "20.0" {
		t.Errorf("got %q", s)
	}
}

func TestSeriesBest(t *testing.T) {
	s := NewSeries("valid_loss", true)
	for _, v := range []float64{1.0, 0.5, 0.7, 0.4, 0.6, 0.9} {
		s.Add(v)
	}
	epoch, val := s.Best()
	if epoch != 4 || val != 0.4 {
		t.Errorf("best: got epoch=%d val=%v", epoch, val)
	}
	if n := s.SinceBest(); n != 2 {
		t.Errorf("since best: got %d expect 2", n)
	}
	if s.Last() != 0.9 {
		t.Errorf("last: got %v", s.Last())
	}

	acc := NewSeries("valid_accuracy", false)
	for _, v := range []float64{0.2, 0.8, 0.6} {
		acc.Add(v)
	}
	if epoch, val = acc.Best(); epoch != 2 || val != 0.8 {
		t.Errorf("best: got epoch=%d val=%v", epoch, val)
	}
}

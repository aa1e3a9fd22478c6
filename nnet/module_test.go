package nnet

import (
	"math"
	"math/rand"
	"testing"

	"gorgonia.org/tensor"
)

func TestMSELoss(t *testing.T) {
	yPred := tensor.New(tensor.WithShape(2, 1), tensor.WithBacking([]float32{1, 3}))
	yTrue := tensor.New(tensor.WithShape(2, 1), tensor.WithBacking([]float32{0, 1}))
	loss := MSELoss{}
	val, err := loss.Loss(yPred, yTrue)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(val-2.5) > 1e-6 {
		t.Errorf("loss: got %v expect 2.5", val)
	}
	grad, err := loss.Grad(yPred, yTrue)
	if err != nil {
		t.Fatal(err)
	}
	expect := []float32{1, 2}
	for i, g := range grad.Data().([]float32) {
		if math.Abs(float64(g-expect[i])) > 1e-6 {
			t.Errorf("grad %d: got %v expect %v", i, g, expect[i])
		}
	}
}

func TestCrossEntropyLoss(t *testing.T) {
	// equal logits: loss is log(nclasses)
	yPred := tensor.New(tensor.WithShape(2, 3), tensor.WithBacking(make([]float32, 6)))
	yTrue := tensor.New(tensor.WithShape(2, 1), tensor.WithBacking([]float32{0, 2}))
	loss := CrossEntropyLoss{}
	val, err := loss.Loss(yPred, yTrue)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(val-math.Log(3)) > 1e-6 {
		t.Errorf("loss: got %v expect %v", val, math.Log(3))
	}
	grad, err := loss.Grad(yPred, yTrue)
	if err != nil {
		t.Fatal(err)
	}
	g := grad.Data().([]float32)
	// gradient rows sum to zero and the label entry is negative
	for i := 0; i < 2; i++ {
		sum := g[i*3] + g[i*3+1] + g[i*3+2]
		if math.Abs(float64(sum)) > 1e-6 {
			t.Errorf("row %d: gradient sums to %v", i, sum)
		}
	}
	if g[0] >= 0 || g[5] >= 0 {
		t.Error("gradient at the true label should be negative")
	}

	bad := tensor.New(tensor.WithShape(2, 1), tensor.WithBacking([]float32{0, 5}))
	if _, err := loss.Loss(yPred, bad); err == nil {
		t.Error("expect error for out of range label")
	}
}

func TestAggregateCrops(t *testing.T) {
	yPred := tensor.New(tensor.WithShape(2, 2, 3), tensor.WithBacking([]float32{
		1, 2, 3, 4, 5, 6,
		0, 0, 3, 1, 1, 1,
	}))
	agg, err := AggregateCrops(yPred)
	if err != nil {
		t.Fatal(err)
	}
	expect := []float32{2, 5, 1, 1}
	for i, v := range agg.Data().([]float32) {
		if v != expect[i] {
			t.Errorf("value %d: got %v expect %v", i, v, expect[i])
		}
	}
	// 2d input passes through
	if agg2, _ := AggregateCrops(agg); agg2 != agg {
		t.Error("2d input should pass through unchanged")
	}
}

func TestLinearFit(t *testing.T) {
	// learn y = 2*mean(x) with a single input feature
	rng := rand.New(rand.NewSource(1))
	lin := NewLinear(1, 1, rng)
	loss := MSELoss{}
	for i := 0; i < 500; i++ {
		v := rng.Float32()*2 - 1
		x := tensor.New(tensor.WithShape(1, 1), tensor.WithBacking([]float32{v}))
		y := tensor.New(tensor.WithShape(1, 1), tensor.WithBacking([]float32{2 * v}))
		if _, err := lin.Step(x, y, loss, 0.1); err != nil {
			t.Fatal(err)
		}
	}
	w := lin.W.Data().([]float32)[0]
	b := lin.B.Data().([]float32)[0]
	if math.Abs(float64(w)-2) > 0.05 || math.Abs(float64(b)) > 0.05 {
		t.Errorf("got w=%v b=%v expect w=2 b=0", w, b)
	}
}

func TestLinearFprop(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	lin := NewLinear(2, 2, rng)
	copy(lin.W.Data().([]float32), []float32{1, 2, 3, 4})
	copy(lin.B.Data().([]float32), []float32{0.5, -0.5})
	x := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]float32{1, 0, 0, 1}))
	yPred, err := lin.Fprop(x)
	if err != nil {
		t.Fatal(err)
	}
	expect := []float32{1.5, 1.5, 3.5, 3.5}
	for i, v := range yPred.Data().([]float32) {
		if math.Abs(float64(v-expect[i])) > 1e-6 {
			t.Errorf("value %d: got %v expect %v", i, v, expect[i])
		}
	}

	bad := tensor.New(tensor.WithShape(2, 3), tensor.WithBacking(make([]float32, 6)))
	if _, err := lin.Fprop(bad); err == nil {
		t.Error("expect error for mismatched input shape")
	}
}

func TestSlidingLinear(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	m := NewSlidingLinear(3, 20, 10, 2, rng)
	if crops := m.Crops(50); crops != 4 {
		t.Errorf("crops: got %d expect 4", crops)
	}
	x := tensor.New(tensor.WithShape(5, 3, 50), tensor.WithBacking(make([]float32, 5*3*50)))
	yPred, err := m.Fprop(x)
	if err != nil {
		t.Fatal(err)
	}
	want := tensor.Shape{5, 2, 4}
	if !yPred.Shape().Eq(want) {
		t.Errorf("shape: got %v expect %v", yPred.Shape(), want)
	}
	y := tensor.New(tensor.WithShape(5, 1), tensor.WithBacking(make([]float32, 5)))
	if _, err := m.Step(x, y, CrossEntropyLoss{}, 0.01); err != nil {
		t.Fatal(err)
	}
}

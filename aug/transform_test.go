package aug

import (
	"math"
	"math/rand"
	"testing"

	"gorgonia.org/tensor"
)

func randomBatch(rng *rand.Rand, batch, channels, samples int) (x, y *tensor.Dense) {
	xdata := make([]float32, batch*channels*samples)
	for i := range xdata {
		xdata[i] = rng.Float32()*2 - 1
	}
	ydata := make([]float32, batch)
	for i := range ydata {
		ydata[i] = float32(rng.Intn(2))
	}
	x = tensor.New(tensor.WithShape(batch, channels, samples), tensor.WithBacking(xdata))
	y = tensor.New(tensor.WithShape(batch), tensor.WithBacking(ydata))
	return x, y
}

// checks shapes are conserved, labels untouched and optionally that the
// transformed signal matches the expected constant fill.
func checkBatch(t *testing.T, x, y, trX, trY *tensor.Dense, expect float32, checkExpect bool) {
	t.Helper()
	if !trX.Shape().Eq(x.Shape()) {
		t.Fatalf("signal shape changed: %v -> %v", x.Shape(), trX.Shape())
	}
	if trX.Shape()[0] != trY.Shape()[0] {
		t.Fatalf("batch dims differ: x=%d y=%d", trX.Shape()[0], trY.Shape()[0])
	}
	yd, tryd := y.Data().([]float32), trY.Data().([]float32)
	for i := range yd {
		if yd[i] != tryd[i] {
			t.Fatalf("label %d changed: %v -> %v", i, yd[i], tryd[i])
		}
	}
	if checkExpect {
		for i, v := range trX.Data().([]float32) {
			if v != expect {
				t.Fatalf("value %d: got %v expect %v", i, v, expect)
			}
		}
	}
}

func TestTransformProbability(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	x, y := randomBatch(rng, 8, 4, 25)

	always, err := New(FillConstant(7), 1, 11)
	if err != nil {
		t.Fatal(err)
	}
	never, err := New(FillConstant(7), 0, 12)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		trX, trY, err := always.Apply(x, y)
		if err != nil {
			t.Fatal(err)
		}
		checkBatch(t, x, y, trX, trY, 7, true)

		trX, trY, err = never.Apply(x, y)
		if err != nil {
			t.Fatal(err)
		}
		if trX != x || trY != y {
			t.Fatal("p=0 should pass the batch through unchanged")
		}
	}
}

func TestTransformInvalidProbability(t *testing.T) {
	for _, p := range []float64{-0.1, 1.5, math.NaN()} {
		if _, err := New(FillConstant(1), p, 1); err == nil {
			t.Errorf("probability %v: expect construction error", p)
		}
	}
	if _, err := New(nil, 0.5, 1); err == nil {
		t.Error("nil operation: expect construction error")
	}
}

func TestCompose(t *testing.T) {
	cases := []struct {
		k1, k2, expect float32
		p1, p2         float64
	}{
		{1, 0, 0, 1, 1},
		{0, 1, 1, 1, 1},
		{1, 0, 1, 1, 0},
		{0, 1, 0, 1, 0},
		{1, 0, 0, 0, 1},
		{0, 1, 1, 0, 1},
	}
	rng := rand.New(rand.NewSource(2))
	for i, c := range cases {
		x, y := randomBatch(rng, 4, 2, 30)
		t1, err := New(FillConstant(c.k1), c.p1, int64(i))
		if err != nil {
			t.Fatal(err)
		}
		t2, err := New(FillConstant(c.k2), c.p2, int64(i+100))
		if err != nil {
			t.Fatal(err)
		}
		trX, trY, err := Compose{t1, t2}.Apply(x, y)
		if err != nil {
			t.Fatal(err)
		}
		checkBatch(t, x, y, trX, trY, c.expect, true)
	}
}

func TestOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	x, y := randomBatch(rng, 6, 3, 40)
	ops := map[string]Operation{
		"signflip":       SignFlip(),
		"timereverse":    TimeReverse(),
		"gaussiannoise":  GaussianNoise(0.1),
		"channeldropout": ChannelsDropout(0.5),
		"smoothtimemask": SmoothTimeMask(20),
	}
	for name, op := range ops {
		tr, err := New(op, 1, 17)
		if err != nil {
			t.Fatal(err)
		}
		trX, trY, err := tr.Apply(x, y)
		if err != nil {
			t.Fatalf("%s: %s", name, err)
		}
		checkBatch(t, x, y, trX, trY, 0, false)
		if trX == x {
			t.Errorf("%s: input modified in place", name)
		}
	}
}

func TestTimeReverse(t *testing.T) {
	x := tensor.New(tensor.WithShape(1, 1, 4), tensor.WithBacking([]float32{1, 2, 3, 4}))
	y := tensor.New(tensor.WithShape(1), tensor.WithBacking([]float32{0}))
	tr, _ := New(TimeReverse(), 1, 1)
	trX, _, err := tr.Apply(x, y)
	if err != nil {
		t.Fatal(err)
	}
	expect := []float32{4, 3, 2, 1}
	for i, v := range trX.Data().([]float32) {
		if v != expect[i] {
			t.Errorf("sample %d: got %v expect %v", i, v, expect[i])
		}
	}
}

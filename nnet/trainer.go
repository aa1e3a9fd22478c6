package nnet

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/marialco/braindecode-1/stats"
)

const emaN = 10

// Training statistics for one epoch
type Stats struct {
	Epoch     int
	Loss      float64
	Scores    []float64
	BestSince int
	Elapsed   time.Duration
}

func (s Stats) Format() []string {
	str := []string{fmt.Sprintf("%7.4f", s.Loss)}
	for _, v := range s.Scores {
		str = append(str, fmt.Sprintf("%7.4f", v))
	}
	return str
}

// Tester interface to evaluate the performance after each epoch, Test
// method returns true if training should stop.
type Tester interface {
	Test(e *Estimator, epoch int, loss float64, start time.Time) (bool, error)
}

// Tester which runs the scoring callbacks on each split and records the
// epoch stats.
type TestBase struct {
	Scorings []*EpochScoring
	Headers  []string
	History  []Stats
	Data     map[string]*Dataset
	conf     Config
	avgValid *stats.Series
	ema      stats.EMA
}

// Create a new base tester.
func NewTestBase() *TestBase {
	return &TestBase{}
}

// Initialise the test datasets and resolve the scoring callbacks from
// their string names.
func (t *TestBase) Init(conf Config, data map[string]Data, rng *rand.Rand) (*TestBase, error) {
	t.conf = conf
	t.Data = make(map[string]*Dataset)
	for key, d := range data {
		t.Data[key] = NewDataset(d, conf.TestBatch, conf.MaxSamples, rng)
	}
	_, haveValid := t.Data["valid"]
	var err error
	t.Scorings, err = resolveScoring(conf.Scoring, conf.Cropped, haveValid)
	if err != nil {
		return nil, err
	}
	t.Headers = []string{"loss"}
	for _, s := range t.Scorings {
		t.Headers = append(t.Headers, s.Name)
	}
	for _, s := range t.Scorings {
		if !s.OnTrain {
			t.avgValid = stats.NewSeries(s.Name, s.Scorer.LowerIsBetter)
			break
		}
	}
	if conf.DebugLevel >= 1 {
		fmt.Printf("init tester: callbacks=%v\n", t.Headers[1:])
	}
	return t, nil
}

// Reset stats prior to a new run
func (t *TestBase) Reset() {
	t.History = t.History[:0]
	if t.avgValid != nil {
		t.avgValid.Reset()
	}
	t.ema = 0
}

// Test performance of the model, called at the end of each epoch.
func (t *TestBase) Test(e *Estimator, epoch int, loss float64, start time.Time) (bool, error) {
	s := Stats{Epoch: epoch, Loss: loss, BestSince: -1}
	for _, scoring := range t.Scorings {
		key := "valid"
		if scoring.OnTrain {
			key = "train"
		}
		dset, ok := t.Data[key]
		if !ok {
			continue
		}
		val, err := scoring.Compute(e.Module, dset)
		if err != nil {
			return false, err
		}
		s.Scores = append(s.Scores, val)
		if t.avgValid != nil && scoring.Name == t.avgValid.Name {
			// smoothed validation metric drives early stopping
			avg := t.ema.Add(val, emaN)
			t.ema = stats.EMA(avg)
			t.avgValid.Add(avg)
			s.BestSince = t.avgValid.SinceBest()
		}
	}
	s.Elapsed = time.Since(start)
	t.History = append(t.History, s)
	done := epoch >= t.conf.MaxEpoch || loss <= t.conf.MinLoss ||
		(t.conf.StopAfter > 0 && s.BestSince >= t.conf.StopAfter)
	return done, nil
}

type testLogger struct {
	*TestBase
}

// Create a new tester which logs stats to stdout.
func NewTestLogger(conf Config, data map[string]Data, rng *rand.Rand) (Tester, error) {
	base, err := NewTestBase().Init(conf, data, rng)
	if err != nil {
		return nil, err
	}
	return testLogger{TestBase: base}, nil
}

func (t testLogger) Test(e *Estimator, epoch int, loss float64, start time.Time) (bool, error) {
	done, err := t.TestBase.Test(e, epoch, loss, start)
	if err != nil {
		return false, err
	}
	s := t.History[len(t.History)-1]
	if done || t.conf.LogEvery == 0 || epoch%t.conf.LogEvery == 0 {
		msg := fmt.Sprintf("epoch %3d:", epoch)
		for i, val := range s.Format() {
			msg += fmt.Sprintf("  %s =%s", t.Headers[i], val)
		}
		if s.BestSince > 0 {
			msg += fmt.Sprintf(" [%d]", s.BestSince)
		}
		fmt.Println(msg)
	}
	if done {
		fmt.Printf("run time: %s\n", s.Elapsed.Round(10*time.Millisecond))
	}
	return done, nil
}

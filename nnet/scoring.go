package nnet

import (
	"fmt"
	"math"
	"strings"

	"github.com/marialco/braindecode-1/eeg"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"gorgonia.org/tensor"
)

// ScoreFunc computes a scalar metric. yPred is [n, out], yTrue has one
// target per row and labels has the integer class per row.
type ScoreFunc func(yPred *tensor.Dense, yTrue []float32, labels []int32) (float64, error)

// Scorer is a named metric. LowerIsBetter follows the naming convention:
// metrics ending in _error or _loss decrease as they improve unless they
// are negated (neg_ prefix).
type Scorer struct {
	Name          string
	LowerIsBetter bool
	Score         ScoreFunc
}

var scorers = map[string]ScoreFunc{
	"accuracy":                    accuracyScore,
	"balanced_accuracy":           balancedAccuracyScore,
	"r2":                          r2Score,
	"mean_squared_error":          mseScore,
	"neg_mean_squared_error":      negate(mseScore),
	"neg_mean_absolute_error":     negate(maeScore),
	"neg_root_mean_squared_error": negate(rmseScore),
}

// GetScorer resolves a metric by name from the scorer registry.
func GetScorer(name string) (Scorer, error) {
	fn, ok := scorers[name]
	if !ok {
		return Scorer{}, errors.Errorf("nnet: unknown scorer %q", name)
	}
	lower := (strings.HasSuffix(name, "_error") || strings.HasSuffix(name, "_loss")) &&
		!strings.HasPrefix(name, "neg_")
	return Scorer{Name: name, LowerIsBetter: lower, Score: fn}, nil
}

func negate(fn ScoreFunc) ScoreFunc {
	return func(yPred *tensor.Dense, yTrue []float32, labels []int32) (float64, error) {
		val, err := fn(yPred, yTrue, labels)
		return -val, err
	}
}

func accuracyScore(yPred *tensor.Dense, yTrue []float32, labels []int32) (float64, error) {
	pred, err := argmaxRows(yPred)
	if err != nil {
		return 0, err
	}
	if len(pred) != len(labels) {
		return 0, errors.Errorf("nnet: have %d predictions for %d labels", len(pred), len(labels))
	}
	correct := 0
	for i, p := range pred {
		if p == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(pred)), nil
}

func balancedAccuracyScore(yPred *tensor.Dense, yTrue []float32, labels []int32) (float64, error) {
	pred, err := argmaxRows(yPred)
	if err != nil {
		return 0, err
	}
	correct := map[int32]int{}
	total := map[int32]int{}
	for i, p := range pred {
		total[labels[i]]++
		if p == labels[i] {
			correct[labels[i]]++
		}
	}
	sum := 0.0
	for class, n := range total {
		sum += float64(correct[class]) / float64(n)
	}
	return sum / float64(len(total)), nil
}

func r2Score(yPred *tensor.Dense, yTrue []float32, labels []int32) (float64, error) {
	est, val, err := regressionOperands(yPred, yTrue)
	if err != nil {
		return 0, err
	}
	return stat.RSquaredFrom(est, val, nil), nil
}

func mseScore(yPred *tensor.Dense, yTrue []float32, labels []int32) (float64, error) {
	est, val, err := regressionOperands(yPred, yTrue)
	if err != nil {
		return 0, err
	}
	sq := make([]float64, len(est))
	for i := range est {
		d := est[i] - val[i]
		sq[i] = d * d
	}
	return stat.Mean(sq, nil), nil
}

func maeScore(yPred *tensor.Dense, yTrue []float32, labels []int32) (float64, error) {
	est, val, err := regressionOperands(yPred, yTrue)
	if err != nil {
		return 0, err
	}
	abs := make([]float64, len(est))
	for i := range est {
		d := est[i] - val[i]
		if d < 0 {
			d = -d
		}
		abs[i] = d
	}
	return stat.Mean(abs, nil), nil
}

func rmseScore(yPred *tensor.Dense, yTrue []float32, labels []int32) (float64, error) {
	mse, err := mseScore(yPred, yTrue, labels)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

func regressionOperands(yPred *tensor.Dense, yTrue []float32) (est, val []float64, err error) {
	n, out, err := flatten2d(yPred)
	if err != nil {
		return nil, nil, err
	}
	if out != 1 {
		return nil, nil, errors.Errorf("nnet: regression scorer expects one output, got %d", out)
	}
	if n != len(yTrue) {
		return nil, nil, errors.Errorf("nnet: have %d predictions for %d targets", n, len(yTrue))
	}
	p := yPred.Data().([]float32)
	est = make([]float64, n)
	val = make([]float64, n)
	for i := 0; i < n; i++ {
		est[i] = float64(p[i])
		val[i] = float64(yTrue[i])
	}
	return est, val, nil
}

func argmaxRows(yPred *tensor.Dense) ([]int32, error) {
	n, out, err := flatten2d(yPred)
	if err != nil {
		return nil, err
	}
	p := yPred.Data().([]float32)
	pred := make([]int32, n)
	for i := 0; i < n; i++ {
		best := 0
		for o := 1; o < out; o++ {
			if p[i*out+o] > p[i*out+best] {
				best = o
			}
		}
		pred[i] = int32(best)
	}
	return pred, nil
}

// EpochScoring evaluates one scorer at the end of each epoch, on either
// the train or the validation split. In cropped mode window predictions
// are regrouped and averaged per trial before scoring.
type EpochScoring struct {
	Name    string
	OnTrain bool
	Cropped bool
	Scorer  Scorer
}

// resolveScoring expands the string named metrics from the config into
// train/valid scoring pairs, picking the cropped aware variant when the
// model is cropped. Duplicate names get a _1, _2, ... suffix.
func resolveScoring(names []string, cropped, haveValid bool) ([]*EpochScoring, error) {
	var out []*EpochScoring
	used := map[string]int{}
	uniq := func(name string) string {
		n := used[name]
		used[name]++
		if n == 0 {
			return name
		}
		return fmt.Sprintf("%s_%d", name, n)
	}
	for _, name := range names {
		scorer, err := GetScorer(name)
		if err != nil {
			return nil, err
		}
		out = append(out, &EpochScoring{
			Name:    uniq("train_" + name),
			OnTrain: true,
			Cropped: cropped,
			Scorer:  scorer,
		})
		if haveValid {
			out = append(out, &EpochScoring{
				Name:    uniq("valid_" + name),
				Cropped: cropped,
				Scorer:  scorer,
			})
		}
	}
	return out, nil
}

// Compute runs the module over the dataset and scores the predictions.
func (s *EpochScoring) Compute(m Module, dset *Dataset) (float64, error) {
	wp, err := predictWindows(m, dset)
	if err != nil {
		return 0, err
	}
	if !s.Cropped {
		preds, err := AggregateCrops(wp.Preds)
		if err != nil {
			return 0, err
		}
		return s.Scorer.Score(preds, wp.Targets, wp.Labels)
	}
	trials, err := wp.GroupByTrial()
	if err != nil {
		return 0, err
	}
	preds, targets, labels, err := aggregateTrials(wp, trials)
	if err != nil {
		return 0, err
	}
	return s.Scorer.Score(preds, targets, labels)
}

// windowPreds collects per window predictions with their bookkeeping.
type windowPreds struct {
	Preds   *tensor.Dense
	Inds    []eeg.WindowIndex
	Targets []float32
	Labels  []int32
}

// predictWindows runs the model over every window of the dataset batch by
// batch and concatenates predictions with their window index bookkeeping.
func predictWindows(m Module, dset *Dataset) (*windowPreds, error) {
	dset.Rewind()
	wp := &windowPreds{}
	var backing []float32
	var rowShape []int
	for batch := 0; batch < dset.Batches(); batch++ {
		x, y, err := dset.NextBatch()
		if err != nil {
			return nil, err
		}
		yPred, err := m.Fprop(x)
		if err != nil {
			return nil, err
		}
		shp := yPred.Shape()
		if rowShape == nil {
			rowShape = append([]int{}, shp[1:]...)
		}
		backing = append(backing, yPred.Data().([]float32)...)
		wp.Inds = append(wp.Inds, dset.LastWindows()...)
		yd := y.Data().([]float32)
		dim := y.Shape()[1]
		for i := 0; i < shp[0]; i++ {
			wp.Targets = append(wp.Targets, yd[i*dim])
		}
		wp.Labels = append(wp.Labels, dset.LastLabels()...)
	}
	n := len(wp.Inds)
	wp.Preds = tensor.New(tensor.WithShape(append([]int{n}, rowShape...)...), tensor.WithBacking(backing))
	return wp, nil
}

// GroupByTrial splits the window sequence into runs of windows belonging
// to the same trial. A window numbered 0 starts a new trial. Within a
// trial the window numbers must increase by one and the start offsets
// must be strictly increasing.
func (wp *windowPreds) GroupByTrial() ([][]int, error) {
	var trials [][]int
	for i, ix := range wp.Inds {
		if ix.Number == 0 {
			trials = append(trials, []int{i})
			continue
		}
		if len(trials) == 0 {
			return nil, errors.Errorf("nnet: window %d has number %d but no trial is open", i, ix.Number)
		}
		cur := trials[len(trials)-1]
		prev := wp.Inds[cur[len(cur)-1]]
		if ix.Trial != prev.Trial || ix.Number != prev.Number+1 || ix.Start <= prev.Start {
			return nil, errors.Errorf("nnet: window indexes not regroupable at %d: %v follows %v", i, ix, prev)
		}
		trials[len(trials)-1] = append(cur, i)
	}
	return trials, nil
}

// aggregateTrials averages the window (and crop) predictions of each
// trial, giving one prediction row per trial.
func aggregateTrials(wp *windowPreds, trials [][]int) (*tensor.Dense, []float32, []int32, error) {
	shp := wp.Preds.Shape()
	out := shp[1]
	crops := 1
	if len(shp) == 3 {
		crops = shp[2]
	}
	src := wp.Preds.Data().([]float32)
	preds := make([]float32, len(trials)*out)
	targets := make([]float32, len(trials))
	labels := make([]int32, len(trials))
	for t, windows := range trials {
		for o := 0; o < out; o++ {
			sum := float32(0)
			for _, w := range windows {
				for k := 0; k < crops; k++ {
					sum += src[(w*out+o)*crops+k]
				}
			}
			preds[t*out+o] = sum / float32(len(windows)*crops)
		}
		first := windows[0]
		targets[t] = wp.Targets[first]
		labels[t] = wp.Labels[first]
	}
	return tensor.New(tensor.WithShape(len(trials), out), tensor.WithBacking(preds)), targets, labels, nil
}

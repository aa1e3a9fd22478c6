package nnet

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/marialco/braindecode-1/aug"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Phase of the estimator lifecycle.
type Phase int

const (
	Constructed Phase = iota
	Fitting
	Evaluating
	Predicting
)

func (p Phase) String() string {
	switch p {
	case Fitting:
		return "fitting"
	case Evaluating:
		return "evaluating"
	case Predicting:
		return "predicting"
	}
	return "constructed"
}

// Estimator wraps a model module with fit/predict semantics, scoring
// callbacks and optional batch augmentation. Regressor and Classifier
// embed it.
type Estimator struct {
	Conf   Config
	Module Module
	Loss   Loss
	Valid  Data
	Tester Tester

	pipeline aug.Compose
	rng      *rand.Rand
	phase    Phase
	fitted   bool
}

// newEstimator validates the configuration and the transform
// specification up front, before any data is touched.
func newEstimator(conf Config, module Module, loss Loss, transforms interface{}) (*Estimator, error) {
	if module == nil {
		return nil, errors.New("nnet: module must not be nil")
	}
	if loss == nil {
		return nil, errors.New("nnet: loss must not be nil")
	}
	pipeline, err := aug.Pipeline(transforms)
	if err != nil {
		return nil, err
	}
	return &Estimator{
		Conf:     conf,
		Module:   module,
		Loss:     loss,
		pipeline: pipeline,
		rng:      SetSeed(conf.RandSeed),
	}, nil
}

// Phase the estimator is currently in.
func (e *Estimator) Phase() Phase { return e.phase }

// Fitted reports whether Fit has completed at least once.
func (e *Estimator) Fitted() bool { return e.fitted }

// GetLoss delegates straight to the configured loss function.
func (e *Estimator) GetLoss(yPred, yTrue *tensor.Dense) (float64, error) {
	return e.Loss.Loss(yPred, yTrue)
}

// Fit trains the module on the windowed data. y optionally overrides the
// targets stored in the data set.
func (e *Estimator) Fit(data Data, y *tensor.Dense) error {
	tm, ok := e.Module.(TrainModule)
	if !ok {
		return errors.Errorf("nnet: module %T cannot be trained", e.Module)
	}
	e.phase = Fitting
	defer func() { e.phase = Constructed }()

	dset := NewDataset(data, e.Conf.TrainBatch, e.Conf.MaxSamples, e.rng)
	if y != nil {
		if err := dset.SetTargets(y); err != nil {
			return err
		}
	}
	loader, err := aug.NewLoader(dset, e.pipeline)
	if err != nil {
		return err
	}
	tester := e.Tester
	if tester == nil {
		testData := map[string]Data{"train": data}
		if e.Valid != nil {
			testData["valid"] = e.Valid
		}
		if tester, err = NewTestLogger(e.Conf, testData, e.rng); err != nil {
			return err
		}
	}
	start := time.Now()
	done := false
	for epoch := 1; epoch <= e.Conf.MaxEpoch && !done; epoch++ {
		loss, err := e.trainEpoch(tm, dset, loader)
		if err != nil {
			return err
		}
		e.phase = Evaluating
		done, err = tester.Test(e, epoch, loss, start)
		e.phase = Fitting
		if err != nil {
			return err
		}
	}
	e.fitted = true
	return nil
}

// Perform one training epoch, returns the mean loss prior to updating
// the weights.
func (e *Estimator) trainEpoch(tm TrainModule, dset *Dataset, loader *aug.Loader) (float64, error) {
	if e.Conf.Shuffle {
		dset.Shuffle()
	} else {
		dset.Rewind()
	}
	sum, count := 0.0, 0
	for batch := 0; batch < loader.Batches(); batch++ {
		x, y, err := loader.NextBatch()
		if err != nil {
			return 0, err
		}
		if e.Conf.DebugLevel >= 2 || (e.Conf.DebugLevel == 1 && batch == 0) {
			fmt.Printf("== train batch %d: x=%v y=%v ==\n", batch, x.Shape(), y.Shape())
		}
		lossVal, err := tm.Step(x, y, e.Loss, e.Conf.Eta)
		if err != nil {
			return 0, err
		}
		n := x.Shape()[0]
		sum += lossVal * float64(n)
		count += n
	}
	return sum / float64(count), nil
}

// PredictProba returns the raw module outputs for every window. In
// cropped mode with AggregatePredictions set, 3d outputs are averaged
// over the crop axis to give one value per window.
func (e *Estimator) PredictProba(data Data) (*tensor.Dense, error) {
	wp, err := e.predict(data)
	if err != nil {
		return nil, err
	}
	if e.Conf.Cropped && e.Conf.AggregatePredictions && len(wp.Preds.Shape()) == 3 {
		return AggregateCrops(wp.Preds)
	}
	return wp.Preds, nil
}

func (e *Estimator) predict(data Data) (*windowPreds, error) {
	e.phase = Predicting
	defer func() { e.phase = Constructed }()
	dset := NewDataset(data, e.Conf.TestBatch, 0, nil)
	return predictWindows(e.Module, dset)
}

// PredictTrials creates trialwise predictions from a cropped data set:
// one prediction matrix [outputs, crops] per trial, where the number of
// crops depends on the window layout and the receptive field of the
// module. If returnTargets is set the per trial targets are returned as
// well.
//
// When the estimator is not in cropped mode this degenerates to ordinary
// prediction with one window per returned trial, and a warning is logged.
func (e *Estimator) PredictTrials(data Data, returnTargets bool) ([]*tensor.Dense, []float32, error) {
	if !e.Conf.Cropped {
		log.Printf("warning: PredictTrials was designed to predict trials in cropped mode. " +
			"Calling it on a non-cropped estimator gives the same result as Predict.")
		wp, err := e.predict(data)
		if err != nil {
			return nil, nil, err
		}
		preds, err := AggregateCrops(wp.Preds)
		if err != nil {
			return nil, nil, err
		}
		n, out, _ := flatten2d(preds)
		src := preds.Data().([]float32)
		trials := make([]*tensor.Dense, n)
		for i := 0; i < n; i++ {
			row := append([]float32{}, src[i*out:(i+1)*out]...)
			trials[i] = tensor.New(tensor.WithShape(out, 1), tensor.WithBacking(row))
		}
		if !returnTargets {
			return trials, nil, nil
		}
		return trials, wp.Targets, nil
	}

	wp, err := e.predict(data)
	if err != nil {
		return nil, nil, err
	}
	groups, err := wp.GroupByTrial()
	if err != nil {
		return nil, nil, err
	}
	shp := wp.Preds.Shape()
	out := shp[1]
	crops := 1
	if len(shp) == 3 {
		crops = shp[2]
	}
	src := wp.Preds.Data().([]float32)
	trials := make([]*tensor.Dense, len(groups))
	targets := make([]float32, len(groups))
	for t, windows := range groups {
		total := len(windows) * crops
		buf := make([]float32, out*total)
		for wi, w := range windows {
			for o := 0; o < out; o++ {
				for k := 0; k < crops; k++ {
					buf[o*total+wi*crops+k] = src[(w*out+o)*crops+k]
				}
			}
			if wp.Targets[w] != wp.Targets[windows[0]] {
				return nil, nil, errors.Errorf("nnet: trial %d has inconsistent targets", t)
			}
		}
		trials[t] = tensor.New(tensor.WithShape(out, total), tensor.WithBacking(buf))
		targets[t] = wp.Targets[windows[0]]
	}
	if !returnTargets {
		return trials, nil, nil
	}
	return trials, targets, nil
}

// Set random number seed, or seed from the clock if seed <= 0
func SetSeed(seed int64) *rand.Rand {
	if seed <= 0 {
		seed = time.Now().UTC().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Exit in case of error
func CheckErr(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

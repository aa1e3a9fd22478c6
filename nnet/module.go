// Package nnet wraps an external neural network module with estimator
// semantics for EEG decoding: fitting, scoring callbacks, prediction and
// cropped trial aggregation.
package nnet

import (
	"math"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Module is the forward pass surface of the wrapped model. The input is a
// signal batch [batch, channels, time]. Trialwise models return
// [batch, outputs]; cropped models return [batch, outputs, crops] with one
// prediction per receptive field position.
type Module interface {
	Fprop(x *tensor.Dense) (*tensor.Dense, error)
}

// TrainModule is a module the estimator can update. Step performs one
// gradient update on the batch and returns the batch loss prior to the
// update.
type TrainModule interface {
	Module
	Step(x, y *tensor.Dense, loss Loss, eta float64) (float64, error)
}

// Loss computes a scalar loss and its gradient with respect to the
// predictions. yTrue rows are targets for regression or class labels for
// classification.
type Loss interface {
	Loss(yPred, yTrue *tensor.Dense) (float64, error)
	Grad(yPred, yTrue *tensor.Dense) (*tensor.Dense, error)
	String() string
}

// flatten2d checks yPred is [n, out] and returns its dims.
func flatten2d(yPred *tensor.Dense) (n, out int, err error) {
	shp := yPred.Shape()
	if len(shp) != 2 {
		return 0, 0, errors.Errorf("nnet: expect 2d predictions, got shape %v", shp)
	}
	return shp[0], shp[1], nil
}

// AggregateCrops averages a cropped prediction tensor [n, out, crops] over
// the crop axis. 2d input passes through unchanged.
func AggregateCrops(yPred *tensor.Dense) (*tensor.Dense, error) {
	shp := yPred.Shape()
	if len(shp) == 2 {
		return yPred, nil
	}
	if len(shp) != 3 {
		return nil, errors.Errorf("nnet: expect predictions of shape [n, out] or [n, out, crops], got %v", shp)
	}
	n, out, crops := shp[0], shp[1], shp[2]
	src := yPred.Data().([]float32)
	dst := make([]float32, n*out)
	for i := 0; i < n; i++ {
		for o := 0; o < out; o++ {
			sum := float32(0)
			for k := 0; k < crops; k++ {
				sum += src[(i*out+o)*crops+k]
			}
			dst[i*out+o] = sum / float32(crops)
		}
	}
	return tensor.New(tensor.WithShape(n, out), tensor.WithBacking(dst)), nil
}

// Mean squared error over all outputs.
type MSELoss struct{}

func (MSELoss) String() string { return "mse" }

func (MSELoss) Loss(yPred, yTrue *tensor.Dense) (float64, error) {
	p, t, err := lossOperands(yPred, yTrue)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for i := range p {
		d := float64(p[i] - t[i])
		sum += d * d
	}
	return sum / float64(len(p)), nil
}

func (MSELoss) Grad(yPred, yTrue *tensor.Dense) (*tensor.Dense, error) {
	n, out, err := flatten2d(yPred)
	if err != nil {
		return nil, err
	}
	p, t, err := lossOperands(yPred, yTrue)
	if err != nil {
		return nil, err
	}
	grad := make([]float32, len(p))
	scale := 2 / float32(len(p))
	for i := range p {
		grad[i] = scale * (p[i] - t[i])
	}
	return tensor.New(tensor.WithShape(n, out), tensor.WithBacking(grad)), nil
}

func lossOperands(yPred, yTrue *tensor.Dense) (p, t []float32, err error) {
	p = yPred.Data().([]float32)
	t = yTrue.Data().([]float32)
	if len(p) != len(t) {
		return nil, nil, errors.Errorf("nnet: prediction size %d does not match target size %d", len(p), len(t))
	}
	return p, t, nil
}

// Softmax cross entropy loss. yTrue is a [n, 1] tensor of class labels.
type CrossEntropyLoss struct{}

func (CrossEntropyLoss) String() string { return "cross_entropy" }

func (CrossEntropyLoss) Loss(yPred, yTrue *tensor.Dense) (float64, error) {
	n, out, err := flatten2d(yPred)
	if err != nil {
		return 0, err
	}
	p := yPred.Data().([]float32)
	labels := yTrue.Data().([]float32)
	if len(labels) != n {
		return 0, errors.Errorf("nnet: have %d labels for %d predictions", len(labels), n)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		probs := softmax(p[i*out : (i+1)*out])
		label := int(labels[i])
		if label < 0 || label >= out {
			return 0, errors.Errorf("nnet: label %d out of range for %d outputs", label, out)
		}
		sum -= logf(probs[label])
	}
	return sum / float64(n), nil
}

func (CrossEntropyLoss) Grad(yPred, yTrue *tensor.Dense) (*tensor.Dense, error) {
	n, out, err := flatten2d(yPred)
	if err != nil {
		return nil, err
	}
	p := yPred.Data().([]float32)
	labels := yTrue.Data().([]float32)
	if len(labels) != n {
		return nil, errors.Errorf("nnet: have %d labels for %d predictions", len(labels), n)
	}
	grad := make([]float32, n*out)
	for i := 0; i < n; i++ {
		probs := softmax(p[i*out : (i+1)*out])
		label := int(labels[i])
		if label < 0 || label >= out {
			return nil, errors.Errorf("nnet: label %d out of range for %d outputs", label, out)
		}
		for o := 0; o < out; o++ {
			g := probs[o]
			if o == label {
				g -= 1
			}
			grad[i*out+o] = g / float32(n)
		}
	}
	return tensor.New(tensor.WithShape(n, out), tensor.WithBacking(grad)), nil
}

func softmax(v []float32) []float32 {
	max := v[0]
	for _, x := range v[1:] {
		if x > max {
			max = x
		}
	}
	out := make([]float32, len(v))
	sum := float32(0)
	for i, x := range v {
		out[i] = float32(math.Exp(float64(x - max)))
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func logf(x float32) float64 {
	return math.Log(float64(x))
}

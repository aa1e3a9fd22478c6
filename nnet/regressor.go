package nnet

import (
	"gorgonia.org/tensor"
)

// Regressor is an estimator with regression semantics: targets are real
// valued and predictions are the raw module outputs.
type Regressor struct {
	*Estimator
}

// NewRegressor creates a regression estimator around the module using
// mean squared error loss. transforms is an optional augmentation
// specification as accepted by aug.NewLoader.
func NewRegressor(conf Config, module Module, transforms interface{}) (*Regressor, error) {
	e, err := newEstimator(conf, module, MSELoss{}, transforms)
	if err != nil {
		return nil, err
	}
	return &Regressor{Estimator: e}, nil
}

// Fit trains on the data. A 1d target vector is promoted to a column
// before fitting, to match the batch layout the module expects.
func (r *Regressor) Fit(data Data, y *tensor.Dense) error {
	if y != nil && len(y.Shape()) == 1 {
		n := y.Shape()[0]
		col := append([]float32{}, y.Data().([]float32)...)
		y = tensor.New(tensor.WithShape(n, 1), tensor.WithBacking(col))
	}
	return r.Estimator.Fit(data, y)
}

// Predict returns one prediction row per window. Same values as
// PredictProba: regression outputs are not probabilities.
func (r *Regressor) Predict(data Data) (*tensor.Dense, error) {
	yPred, err := r.PredictProba(data)
	if err != nil {
		return nil, err
	}
	return AggregateCrops(yPred)
}

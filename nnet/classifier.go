package nnet

// Classifier is an estimator with classification semantics: targets are
// class labels and Predict returns the most probable class per window.
type Classifier struct {
	*Estimator
}

// NewClassifier creates a classification estimator around the module
// using softmax cross entropy loss. transforms is an optional
// augmentation specification as accepted by aug.NewLoader.
func NewClassifier(conf Config, module Module, transforms interface{}) (*Classifier, error) {
	e, err := newEstimator(conf, module, CrossEntropyLoss{}, transforms)
	if err != nil {
		return nil, err
	}
	return &Classifier{Estimator: e}, nil
}

// Predict returns the predicted class per window, aggregating over crops
// first in cropped mode.
func (c *Classifier) Predict(data Data) ([]int32, error) {
	yPred, err := c.PredictProba(data)
	if err != nil {
		return nil, err
	}
	agg, err := AggregateCrops(yPred)
	if err != nil {
		return nil, err
	}
	return argmaxRows(agg)
}

// Package classifier holds the pre-fitted binary churn estimators the
// dashboard runs inference with. Models are trained elsewhere and loaded
// from a MessagePack envelope; nothing here fits parameters.
package classifier

import (
	"errors"
	"fmt"
)

// Model kinds understood by the envelope decoder.
const (
	KindRandomForest       = "random_forest"
	KindDecisionTree       = "decision_tree"
	KindLogisticRegression = "logistic_regression"
)

// PositiveClass is the label that marks a churned customer.
const PositiveClass = 1

var (
	// ErrFeatureMismatch is returned when a row's width differs from the model's input arity.
	ErrFeatureMismatch = errors.New("classifier: feature count mismatch")
	// ErrUnknownKind is returned when an envelope names an unsupported model.
	ErrUnknownKind = errors.New("classifier: unknown model kind")
	// ErrInvalidModel is returned when an envelope is structurally broken.
	ErrInvalidModel = errors.New("classifier: invalid model")
)

// Classifier is a fitted binary classifier.
type Classifier interface {
	Kind() string
	NumFeatures() int
	// Predict returns the predicted class (0 or 1) for every row.
	Predict(X [][]float64) ([]int, error)
	// PredictProba returns the positive-class probability for every row.
	PredictProba(X [][]float64) ([]float64, error)
}

// ImportanceProvider is implemented by models that expose a static
// per-feature importance vector aligned with the input column order.
type ImportanceProvider interface {
	FeatureImportances() []float64
}

func checkWidth(X [][]float64, want int) error {
	for i, row := range X {
		if len(row) != want {
			return fmt.Errorf("%w: row %d has %d values, model expects %d", ErrFeatureMismatch, i, len(row), want)
		}
	}
	return nil
}

// Package testutil provides stub classifiers and artifact fixtures for tests.
package testutil

import (
	"fmt"
	"math"

	"github.com/churn-dashboard/backend/internal/classifier"
)

// StubClassifier scores rows with a caller-supplied function.
type StubClassifier struct {
	Width int
	Score func(row []float64) float64
	Err   error // returned by every prediction call when set

	Calls int
}

// NewStubClassifier returns a stub whose probability is the first feature
// clamped to [0, 1]. NaN scores 0.
func NewStubClassifier(width int) *StubClassifier {
	return &StubClassifier{
		Width: width,
		Score: func(row []float64) float64 {
			if len(row) == 0 || math.IsNaN(row[0]) {
				return 0
			}
			return math.Max(0, math.Min(1, row[0]))
		},
	}
}

func (s *StubClassifier) Kind() string     { return "stub" }
func (s *StubClassifier) NumFeatures() int { return s.Width }

func (s *StubClassifier) PredictProba(X [][]float64) ([]float64, error) {
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != s.Width {
			return nil, fmt.Errorf("%w: row %d has %d values", classifier.ErrFeatureMismatch, i, len(row))
		}
		out[i] = s.Score(row)
	}
	return out, nil
}

func (s *StubClassifier) Predict(X [][]float64) ([]int, error) {
	proba, err := s.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= 0.5 {
			out[i] = classifier.PositiveClass
		}
	}
	return out, nil
}

// StubForest is a StubClassifier that also reports feature importances.
type StubForest struct {
	*StubClassifier
	Importances []float64
}

func (s *StubForest) FeatureImportances() []float64 {
	return append([]float64(nil), s.Importances...)
}

// NewModel wraps a classifier the way the envelope decoder does.
func NewModel(clf classifier.Classifier, featureNames []string) *classifier.Model {
	return &classifier.Model{
		Classifier:   clf,
		Version:      "test",
		FeatureNames: featureNames,
	}
}

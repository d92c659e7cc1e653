package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Logistic is a binary logistic regression. It has no importance vector,
// so it does not implement ImportanceProvider.
//
// Missing (NaN) inputs contribute nothing to the linear term, which is the
// same as imputing the training mean for standardised features.
type Logistic struct {
	coef      *mat.VecDense
	intercept float64
}

func newLogistic(coef []float64, intercept float64) (*Logistic, error) {
	if len(coef) == 0 {
		return nil, fmt.Errorf("%w: logistic regression has no coefficients", ErrInvalidModel)
	}
	for i, c := range coef {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("%w: coefficient %d is not finite", ErrInvalidModel, i)
		}
	}
	return &Logistic{
		coef:      mat.NewVecDense(len(coef), append([]float64(nil), coef...)),
		intercept: intercept,
	}, nil
}

func (m *Logistic) Kind() string     { return KindLogisticRegression }
func (m *Logistic) NumFeatures() int { return m.coef.Len() }

func (m *Logistic) PredictProba(X [][]float64) ([]float64, error) {
	if err := checkWidth(X, m.coef.Len()); err != nil {
		return nil, err
	}
	if len(X) == 0 {
		return []float64{}, nil
	}

	p := m.coef.Len()
	data := make([]float64, 0, len(X)*p)
	for _, row := range X {
		for _, v := range row {
			if math.IsNaN(v) {
				v = 0
			}
			data = append(data, v)
		}
	}

	var z mat.VecDense
	z.MulVec(mat.NewDense(len(X), p, data), m.coef)

	out := make([]float64, len(X))
	for i := range out {
		out[i] = sigmoid(z.AtVec(i) + m.intercept)
	}
	return out, nil
}

func (m *Logistic) Predict(X [][]float64) ([]int, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= 0.5 {
			out[i] = PositiveClass
		}
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

package dashboard

import (
	"errors"
	"fmt"

	"github.com/churn-dashboard/backend/internal/models"
)

// ErrIndexOutOfRange is returned for a record index outside [0, Bound].
var ErrIndexOutOfRange = errors.New("record index out of range")

// RecordView is the single-record inspector output.
type RecordView struct {
	Index       int               `json:"index" msgpack:"index"`
	Bound       int               `json:"bound" msgpack:"bound"`
	Prediction  models.Prediction `json:"prediction" msgpack:"prediction"`
	ActualClass int               `json:"actualClass" msgpack:"actualClass"`
	ActualLabel string            `json:"actualLabel" msgpack:"actualLabel"`
	Record      []models.Cell     `json:"record" msgpack:"record"` // display row, identifier included
}

// Inspect scores reference row i.
func (s *State) Inspect(i int) (*RecordView, error) {
	if i < 0 || i > s.Bound() {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrIndexOutOfRange, i, s.Bound())
	}

	a := s.artifacts
	row := a.Features.Row(i)

	classes, err := a.Model.Predict(row)
	if err != nil {
		return nil, fmt.Errorf("predict record %d: %w", i, err)
	}
	proba, err := a.Model.PredictProba(row)
	if err != nil {
		return nil, fmt.Errorf("predict record %d: %w", i, err)
	}

	actual := a.Labels[i]
	return &RecordView{
		Index: i,
		Bound: s.Bound(),
		Prediction: models.Prediction{
			Class:       classes[0],
			Label:       a.LabelNames.Name(classes[0]),
			Probability: RoundProbability(proba[0]),
		},
		ActualClass: actual,
		ActualLabel: a.LabelNames.Name(actual),
		Record:      a.Display.RecordCells(i),
	}, nil
}

// Clamp limits i to the selectable range.
func (s *State) Clamp(i int) int {
	if i < 0 {
		return 0
	}
	if b := s.Bound(); i > b {
		return b
	}
	return i
}

package dashboard

import (
	"errors"
	"fmt"
	"sort"

	"github.com/churn-dashboard/backend/internal/models"
)

// ErrImportanceUnavailable is returned when the classifier has no static
// feature importances.
var ErrImportanceUnavailable = errors.New("feature importance is not available for this model")

// ImportanceView is the importance panel content.
type ImportanceView struct {
	Available bool                     `json:"available" msgpack:"available"`
	Entries   []models.ImportanceEntry `json:"entries" msgpack:"entries"`
	Message   string                   `json:"message,omitempty" msgpack:"message,omitempty"`
}

// TopImportance returns at most n features ordered by descending
// importance. Ties keep the reference column order.
func (s *State) TopImportance(n int) ([]models.ImportanceEntry, error) {
	values, ok := s.artifacts.Model.Importances()
	if !ok {
		return nil, ErrImportanceUnavailable
	}

	columns := s.artifacts.Schema.Columns
	if len(values) != len(columns) {
		return nil, fmt.Errorf("model reports %d importances for %d features", len(values), len(columns))
	}

	entries := make([]models.ImportanceEntry, len(columns))
	for i, c := range columns {
		entries[i] = models.ImportanceEntry{Feature: c, Importance: values[i]}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Importance > entries[j].Importance
	})

	if n >= 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries, nil
}

// Importance builds the panel for the configured top N.
func (s *State) Importance() ImportanceView {
	entries, err := s.TopImportance(s.topN)
	if err != nil {
		return ImportanceView{Entries: []models.ImportanceEntry{}, Message: err.Error()}
	}
	return ImportanceView{Available: true, Entries: entries}
}

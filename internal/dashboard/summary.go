package dashboard

import (
	"math"

	"github.com/montanaflynn/stats"
)

// FeatureSummary describes one reference column, ignoring placeholders.
type FeatureSummary struct {
	Feature string  `json:"feature" msgpack:"feature"`
	Count   int     `json:"count" msgpack:"count"`
	Missing int     `json:"missing" msgpack:"missing"`
	Mean    float64 `json:"mean" msgpack:"mean"`
	Median  float64 `json:"median" msgpack:"median"`
	StdDev  float64 `json:"stdDev" msgpack:"stdDev"`
	Min     float64 `json:"min" msgpack:"min"`
	Max     float64 `json:"max" msgpack:"max"`
}

// DatasetSummary is the reference dataset panel.
type DatasetSummary struct {
	Rows      int              `json:"rows" msgpack:"rows"`
	Churned   int              `json:"churned" msgpack:"churned"`
	ChurnRate float64          `json:"churnRate" msgpack:"churnRate"`
	Features  []FeatureSummary `json:"features" msgpack:"features"`
}

// Summary computes descriptive statistics over the reference tables.
func (s *State) Summary() DatasetSummary {
	a := s.artifacts
	out := DatasetSummary{
		Rows:     a.RowCount(),
		Features: make([]FeatureSummary, 0, a.Schema.Len()),
	}

	for _, y := range a.Labels {
		out.Churned += y
	}
	if out.Rows > 0 {
		out.ChurnRate = float64(out.Churned) / float64(out.Rows)
	}

	for j, name := range a.Schema.Columns {
		column := make(stats.Float64Data, 0, out.Rows)
		for _, row := range a.Features {
			if !math.IsNaN(row[j]) {
				column = append(column, row[j])
			}
		}
		out.Features = append(out.Features, summarize(name, column, out.Rows))
	}
	return out
}

func summarize(name string, data stats.Float64Data, rows int) FeatureSummary {
	fs := FeatureSummary{Feature: name, Count: data.Len(), Missing: rows - data.Len()}
	if data.Len() == 0 {
		return fs
	}

	// errors only occur on empty input, handled above
	fs.Mean, _ = data.Mean()
	fs.Median, _ = data.Median()
	fs.StdDev, _ = data.StandardDeviation()
	fs.Min, _ = data.Min()
	fs.Max, _ = data.Max()
	return fs
}

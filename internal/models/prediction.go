package models

// Prediction is the rendered outcome for one customer row.
type Prediction struct {
	Class       int     `json:"class" msgpack:"class"`
	Label       string  `json:"label" msgpack:"label"`
	Probability float64 `json:"probability" msgpack:"probability"` // positive class, two decimals
}

// ImportanceEntry pairs a feature with its static importance score.
type ImportanceEntry struct {
	Feature    string  `json:"feature" msgpack:"feature"`
	Importance float64 `json:"importance" msgpack:"importance"`
}

// WarningKind identifies a schema mismatch warning.
type WarningKind string

const (
	WarningMissingColumns WarningKind = "missing_columns"
	WarningExtraColumns   WarningKind = "extra_columns"
)

// Warning is an informational schema mismatch banner.
type Warning struct {
	Kind    WarningKind `json:"kind" msgpack:"kind"`
	Columns []string    `json:"columns" msgpack:"columns"`
	Message string      `json:"message" msgpack:"message"`
}

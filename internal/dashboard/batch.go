package dashboard

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/churn-dashboard/backend/internal/models"
	"github.com/churn-dashboard/backend/internal/schema"
)

// MissingColumnPolicy decides what happens when an upload lacks reference
// columns.
type MissingColumnPolicy string

const (
	// PolicyImpute fills missing columns with placeholders and scores anyway.
	PolicyImpute MissingColumnPolicy = "impute"
	// PolicyReject fails the batch.
	PolicyReject MissingColumnPolicy = "reject"
)

// ParsePolicy parses a policy name. Empty selects PolicyImpute.
func ParsePolicy(s string) (MissingColumnPolicy, error) {
	switch MissingColumnPolicy(s) {
	case "", PolicyImpute:
		return PolicyImpute, nil
	case PolicyReject:
		return PolicyReject, nil
	}
	return "", fmt.Errorf("unknown missing column policy %q", s)
}

const (
	StatusScored = "scored"
	StatusEmpty  = "empty"
	StatusError  = "error"

	NoticeLoaded = "External data loaded"
	NoticeNoRows = "uploaded file contains no rows"
)

// BatchRow is one scored upload row.
type BatchRow struct {
	Values         []string `json:"values" msgpack:"values"` // reference columns after reindexing
	Class          int      `json:"class" msgpack:"class"`
	Prediction     string   `json:"prediction" msgpack:"prediction"`
	Probability    float64  `json:"probability" msgpack:"probability"`
	Imputed        bool     `json:"imputed" msgpack:"imputed"`
	ImputedColumns []string `json:"imputedColumns,omitempty" msgpack:"imputedColumns,omitempty"`
}

// BatchView is the batch scorer output. Warnings are reported whether or
// not scoring succeeded; Error and Rows are mutually exclusive.
type BatchView struct {
	File     models.FileInfo  `json:"file" msgpack:"file"`
	Columns  []string         `json:"columns" msgpack:"columns"`
	Rows     []BatchRow       `json:"rows" msgpack:"rows"`
	Warnings []models.Warning `json:"warnings" msgpack:"warnings"`
	Notice   string           `json:"notice,omitempty" msgpack:"notice,omitempty"`
	Error    string           `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Failed reports whether the batch ended with an error.
func (v *BatchView) Failed() bool {
	return v.Error != ""
}

// ScoreBatch parses, reconciles and scores an uploaded file.
func (s *State) ScoreBatch(name string, data []byte) *BatchView {
	view := &BatchView{
		File: models.FileInfo{
			ID:         uuid.New().String(),
			Name:       name,
			Size:       int64(len(data)),
			UploadedAt: time.Now(),
		},
		Columns:  s.artifacts.Schema.Columns,
		Rows:     []BatchRow{},
		Warnings: []models.Warning{},
	}
	log := s.logger.With("batch", view.File.ID, "file", name)

	if err := s.scoreBatch(view, data); err != nil {
		view.Rows = []BatchRow{}
		view.Notice = ""
		view.Error = err.Error()
		view.File.Status = StatusError
		log.Warn("batch failed", "error", err, "warnings", len(view.Warnings))
		return view
	}
	log.Info("batch scored", "rows", len(view.Rows), "warnings", len(view.Warnings))
	return view
}

func (s *State) scoreBatch(view *BatchView, data []byte) error {
	a := s.artifacts

	frame, err := s.parsers.Parse(view.File.Name, bytes.NewReader(data))
	if err != nil {
		return err
	}
	upload := frame.DropColumn(a.IdentifierColumn)

	missing, extra := a.Schema.Diff(upload.Columns)
	view.Warnings = schemaWarnings(missing, extra)

	rec, err := a.Schema.Reconcile(upload)
	if err != nil {
		return err
	}
	if len(missing) > 0 && s.policy == PolicyReject {
		return fmt.Errorf("required columns missing from upload: %s", schema.FormatColumnSet(missing))
	}

	if rec.Frame.Len() == 0 {
		view.File.Status = StatusEmpty
		view.Notice = NoticeNoRows
		return nil
	}

	X, mask, err := a.Schema.EncodeFrame(rec.Frame)
	if err != nil {
		return err
	}
	classes, err := a.Model.Predict(X)
	if err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}
	proba, err := a.Model.PredictProba(X)
	if err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}

	rows := make([]BatchRow, len(X))
	for i := range X {
		var imputed []string
		for j, isMissing := range mask[i] {
			if isMissing {
				imputed = append(imputed, rec.Frame.Columns[j])
			}
		}
		rows[i] = BatchRow{
			Values:         rec.Frame.Records[i],
			Class:          classes[i],
			Prediction:     a.LabelNames.Name(classes[i]),
			Probability:    RoundProbability(proba[i]),
			Imputed:        len(imputed) > 0,
			ImputedColumns: imputed,
		}
	}

	view.Rows = rows
	view.Notice = NoticeLoaded
	view.File.Status = StatusScored
	return nil
}

func schemaWarnings(missing, extra []string) []models.Warning {
	warnings := []models.Warning{}
	if len(missing) > 0 {
		warnings = append(warnings, models.Warning{
			Kind:    models.WarningMissingColumns,
			Columns: missing,
			Message: "Missing columns: " + schema.FormatColumnSet(missing),
		})
	}
	if len(extra) > 0 {
		warnings = append(warnings, models.Warning{
			Kind:    models.WarningExtraColumns,
			Columns: extra,
			Message: "Extra columns: " + schema.FormatColumnSet(extra),
		})
	}
	return warnings
}

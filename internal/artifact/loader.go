// Package artifact loads the fitted classifier and its reference tables
// and validates that they agree with each other.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/churn-dashboard/backend/internal/classifier"
	"github.com/churn-dashboard/backend/internal/models"
	"github.com/churn-dashboard/backend/internal/schema"
)

// DefaultIdentifierColumn is the customer key carried by the reference tables.
const DefaultIdentifierColumn = "customer_unique_id"

var (
	ErrNoRows         = errors.New("feature table has no rows")
	ErrLabelMismatch  = errors.New("label table does not match feature table")
	ErrSchemaMismatch = errors.New("classifier features do not match the feature table")
)

// Paths locates the artifacts on disk. Manifest is optional.
type Paths struct {
	Model    string
	Features string
	Labels   string
	Manifest string
}

// Artifacts is everything the dashboard reads at startup.
type Artifacts struct {
	Model            *classifier.Model
	Schema           *schema.Schema
	Display          *models.Frame // feature table as loaded, identifier included
	Features         models.Matrix // inference copy, identifier dropped
	Labels           []int
	LabelNames       LabelNames
	IdentifierColumn string
	ModelVersion     string
}

// RowCount returns the number of reference rows.
func (a *Artifacts) RowCount() int {
	return len(a.Features)
}

// Loader reads and validates artifacts.
type Loader struct {
	tables     *TableRegistry
	identifier string
	logger     *slog.Logger
}

// NewLoader creates a loader. An empty identifier selects the default.
func NewLoader(identifier string, logger *slog.Logger) *Loader {
	if identifier == "" {
		identifier = DefaultIdentifierColumn
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		tables:     NewTableRegistry(),
		identifier: identifier,
		logger:     logger.WithGroup("artifact"),
	}
}

// Tables exposes the table reader registry for extension.
func (l *Loader) Tables() *TableRegistry {
	return l.tables
}

// Load reads every artifact and checks that they are mutually consistent.
// Any error leaves no partial state behind.
func (l *Loader) Load(ctx context.Context, p Paths) (*Artifacts, error) {
	a := &Artifacts{
		IdentifierColumn: l.identifier,
		LabelNames:       DefaultLabelNames,
	}

	var manifest *Manifest
	if p.Manifest != "" {
		m, err := LoadManifest(p.Manifest)
		if err != nil {
			return nil, err
		}
		manifest = m
		a.LabelNames = m.Labels
		a.ModelVersion = m.ModelVersion
		if m.IdentifierColumn != "" {
			a.IdentifierColumn = m.IdentifierColumn
		}
	}

	model, err := l.loadModel(p.Model)
	if err != nil {
		return nil, err
	}
	a.Model = model
	if model.Version != "" {
		a.ModelVersion = model.Version
	}

	display, err := l.tables.Read(ctx, p.Features)
	if err != nil {
		return nil, fmt.Errorf("failed to load features: %w", err)
	}
	if display.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", p.Features, ErrNoRows)
	}
	a.Display = display

	inference := display.DropColumn(a.IdentifierColumn)
	if err := checkFeatureNames(model, manifest, inference.Columns); err != nil {
		return nil, err
	}

	s, err := schema.New(inference.Columns, model.Categories)
	if err != nil {
		return nil, fmt.Errorf("invalid feature table: %w", err)
	}
	X, _, err := s.EncodeFrame(inference)
	if err != nil {
		return nil, fmt.Errorf("invalid feature table: %w", err)
	}
	a.Schema = s
	a.Features = X

	labels, err := l.loadLabels(ctx, p.Labels, a.IdentifierColumn)
	if err != nil {
		return nil, err
	}
	if len(labels) != len(X) {
		return nil, fmt.Errorf("%w: %d labels for %d feature rows", ErrLabelMismatch, len(labels), len(X))
	}
	a.Labels = labels

	l.logger.Info("artifacts loaded",
		"model", model.Kind(),
		"version", a.ModelVersion,
		"rows", len(X),
		"features", s.Len(),
	)
	return a, nil
}

func (l *Loader) loadModel(path string) (*classifier.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model: %w", err)
	}
	defer f.Close()

	model, err := classifier.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", path, err)
	}
	return model, nil
}

// checkFeatureNames compares the classifier's expected columns with the
// feature table. Names are authoritative when known, arity otherwise.
func checkFeatureNames(model *classifier.Model, manifest *Manifest, columns []string) error {
	expected := model.FeatureNames
	if len(expected) == 0 && manifest != nil {
		expected = manifest.Features
	}

	if len(expected) > 0 {
		if slices.Equal(expected, columns) {
			return nil
		}
		missing, extra := diff(expected, columns)
		if len(missing) == 0 && len(extra) == 0 {
			return fmt.Errorf("%w: same columns in a different order (expected %s)", ErrSchemaMismatch, strings.Join(expected, ", "))
		}
		return fmt.Errorf("%w: missing %s, unexpected %s", ErrSchemaMismatch,
			schema.FormatColumnSet(missing), schema.FormatColumnSet(extra))
	}

	if n := model.NumFeatures(); n > 0 && n != len(columns) {
		return fmt.Errorf("%w: classifier expects %d features, table has %d", ErrSchemaMismatch, n, len(columns))
	}
	return nil
}

func diff(expected, actual []string) (missing, extra []string) {
	for _, c := range expected {
		if !slices.Contains(actual, c) {
			missing = append(missing, c)
		}
	}
	for _, c := range actual {
		if !slices.Contains(expected, c) {
			extra = append(extra, c)
		}
	}
	return missing, extra
}

func (l *Loader) loadLabels(ctx context.Context, path, identifier string) ([]int, error) {
	frame, err := l.tables.Read(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load labels: %w", err)
	}
	frame = frame.DropColumn(identifier)
	if len(frame.Columns) != 1 {
		return nil, fmt.Errorf("%w: label table must have one column, found %d", ErrLabelMismatch, len(frame.Columns))
	}

	labels := make([]int, frame.Len())
	for i, rec := range frame.Records {
		v, err := parseLabel(rec[0])
		if err != nil {
			return nil, fmt.Errorf("label row %d: %w", i, err)
		}
		labels[i] = v
	}
	return labels, nil
}

func parseLabel(raw string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true":
		return 1, nil
	case "0", "false":
		return 0, nil
	}
	// numeric labels stored as floats, e.g. "1.0"
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err == nil && (f == 0 || f == 1) {
		return int(f), nil
	}
	return 0, fmt.Errorf("%q is not a binary label", raw)
}

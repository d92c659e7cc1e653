// Package schema describes the reference feature schema a classifier was
// trained on and converts raw tabular cells into inference inputs.
package schema

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/churn-dashboard/backend/internal/models"
)

var (
	ErrEmptySchema     = errors.New("schema: no feature columns")
	ErrDuplicateColumn = errors.New("schema: duplicate column")
	ErrUnencodable     = errors.New("schema: value cannot be encoded")
)

// Schema is the ordered reference column list plus categorical level lists.
type Schema struct {
	Columns    []string
	Categories map[string][]string

	index  map[string]int
	levels map[string]map[string]float64
}

// New builds a schema. Categories may be nil; a categorical value is
// encoded as the position of its level in the column's list.
func New(columns []string, categories map[string][]string) (*Schema, error) {
	if len(columns) == 0 {
		return nil, ErrEmptySchema
	}

	s := &Schema{
		Columns:    append([]string(nil), columns...),
		Categories: categories,
		index:      make(map[string]int, len(columns)),
		levels:     make(map[string]map[string]float64, len(categories)),
	}
	for i, c := range columns {
		if _, dup := s.index[c]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c)
		}
		s.index[c] = i
	}
	for col, levels := range categories {
		m := make(map[string]float64, len(levels))
		for code, level := range levels {
			m[level] = float64(code)
		}
		s.levels[col] = m
	}
	return s, nil
}

// Len returns the number of reference columns.
func (s *Schema) Len() int {
	return len(s.Columns)
}

// Contains reports whether name is a reference column.
func (s *Schema) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

// IsMissing reports whether a raw cell denotes an absent value.
func IsMissing(raw string) bool {
	switch strings.TrimSpace(raw) {
	case "", "NA", "N/A", "NaN", "nan", "null", "NULL", "None":
		return true
	}
	return false
}

// Encode converts one raw cell of a reference column to its numeric form.
// Missing cells become NaN.
func (s *Schema) Encode(column, raw string) (float64, error) {
	if IsMissing(raw) {
		return models.Missing(), nil
	}
	v := strings.TrimSpace(raw)

	if levels, ok := s.levels[column]; ok {
		if code, ok := levels[v]; ok {
			return code, nil
		}
	}
	switch strings.ToLower(v) {
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: column %q value %q", ErrUnencodable, column, raw)
	}
	return f, nil
}

// EncodeFrame converts a frame whose columns are exactly the reference
// columns into a matrix. The returned mask marks cells that were missing.
func (s *Schema) EncodeFrame(f *models.Frame) (models.Matrix, [][]bool, error) {
	if len(f.Columns) != len(s.Columns) {
		return nil, nil, fmt.Errorf("schema: frame has %d columns, schema has %d", len(f.Columns), len(s.Columns))
	}
	for i, c := range f.Columns {
		if c != s.Columns[i] {
			return nil, nil, fmt.Errorf("schema: column %d is %q, schema expects %q", i, c, s.Columns[i])
		}
	}

	X := make(models.Matrix, len(f.Records))
	mask := make([][]bool, len(f.Records))
	for i, rec := range f.Records {
		row := make([]float64, len(s.Columns))
		missing := make([]bool, len(s.Columns))
		for j, col := range s.Columns {
			v, err := s.Encode(col, rec[j])
			if err != nil {
				return nil, nil, fmt.Errorf("row %d: %w", i, err)
			}
			row[j] = v
			missing[j] = math.IsNaN(v)
		}
		X[i] = row
		mask[i] = missing
	}
	return X, mask, nil
}

package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/churn-dashboard/backend/internal/models"
)

// Reconciliation is an upload aligned to the reference schema.
type Reconciliation struct {
	// Frame has exactly the reference columns in reference order.
	// Cells of missing columns are empty.
	Frame   *models.Frame
	Missing []string // reference columns absent from the upload, reference order
	Extra   []string // upload columns absent from the reference, upload order
}

// Diff compares raw upload columns against the reference schema.
func (s *Schema) Diff(columns []string) (missing, extra []string) {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
		if !s.Contains(c) {
			extra = append(extra, c)
		}
	}
	for _, c := range s.Columns {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing, extra
}

// Reconcile reindexes an upload to the reference columns. Extra columns are
// dropped and missing columns are filled with empty (placeholder) cells;
// inference proceeds on the result. Duplicate upload columns are an error
// because the reindex would be ambiguous.
func (s *Schema) Reconcile(upload *models.Frame) (*Reconciliation, error) {
	seen := make(map[string]int, len(upload.Columns))
	for i, c := range upload.Columns {
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("%w: %q appears more than once in the upload", ErrDuplicateColumn, c)
		}
		seen[c] = i
	}

	missing, extra := s.Diff(upload.Columns)

	source := make([]int, len(s.Columns))
	for j, c := range s.Columns {
		if i, ok := seen[c]; ok {
			source[j] = i
		} else {
			source[j] = -1
		}
	}

	out := &models.Frame{
		Columns: append([]string(nil), s.Columns...),
		Records: make([][]string, len(upload.Records)),
	}
	for r, rec := range upload.Records {
		row := make([]string, len(s.Columns))
		for j, i := range source {
			if i >= 0 {
				row[j] = rec[i]
			}
		}
		out.Records[r] = row
	}

	return &Reconciliation{Frame: out, Missing: missing, Extra: extra}, nil
}

// FormatColumnSet renders columns as a set literal, e.g. "{age, tenure}".
// Columns are sorted so messages are stable.
func FormatColumnSet(columns []string) string {
	sorted := append([]string(nil), columns...)
	sort.Strings(sorted)
	return "{" + strings.Join(sorted, ", ") + "}"
}

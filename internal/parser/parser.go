// Package parser reads uploaded tabular files into frames.
package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/churn-dashboard/backend/internal/models"
)

var (
	// ErrEmptyFile is returned for uploads without a header row.
	ErrEmptyFile = errors.New("file is empty")
	// ErrNotTabular is returned when the content is not text or a workbook.
	ErrNotTabular = errors.New("file is not a tabular document")
)

// Parser defines the interface for upload parsers.
type Parser interface {
	// Name returns the unique name of the parser.
	Name() string
	// CanParse returns true if this parser handles the given file name.
	CanParse(fileName string) bool
	// Parse reads the whole document into a frame.
	Parse(r io.Reader) (*models.Frame, error)
}

// ParseError wraps a parser failure with the file it came from.
type ParseError struct {
	File   string
	Parser string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s as %s: %v", e.File, e.Parser, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// normalizeHeader trims header names, names blank ones after their position
// and disambiguates repeats with a numeric suffix ("a", "a.1", "a.2").
func normalizeHeader(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			base := name
			for {
				n++
				name = fmt.Sprintf("%s.%d", base, n)
				if _, taken := seen[name]; !taken {
					break
				}
			}
			seen[base] = n
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}

// fitRecord pads short rows with empty cells; long rows are an error.
func fitRecord(rec []string, width, line int) ([]string, error) {
	switch {
	case len(rec) == width:
		return rec, nil
	case len(rec) > width:
		return nil, fmt.Errorf("row %d has %d fields, header has %d", line, len(rec), width)
	}
	padded := make([]string, width)
	copy(padded, rec)
	return padded, nil
}

func extension(fileName string) string {
	return strings.ToLower(filepath.Ext(fileName))
}

package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/churn-dashboard/backend/internal/models"
)

// Registry holds all available parsers and picks one by file name.
type Registry struct {
	parsers  []Parser
	fallback Parser
}

// Global registry instance
var globalRegistry = NewRegistry()

func NewRegistry() *Registry {
	csvParser := NewCSVParser()
	return &Registry{
		parsers: []Parser{
			NewXLSXParser(),
			csvParser,
		},
		fallback: csvParser,
	}
}

// GetGlobalRegistry returns the singleton registry.
func GetGlobalRegistry() *Registry {
	return globalRegistry
}

// Register adds a new parser to the registry.
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// FindParser returns the parser for a file name. Unknown extensions are
// treated as CSV.
func (r *Registry) FindParser(fileName string) Parser {
	for _, p := range r.parsers {
		if p.CanParse(fileName) {
			return p
		}
	}
	return r.fallback
}

// GetParserByName returns a parser by its name.
func (r *Registry) GetParserByName(name string) (Parser, error) {
	name = strings.ToLower(name)
	for _, p := range r.parsers {
		if strings.ToLower(p.Name()) == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("parser not found: %s", name)
}

// Parse detects the parser for fileName and reads the upload.
func (r *Registry) Parse(fileName string, src io.Reader) (*models.Frame, error) {
	p := r.FindParser(fileName)
	frame, err := p.Parse(src)
	if err != nil {
		return nil, &ParseError{File: fileName, Parser: p.Name(), Err: err}
	}
	return frame, nil
}

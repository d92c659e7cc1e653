// Package dashboard implements the interactive views of the churn
// dashboard on top of the loaded artifacts.
package dashboard

import (
	"log/slog"
	"math"

	"github.com/churn-dashboard/backend/internal/artifact"
	"github.com/churn-dashboard/backend/internal/parser"
)

const (
	DefaultTitle = "E-commerce Customer Churn Prediction"
	DefaultTopN  = 10
)

// Options configures a State.
type Options struct {
	Title  string
	TopN   int
	Policy MissingColumnPolicy
}

// State is the read-only application state shared by every handler.
// It is built once after the artifacts load.
type State struct {
	title     string
	topN      int
	policy    MissingColumnPolicy
	artifacts *artifact.Artifacts
	parsers   *parser.Registry
	logger    *slog.Logger
}

// NewState creates the application state. Zero options take defaults.
func NewState(a *artifact.Artifacts, opts Options, logger *slog.Logger) *State {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.Policy == "" {
		opts.Policy = PolicyImpute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &State{
		title:     opts.Title,
		topN:      opts.TopN,
		policy:    opts.Policy,
		artifacts: a,
		parsers:   parser.GetGlobalRegistry(),
		logger:    logger,
	}
}

func (s *State) Title() string                  { return s.title }
func (s *State) TopN() int                      { return s.topN }
func (s *State) Policy() MissingColumnPolicy    { return s.policy }
func (s *State) Artifacts() *artifact.Artifacts { return s.artifacts }

// Bound is the largest selectable record index.
func (s *State) Bound() int {
	return s.artifacts.RowCount() - 1
}

// RoundProbability rounds a probability to two decimals for display.
func RoundProbability(p float64) float64 {
	return math.Round(p*100) / 100
}

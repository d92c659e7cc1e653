package classifier

import (
	"fmt"
	"io"
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

// Envelope is the on-disk MessagePack form of a fitted model.
type Envelope struct {
	Kind         string              `msgpack:"kind"`
	Version      string              `msgpack:"version,omitempty"`
	Classes      []int               `msgpack:"classes"`
	FeatureNames []string            `msgpack:"feature_names,omitempty"`
	NumFeatures  int                 `msgpack:"n_features"`
	Categories   map[string][]string `msgpack:"categories,omitempty"`

	// tree ensembles
	Trees       []Tree    `msgpack:"trees,omitempty"`
	Importances []float64 `msgpack:"feature_importances,omitempty"`

	// linear models
	Coef      []float64 `msgpack:"coef,omitempty"`
	Intercept float64   `msgpack:"intercept,omitempty"`
}

// Model is a decoded classifier together with the metadata it was shipped with.
type Model struct {
	Classifier
	Version      string
	FeatureNames []string            // nil when the envelope did not record them
	Categories   map[string][]string // categorical level lists by column
}

// Importances returns the importance vector and whether the model has one.
func (m *Model) Importances() ([]float64, bool) {
	ip, ok := m.Classifier.(ImportanceProvider)
	if !ok {
		return nil, false
	}
	return ip.FeatureImportances(), true
}

// Decode reads a MessagePack envelope and builds the classifier it describes.
func Decode(r io.Reader) (*Model, error) {
	var env Envelope
	if err := msgpack.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding model envelope: %w", err)
	}
	return env.Build()
}

// Encode writes an envelope as MessagePack.
func Encode(w io.Writer, env *Envelope) error {
	if err := msgpack.NewEncoder(w).Encode(env); err != nil {
		return fmt.Errorf("encoding model envelope: %w", err)
	}
	return nil
}

// Build validates the envelope and constructs its classifier.
func (env *Envelope) Build() (*Model, error) {
	nFeatures := env.NumFeatures
	if nFeatures == 0 {
		nFeatures = len(env.FeatureNames)
	}
	if len(env.FeatureNames) > 0 && len(env.FeatureNames) != nFeatures {
		return nil, fmt.Errorf("%w: %d feature names for %d features", ErrInvalidModel, len(env.FeatureNames), nFeatures)
	}
	for i, v := range env.Importances {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: importance %d is not finite", ErrInvalidModel, i)
		}
	}

	var (
		clf Classifier
		err error
	)
	switch env.Kind {
	case KindRandomForest:
		clf, err = newForest(env.Kind, env.Trees, env.Classes, nFeatures, env.Importances)
	case KindDecisionTree:
		if len(env.Trees) != 1 {
			return nil, fmt.Errorf("%w: decision tree envelope has %d trees", ErrInvalidModel, len(env.Trees))
		}
		clf, err = newForest(env.Kind, env.Trees, env.Classes, nFeatures, env.Importances)
	case KindLogisticRegression:
		if nFeatures != 0 && len(env.Coef) != nFeatures {
			return nil, fmt.Errorf("%w: %d coefficients for %d features", ErrInvalidModel, len(env.Coef), nFeatures)
		}
		clf, err = newLogistic(env.Coef, env.Intercept)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}
	if err != nil {
		return nil, err
	}

	return &Model{
		Classifier:   clf,
		Version:      env.Version,
		FeatureNames: append([]string(nil), env.FeatureNames...),
		Categories:   env.Categories,
	}, nil
}

package classifier

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoTreeEnvelope builds a forest over [tenure, spend]:
// tree 0 splits tenure <= 5, tree 1 splits spend <= 100.
func twoTreeEnvelope() *Envelope {
	return &Envelope{
		Kind:         KindRandomForest,
		Version:      "test",
		Classes:      []int{0, 1},
		FeatureNames: []string{"tenure", "spend"},
		NumFeatures:  2,
		Trees: []Tree{
			{Nodes: []Node{
				{Feature: 0, Threshold: 5, Left: 1, Right: 2, Samples: 100, Impurity: 0.5},
				{Feature: -1, Samples: 30, Impurity: 0.32, Value: []float64{6, 24}},
				{Feature: -1, Samples: 70, Impurity: 0.18, Value: []float64{63, 7}},
			}},
			{Nodes: []Node{
				{Feature: 1, Threshold: 100, Left: 1, Right: 2, Samples: 100, Impurity: 0.48},
				{Feature: -1, Samples: 40, Impurity: 0.48, Value: []float64{0.6, 0.4}},
				{Feature: -1, Samples: 60, Impurity: 0.42, Value: []float64{0.3, 0.7}},
			}},
		},
	}
}

func TestForest_PredictAndProba(t *testing.T) {
	model, err := twoTreeEnvelope().Build()
	require.NoError(t, err)

	tests := []struct {
		name      string
		row       []float64
		wantClass int
		wantProba float64
	}{
		{name: "short tenure low spend", row: []float64{3, 50}, wantClass: 1, wantProba: 0.6},
		{name: "long tenure high spend", row: []float64{10, 200}, wantClass: 0, wantProba: 0.4},
		{name: "missing tenure follows heavier branch", row: []float64{math.NaN(), 50}, wantClass: 0, wantProba: 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			X := [][]float64{tt.row}
			classes, err := model.Predict(X)
			require.NoError(t, err)
			proba, err := model.PredictProba(X)
			require.NoError(t, err)

			assert.Equal(t, tt.wantClass, classes[0])
			assert.InDelta(t, tt.wantProba, proba[0], 1e-9)
		})
	}
}

func TestForest_ImpurityImportances(t *testing.T) {
	model, err := twoTreeEnvelope().Build()
	require.NoError(t, err)

	imp, ok := model.Importances()
	require.True(t, ok)
	require.Len(t, imp, 2)
	assert.InDelta(t, 0.5, imp[0], 1e-9)
	assert.InDelta(t, 0.5, imp[1], 1e-9)
}

func TestForest_StoredImportancesWin(t *testing.T) {
	env := twoTreeEnvelope()
	env.Importances = []float64{0.9, 0.1}

	model, err := env.Build()
	require.NoError(t, err)

	imp, ok := model.Importances()
	require.True(t, ok)
	assert.Equal(t, []float64{0.9, 0.1}, imp)

	// callers get a copy
	imp[0] = 0
	again, _ := model.Importances()
	assert.Equal(t, 0.9, again[0])
}

func TestForest_WidthMismatch(t *testing.T) {
	model, err := twoTreeEnvelope().Build()
	require.NoError(t, err)

	_, err = model.Predict([][]float64{{1, 2, 3}})
	assert.ErrorIs(t, err, ErrFeatureMismatch)

	_, err = model.PredictProba([][]float64{{1}})
	assert.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestForest_EmptyBatch(t *testing.T) {
	model, err := twoTreeEnvelope().Build()
	require.NoError(t, err)

	classes, err := model.Predict(nil)
	require.NoError(t, err)
	assert.Empty(t, classes)
}

func TestCategoricalSplit(t *testing.T) {
	env := &Envelope{
		Kind:        KindDecisionTree,
		Classes:     []int{0, 1},
		NumFeatures: 1,
		Trees: []Tree{{Nodes: []Node{
			{Feature: 0, Threshold: 2, Categorical: true, Left: 1, Right: 2, Samples: 10},
			{Feature: -1, Samples: 4, Value: []float64{0, 1}},
			{Feature: -1, Samples: 6, Value: []float64{1, 0}},
		}}},
	}
	model, err := env.Build()
	require.NoError(t, err)

	classes, err := model.Predict([][]float64{{2}, {1}, {3}})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 0}, classes)
}

func TestLogistic(t *testing.T) {
	env := &Envelope{
		Kind:         KindLogisticRegression,
		Classes:      []int{0, 1},
		FeatureNames: []string{"a", "b"},
		Coef:         []float64{1, -1},
		Intercept:    0,
	}
	model, err := env.Build()
	require.NoError(t, err)
	assert.Equal(t, 2, model.NumFeatures())

	proba, err := model.PredictProba([][]float64{{0, 0}, {2, 0}, {math.NaN(), 3}})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, proba[0], 1e-9)
	assert.InDelta(t, 1/(1+math.Exp(-2)), proba[1], 1e-9)
	assert.InDelta(t, 1/(1+math.Exp(3)), proba[2], 1e-9)

	classes, err := model.Predict([][]float64{{0, 0}, {-1, 0}})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, classes)

	_, ok := model.Importances()
	assert.False(t, ok, "logistic regression has no importance vector")
}

func TestLogistic_EmptyBatch(t *testing.T) {
	model, err := (&Envelope{Kind: KindLogisticRegression, Classes: []int{0, 1}, Coef: []float64{1}}).Build()
	require.NoError(t, err)

	proba, err := model.PredictProba([][]float64{})
	require.NoError(t, err)
	assert.Empty(t, proba)
}

func TestBuild_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Envelope)
		wantErr error
	}{
		{name: "unknown kind", mutate: func(e *Envelope) { e.Kind = "svm" }, wantErr: ErrUnknownKind},
		{name: "no trees", mutate: func(e *Envelope) { e.Trees = nil }, wantErr: ErrInvalidModel},
		{name: "three classes", mutate: func(e *Envelope) { e.Classes = []int{0, 1, 2} }, wantErr: ErrInvalidModel},
		{name: "no positive class", mutate: func(e *Envelope) { e.Classes = []int{0, 2} }, wantErr: ErrInvalidModel},
		{name: "feature out of range", mutate: func(e *Envelope) { e.Trees[0].Nodes[0].Feature = 7 }, wantErr: ErrInvalidModel},
		{name: "child before parent", mutate: func(e *Envelope) { e.Trees[0].Nodes[0].Left = 0 }, wantErr: ErrInvalidModel},
		{name: "short leaf", mutate: func(e *Envelope) { e.Trees[0].Nodes[1].Value = []float64{1} }, wantErr: ErrInvalidModel},
		{name: "names disagree with arity", mutate: func(e *Envelope) { e.FeatureNames = []string{"x"} }, wantErr: ErrInvalidModel},
		{name: "importance arity", mutate: func(e *Envelope) { e.Importances = []float64{1} }, wantErr: ErrInvalidModel},
		{name: "non-finite importance", mutate: func(e *Envelope) { e.Importances = []float64{math.Inf(1), 0} }, wantErr: ErrInvalidModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := twoTreeEnvelope()
			tt.mutate(env)
			_, err := env.Build()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, twoTreeEnvelope()))

	model, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, KindRandomForest, model.Kind())
	assert.Equal(t, "test", model.Version)
	assert.Equal(t, []string{"tenure", "spend"}, model.FeatureNames)

	_, err = Decode(bytes.NewReader([]byte("definitely not msgpack")))
	assert.Error(t, err)
}

package artifact

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churn-dashboard/backend/internal/classifier"
	"github.com/churn-dashboard/backend/internal/testutil"
)

var featureColumns = []string{"customer_unique_id", "age", "tenure"}

func writeArtifacts(t *testing.T, env *classifier.Envelope, features [][]any, labels [][]any) Paths {
	t.Helper()
	dir := t.TempDir()
	return Paths{
		Model:    testutil.WriteModel(t, dir, env),
		Features: testutil.WriteTable(t, dir, "X.msgpack", featureColumns, features),
		Labels:   testutil.WriteTable(t, dir, "y.msgpack", []string{"churned"}, labels),
	}
}

func validFeatures() [][]any {
	return [][]any{
		{"c1", 30, 2},
		{"c2", 45, nil},
		{"c3", 28.5, 14},
	}
}

func TestLoader_Load(t *testing.T) {
	env := testutil.SplitEnvelope([]string{"age", "tenure"}, 1, 6)
	p := writeArtifacts(t, env, validFeatures(), [][]any{{1}, {0}, {true}})

	a, err := NewLoader("", nil).Load(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 3, a.RowCount())
	assert.Equal(t, DefaultIdentifierColumn, a.IdentifierColumn)
	assert.Equal(t, featureColumns, a.Display.Columns)
	assert.Equal(t, []string{"c2", "45", ""}, a.Display.Records[1])
	assert.Equal(t, []string{"age", "tenure"}, a.Schema.Columns)
	assert.Equal(t, []float64{30, 2}, a.Features[0])
	assert.True(t, math.IsNaN(a.Features[1][1]))
	assert.Equal(t, 28.5, a.Features[2][0])
	assert.Equal(t, []int{1, 0, 1}, a.Labels)
	assert.Equal(t, DefaultLabelNames, a.LabelNames)
	assert.Equal(t, "1.0.0", a.ModelVersion)
	assert.Equal(t, classifier.KindRandomForest, a.Model.Kind())
}

func TestLoader_LoadWithManifest(t *testing.T) {
	env := testutil.SplitEnvelope(nil, 0, 40)
	env.NumFeatures = 2
	env.Version = ""
	dir := t.TempDir()
	p := Paths{
		Model:    testutil.WriteModel(t, dir, env),
		Features: testutil.WriteTable(t, dir, "X.msgpack", []string{"cid", "age", "tenure"}, [][]any{{"a", 1, 2}}),
		Labels:   testutil.WriteTable(t, dir, "y.msgpack", []string{"cid", "churned"}, [][]any{{"a", 0}}),
		Manifest: testutil.WriteFile(t, dir, "manifest.yaml", []byte(`
model_version: "2024-06"
identifier_column: cid
features: [age, tenure]
labels:
  positive: Churned
`)),
	}

	a, err := NewLoader("", nil).Load(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "cid", a.IdentifierColumn)
	assert.Equal(t, "Churned", a.LabelNames.Positive)
	assert.Equal(t, "Not Churn", a.LabelNames.Negative)
	assert.Equal(t, "2024-06", a.ModelVersion, "envelope without a version keeps the manifest's")
	assert.Equal(t, []int{0}, a.Labels)
}

func TestLoader_LoadFailures(t *testing.T) {
	names := []string{"age", "tenure"}

	tests := []struct {
		name     string
		env      *classifier.Envelope
		features [][]any
		labels   [][]any
		wantErr  error
		contains string
	}{
		{
			name:     "zero rows",
			env:      testutil.SplitEnvelope(names, 0, 1),
			features: [][]any{},
			labels:   [][]any{},
			wantErr:  ErrNoRows,
		},
		{
			name:     "label count",
			env:      testutil.SplitEnvelope(names, 0, 1),
			features: validFeatures(),
			labels:   [][]any{{1}, {0}},
			wantErr:  ErrLabelMismatch,
		},
		{
			name:     "non binary label",
			env:      testutil.SplitEnvelope(names, 0, 1),
			features: validFeatures(),
			labels:   [][]any{{1}, {2}, {0}},
			contains: "not a binary label",
		},
		{
			name:     "feature names differ",
			env:      testutil.SplitEnvelope([]string{"age", "spend"}, 0, 1),
			features: validFeatures(),
			labels:   [][]any{{1}, {0}, {0}},
			wantErr:  ErrSchemaMismatch,
			contains: "missing {spend}, unexpected {tenure}",
		},
		{
			name:     "feature order differs",
			env:      testutil.SplitEnvelope([]string{"tenure", "age"}, 0, 1),
			features: validFeatures(),
			labels:   [][]any{{1}, {0}, {0}},
			wantErr:  ErrSchemaMismatch,
			contains: "different order",
		},
		{
			name: "arity differs",
			env: func() *classifier.Envelope {
				env := testutil.SplitEnvelope(nil, 0, 1)
				env.NumFeatures = 3
				return env
			}(),
			features: validFeatures(),
			labels:   [][]any{{1}, {0}, {0}},
			wantErr:  ErrSchemaMismatch,
		},
		{
			name:     "text feature",
			env:      testutil.SplitEnvelope(names, 0, 1),
			features: [][]any{{"c1", "old", 3}},
			labels:   [][]any{{1}},
			contains: "cannot be encoded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeArtifacts(t, tt.env, tt.features, tt.labels)
			a, err := NewLoader("", nil).Load(context.Background(), p)
			require.Error(t, err)
			assert.Nil(t, a)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestLoader_MissingFiles(t *testing.T) {
	env := testutil.SplitEnvelope([]string{"age", "tenure"}, 0, 1)
	p := writeArtifacts(t, env, validFeatures(), [][]any{{1}, {0}, {0}})

	missingModel := p
	missingModel.Model = p.Model + ".gone"
	_, err := NewLoader("", nil).Load(context.Background(), missingModel)
	assert.ErrorContains(t, err, "failed to open model")

	missingLabels := p
	missingLabels.Labels = p.Labels + ".gone"
	_, err = NewLoader("", nil).Load(context.Background(), missingLabels)
	assert.ErrorContains(t, err, "failed to load labels")

	unknownExt := p
	unknownExt.Features = p.Features + ".pkl"
	_, err = NewLoader("", nil).Load(context.Background(), unknownExt)
	assert.ErrorContains(t, err, "no table reader")
}

func TestLoader_CorruptModel(t *testing.T) {
	env := testutil.SplitEnvelope([]string{"age", "tenure"}, 0, 1)
	p := writeArtifacts(t, env, validFeatures(), [][]any{{1}, {0}, {0}})
	p.Model = testutil.WriteFile(t, t.TempDir(), "model.msgpack", []byte("not a model"))

	_, err := NewLoader("", nil).Load(context.Background(), p)
	assert.ErrorContains(t, err, "failed to load model")
}

func TestDuckDBTableReader_CSV(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "X.csv", []byte("customer_unique_id,age,tenure\nc1,30,2\nc2,45,\n"))

	frame, err := NewTableRegistry().Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, featureColumns, frame.Columns)
	require.Equal(t, 2, frame.Len())
	assert.Equal(t, "c1", frame.Records[0][0])
	assert.Equal(t, "30", frame.Records[0][1])
	assert.Equal(t, "", frame.Records[1][2])
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "m.yaml", []byte("features: [a, b]\n"))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, m.Features)
	assert.Equal(t, DefaultLabelNames, m.Labels)

	bad := testutil.WriteFile(t, dir, "bad.yaml", []byte("features: [a\n"))
	_, err = LoadManifest(bad)
	assert.Error(t, err)
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{true, "1"},
		{int8(3), "3"},
		{int64(-7), "-7"},
		{uint16(9), "9"},
		{2.5, "2.5"},
		{float32(0.5), "0.5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatCell(tt.in))
	}
}

func TestLabelNames_Name(t *testing.T) {
	assert.Equal(t, "Churn", DefaultLabelNames.Name(1))
	assert.Equal(t, "Not Churn", DefaultLabelNames.Name(0))
}

func TestTableRegistry_Replace(t *testing.T) {
	r := NewTableRegistry()
	r.Replace(&DuckDBTableReader{MemoryLimit: "64MB", Threads: 1})
	require.Len(t, r.readers, 2)
	assert.Equal(t, "64MB", r.readers[1].(*DuckDBTableReader).MemoryLimit)
}

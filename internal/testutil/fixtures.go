package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/churn-dashboard/backend/internal/classifier"
	"github.com/churn-dashboard/backend/internal/models"
)

// SplitEnvelope is a one-tree forest splitting on a single feature.
// Rows with x[feature] <= threshold (or missing) score 0.25, others 0.75.
func SplitEnvelope(featureNames []string, feature int, threshold float64) *classifier.Envelope {
	return &classifier.Envelope{
		Kind:         classifier.KindRandomForest,
		Version:      "1.0.0",
		Classes:      []int{0, 1},
		FeatureNames: featureNames,
		NumFeatures:  len(featureNames),
		Trees: []classifier.Tree{{Nodes: []classifier.Node{
			{Feature: feature, Threshold: threshold, Left: 1, Right: 2, Samples: 20, Impurity: 0.495},
			{Feature: -1, Samples: 12, Impurity: 0.375, Value: []float64{9, 3}},
			{Feature: -1, Samples: 8, Impurity: 0.375, Value: []float64{2, 6}},
		}}},
	}
}

// WriteModel encodes env into dir and returns the file path.
func WriteModel(t *testing.T, dir string, env *classifier.Envelope) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, classifier.Encode(&buf, env))
	return WriteFile(t, dir, "model.msgpack", buf.Bytes())
}

// WriteTable writes a {columns, rows} MessagePack table.
func WriteTable(t *testing.T, dir, name string, columns []string, rows [][]any) string {
	t.Helper()
	data, err := msgpack.Marshal(map[string]any{"columns": columns, "rows": rows})
	require.NoError(t, err)
	return WriteFile(t, dir, name, data)
}

// WriteFile writes raw bytes into dir and returns the file path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// Frame builds a frame from a header and records.
func Frame(columns []string, records ...[]string) *models.Frame {
	f := models.NewFrame(columns)
	f.Records = append(f.Records, records...)
	return f
}

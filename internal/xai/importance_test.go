package xai

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegressorImportanceRanksSignalFirst(t *testing.T) {
	x, y := stepData(40)
	r, err := TrainRegressor(x, y, []string{"signal", "noise"}, DefaultOptions())
	require.NoError(t, err)

	rows := RegressorImportance(r, x)
	require.Len(t, rows, 2)
	assert.Equal(t, "signal", rows[0].Feature)
	assert.Greater(t, rows[0].Importance, rows[1].Importance)
	// The constant column never splits, so it carries no attribution.
	assert.Equal(t, 0.0, rows[1].Importance)
}

func TestClassifierImportance(t *testing.T) {
	x, labels := classData()
	c, err := TrainClassifier(x, labels, []string{"signal", "noise"}, Options{NEstimators: 20, LearningRate: 0.3, MaxDepth: 2, MinLeaf: 2})
	require.NoError(t, err)

	rows := ClassifierImportance(c, x)
	require.Len(t, rows, 2)
	assert.Equal(t, "signal", rows[0].Feature)
	assert.Greater(t, rows[0].Importance, 0.0)
}

func TestTopK(t *testing.T) {
	rows := []ImportanceRow{{Feature: "a", Importance: 3}, {Feature: "b", Importance: 2}, {Feature: "c", Importance: 1}}
	assert.Len(t, TopK(rows, 2), 2)
	assert.Len(t, TopK(rows, 0), 3)
	assert.Len(t, TopK(rows, 10), 3)
}

func TestImportanceCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "importance.csv")
	rows := []ImportanceRow{
		{Feature: "width__ACKr", Importance: 0.42},
		{Feature: "mid__ICL", Importance: 0.1},
	}

	require.NoError(t, WriteImportanceCSV(rows, path))
	got, err := ReadImportanceCSV(path)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestReadImportanceCSVRequiresFeatureColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,importance\nx,1\n"), 0o644))

	_, err := ReadImportanceCSV(path)
	assert.ErrorContains(t, err, "missing 'feature' column")
}

package calibrate

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcrovella/fluxtwin/internal/domain"
)

func TestScanRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rows := append(
		scanRows("a1", 100, 1.0, []float64{0, 5}, []float64{10, 5}),
		scanRows("a2", 50, 0.4, []float64{0, 5}, []float64{5, 0})...)

	require.NoError(t, WriteScan(dir, rows))
	got, err := ReadScan(dir)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestFitRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fit := &domain.CalibrationFit{
		ID:          "fit-1",
		FitType:     "atpm_linear",
		Mode:        ModeNorm,
		A:           5,
		B:           0.1,
		ClipMin:     DefaultClipMin,
		ClipMax:     DefaultClipMax,
		AnchorsUsed: []string{"a1", "a2"},
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, SaveFit(fit, dir))
	got, err := LoadFit(filepath.Join(dir, FitFile))
	require.NoError(t, err)
	assert.Equal(t, fit, got)
}

func TestLoadFitRejectsMissingType(t *testing.T) {
	dir := t.TempDir()
	fit := &domain.CalibrationFit{ID: "x"}
	require.NoError(t, SaveFit(fit, dir))

	_, err := LoadFit(filepath.Join(dir, FitFile))
	assert.ErrorContains(t, err, "missing fit_type")
}

func TestWriteBest(t *testing.T) {
	dir := t.TempDir()
	best := []Best{{Condition: "a1", AcetateMM: 100, MeasuredOD: 1, ATPM: 5, Growth: 5}}
	require.NoError(t, WriteBest(dir, best))
	assert.FileExists(t, filepath.Join(dir, BestFile))
}

package calibrate

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/mcrovella/fluxtwin/internal/domain"
)

// Artifact file names under a calibration output directory.
const (
	ScanFile = "anchor_scan.parquet"
	BestFile = "anchor_best.csv"
	FitFile  = "atpm_fit.json"
)

type scanParquetRow struct {
	Condition  string  `parquet:"condition"`
	AcetateMM  float64 `parquet:"acetate_mM"`
	MeasuredOD float64 `parquet:"measured_OD"`
	ATPM       float64 `parquet:"atpm"`
	Growth     float64 `parquet:"growth"`
	Status     string  `parquet:"status"`
}

// WriteScan stores the grid scan as parquet.
func WriteScan(dir string, rows []ScanRow) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	out := make([]scanParquetRow, len(rows))
	for i, r := range rows {
		out[i] = scanParquetRow(r)
	}
	path := filepath.Join(dir, ScanFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	w := parquet.NewGenericWriter[scanParquetRow](f)
	if _, err := w.Write(out); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return f.Close()
}

// ReadScan loads a scan written by WriteScan.
func ReadScan(dir string) ([]ScanRow, error) {
	path := filepath.Join(dir, ScanFile)
	rows, err := parquet.ReadFile[scanParquetRow](path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	out := make([]ScanRow, len(rows))
	for i, r := range rows {
		out[i] = ScanRow(r)
	}
	return out, nil
}

// WriteBest stores the per-anchor picks as CSV.
func WriteBest(dir string, best []Best) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, BestFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"condition", "acetate_mM", "measured_OD", "atpm", "growth"}); err != nil {
		return err
	}
	for _, b := range best {
		rec := []string{
			b.Condition,
			strconv.FormatFloat(b.AcetateMM, 'g', -1, 64),
			strconv.FormatFloat(b.MeasuredOD, 'g', -1, 64),
			strconv.FormatFloat(b.ATPM, 'g', -1, 64),
			strconv.FormatFloat(b.Growth, 'g', -1, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

type fitJSON struct {
	ID          string    `json:"id"`
	FitType     string    `json:"fit_type"`
	Mode        string    `json:"mode"`
	A           float64   `json:"a"`
	B           float64   `json:"b"`
	ClipMin     float64   `json:"clip_min"`
	ClipMax     float64   `json:"clip_max"`
	AnchorsUsed []string  `json:"anchors_used"`
	CreatedAt   time.Time `json:"created_at"`
}

// SaveFit writes the fitted law as JSON.
func SaveFit(fit *domain.CalibrationFit, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(fitJSON(*fit), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, FitFile), append(raw, '\n'), 0o644)
}

// LoadFit reads a fit saved by SaveFit.
func LoadFit(path string) (*domain.CalibrationFit, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fit: %w", err)
	}
	var j fitJSON
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, fmt.Errorf("parsing fit %s: %w", path, err)
	}
	fit := domain.CalibrationFit(j)
	if fit.FitType == "" {
		return nil, fmt.Errorf("fit %s: missing fit_type", path)
	}
	return &fit, nil
}

package causal

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Artifact file names under a causal output directory.
const (
	EdgesFile     = "dag_edges.csv"
	StabilityFile = "edge_stability.csv"
	MetadataFile  = "dag_metadata.json"
)

// WriteEdges stores the discovered edges as CSV.
func WriteEdges(edges []Edge, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, EdgesFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"from", "to", "directed"}); err != nil {
		return err
	}
	for _, e := range edges {
		if err := w.Write([]string{e.From, e.To, strconv.FormatBool(e.Directed)}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// WriteStability stores the bootstrap edge frequencies as CSV.
func WriteStability(rows []EdgeStability, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, StabilityFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"x", "y", "frequency"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write([]string{r.X, r.Y, strconv.FormatFloat(r.Frequency, 'g', -1, 64)}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Metadata summarizes one causal run for reproducibility.
type Metadata struct {
	Rows             int       `json:"rows"`
	Columns          []string  `json:"columns"`
	Alpha            float64   `json:"alpha"`
	MaxCond          int       `json:"max_cond"`
	Seed             int64     `json:"seed"`
	Bootstrap        int       `json:"bootstrap"`
	Tests            int       `json:"tests"`
	JitterScale      float64   `json:"jitter_scale"`
	DroppedNaN       []string  `json:"dropped_nan"`
	DroppedConstant  []string  `json:"dropped_constant"`
	DroppedCollinear []string  `json:"dropped_collinear"`
	Exogenous        []string  `json:"exogenous"`
	Outcome          string    `json:"outcome"`
	CreatedAt        time.Time `json:"created_at"`
}

// WriteMetadata stores run metadata as JSON.
func WriteMetadata(meta Metadata, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, MetadataFile), append(raw, '\n'), 0o644)
}

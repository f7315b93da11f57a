package xai

import (
	"fmt"
	"math"
	"sort"
)

// Options configure gradient boosting.
type Options struct {
	NEstimators  int
	LearningRate float64
	MaxDepth     int
	MinLeaf      int
}

// DefaultOptions mirror common gradient-boosting defaults at a size that
// stays fast on campaign-scale tables.
func DefaultOptions() Options {
	return Options{NEstimators: 100, LearningRate: 0.1, MaxDepth: 3, MinLeaf: 5}
}

func (o Options) validate() error {
	if o.NEstimators <= 0 {
		return fmt.Errorf("xai: n_estimators must be positive")
	}
	if o.LearningRate <= 0 || o.LearningRate > 1 {
		return fmt.Errorf("xai: learning rate must be in (0, 1]")
	}
	if o.MaxDepth <= 0 {
		return fmt.Errorf("xai: max depth must be positive")
	}
	if o.MinLeaf <= 0 {
		return fmt.Errorf("xai: min leaf must be positive")
	}
	return nil
}

// Regressor is a squared-loss gradient-boosted tree ensemble.
type Regressor struct {
	Init         float64
	LearningRate float64
	Features     []string
	trees        []*tree
}

// TrainRegressor fits boosted trees on residuals of the squared loss.
func TrainRegressor(x [][]float64, y []float64, features []string, opts Options) (*Regressor, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := checkMatrix(x, len(y)); err != nil {
		return nil, err
	}
	if len(features) != len(x[0]) {
		return nil, fmt.Errorf("xai: %d feature names for %d columns", len(features), len(x[0]))
	}

	init := 0.0
	for _, v := range y {
		init += v
	}
	init /= float64(len(y))

	r := &Regressor{Init: init, LearningRate: opts.LearningRate, Features: features}
	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = init
	}
	resid := make([]float64, len(y))
	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}
	p := treeParams{maxDepth: opts.MaxDepth, minLeaf: opts.MinLeaf}

	for e := 0; e < opts.NEstimators; e++ {
		for i := range y {
			resid[i] = y[i] - pred[i]
		}
		t := buildTree(x, resid, idx, p)
		r.trees = append(r.trees, t)
		for i := range pred {
			pred[i] += opts.LearningRate * t.predict(x[i])
		}
	}
	return r, nil
}

// Predict evaluates one row.
func (r *Regressor) Predict(row []float64) float64 {
	out := r.Init
	for _, t := range r.trees {
		out += r.LearningRate * t.predict(row)
	}
	return out
}

// Contributions returns the per-feature decision-path attribution for one
// row. bias + sum(contrib) equals Predict(row).
func (r *Regressor) Contributions(row []float64) (bias float64, contrib []float64) {
	contrib = make([]float64, len(r.Features))
	scaled := make([]float64, len(r.Features))
	bias = r.Init
	for _, t := range r.trees {
		for j := range scaled {
			scaled[j] = 0
		}
		b := t.contributions(row, scaled)
		bias += r.LearningRate * b
		for j := range contrib {
			contrib[j] += r.LearningRate * scaled[j]
		}
	}
	return bias, contrib
}

// Classifier is a one-vs-rest ensemble of boosted regressors over class
// indicator targets.
type Classifier struct {
	Classes  []string
	Features []string
	models   []*Regressor
}

// TrainClassifier fits one regressor per distinct label against a 0/1
// indicator target. Labels are sorted for determinism.
func TrainClassifier(x [][]float64, labels []string, features []string, opts Options) (*Classifier, error) {
	if err := checkMatrix(x, len(labels)); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var classes []string
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			classes = append(classes, l)
		}
	}
	if len(classes) < 2 {
		return nil, fmt.Errorf("xai: need at least 2 classes, got %d", len(classes))
	}
	sort.Strings(classes)

	c := &Classifier{Classes: classes, Features: features}
	y := make([]float64, len(labels))
	for _, class := range classes {
		for i, l := range labels {
			if l == class {
				y[i] = 1
			} else {
				y[i] = 0
			}
		}
		m, err := TrainRegressor(x, y, features, opts)
		if err != nil {
			return nil, fmt.Errorf("xai: class %s: %w", class, err)
		}
		c.models = append(c.models, m)
	}
	return c, nil
}

// Predict returns the argmax class for one row.
func (c *Classifier) Predict(row []float64) string {
	best, bestScore := "", math.Inf(-1)
	for k, m := range c.models {
		if s := m.Predict(row); s > bestScore {
			bestScore = s
			best = c.Classes[k]
		}
	}
	return best
}

// Scores returns the per-class raw scores for one row, in Classes order.
func (c *Classifier) Scores(row []float64) []float64 {
	out := make([]float64, len(c.models))
	for k, m := range c.models {
		out[k] = m.Predict(row)
	}
	return out
}

// Contributions averages |per-feature attribution| across the class models
// for one row.
func (c *Classifier) Contributions(row []float64) []float64 {
	out := make([]float64, len(c.Features))
	for _, m := range c.models {
		_, contrib := m.Contributions(row)
		for j, v := range contrib {
			out[j] += math.Abs(v)
		}
	}
	for j := range out {
		out[j] /= float64(len(c.models))
	}
	return out
}

// Accuracy is the fraction of rows predicted with their own label.
func (c *Classifier) Accuracy(x [][]float64, labels []string) float64 {
	if len(x) == 0 {
		return 0
	}
	hit := 0
	for i, row := range x {
		if c.Predict(row) == labels[i] {
			hit++
		}
	}
	return float64(hit) / float64(len(x))
}

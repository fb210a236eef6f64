package forecast

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"

	"smartbudget/internal/core"
)

// Config controls the regression forest.
type Config struct {
	Trees int    `yaml:"trees"`
	Seed  uint64 `yaml:"seed"`

	// TopImportances is how many feature importances a Result keeps.
	TopImportances int `yaml:"top_importances"`
}

func DefaultConfig() Config {
	return Config{Trees: 300, Seed: 42, TopImportances: 5}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Trees <= 0 {
		c.Trees = d.Trees
	}
	if c.TopImportances <= 0 {
		c.TopImportances = d.TopImportances
	}
	return c
}

// Importance is the share of impurity reduction credited to one category.
type Importance struct {
	Category string  `json:"category"`
	Weight   float64 `json:"weight"`
}

// Forest is a fitted bagged regression forest. It is read only after Fit.
type Forest struct {
	features    []string
	trees       []*tree
	importances []float64
}

var (
	errNoFeatures = errors.New("dataset has no features")
	errNoRows     = errors.New("dataset has no training rows")
)

// Fit trains cfg.Trees regression trees on bootstrap samples of ds.
// Degenerate datasets fail with *core.ForecastError.
func Fit(ds *Dataset, cfg Config) (*Forest, error) {
	cfg = cfg.withDefaults()
	if err := validate(ds); err != nil {
		return nil, &core.ForecastError{Op: "fit", Err: err}
	}

	n := len(ds.X)
	master := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	f := &Forest{
		features: append([]string(nil), ds.Features...),
		trees:    make([]*tree, cfg.Trees),
	}
	var perTree [][]float64
	for t := range f.trees {
		seed := master.Uint64()
		rng := rand.New(rand.NewPCG(seed, seed))
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.IntN(n)
		}
		tr, imp := growTree(ds.X, ds.Y, sample, rng)
		f.trees[t] = tr
		if tr.size() > 1 {
			if total := floats.Sum(imp); total > 0 {
				floats.Scale(1/total, imp)
			}
			perTree = append(perTree, imp)
		}
	}

	f.importances = make([]float64, len(ds.Features))
	for _, imp := range perTree {
		floats.Add(f.importances, imp)
	}
	if total := floats.Sum(f.importances); total > 0 {
		floats.Scale(1/total, f.importances)
	}
	return f, nil
}

func validate(ds *Dataset) error {
	if ds == nil || len(ds.Features) == 0 {
		return errNoFeatures
	}
	if len(ds.X) == 0 || len(ds.X) != len(ds.Y) {
		return errNoRows
	}
	for i, row := range ds.X {
		if len(row) != len(ds.Features) {
			return fmt.Errorf("row %d has %d values for %d features", i, len(row), len(ds.Features))
		}
		if !finite(row...) {
			return fmt.Errorf("row %d has non finite values", i)
		}
	}
	if !finite(ds.Y...) {
		return errors.New("labels have non finite values")
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Predict averages the trees' predictions for one feature row.
func (f *Forest) Predict(x []float64) (float64, error) {
	if len(x) != len(f.features) {
		return 0, &core.ForecastError{Op: "predict", Err: fmt.Errorf("got %d values for %d features", len(x), len(f.features))}
	}
	if !finite(x...) {
		return 0, &core.ForecastError{Op: "predict", Err: errors.New("input has non finite values")}
	}
	var sum float64
	for _, t := range f.trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.trees)), nil
}

// Importances returns every feature importance, largest first. Equal
// weights keep column order.
func (f *Forest) Importances() []Importance {
	out := make([]Importance, len(f.features))
	for i, name := range f.features {
		out[i] = Importance{Category: name, Weight: f.importances[i]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weight > out[j].Weight
	})
	return out
}

// Features returns the category columns the forest was trained on.
func (f *Forest) Features() []string {
	return append([]string(nil), f.features...)
}

// Trees returns the number of fitted trees.
func (f *Forest) Trees() int { return len(f.trees) }

// Package anomaly flags unusual spending days with an isolation forest
// fitted on daily totals.
package anomaly

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// eulerGamma is the Euler-Mascheroni constant used by the average path length.
const eulerGamma = 0.5772156649015329

// ErrContamination is returned for contamination outside (0, 0.5].
var ErrContamination = errors.New("contamination must be in (0, 0.5]")

// Config controls the isolation forest.
type Config struct {
	// Contamination is the expected share of anomalous days.
	Contamination float64 `yaml:"contamination"`
	Trees         int     `yaml:"trees"`
	MaxSamples    int     `yaml:"max_samples"`
	Seed          uint64  `yaml:"seed"`
}

func DefaultConfig() Config {
	return Config{Contamination: 0.05, Trees: 100, MaxSamples: 256, Seed: 42}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Trees <= 0 {
		c.Trees = d.Trees
	}
	if c.MaxSamples <= 0 {
		c.MaxSamples = d.MaxSamples
	}
	return c
}

// Validate checks the contamination range.
func (c Config) Validate() error {
	if !(c.Contamination > 0 && c.Contamination <= 0.5) {
		return fmt.Errorf("%w, got %v", ErrContamination, c.Contamination)
	}
	return nil
}

type inode struct {
	threshold   float64
	left, right int
	size        int
	leaf        bool
}

type itree struct {
	nodes []inode
}

// Detector is a fitted isolation forest over one dimensional values.
type Detector struct {
	trees     []itree
	samples   int
	threshold float64
}

// Fit grows the forest on values and sets the decision threshold so that
// roughly cfg.Contamination of them score below it. At least two values
// are required.
func Fit(values []float64, cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if len(values) < 2 {
		return nil, fmt.Errorf("isolation forest needs at least 2 values, got %d", len(values))
	}

	psi := min(cfg.MaxSamples, len(values))
	limit := int(math.Ceil(math.Log2(float64(psi))))
	master := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	d := &Detector{trees: make([]itree, cfg.Trees), samples: psi}
	for t := range d.trees {
		seed := master.Uint64()
		rng := rand.New(rand.NewPCG(seed, seed))
		perm := rng.Perm(len(values))[:psi]
		sample := make([]float64, psi)
		for i, j := range perm {
			sample[i] = values[j]
		}
		tr := itree{}
		tr.grow(sample, 0, limit, rng)
		d.trees[t] = tr
	}

	scores := make([]float64, len(values))
	for i, v := range values {
		scores[i] = d.Score(v)
	}
	d.threshold = percentile(scores, 100*cfg.Contamination)
	return d, nil
}

func (t *itree) grow(values []float64, depth, limit int, rng *rand.Rand) int {
	at := len(t.nodes)
	t.nodes = append(t.nodes, inode{size: len(values), leaf: true})
	if depth >= limit || len(values) <= 1 {
		return at
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	if lo == hi {
		return at
	}

	threshold := lo + rng.Float64()*(hi-lo)
	var left, right []float64
	for _, v := range values {
		if v <= threshold {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	l := t.grow(left, depth+1, limit, rng)
	r := t.grow(right, depth+1, limit, rng)
	t.nodes[at] = inode{threshold: threshold, left: l, right: r, size: len(values)}
	return at
}

func (t *itree) pathLength(v float64) float64 {
	i, depth := 0, 0
	for !t.nodes[i].leaf {
		if v <= t.nodes[i].threshold {
			i = t.nodes[i].left
		} else {
			i = t.nodes[i].right
		}
		depth++
	}
	return float64(depth) + averagePath(t.nodes[i].size)
}

// averagePath is the expected path length of an unsuccessful search in a
// binary search tree of n nodes.
func averagePath(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	f := float64(n)
	return 2*(math.Log(f-1)+eulerGamma) - 2*(f-1)/f
}

// Score returns -2^(-E[h(v)]/c(samples)). Lower scores are more anomalous;
// values near -1 are isolated quickly.
func (d *Detector) Score(v float64) float64 {
	depths := make([]float64, len(d.trees))
	for i := range d.trees {
		depths[i] = d.trees[i].pathLength(v)
	}
	return -math.Pow(2, -stat.Mean(depths, nil)/averagePath(d.samples))
}

// Threshold returns the decision offset learned from the training scores.
func (d *Detector) Threshold() float64 { return d.threshold }

// IsAnomaly reports whether v scores below the threshold.
func (d *Detector) IsAnomaly(v float64) bool {
	return d.Score(v) < d.threshold
}

// percentile interpolates linearly between the closest ranks, q in [0, 100].
func percentile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	pos := q / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

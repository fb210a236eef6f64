package forecast

import (
	"math/rand/v2"
	"sort"
)

// node is a regression tree node. Leaves have feature < 0.
type node struct {
	feature     int
	threshold   float64
	left, right int
	value       float64
}

type tree struct {
	nodes []node
}

// treeBuilder grows one CART regression tree on a bootstrap sample using
// the squared error criterion. Every feature is considered at every split,
// visited in a random order so that equal gains are resolved randomly.
type treeBuilder struct {
	x          [][]float64
	y          []float64
	rng        *rand.Rand
	importance []float64
	nodes      []node
}

func growTree(x [][]float64, y []float64, sample []int, rng *rand.Rand) (*tree, []float64) {
	b := &treeBuilder{
		x:          x,
		y:          y,
		rng:        rng,
		importance: make([]float64, len(x[0])),
	}
	b.split(sample)
	return &tree{nodes: b.nodes}, b.importance
}

// split appends the subtree for idx and returns its node index.
func (b *treeBuilder) split(idx []int) int {
	var sum float64
	lo, hi := b.y[idx[0]], b.y[idx[0]]
	for _, i := range idx {
		sum += b.y[i]
		lo, hi = min(lo, b.y[i]), max(hi, b.y[i])
	}
	n := float64(len(idx))
	at := len(b.nodes)
	b.nodes = append(b.nodes, node{feature: -1, value: sum / n})
	if len(idx) < 2 || lo == hi {
		return at
	}

	bestFeature, bestPos := -1, 0
	bestGain, bestThreshold := 0.0, 0.0
	parent := sum * sum / n
	sorted := make([]int, len(idx))
	for _, f := range b.rng.Perm(len(b.importance)) {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.x[sorted[i]][f] < b.x[sorted[j]][f]
		})
		var left float64
		for k := 0; k < len(sorted)-1; k++ {
			left += b.y[sorted[k]]
			cur, next := b.x[sorted[k]][f], b.x[sorted[k+1]][f]
			if cur == next {
				continue
			}
			nl := float64(k + 1)
			right := sum - left
			gain := left*left/nl + right*right/(n-nl) - parent
			if bestFeature < 0 || gain > bestGain {
				bestFeature, bestPos, bestGain = f, k+1, gain
				bestThreshold = cur + (next-cur)/2
			}
		}
	}
	if bestFeature < 0 {
		return at
	}

	copy(sorted, idx)
	sort.SliceStable(sorted, func(i, j int) bool {
		return b.x[sorted[i]][bestFeature] < b.x[sorted[j]][bestFeature]
	})
	leftIdx := append([]int(nil), sorted[:bestPos]...)
	rightIdx := append([]int(nil), sorted[bestPos:]...)
	if bestGain > 0 {
		b.importance[bestFeature] += bestGain
	}

	l := b.split(leftIdx)
	r := b.split(rightIdx)
	b.nodes[at] = node{feature: bestFeature, threshold: bestThreshold, left: l, right: r, value: sum / n}
	return at
}

func (t *tree) predict(x []float64) float64 {
	i := 0
	for {
		nd := t.nodes[i]
		if nd.feature < 0 {
			return nd.value
		}
		if x[nd.feature] <= nd.threshold {
			i = nd.left
		} else {
			i = nd.right
		}
	}
}

func (t *tree) size() int { return len(t.nodes) }

package categorize

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// onCenter is the squared distance under which a point counts as sitting on
// its center. Means of identical rows differ from them by rounding only.
const onCenter = 1e-12

// kmeans clusters rows into k groups with k-means++ seeding followed by
// Lloyd iterations. It returns the centroids, one label per row and the
// number of iterations run. rows must be non empty and 1 <= k <= len(rows).
func kmeans(rows [][]float64, k, maxIter int, rng *rand.Rand) ([][]float64, []int, int) {
	centers := seedCenters(rows, k, rng)
	labels := make([]int, len(rows))
	for i := range labels {
		labels[i] = -1
	}

	iter := 0
	for iter < maxIter {
		iter++
		changed := false
		for i, row := range rows {
			if c := nearest(row, centers); c != labels[i] {
				labels[i] = c
				changed = true
			}
		}
		if relocateEmpty(rows, centers, labels) {
			changed = true
		}
		if !changed {
			break
		}
		recompute(rows, centers, labels)
	}
	return centers, labels, iter
}

// seedCenters implements greedy k-means++: each new center is the best of
// 2+ln(k) candidates drawn proportionally to squared distance.
func seedCenters(rows [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(rows)
	centers := make([][]float64, 0, k)
	centers = append(centers, clone(rows[rng.IntN(n)]))

	closest := make([]float64, n)
	for i, row := range rows {
		closest[i] = sqDist(row, centers[0])
	}

	trials := 2 + int(math.Log(float64(k)))
	candidate := make([]float64, n)
	for len(centers) < k {
		potential := floats.Sum(closest)
		bestIdx, bestPotential := -1, math.Inf(1)
		var bestClosest []float64

		for t := 0; t < trials; t++ {
			idx := sample(closest, potential, rng)
			for i, row := range rows {
				candidate[i] = math.Min(closest[i], sqDist(row, rows[idx]))
			}
			if p := floats.Sum(candidate); p < bestPotential {
				bestIdx, bestPotential = idx, p
				bestClosest = append(bestClosest[:0], candidate...)
			}
		}
		centers = append(centers, clone(rows[bestIdx]))
		copy(closest, bestClosest)
	}
	return centers
}

// sample draws an index with probability proportional to weights. When all
// weights are zero every row is equally likely.
func sample(weights []float64, total float64, rng *rand.Rand) int {
	if total <= 0 {
		return rng.IntN(len(weights))
	}
	r := rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if acc > r {
			return i
		}
	}
	return len(weights) - 1
}

// relocateEmpty moves the point farthest from its center into every empty
// cluster. Only clusters with more than one member give up a point, and
// points within onCenter of their center are never moved.
func relocateEmpty(rows, centers [][]float64, labels []int) bool {
	counts := make([]int, len(centers))
	for _, l := range labels {
		counts[l]++
	}
	moved := false
	for c := range centers {
		if counts[c] > 0 {
			continue
		}
		far, farDist := -1, onCenter
		for i, row := range rows {
			if counts[labels[i]] < 2 {
				continue
			}
			if d := sqDist(row, centers[labels[i]]); d > farDist {
				far, farDist = i, d
			}
		}
		if far < 0 {
			continue
		}
		counts[labels[far]]--
		labels[far] = c
		counts[c]++
		copy(centers[c], rows[far])
		moved = true
	}
	return moved
}

// recompute moves every non empty cluster to the mean of its members.
// Empty clusters keep their previous center.
func recompute(rows, centers [][]float64, labels []int) {
	sums := make([][]float64, len(centers))
	counts := make([]float64, len(centers))
	for i, row := range rows {
		c := labels[i]
		if sums[c] == nil {
			sums[c] = make([]float64, len(row))
		}
		floats.Add(sums[c], row)
		counts[c]++
	}
	for c := range centers {
		if counts[c] == 0 {
			continue
		}
		floats.ScaleTo(centers[c], 1/counts[c], sums[c])
	}
}

// nearest returns the index of the closest center, the lowest index on ties.
func nearest(row []float64, centers [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, center := range centers {
		if d := sqDist(row, center); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

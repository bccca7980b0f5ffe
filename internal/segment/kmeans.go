package segment

import (
	"math"
	"math/rand/v2"
)

type kmeansRun struct {
	labels    []int
	centroids [][]float64
	inertia   float64
	iters     int
}

// kmeans runs one Lloyd iteration sequence from a k-means++ seeding.
// Callers guarantee len(x) >= k.
func kmeans(x [][]float64, k int, rng *rand.Rand, maxIter int, tol float64) kmeansRun {
	centroids := seedPlusPlus(x, k, rng)
	labels := make([]int, len(x))
	for i := range labels {
		labels[i] = -1
	}

	iters := 0
	for iters < maxIter {
		iters++
		changed := assign(x, centroids, labels)

		next := recompute(x, labels, k, len(x[0]))
		if reseedEmpty(x, labels, next) {
			changed = true
			next = recompute(x, labels, k, len(x[0]))
		}

		shift := 0.0
		for j := range centroids {
			shift += sqDist(centroids[j], next[j])
		}
		centroids = next

		if !changed || shift <= tol {
			break
		}
	}

	// Final assignment against the converged centroids.
	assign(x, centroids, labels)
	final := recompute(x, labels, k, len(x[0]))
	if reseedEmpty(x, labels, final) {
		final = recompute(x, labels, k, len(x[0]))
	}

	inertia := 0.0
	for i, row := range x {
		inertia += sqDist(row, final[labels[i]])
	}

	return kmeansRun{labels: labels, centroids: final, inertia: inertia, iters: iters}
}

// seedPlusPlus picks k initial centroids, each new one sampled with
// probability proportional to its squared distance from the nearest chosen one.
func seedPlusPlus(x [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(x[rng.IntN(len(x))]))

	dist := make([]float64, len(x))
	for i, row := range x {
		dist[i] = sqDist(row, centroids[0])
	}

	for len(centroids) < k {
		total := 0.0
		for _, d := range dist {
			total += d
		}

		idx := -1
		if total > 0 {
			r := rng.Float64() * total
			cum := 0.0
			for i, d := range dist {
				cum += d
				if cum > r {
					idx = i
					break
				}
			}
		}
		if idx < 0 {
			// All remaining points coincide with a chosen centroid.
			idx = rng.IntN(len(x))
		}

		c := clone(x[idx])
		centroids = append(centroids, c)
		for i, row := range x {
			if d := sqDist(row, c); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centroids
}

// assign moves every point to its nearest centroid (lowest index on ties)
// and reports whether any label changed.
func assign(x [][]float64, centroids [][]float64, labels []int) bool {
	changed := false
	for i, row := range x {
		best, bestD := 0, math.Inf(1)
		for j, c := range centroids {
			if d := sqDist(row, c); d < bestD {
				best, bestD = j, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

func recompute(x [][]float64, labels []int, k, dims int) [][]float64 {
	sums := make([][]float64, k)
	for j := range sums {
		sums[j] = make([]float64, dims)
	}
	counts := make([]int, k)
	for i, row := range x {
		l := labels[i]
		counts[l]++
		for d, v := range row {
			sums[l][d] += v
		}
	}
	for j := range sums {
		if counts[j] == 0 {
			sums[j] = nil
			continue
		}
		for d := range sums[j] {
			sums[j][d] /= float64(counts[j])
		}
	}
	return sums
}

// reseedEmpty fills every empty cluster (nil centroid) with the point lying
// farthest from its own centroid, taken from a cluster that has more than one
// member. Labels are updated so the partition stays consistent. It reports
// whether any point moved.
func reseedEmpty(x [][]float64, labels []int, centroids [][]float64) bool {
	counts := make([]int, len(centroids))
	for _, l := range labels {
		counts[l]++
	}

	moved := false
	taken := make(map[int]bool)
	for j, c := range centroids {
		if c != nil {
			continue
		}
		far, farD := -1, -1.0
		for i, row := range x {
			l := labels[i]
			if taken[i] || counts[l] <= 1 || centroids[l] == nil {
				continue
			}
			if d := sqDist(row, centroids[l]); d > farD {
				far, farD = i, d
			}
		}
		if far < 0 {
			// Cannot happen when len(x) >= k; keep a defined centroid anyway.
			centroids[j] = clone(x[0])
			continue
		}
		taken[far] = true
		counts[labels[far]]--
		labels[far] = j
		counts[j] = 1
		centroids[j] = clone(x[far])
		moved = true
	}
	return moved
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

package abstraction

import (
	rand "math/rand/v2"
)

// kmeans clusters points into k centroids with k-means++ seeding followed by
// Lloyd's iterations. Points are equity histograms, so squared Euclidean
// distance is the metric throughout.
func kmeans(points [][]float64, k, iterations int, rng *rand.Rand) [][]float64 {
	if len(points) <= k {
		centroids := make([][]float64, len(points))
		for i, p := range points {
			centroids[i] = append([]float64(nil), p...)
		}
		return centroids
	}

	centroids := seedCentroids(points, k, rng)
	assignment := make([]int, len(points))

	for iter := 0; iter < iterations; iter++ {
		changed := false
		for i, p := range points {
			c := nearestCentroid(centroids, p)
			if c != assignment[i] {
				assignment[i] = c
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		dims := len(points[0])
		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, dims)
		}
		for i, p := range points {
			c := assignment[i]
			counts[c]++
			for d, v := range p {
				sums[c][d] += v
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				// Re-seed an empty cluster from a random point.
				centroids[c] = append([]float64(nil), points[rng.IntN(len(points))]...)
				continue
			}
			for d := range sums[c] {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}

	return centroids
}

// seedCentroids implements k-means++: each new centroid is drawn with
// probability proportional to squared distance from the nearest existing one.
func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), points[rng.IntN(len(points))]...))

	dists := make([]float64, len(points))
	for len(centroids) < k {
		total := 0.0
		for i, p := range points {
			d := squaredDistance(centroids[len(centroids)-1], p)
			if len(centroids) == 1 || d < dists[i] {
				dists[i] = d
			}
			total += dists[i]
		}

		if total == 0 {
			centroids = append(centroids, append([]float64(nil), points[rng.IntN(len(points))]...))
			continue
		}

		target := rng.Float64() * total
		idx := 0
		for i, d := range dists {
			target -= d
			if target <= 0 {
				idx = i
				break
			}
		}
		centroids = append(centroids, append([]float64(nil), points[idx]...))
	}

	return centroids
}

func nearestCentroid(centroids [][]float64, p []float64) int {
	best := 0
	bestDist := squaredDistance(centroids[0], p)
	for i := 1; i < len(centroids); i++ {
		if d := squaredDistance(centroids[i], p); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

package analytics

import (
	"math"
	"math/rand/v2"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

const (
	maxIterations = 300
	tolerance     = 1e-4
)

type kmeansFit struct {
	labels    []int
	centroids [][3]float64
	inertia   float64
}

// kmeans runs Lloyd's algorithm from k-means++ seeds drawn with a fixed
// generator, so the same input always yields the same clusters.
func kmeans(points [][3]float64, k int, seed uint64) kmeansFit {
	rng := rand.New(rand.NewPCG(seed, seed))
	centroids := seedPlusPlus(points, k, rng)
	labels := make([]int, len(points))

	for iter := 0; iter < maxIterations; iter++ {
		for i, p := range points {
			labels[i] = nearest(p, centroids)
		}

		next := make([][3]float64, k)
		counts := make([]int, k)
		for i := range points {
			c := labels[i]
			counts[c]++
			floats.Add(next[c][:], points[i][:])
		}
		for c := range next {
			if counts[c] == 0 {
				// an emptied cluster takes the point farthest from its centroid
				next[c] = points[farthest(points, labels, centroids)]
				continue
			}
			floats.Scale(1/float64(counts[c]), next[c][:])
		}

		shift := 0.0
		for c := range centroids {
			shift += sqDist(centroids[c], next[c])
		}
		centroids = next
		if shift <= tolerance {
			break
		}
	}

	inertia := 0.0
	for i, p := range points {
		labels[i] = nearest(p, centroids)
		inertia += sqDist(p, centroids[labels[i]])
	}
	return kmeansFit{labels: labels, centroids: centroids, inertia: inertia}
}

func seedPlusPlus(points [][3]float64, k int, rng *rand.Rand) [][3]float64 {
	centroids := [][3]float64{points[rng.IntN(len(points))]}
	dist := make([]float64, len(points))
	for len(centroids) < k {
		total := 0.0
		for i, p := range points {
			dist[i] = sqDist(p, centroids[nearest(p, centroids)])
			total += dist[i]
		}
		if total == 0 {
			// every remaining point coincides with a centroid
			centroids = append(centroids, points[len(centroids)%len(points)])
			continue
		}
		r := rng.Float64() * total
		pick := len(points) - 1
		for i, d := range dist {
			r -= d
			if r <= 0 && d > 0 {
				pick = i
				break
			}
		}
		centroids = append(centroids, points[pick])
	}
	return centroids
}

func nearest(p [3]float64, centroids [][3]float64) int {
	best, bestD := 0, math.Inf(1)
	for c, ctr := range centroids {
		if d := sqDist(p, ctr); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

func farthest(points [][3]float64, labels []int, centroids [][3]float64) int {
	idx, max := 0, -1.0
	for i, p := range points {
		if d := sqDist(p, centroids[labels[i]]); d > max {
			idx, max = i, d
		}
	}
	return idx
}

func sqDist(a, b [3]float64) float64 {
	d := floats.Distance(a[:], b[:], 2)
	return d * d
}

func itoa(i int) string { return strconv.Itoa(i) }

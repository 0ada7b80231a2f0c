package query

import (
	"context"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/standardbeagle/chaoslens/internal/types"
)

// maxClusterIterations and centroidStopDelta are the k-means stopping
// conditions of spec §4.7.
const (
	maxClusterIterations = 50
	centroidStopDelta    = 1e-4
)

// ClusterPoint is one file placed in (C, S, E) space for clustering.
type ClusterPoint struct {
	Path      string
	Signature types.Signature
}

// ClusterResult assigns each path to a centroid index.
type ClusterResult struct {
	Centroids  [][3]float64
	Assignment map[string]int
}

func vec(sig types.Signature) [3]float64 {
	return [3]float64{sig.Coherence, sig.Stability, sig.Entropy}
}

// sqDist is the squared Euclidean distance k-means minimizes, computed via
// gonum/floats.Distance(a, b, 2) (Euclidean norm), squared.
func sqDist(a, b [3]float64) float64 {
	d := floats.Distance(a[:], b[:], 2)
	return d * d
}

// Cluster implements cluster: K-means over the signature space of the files
// matched by scopeGlob, initialized with k-means++ and stopped at 50
// iterations or centroid movement below 1e-4.
func (s *Surface) Cluster(ctx context.Context, scopeGlob string, k int, rng *rand.Rand) (ClusterResult, error) {
	paths, err := s.Store.ListPaths(ctx, scopeGlob)
	if err != nil {
		return ClusterResult{}, err
	}

	var points []ClusterPoint
	for _, path := range paths {
		sig, err := s.Store.GetSignature(ctx, path)
		if err != nil {
			continue
		}
		points = append(points, ClusterPoint{Path: path, Signature: sig})
	}
	if len(points) == 0 || k <= 0 {
		return ClusterResult{}, nil
	}
	if k > len(points) {
		k = len(points)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	centroids := kmeansPlusPlusInit(points, k, rng)
	assignment := make([]int, len(points))

	for iter := 0; iter < maxClusterIterations; iter++ {
		for i, p := range points {
			assignment[i] = nearestCentroid(vec(p.Signature), centroids)
		}

		newCentroids := recomputeCentroids(points, assignment, centroids)
		movement := 0.0
		for i := range centroids {
			d := floats.Distance(centroids[i][:], newCentroids[i][:], 2)
			if d > movement {
				movement = d
			}
		}
		centroids = newCentroids
		if movement < centroidStopDelta {
			break
		}
	}

	out := ClusterResult{Centroids: centroids, Assignment: make(map[string]int, len(points))}
	for i, p := range points {
		out.Assignment[p.Path] = assignment[i]
	}
	return out, nil
}

// kmeansPlusPlusInit seeds k centroids: the first uniformly at random, each
// subsequent one chosen with probability proportional to its squared
// distance from the nearest already-chosen centroid.
func kmeansPlusPlusInit(points []ClusterPoint, k int, rng *rand.Rand) [][3]float64 {
	centroids := make([][3]float64, 0, k)
	first := vec(points[rng.Intn(len(points))].Signature)
	centroids = append(centroids, first)

	for len(centroids) < k {
		weights := make([]float64, len(points))
		var total float64
		for i, p := range points {
			v := vec(p.Signature)
			best := sqDist(v, centroids[0])
			for _, c := range centroids[1:] {
				if d := sqDist(v, c); d < best {
					best = d
				}
			}
			weights[i] = best
			total += best
		}
		if total == 0 {
			centroids = append(centroids, vec(points[rng.Intn(len(points))].Signature))
			continue
		}
		target := rng.Float64() * total
		var cumulative float64
		chosen := len(points) - 1
		for i, w := range weights {
			cumulative += w
			if cumulative >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, vec(points[chosen].Signature))
	}
	return centroids
}

func nearestCentroid(v [3]float64, centroids [][3]float64) int {
	best := 0
	bestDist := sqDist(v, centroids[0])
	for i, c := range centroids[1:] {
		if d := sqDist(v, c); d < bestDist {
			bestDist = d
			best = i + 1
		}
	}
	return best
}

func recomputeCentroids(points []ClusterPoint, assignment []int, prev [][3]float64) [][3]float64 {
	sums := make([][3]float64, len(prev))
	counts := make([]int, len(prev))
	for i, p := range points {
		c := assignment[i]
		v := vec(p.Signature)
		sums[c][0] += v[0]
		sums[c][1] += v[1]
		sums[c][2] += v[2]
		counts[c]++
	}

	out := make([][3]float64, len(prev))
	for i := range prev {
		if counts[i] == 0 {
			out[i] = prev[i]
			continue
		}
		out[i] = [3]float64{
			sums[i][0] / float64(counts[i]),
			sums[i][1] / float64(counts[i]),
			sums[i][2] / float64(counts[i]),
		}
	}
	return out
}

// sortedPaths is a small helper used by tests to get deterministic output
// order from a ClusterResult's assignment map.
func sortedPaths(assignment map[string]int) []string {
	out := make([]string, 0, len(assignment))
	for p := range assignment {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

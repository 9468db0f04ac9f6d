package vector

// kmeansIterations bounds Lloyd iterations during IVF training. Coarse
// quantization does not need convergence to machine precision; FAISS uses
// a similarly small fixed count.
const kmeansIterations = 25

// kmeans clusters the training vectors into k centroids using Lloyd's
// algorithm and returns them as k*dim contiguous floats. Seeding is
// deterministic (evenly spaced training vectors) so training the same
// data always yields the same index.
func kmeans(vectors [][]float32, k, dim int) []float32 {
	n := len(vectors)
	centroids := make([]float32, k*dim)
	for c := 0; c < k; c++ {
		copy(centroids[c*dim:], vectors[c*n/k])
	}

	assign := make([]int, n)
	sums := make([]float64, k*dim)
	counts := make([]int, k)

	for iter := 0; iter < kmeansIterations; iter++ {
		changed := false
		for i, v := range vectors {
			best, bestDist := 0, float32(0)
			for c := 0; c < k; c++ {
				d := l2Squared(v, centroids[c*dim:(c+1)*dim])
				if c == 0 || d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if iter > 0 && !changed {
			break
		}

		for i := range sums {
			sums[i] = 0
		}
		for i := range counts {
			counts[i] = 0
		}
		for i, v := range vectors {
			c := assign[i]
			counts[c]++
			for j, x := range v {
				sums[c*dim+j] += float64(x)
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Empty cluster: keep its previous centroid rather than
				// producing NaNs.
				continue
			}
			for j := 0; j < dim; j++ {
				centroids[c*dim+j] = float32(sums[c*dim+j] / float64(counts[c]))
			}
		}
	}
	return centroids
}

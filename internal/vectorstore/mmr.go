package vectorstore

import "math"

// maxMarginalRelevance picks k candidates by balancing similarity to the query
// against similarity to what has already been picked.
// MMR(c) = λ * sim(query, c) - (1-λ) * max sim(c, selected)
// Returns indices into candidates in selection order.
func maxMarginalRelevance(query []float32, candidates [][]float32, k int, lambda float64) []int {
	if len(candidates) == 0 || k <= 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	relevance := make([]float64, len(candidates))
	for i, c := range candidates {
		relevance[i] = cosineSimilarity(query, c)
	}

	selected := make([]int, 0, k)
	used := make([]bool, len(candidates))

	for len(selected) < k {
		bestIdx := -1
		bestScore := math.Inf(-1)

		for i, c := range candidates {
			if used[i] {
				continue
			}

			maxSim := 0.0
			if len(selected) > 0 {
				maxSim = math.Inf(-1)
			}
			for _, j := range selected {
				if sim := cosineSimilarity(c, candidates[j]); sim > maxSim {
					maxSim = sim
				}
			}

			score := lambda*relevance[i] - (1-lambda)*maxSim
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		if bestIdx == -1 {
			break
		}
		used[bestIdx] = true
		selected = append(selected, bestIdx)
	}

	return selected
}

// cosineSimilarity returns 0 for zero vectors instead of NaN.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

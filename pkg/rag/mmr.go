package rag

import "bankcrew/pkg/memory"

// maxMarginalRelevance re-ranks candidates so the picked set balances
// similarity to the query against diversity among the picks. lambda 1 is
// pure relevance, lambda 0 pure diversity.
func maxMarginalRelevance(query []float32, candidates []memory.SearchResult, k int, lambda float64) []memory.SearchResult {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if len(candidates) <= k {
		return candidates
	}

	remaining := make([]memory.SearchResult, len(candidates))
	copy(remaining, candidates)

	var picked []memory.SearchResult
	for len(picked) < k && len(remaining) > 0 {
		bestIdx := 0
		bestScore := -1e9
		for i, cand := range remaining {
			relevance := float64(memory.CosineSimilarity(query, cand.Point.Vector))
			redundancy := 0.0
			for _, p := range picked {
				sim := float64(memory.CosineSimilarity(cand.Point.Vector, p.Point.Vector))
				if sim > redundancy {
					redundancy = sim
				}
			}
			score := lambda*relevance - (1-lambda)*redundancy
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		picked = append(picked, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return picked
}

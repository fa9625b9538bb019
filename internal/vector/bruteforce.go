package vector

import "sort"

// bruteForce scans cache (pk -> normalized vector) computing dist against
// query, optionally restricted to whitelist, and returns the k closest.
// Used both as the HNSW-unavailable fallback and for prefilter re-ranking.
func bruteForce(cache map[string][]float32, query []float32, k int, whitelist map[string]bool, dist func(a, b []float32) float32) []Result {
	candidates := make([]Result, 0, len(cache))
	for pk, vec := range cache {
		if whitelist != nil && !whitelist[pk] {
			continue
		}
		candidates = append(candidates, Result{PK: pk, Distance: dist(query, vec)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].PK < candidates[j].PK // deterministic tie-break on equal distance
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

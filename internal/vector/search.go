package vector

// SearchKnn resolves the k nearest pks to query. Without a whitelist it
// queries the ANN graph directly at ef=efSearch; with one it runs iterative
// HNSW prefiltering, falling back to brute force over the whitelist if HNSW
// is unavailable or still short after max_attempts.
func (m *Manager) SearchKnn(query []float32, k int, whitelist map[string]bool) ([]Result, error) {
	if len(query) != m.cfg.Dim {
		return nil, ErrDimensionMismatch
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := normalize(m.cfg.Metric, query)
	dist := distanceFor(m.cfg.Metric)

	if m.ann == nil {
		return bruteForce(m.cache, q, k, whitelist, dist), nil
	}
	if whitelist == nil {
		return m.searchAnnLocked(q, k), nil
	}
	return m.searchPrefilterLocked(q, k, whitelist, dist), nil
}

func (m *Manager) searchAnnLocked(q []float32, k int) []Result {
	hits := m.ann.Search(q, k)
	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		pk, ok := m.idToPK[h.id]
		if !ok {
			continue // tombstoned id the library hasn't pruned yet
		}
		out = append(out, Result{PK: pk, Distance: h.dist})
	}
	return out
}

// searchPrefilterLocked fetches initial_factor*k candidates from HNSW,
// intersects with whitelist, and multiplies the fetch count by
// growth_factor on each of up to max_attempts retries if short of
// min_candidates; efSearch stays at its configured value. Falls back to
// brute force over the whitelist if still short of k.
func (m *Manager) searchPrefilterLocked(q []float32, k int, whitelist map[string]bool, dist func(a, b []float32) float32) []Result {
	cfg := m.cfg.Prefilter
	if !cfg.Enabled {
		return bruteForce(m.cache, q, k, whitelist, dist)
	}

	fetch := k * cfg.InitialFactor
	if fetch < k {
		fetch = k
	}
	var filtered []Result
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		hits := m.ann.Search(q, fetch)
		filtered = filtered[:0]
		for _, h := range hits {
			pk, ok := m.idToPK[h.id]
			if !ok || !whitelist[pk] {
				continue
			}
			filtered = append(filtered, Result{PK: pk, Distance: h.dist})
		}
		if len(filtered) >= cfg.MinCandidates || len(filtered) >= k {
			break
		}
		fetch = int(float64(fetch) * cfg.GrowthFactor)
	}
	if len(filtered) < k {
		return bruteForce(m.cache, q, k, whitelist, dist)
	}
	if len(filtered) > k {
		filtered = filtered[:k]
	}
	return filtered
}

// SearchKnnFiltered resolves attrFilters (table, col->val equality pairs)
// via the secondary index manager's equality scans, intersects the
// resulting pk sets, and calls SearchKnn with that whitelist.
func (m *Manager) SearchKnnFiltered(query []float32, k int, resolve func(col, val string) ([]string, error), attrFilters map[string]string) ([]Result, error) {
	if len(attrFilters) == 0 {
		return m.SearchKnn(query, k, nil)
	}
	var whitelist map[string]bool
	for col, val := range attrFilters {
		pks, err := resolve(col, val)
		if err != nil {
			return nil, err
		}
		set := make(map[string]bool, len(pks))
		for _, pk := range pks {
			set[pk] = true
		}
		if whitelist == nil {
			whitelist = set
			continue
		}
		for pk := range whitelist {
			if !set[pk] {
				delete(whitelist, pk)
			}
		}
	}
	return m.SearchKnn(query, k, whitelist)
}

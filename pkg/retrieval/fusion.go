package retrieval

import (
	"sort"

	"toolsearch/pkg/model"
)

// rrfK is the Reciprocal Rank Fusion constant fixed by spec §4.5/GLOSSARY.
const rrfK = 60

// maxFusedResults truncates fusion output to an implementation-chosen
// maximum per spec §4.5 ("Output is truncated to an implementation-
// chosen maximum (e.g., 100)").
const maxFusedResults = 100

// sourceResult is one source's candidate list, tagged with the name
// fusion uses to key provenance merges and, for weighted_sum, the
// weight configured on the plan.
type sourceResult struct {
	name       string
	weight     float64
	candidates []model.Candidate
}

// Fuse merges per-source candidate lists into one ranked list according
// to method ("rrf", "weighted_sum", or "none"). Fusion is deterministic:
// permuting the order sources appear in does not change which ids are
// returned or their order, since every candidate is identified by
// canonical id, its scores are summed per id, and the final sort breaks
// ties by id. Which source's metadata a merged candidate keeps, and the
// order of its merged provenance, follow the order of sources.
func Fuse(method string, sources []sourceResult) []model.Candidate {
	switch method {
	case "none":
		return fusePassThrough(sources)
	case "weighted_sum":
		return fuseWeightedSum(sources)
	default: // "rrf" and any unrecognized value default to RRF
		return fuseRRF(sources)
	}
}

// fusePassThrough is used when only one source contributed; it returns
// that source's candidates unchanged (still truncated and tie-broken
// for determinism).
func fusePassThrough(sources []sourceResult) []model.Candidate {
	var out []model.Candidate
	for _, s := range sources {
		out = append(out, s.candidates...)
	}
	return truncate(stableSortByScore(out))
}

type fusedEntry struct {
	candidate  model.Candidate
	score      float64
	provenance []model.Provenance
}

// fuseRRF implements Reciprocal Rank Fusion: fusedScore(id) = sum over
// sources s where id appears at rank r_s of 1/(k + r_s). Candidates
// sharing an id across sources are merged into one entry with combined
// provenance; the first-seen candidate's metadata is kept (sources
// agree on the same underlying tool record).
func fuseRRF(sources []sourceResult) []model.Candidate {
	entries := make(map[string]*fusedEntry)
	order := make([]string, 0)

	for _, s := range sources {
		for _, c := range s.candidates {
			e, ok := entries[c.ID]
			if !ok {
				e = &fusedEntry{candidate: c}
				entries[c.ID] = e
				order = append(order, c.ID)
			}
			e.score += 1.0 / float64(rrfK+c.Provenance.RankInSource)
			e.provenance = append(e.provenance, c.Provenance)
		}
	}

	return finalize(entries, order, "fusion")
}

// fuseWeightedSum rescales each source's scores to [0,1] via per-source
// min-max scaling, then sums weight_s * score_s across sources. A
// candidate absent from a source contributes 0 for that source.
func fuseWeightedSum(sources []sourceResult) []model.Candidate {
	entries := make(map[string]*fusedEntry)
	order := make([]string, 0)

	for _, s := range sources {
		scaled := minMaxScale(s.candidates)
		for i, c := range s.candidates {
			e, ok := entries[c.ID]
			if !ok {
				e = &fusedEntry{candidate: c}
				entries[c.ID] = e
				order = append(order, c.ID)
			}
			e.score += s.weight * scaled[i]
			e.provenance = append(e.provenance, c.Provenance)
		}
	}

	return finalize(entries, order, "fusion")
}

// minMaxScale rescales candidate scores within one source to [0,1].
// When every candidate has the same score (including the single-
// candidate case), all scale to 1.0 so a lone source is not zeroed out.
func minMaxScale(candidates []model.Candidate) []float64 {
	scaled := make([]float64, len(candidates))
	if len(candidates) == 0 {
		return scaled
	}
	min, max := candidates[0].Score, candidates[0].Score
	for _, c := range candidates {
		if c.Score < min {
			min = c.Score
		}
		if c.Score > max {
			max = c.Score
		}
	}
	spread := max - min
	for i, c := range candidates {
		if spread == 0 {
			scaled[i] = 1.0
			continue
		}
		scaled[i] = (c.Score - min) / spread
	}
	return scaled
}

func finalize(entries map[string]*fusedEntry, order []string, source string) []model.Candidate {
	out := make([]model.Candidate, 0, len(entries))
	for _, id := range order {
		e := entries[id]
		merged := e.candidate
		merged.Source = source
		merged.Score = e.score
		merged.Provenance = mergeProvenance(e.provenance)
		out = append(out, merged)
	}
	return truncate(stableSortByScore(out))
}

// mergeProvenance combines provenance entries contributed by different
// sources for the same fused candidate, concatenating filtersApplied
// and keeping the best (lowest) rankInSource observed.
func mergeProvenance(entries []model.Provenance) model.Provenance {
	merged := entries[0]
	for _, p := range entries[1:] {
		if p.RankInSource < merged.RankInSource {
			merged.RankInSource = p.RankInSource
		}
		merged.FiltersApplied = append(merged.FiltersApplied, p.FiltersApplied...)
		if merged.Collection != p.Collection {
			merged.Collection = merged.Collection + "+" + p.Collection
		}
	}
	return merged
}

// stableSortByScore orders candidates by descending fused score, with
// a deterministic lexicographic-id tie-break per spec §4.5/§8.
func stableSortByScore(candidates []model.Candidate) []model.Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates
}

func truncate(candidates []model.Candidate) []model.Candidate {
	if len(candidates) > maxFusedResults {
		return candidates[:maxFusedResults]
	}
	return candidates
}

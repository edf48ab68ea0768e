package retrieval

import (
	"testing"

	"toolsearch/pkg/model"
)

func cand(id string, score float64, rank int) model.Candidate {
	return model.Candidate{
		ID:         id,
		Score:      score,
		Provenance: model.Provenance{RankInSource: rank},
	}
}

func TestFuseRRFCombinesSharedIDs(t *testing.T) {
	a := sourceResult{name: "semantic", candidates: []model.Candidate{
		cand("x", 0.9, 0),
		cand("y", 0.8, 1),
	}}
	b := sourceResult{name: "functionality", candidates: []model.Candidate{
		cand("y", 0.95, 0),
		cand("z", 0.7, 1),
	}}

	fused := Fuse("rrf", []sourceResult{a, b})
	if len(fused) != 3 {
		t.Fatalf("len(fused) = %d, want 3", len(fused))
	}
	// y appears at rank 0 in b and rank 1 in a: 1/60 + 1/61, the highest score.
	if fused[0].ID != "y" {
		t.Errorf("fused[0].ID = %q, want %q", fused[0].ID, "y")
	}
}

func TestFuseRRFIsOrderIndependent(t *testing.T) {
	a := sourceResult{name: "a", candidates: []model.Candidate{cand("x", 0.9, 0), cand("y", 0.5, 1)}}
	b := sourceResult{name: "b", candidates: []model.Candidate{cand("y", 0.95, 0), cand("z", 0.4, 1)}}

	first := Fuse("rrf", []sourceResult{a, b})
	second := Fuse("rrf", []sourceResult{b, a})

	if len(first) != len(second) {
		t.Fatalf("len mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Score != second[i].Score {
			t.Errorf("order dependence at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestFuseRRFTieBreaksLexicographically(t *testing.T) {
	a := sourceResult{name: "a", candidates: []model.Candidate{cand("b", 1.0, 0), cand("a", 1.0, 0)}}

	fused := Fuse("rrf", []sourceResult{a})
	if fused[0].ID != "a" || fused[1].ID != "b" {
		t.Errorf("fused = %+v, want [a, b] tie-broken lexicographically", fused)
	}
}

func TestFuseWeightedSumAppliesWeights(t *testing.T) {
	heavy := sourceResult{name: "heavy", weight: 1.0, candidates: []model.Candidate{
		cand("x", 1.0, 0),
		cand("y", 0.0, 1),
	}}
	light := sourceResult{name: "light", weight: 0.1, candidates: []model.Candidate{
		cand("y", 1.0, 0),
		cand("x", 0.0, 1),
	}}

	fused := Fuse("weighted_sum", []sourceResult{heavy, light})
	if fused[0].ID != "x" {
		t.Errorf("fused[0].ID = %q, want %q (heavier source should dominate)", fused[0].ID, "x")
	}
}

func TestFuseNonePassesThrough(t *testing.T) {
	a := sourceResult{name: "only", candidates: []model.Candidate{cand("x", 0.9, 0), cand("y", 0.8, 1)}}
	fused := Fuse("none", []sourceResult{a})
	if len(fused) != 2 || fused[0].ID != "x" || fused[1].ID != "y" {
		t.Errorf("fused = %+v, want pass-through order", fused)
	}
}

func TestMinMaxScaleHandlesEqualScores(t *testing.T) {
	scaled := minMaxScale([]model.Candidate{cand("x", 0.5, 0), cand("y", 0.5, 1)})
	for i, s := range scaled {
		if s != 1.0 {
			t.Errorf("scaled[%d] = %v, want 1.0 when all scores equal", i, s)
		}
	}
}

func TestTruncateCapsResults(t *testing.T) {
	var many []model.Candidate
	for i := 0; i < maxFusedResults+20; i++ {
		many = append(many, cand(string(rune('a'+i%26))+string(rune(i)), float64(i), i))
	}
	if got := truncate(many); len(got) != maxFusedResults {
		t.Errorf("len(truncate(many)) = %d, want %d", len(got), maxFusedResults)
	}
}

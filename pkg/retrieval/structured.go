package retrieval

import (
	"context"
	"fmt"

	"toolsearch/pkg/docstore"
	"toolsearch/pkg/model"
)

// StructuredExecutor runs a single StructuredSource against the
// document store, grounded on the teacher's retriever-with-a-Search-
// method shape but backed by docstore.Store instead of a keyword
// index: conjunctive filters, deterministic operator mapping, constant
// score per spec §4.4 (structured hits are rank-only and re-weighted
// during fusion).
type StructuredExecutor struct {
	store docstore.Store
}

// NewStructuredExecutor builds a StructuredExecutor.
func NewStructuredExecutor(store docstore.Store) *StructuredExecutor {
	return &StructuredExecutor{store: store}
}

// structuredCandidateScore is the constant score spec §4.4 assigns to
// every structured hit before fusion re-weights it.
const structuredCandidateScore = 0.5

// Run executes source's filters conjunctively and returns Candidates
// at the constant structured score, preserving insertion rank. warnings
// reports any operator that fell back to equality for an unrecognized
// value, for the caller to record as a recovered error.
func (e *StructuredExecutor) Run(ctx context.Context, source model.StructuredSource) (candidates []model.Candidate, warnings []string, err error) {
	filters := make([]docstore.Filter, 0, len(source.Filters))
	for _, f := range source.Filters {
		op, known := mapOperator(f.Operator)
		if !known {
			warnings = append(warnings, fmt.Sprintf("unknown operator %q on field %q treated as =", f.Operator, f.Field))
		}
		filters = append(filters, docstore.Filter{Field: f.Field, Operator: op, Value: f.Value})
	}

	resp, err := e.store.Query(ctx, &docstore.QueryRequest{
		Collection: source.Collection,
		Filters:    filters,
		TopK:       source.TopK,
	})
	if err != nil {
		return nil, warnings, fmt.Errorf("%w: structured query on %q: %v", model.ErrSource, source.Collection, err)
	}

	appliedFields := make([]string, 0, len(source.Filters))
	for _, f := range source.Filters {
		appliedFields = append(appliedFields, f.Field)
	}

	candidates = make([]model.Candidate, 0, len(resp.Records))
	for i, record := range resp.Records {
		candidates = append(candidates, model.Candidate{
			ID:       record.ID,
			Source:   source.Collection,
			Score:    structuredCandidateScore,
			Metadata: metadataFromRecord(record),
			Provenance: model.Provenance{
				Collection:     source.Collection,
				FiltersApplied: appliedFields,
				RankInSource:   i,
			},
		})
	}
	return candidates, warnings, nil
}

// mapOperator translates a plan-level operator string into a
// docstore.FilterOperator. The bool is false for an unrecognized
// operator, which is still mapped to equality (per spec §4.4) but
// should be recorded by the caller as a recovered error.
func mapOperator(op string) (docstore.FilterOperator, bool) {
	switch op {
	case "=":
		return docstore.OpEquals, true
	case "in":
		return docstore.OpIn, true
	case "contains":
		return docstore.OpContains, true
	case ">":
		return docstore.OpGreaterThan, true
	case "<":
		return docstore.OpLessThan, true
	case ">=":
		return docstore.OpGreaterEq, true
	case "<=":
		return docstore.OpLessEq, true
	default:
		return docstore.OpEquals, false
	}
}

func metadataFromRecord(record docstore.Record) model.CandidateMetadata {
	meta := model.CandidateMetadata{}
	if v, ok := record.Fields["name"].(string); ok {
		meta.Name = v
	}
	if v, ok := record.Fields["category"].(string); ok {
		meta.Category = v
	}
	if v, ok := record.Fields["pricing"].(string); ok {
		meta.Pricing = v
	}
	if v, ok := record.Fields["interface"].(string); ok {
		meta.Interface = v
	}
	if v, ok := record.Fields["deployment"].(string); ok {
		meta.Deployment = v
	}
	if v, ok := record.Fields["description"].(string); ok {
		meta.Description = v
	}
	if v, ok := record.Fields["features"].([]string); ok {
		meta.Features = v
	}
	return meta
}

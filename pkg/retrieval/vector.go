// Package retrieval executes a QueryPlan against the vector store and
// structured document store, and fuses the resulting per-source
// candidate lists into one ranked list.
package retrieval

import (
	"context"
	"fmt"

	"toolsearch/pkg/embedding"
	"toolsearch/pkg/model"
	"toolsearch/pkg/vectorstore"
)

// VectorExecutor runs a single VectorSource against the vector store,
// generalizing pkg/retrieval/vector.go's embed-then-search shape to the
// plan's queryVectorSource variants (query_text / reference_tool /
// semantic_variant[i]).
type VectorExecutor struct {
	store    vectorstore.Store
	embedder embedding.Embedder
}

// NewVectorExecutor builds a VectorExecutor.
func NewVectorExecutor(store vectorstore.Store, embedder embedding.Embedder) *VectorExecutor {
	return &VectorExecutor{store: store, embedder: embedder}
}

// Run embeds the text selected by source.QueryVectorSource, searches
// source.Collection, and returns normalized Candidates with scores
// copied verbatim (natural cosine-similarity units) and rankInSource
// set to each result's position.
func (v *VectorExecutor) Run(ctx context.Context, source model.VectorSource, query string, intent *model.IntentState) ([]model.Candidate, error) {
	text, ok := resolveQueryText(source.QueryVectorSource, query, intent)
	if !ok {
		// source references a field the intent never populated
		// (e.g. reference_tool absent); per spec §4.4 this source is
		// skipped, not an error.
		return nil, nil
	}

	embedResp, err := v.embedder.Embed(ctx, &embedding.EmbedRequest{Texts: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query text: %v", model.ErrEmbed, err)
	}
	if len(embedResp.Vectors) == 0 {
		return nil, fmt.Errorf("%w: embedder returned no vectors", model.ErrEmbed)
	}

	filter := make(vectorstore.Filter, len(source.Filter))
	for k, val := range source.Filter {
		filter[k] = val
	}

	resp, err := v.store.Search(ctx, &vectorstore.SearchRequest{
		CollectionName: source.Collection,
		Vector:         embedResp.Vectors[0].Embedding,
		TopK:           source.TopK,
		Filter:         filter,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: vector search on %q: %v", model.ErrSource, source.Collection, err)
	}

	candidates := make([]model.Candidate, 0, len(resp.Documents))
	for i, doc := range resp.Documents {
		candidates = append(candidates, model.Candidate{
			ID:     doc.ID,
			Source: source.Collection,
			Score:  float64(doc.Score),
			Metadata: metadataFromDocument(doc),
			Provenance: model.Provenance{
				Collection:        source.Collection,
				QueryVectorSource: source.QueryVectorSource,
				RankInSource:      i,
			},
		})
	}
	return candidates, nil
}

// resolveQueryText maps a queryVectorSource selector to the text that
// should be embedded. The bool return is false when the selector names
// a field the intent never populated, signaling the caller to skip
// this source rather than error.
func resolveQueryText(selector, query string, intent *model.IntentState) (string, bool) {
	switch {
	case selector == "" || selector == "query_text":
		return query, true
	case selector == "reference_tool":
		if intent == nil || intent.ReferenceTool == "" {
			return "", false
		}
		return intent.ReferenceTool, true
	case len(selector) > len("semantic_variant[") && selector[:len("semantic_variant[")] == "semantic_variant[":
		idx := parseVariantIndex(selector)
		if idx < 0 || intent == nil || idx >= len(intent.SemanticVariants) {
			return "", false
		}
		return intent.SemanticVariants[idx], true
	default:
		return query, true
	}
}

func parseVariantIndex(selector string) int {
	start := len("semantic_variant[")
	end := len(selector) - 1
	if end <= start || selector[end] != ']' {
		return -1
	}
	n := 0
	for _, r := range selector[start:end] {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func metadataFromDocument(doc vectorstore.Document) model.CandidateMetadata {
	meta := model.CandidateMetadata{}
	if v, ok := doc.Metadata["name"].(string); ok {
		meta.Name = v
	}
	if v, ok := doc.Metadata["category"].(string); ok {
		meta.Category = v
	}
	if v, ok := doc.Metadata["pricing"].(string); ok {
		meta.Pricing = v
	}
	if v, ok := doc.Metadata["interface"].(string); ok {
		meta.Interface = v
	}
	if v, ok := doc.Metadata["deployment"].(string); ok {
		meta.Deployment = v
	}
	if v, ok := doc.Metadata["description"].(string); ok {
		meta.Description = v
	}
	if v, ok := doc.Metadata["features"].([]string); ok {
		meta.Features = v
	}
	return meta
}

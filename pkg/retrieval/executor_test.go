package retrieval

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/goleak"

	"toolsearch/pkg/docstore"
	"toolsearch/pkg/embedding"
	"toolsearch/pkg/model"
	"toolsearch/pkg/vectorstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubVectorStore is a hand-rolled vectorstore.Store stub returning a
// fixed response per collection, or an error when named in errCollections.
type stubVectorStore struct {
	vectorstore.Store
	responses     map[string][]vectorstore.Document
	errCollections map[string]error
}

func (s *stubVectorStore) Search(ctx context.Context, req *vectorstore.SearchRequest) (*vectorstore.SearchResponse, error) {
	if err, ok := s.errCollections[req.CollectionName]; ok {
		return nil, err
	}
	return &vectorstore.SearchResponse{Documents: s.responses[req.CollectionName]}, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, req *embedding.EmbedRequest) (*embedding.EmbedResponse, error) {
	vectors := make([]embedding.Vector, len(req.Texts))
	for i := range req.Texts {
		vectors[i] = embedding.Vector{Embedding: []float32{0.1, 0.2, 0.3}}
	}
	return &embedding.EmbedResponse{Vectors: vectors}, nil
}
func (stubEmbedder) Dimensions() int     { return 3 }
func (stubEmbedder) ModelName() string   { return "stub" }

type stubDocStore struct {
	docstore.Store
	responses map[string][]docstore.Record
	err       error
}

func (s *stubDocStore) Query(ctx context.Context, req *docstore.QueryRequest) (*docstore.QueryResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &docstore.QueryResponse{Records: s.responses[req.Collection]}, nil
}

func TestExecutorRunFusesAcrossSources(t *testing.T) {
	vs := &stubVectorStore{responses: map[string][]vectorstore.Document{
		"semantic": {{ID: "tool-a", Score: 0.9}, {ID: "tool-b", Score: 0.8}},
	}}
	ds := &stubDocStore{responses: map[string][]docstore.Record{
		"tools": {{ID: "tool-b", Fields: map[string]any{"name": "Tool B"}}},
	}}
	exec := NewExecutor(vs, stubEmbedder{}, ds, nil)

	plan := &model.QueryPlan{
		Strategy:          "hybrid",
		VectorSources:     []model.VectorSource{{Collection: "semantic", TopK: 10}},
		StructuredSources: []model.StructuredSource{{Collection: "tools", TopK: 10}},
		Fusion:            "rrf",
	}

	result, err := exec.Run(context.Background(), plan, "free cli tool", &model.IntentState{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Candidates) != 2 {
		t.Fatalf("len(Candidates) = %d, want 2", len(result.Candidates))
	}
	if len(result.Recovered) != 0 {
		t.Errorf("Recovered = %+v, want none", result.Recovered)
	}
}

func TestExecutorRunRecoversFromSingleSourceFailure(t *testing.T) {
	vs := &stubVectorStore{
		responses:      map[string][]vectorstore.Document{"semantic": {{ID: "tool-a", Score: 0.9}}},
		errCollections: map[string]error{"functionality": errors.New("connection refused")},
	}
	ds := &stubDocStore{responses: map[string][]docstore.Record{}}
	exec := NewExecutor(vs, stubEmbedder{}, ds, nil)

	plan := &model.QueryPlan{
		Strategy: "multi_collection_hybrid",
		VectorSources: []model.VectorSource{
			{Collection: "semantic", TopK: 10},
			{Collection: "functionality", TopK: 10},
		},
		Fusion: "rrf",
	}

	result, err := exec.Run(context.Background(), plan, "query", &model.IntentState{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Candidates) != 1 {
		t.Errorf("len(Candidates) = %d, want 1 surviving", len(result.Candidates))
	}
	if len(result.Recovered) != 1 || result.Recovered[0].Source != "functionality" {
		t.Errorf("Recovered = %+v, want one entry for functionality", result.Recovered)
	}
}

func TestExecutorRunFailsWhenEverySourceFails(t *testing.T) {
	vs := &stubVectorStore{errCollections: map[string]error{"semantic": errors.New("down")}}
	ds := &stubDocStore{err: errors.New("down")}
	exec := NewExecutor(vs, stubEmbedder{}, ds, nil)

	plan := &model.QueryPlan{
		VectorSources:     []model.VectorSource{{Collection: "semantic", TopK: 10}},
		StructuredSources: []model.StructuredSource{{Collection: "tools", TopK: 10}},
		Fusion:            "rrf",
	}

	result, err := exec.Run(context.Background(), plan, "query", &model.IntentState{})
	if !errors.Is(err, model.ErrFusion) {
		t.Errorf("Run() error = %v, want wrapping ErrFusion", err)
	}
	if result == nil || len(result.Candidates) != 0 {
		t.Errorf("Candidates = %+v, want an empty, non-nil slice", result)
	}
	if result == nil || len(result.Recovered) != 2 {
		t.Errorf("Recovered = %+v, want one entry per failed source", result.Recovered)
	}
}

func TestExecutorRunHonorsCancellation(t *testing.T) {
	vs := &stubVectorStore{responses: map[string][]vectorstore.Document{"semantic": {{ID: "x", Score: 1}}}}
	ds := &stubDocStore{}
	exec := NewExecutor(vs, stubEmbedder{}, ds, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan := &model.QueryPlan{VectorSources: []model.VectorSource{{Collection: "semantic", TopK: 10}}, Fusion: "none"}
	_, err := exec.Run(ctx, plan, "query", &model.IntentState{})
	if err == nil {
		t.Fatal("Run() error = nil, want a deadline/cancellation error")
	}
}

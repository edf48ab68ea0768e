package intent

import (
	"context"
	"errors"
	"testing"

	"toolsearch/pkg/domainschema"
	"toolsearch/pkg/llm"
	"toolsearch/pkg/model"
)

// fakeProvider is a hand-rolled llm.Provider stub; fakeStructuredProvider
// additionally implements llm.StructuredProvider.
type fakeProvider struct {
	completions []string
	callCount   int
	err         error
}

func (f *fakeProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	idx := f.callCount
	if idx >= len(f.completions) {
		idx = len(f.completions) - 1
	}
	f.callCount++
	return &llm.CompletionResponse{Content: f.completions[idx]}, nil
}
func (f *fakeProvider) Name() string           { return "fake" }
func (f *fakeProvider) ModelName() string      { return "fake-model" }
func (f *fakeProvider) SupportsStreaming() bool { return false }

type fakeStructuredProvider struct {
	fakeProvider
	jsonResponses []string
}

func (f *fakeStructuredProvider) ChatStructured(ctx context.Context, req *llm.StructuredRequest) (*llm.StructuredResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	idx := f.callCount
	if idx >= len(f.jsonResponses) {
		idx = len(f.jsonResponses) - 1
	}
	f.callCount++
	return &llm.StructuredResponse{JSON: f.jsonResponses[idx]}, nil
}

func testRegistry(t *testing.T) *domainschema.Registry {
	t.Helper()
	r := domainschema.NewRegistry()
	if err := r.RegisterBuiltIn(); err != nil {
		t.Fatalf("RegisterBuiltIn() error = %v", err)
	}
	return r
}

func TestExtractRejectsEmptyQuery(t *testing.T) {
	e := New(&fakeProvider{}, testRegistry(t), nil, nil)
	_, err := e.Extract(context.Background(), "   ")
	if !errors.Is(err, model.ErrBadInput) {
		t.Fatalf("Extract(empty) error = %v, want ErrBadInput", err)
	}
}

func TestExtractUsesStructuredProviderWhenAvailable(t *testing.T) {
	provider := &fakeStructuredProvider{jsonResponses: []string{
		`{"primary_goal": "find", "category": "CLI", "confidence": 0.9}`,
	}}
	e := New(provider, testRegistry(t), nil, nil)

	state, err := e.Extract(context.Background(), "free cli tool")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if state.PrimaryGoal != "find" {
		t.Errorf("PrimaryGoal = %q, want find", state.PrimaryGoal)
	}
	if state.Category != "CLI" {
		t.Errorf("Category = %q, want CLI (canonicalized)", state.Category)
	}
	if provider.callCount != 1 {
		t.Errorf("callCount = %d, want 1 (no retry needed)", provider.callCount)
	}
}

func TestExtractFallsBackToCompleteAndTolerantParsing(t *testing.T) {
	provider := &fakeProvider{completions: []string{
		"<think>reasoning...</think>```json\n{\"primary_goal\": \"compare\", \"comparison_mode\": \"vs\", \"confidence\": 0.8}\n```",
	}}
	e := New(provider, testRegistry(t), nil, nil)

	state, err := e.Extract(context.Background(), "Amazon Q vs GitHub Copilot")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if state.PrimaryGoal != "compare" {
		t.Errorf("PrimaryGoal = %q, want compare", state.PrimaryGoal)
	}
	if state.ComparisonMode != "vs" {
		t.Errorf("ComparisonMode = %q, want vs", state.ComparisonMode)
	}
}

func TestExtractRetriesOnceOnParseFailureThenFails(t *testing.T) {
	provider := &fakeProvider{completions: []string{"not json at all", "still not json"}}
	e := New(provider, testRegistry(t), nil, nil)

	_, err := e.Extract(context.Background(), "self hosted cli")
	if !errors.Is(err, model.ErrIntent) {
		t.Fatalf("Extract() error = %v, want ErrIntent", err)
	}
	if provider.callCount != 2 {
		t.Errorf("callCount = %d, want 2 (initial + one retry)", provider.callCount)
	}
}

func TestExtractRejectsValueOutsideVocabularyThenFails(t *testing.T) {
	provider := &fakeProvider{completions: []string{
		`{"primary_goal": "find", "interface": "FooBar", "confidence": 0.7}`,
		`{"primary_goal": "find", "interface": "FooBar", "confidence": 0.7}`,
	}}
	e := New(provider, testRegistry(t), nil, nil)

	_, err := e.Extract(context.Background(), "a tool with FooBar interface")
	if !errors.Is(err, model.ErrIntent) {
		t.Fatalf("Extract() error = %v, want ErrIntent", err)
	}
	if provider.callCount != 2 {
		t.Errorf("callCount = %d, want 2 (initial + one retry)", provider.callCount)
	}
}

func TestExtractRecoversOnRetry(t *testing.T) {
	provider := &fakeProvider{completions: []string{
		"garbled output with no braces",
		`{"primary_goal": "find", "deployment": "self-hostd", "confidence": 0.7}`,
	}}
	e := New(provider, testRegistry(t), nil, nil)

	state, err := e.Extract(context.Background(), "self hosted cli")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if state.Deployment != "Self-Hosted" {
		t.Errorf("Deployment = %q, want Self-Hosted (near-match canonicalized)", state.Deployment)
	}
}

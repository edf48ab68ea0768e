package planner

import (
	"testing"

	"toolsearch/pkg/domainschema"
	"toolsearch/pkg/model"
)

func testPlanner(t *testing.T) *Planner {
	t.Helper()
	r := domainschema.NewRegistry()
	if err := r.RegisterBuiltIn(); err != nil {
		t.Fatalf("RegisterBuiltIn() error = %v", err)
	}
	return New(r)
}

func TestPlanLowConfidenceYieldsVectorOnly(t *testing.T) {
	p := testPlanner(t)
	plan, err := p.Plan(&model.IntentState{PrimaryGoal: "find", Confidence: 0.2, Category: "CLI"})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Strategy != StrategyVectorOnly {
		t.Errorf("Strategy = %q, want %q", plan.Strategy, StrategyVectorOnly)
	}
	if len(plan.VectorSources) != 1 || plan.VectorSources[0].TopK != primaryTopK {
		t.Errorf("VectorSources = %+v, want a single primary-topK source", plan.VectorSources)
	}
	if plan.Fusion != "none" {
		t.Errorf("Fusion = %q, want none", plan.Fusion)
	}
}

func TestPlanVocabularyOnlyYieldsStructuredOnly(t *testing.T) {
	p := testPlanner(t)
	plan, err := p.Plan(&model.IntentState{
		PrimaryGoal:  "find",
		Confidence:   0.9,
		PricingModel: "Free",
		Industry:     "Finance",
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Strategy != StrategyStructuredOnly {
		t.Errorf("Strategy = %q, want %q", plan.Strategy, StrategyStructuredOnly)
	}
	if len(plan.StructuredSources) != 1 {
		t.Fatalf("StructuredSources = %+v, want exactly 1", plan.StructuredSources)
	}
	if len(plan.StructuredSources[0].Filters) == 0 {
		t.Error("expected structured filters built from vocabulary fields")
	}
}

func TestPlanInterfaceAndDeploymentStillTouchesVectorCollection(t *testing.T) {
	p := testPlanner(t)
	plan, err := p.Plan(&model.IntentState{
		PrimaryGoal: "find",
		Confidence:  0.85,
		Interface:   "CLI",
		Deployment:  "Self-Hosted",
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Strategy != StrategyMultiCollectionHybrid {
		t.Errorf("Strategy = %q, want %q", plan.Strategy, StrategyMultiCollectionHybrid)
	}
	if len(plan.VectorSources) == 0 {
		t.Error("expected interface/deployment constraints to still touch a vector collection")
	}
}

func TestPlanReferenceToolAndVocabularyYieldsHybrid(t *testing.T) {
	p := testPlanner(t)
	plan, err := p.Plan(&model.IntentState{
		PrimaryGoal:    "compare",
		Confidence:     0.85,
		ReferenceTool:  "Cursor",
		ComparisonMode: "alternative_to",
		Category:       "CLI",
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Strategy != StrategyHybrid {
		t.Errorf("Strategy = %q, want %q", plan.Strategy, StrategyHybrid)
	}
	if len(plan.VectorSources) < 2 {
		t.Fatalf("VectorSources = %+v, want query_text + reference_tool sources", plan.VectorSources)
	}
	foundRefSource := false
	for _, vs := range plan.VectorSources {
		if vs.QueryVectorSource == "reference_tool" {
			foundRefSource = true
		}
	}
	if !foundRefSource {
		t.Error("expected a reference_tool vector source for a comparison query")
	}
	if len(plan.StructuredSources) != 1 {
		t.Errorf("StructuredSources = %+v, want exactly 1", plan.StructuredSources)
	}
}

func TestPlanMultiDimensionYieldsMultiCollectionHybrid(t *testing.T) {
	p := testPlanner(t)
	plan, err := p.Plan(&model.IntentState{
		PrimaryGoal:   "recommend",
		Confidence:    0.8,
		Functionality: []string{"Code Review"},
		Interface:     "CLI",
		SemanticVariants: []string{"tool for reviewing pull requests"},
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Strategy != StrategyMultiCollectionHybrid {
		t.Errorf("Strategy = %q, want %q", plan.Strategy, StrategyMultiCollectionHybrid)
	}
	if len(plan.VectorSources) < 2 {
		t.Fatalf("VectorSources = %+v, want multiple collections", plan.VectorSources)
	}
	if plan.Fusion != "rrf" {
		t.Errorf("Fusion = %q, want rrf", plan.Fusion)
	}
}

func TestPlanIsAlwaysValidatedAgainstSchema(t *testing.T) {
	p := testPlanner(t)
	plan, err := p.Plan(&model.IntentState{PrimaryGoal: "find", Confidence: 0.95})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	schema := p.registry.Current()
	if issues := schema.ValidateQueryPlan(plan); len(issues) != 0 {
		t.Errorf("ValidateQueryPlan(plan) = %v, want no issues", issues)
	}
}

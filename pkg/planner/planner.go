// Package planner deterministically maps an IntentState to a QueryPlan,
// choosing retrieval strategy, per-source topK/weight, structured
// filters, and fusion method. Strategy classification follows the same
// keyword/signal-driven shape as pkg/agent/supervisor.go, but runs
// entirely in Go rather than delegating the decision to an LLM call —
// spec's "deterministically (plus optional LLM assistance)" contract,
// with the optional LLM assistance left unexercised since the
// deterministic rules fully determine every case they describe.
package planner

import (
	"fmt"

	"toolsearch/pkg/domainschema"
	"toolsearch/pkg/model"
)

const (
	StrategyVectorOnly            = "vector_only"
	StrategyStructuredOnly        = "structured_only"
	StrategyHybrid                = "hybrid"
	StrategyMultiCollectionHybrid = "multi_collection_hybrid"

	primaryTopK   = 70
	secondaryTopK = 40

	primaryWeight   = 1.0
	secondaryWeight = 0.4
)

// Planner builds QueryPlans from IntentStates.
type Planner struct {
	registry *domainschema.Registry
}

// New builds a Planner bound to the given schema registry.
func New(registry *domainschema.Registry) *Planner {
	return &Planner{registry: registry}
}

// Plan maps intent to a validated, repaired QueryPlan.
func (p *Planner) Plan(intent *model.IntentState) (*model.QueryPlan, error) {
	schema := p.registry.Current()
	if schema == nil {
		return nil, fmt.Errorf("%w: no schema loaded", model.ErrPlan)
	}

	plan := p.buildPlan(schema, intent)

	if issues := schema.ValidateQueryPlan(plan); len(issues) > 0 {
		plan = schema.RepairQueryPlan(plan)
	}

	return plan, nil
}

func (p *Planner) buildPlan(schema *domainschema.Schema, intent *model.IntentState) *model.QueryPlan {
	hasConstraints := hasAnyConstraint(intent)
	hasFreeText := hasFreeTextSignal(intent)

	var strategy string
	switch {
	case intent.Confidence < 0.3 || !hasConstraints:
		strategy = StrategyVectorOnly
	case hasConstraints && !hasFreeText:
		// Constraints alone would normally mean structured_only, but when
		// those same constraints (interface/deployment/functionality)
		// also pick out a specialized vector collection, still touch it
		// rather than skip vector retrieval entirely.
		if len(relevantVectorCollections(schema, intent)) > 1 {
			strategy = StrategyMultiCollectionHybrid
		} else {
			strategy = StrategyStructuredOnly
		}
	default:
		if len(relevantVectorCollections(schema, intent)) > 1 {
			strategy = StrategyMultiCollectionHybrid
		} else {
			strategy = StrategyHybrid
		}
	}

	plan := &model.QueryPlan{
		Strategy:            strategy,
		MaxRefinementCycles: 0,
		Confidence:          intent.Confidence,
	}

	switch strategy {
	case StrategyVectorOnly:
		plan.VectorSources = []model.VectorSource{defaultVectorSource(schema, intent, primaryTopK, primaryWeight)}
		plan.Fusion = "none"
	case StrategyStructuredOnly:
		plan.StructuredSources = []model.StructuredSource{{
			Collection: schema.StructuredDatabase.Collection,
			Filters:    schema.BuildFilters(intent),
			TopK:       primaryTopK,
			Weight:     primaryWeight,
		}}
		plan.Fusion = "none"
	case StrategyHybrid:
		plan.VectorSources = []model.VectorSource{defaultVectorSource(schema, intent, primaryTopK, primaryWeight)}
		plan.StructuredSources = []model.StructuredSource{{
			Collection: schema.StructuredDatabase.Collection,
			Filters:    schema.BuildFilters(intent),
			TopK:       secondaryTopK,
			Weight:     secondaryWeight,
		}}
		plan.Fusion = "weighted_sum"
	case StrategyMultiCollectionHybrid:
		collections := relevantVectorCollections(schema, intent)
		plan.VectorSources = make([]model.VectorSource, 0, len(collections))
		for i, name := range collections {
			topK, weight := secondaryTopK, secondaryWeight
			if i == 0 {
				topK, weight = primaryTopK, primaryWeight
			}
			plan.VectorSources = append(plan.VectorSources, model.VectorSource{
				Collection:        name,
				QueryVectorSource: "query_text",
				TopK:              topK,
				Weight:            weight,
			})
		}
		if filters := schema.BuildFilters(intent); len(filters) > 0 {
			plan.StructuredSources = []model.StructuredSource{{
				Collection: schema.StructuredDatabase.Collection,
				Filters:    filters,
				TopK:       secondaryTopK,
				Weight:     secondaryWeight,
			}}
		}
		plan.Fusion = "rrf"
	}

	if intent.ReferenceTool != "" && isComparison(intent.ComparisonMode) && len(plan.VectorSources) > 0 {
		plan.VectorSources = append(plan.VectorSources, model.VectorSource{
			Collection:        plan.VectorSources[0].Collection,
			QueryVectorSource: "reference_tool",
			TopK:              secondaryTopK,
			Weight:            secondaryWeight,
		})
		if plan.Fusion == "none" {
			plan.Fusion = "rrf"
		}
	}

	totalSources := len(plan.VectorSources) + len(plan.StructuredSources)
	if totalSources <= 1 {
		plan.Fusion = "none"
	}

	plan.Explanation = explain(strategy, plan)
	return plan
}

func defaultVectorSource(schema *domainschema.Schema, intent *model.IntentState, topK int, weight float64) model.VectorSource {
	collection := domainschema.DefaultVectorCollectionName
	for _, vc := range schema.VectorCollections {
		if vc.Enabled && vc.Name == domainschema.DefaultVectorCollectionName {
			collection = vc.Name
			break
		}
	}
	return model.VectorSource{
		Collection:        collection,
		QueryVectorSource: "query_text",
		TopK:              topK,
		Weight:            weight,
	}
}

// relevantVectorCollections returns the enabled vector collections the
// intent's fields speak to, the default semantic collection always
// included first.
func relevantVectorCollections(schema *domainschema.Schema, intent *model.IntentState) []string {
	enabled := make(map[string]bool, len(schema.VectorCollections))
	for _, vc := range schema.VectorCollections {
		if vc.Enabled {
			enabled[vc.Name] = true
		}
	}

	var names []string
	if enabled[domainschema.DefaultVectorCollectionName] {
		names = append(names, domainschema.DefaultVectorCollectionName)
	}
	if len(intent.Functionality) > 0 && enabled["functionality"] {
		names = append(names, "functionality")
	}
	if (intent.Interface != "" || intent.Deployment != "") && enabled["interface"] {
		names = append(names, "interface")
	}

	if len(names) == 0 {
		for _, vc := range schema.VectorCollections {
			if vc.Enabled {
				names = append(names, vc.Name)
				break
			}
		}
	}

	return names
}

// hasAnyConstraint reports whether the intent carries any vocabulary
// filter, price constraint, or free-text constraint at all.
func hasAnyConstraint(intent *model.IntentState) bool {
	return intent.Category != "" || intent.Interface != "" || intent.Deployment != "" ||
		intent.Industry != "" || intent.UserType != "" || intent.PricingModel != "" ||
		intent.BillingPeriod != "" || len(intent.Functionality) > 0 ||
		intent.PriceRange != nil || len(intent.Constraints) > 0
}

// hasFreeTextSignal reports whether the query carries a semantic
// component beyond plain vocabulary filtering: a named reference tool,
// paraphrase variants to embed, or an exploratory/explanatory goal that
// has no natural structured-filter equivalent.
func hasFreeTextSignal(intent *model.IntentState) bool {
	if intent.ReferenceTool != "" || len(intent.SemanticVariants) > 0 {
		return true
	}
	switch intent.PrimaryGoal {
	case "explore", "explain", "analyze":
		return true
	}
	return false
}

func isComparison(mode string) bool {
	switch mode {
	case "vs", "alternative_to", "similar_to":
		return true
	}
	return false
}

func explain(strategy string, plan *model.QueryPlan) string {
	return fmt.Sprintf("strategy=%s vectorSources=%d structuredSources=%d fusion=%s",
		strategy, len(plan.VectorSources), len(plan.StructuredSources), plan.Fusion)
}

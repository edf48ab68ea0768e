// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package domainschema

import (
	"fmt"

	"toolsearch/pkg/model"
)

// ValidateIntent checks an IntentState against the schema's
// vocabularies. It returns a nil slice when the intent is valid, or a
// list of human-readable issues otherwise.
func (s *Schema) ValidateIntent(intent *model.IntentState) []string {
	var issues []string

	check := func(field, value string) {
		if value == "" {
			return
		}
		if _, ok := s.Canonicalize(field, value); !ok {
			issues = append(issues, fmt.Sprintf("field %q has value %q which is not in vocabulary", field, value))
		}
	}

	check("primaryGoal", intent.PrimaryGoal)
	check("comparisonMode", intent.ComparisonMode)
	check("pricingModels", intent.PricingModel)
	check("billingPeriods", intent.BillingPeriod)
	check("categories", intent.Category)
	check("interface", intent.Interface)
	check("deployment", intent.Deployment)
	check("industries", intent.Industry)
	check("userTypes", intent.UserType)

	seen := make(map[string]bool, len(intent.Functionality))
	for _, f := range intent.Functionality {
		if seen[f] {
			issues = append(issues, fmt.Sprintf("functionality contains duplicate value %q", f))
			continue
		}
		seen[f] = true
		check("functionality", f)
	}

	if intent.Confidence < 0 || intent.Confidence > 1 {
		issues = append(issues, fmt.Sprintf("confidence %v is out of range [0,1]", intent.Confidence))
	}

	if len(intent.SemanticVariants) > 3 {
		issues = append(issues, "semanticVariants carries more than 3 entries")
	}

	return issues
}

// ValidateQueryPlan checks a QueryPlan against the schema: every
// structured filter field must be filterable, and every referenced
// vector collection must be enabled.
func (s *Schema) ValidateQueryPlan(plan *model.QueryPlan) []string {
	var issues []string

	filterable := make(map[string]bool, len(s.StructuredDatabase.FilterableFields))
	for _, f := range s.StructuredDatabase.FilterableFields {
		filterable[f] = true
	}

	enabled := make(map[string]bool, len(s.VectorCollections))
	for _, vc := range s.VectorCollections {
		if vc.Enabled {
			enabled[vc.Name] = true
		}
	}

	if len(plan.VectorSources) == 0 && len(plan.StructuredSources) == 0 {
		issues = append(issues, "plan has no vector or structured sources")
	}

	for _, vs := range plan.VectorSources {
		if !enabled[vs.Collection] {
			issues = append(issues, fmt.Sprintf("vector collection %q is not enabled", vs.Collection))
		}
	}

	for _, ss := range plan.StructuredSources {
		for _, filter := range ss.Filters {
			if !filterable[filter.Field] {
				issues = append(issues, fmt.Sprintf("structured filter field %q is not filterable", filter.Field))
			}
		}
	}

	return issues
}

// RepairQueryPlan deterministically drops anything ValidateQueryPlan
// would flag, so a plan never reaches the executor with an unfilterable
// field or a disabled collection.
func (s *Schema) RepairQueryPlan(plan *model.QueryPlan) *model.QueryPlan {
	filterable := make(map[string]bool, len(s.StructuredDatabase.FilterableFields))
	for _, f := range s.StructuredDatabase.FilterableFields {
		filterable[f] = true
	}
	enabled := make(map[string]bool, len(s.VectorCollections))
	for _, vc := range s.VectorCollections {
		if vc.Enabled {
			enabled[vc.Name] = true
		}
	}

	repaired := *plan

	keptVector := plan.VectorSources[:0:0]
	for _, vs := range plan.VectorSources {
		if enabled[vs.Collection] {
			keptVector = append(keptVector, vs)
		}
	}
	repaired.VectorSources = keptVector

	keptStructured := make([]model.StructuredSource, 0, len(plan.StructuredSources))
	for _, ss := range plan.StructuredSources {
		keptFilters := ss.Filters[:0:0]
		for _, filter := range ss.Filters {
			if filterable[filter.Field] {
				keptFilters = append(keptFilters, filter)
			}
		}
		ss.Filters = keptFilters
		if len(ss.Filters) > 0 {
			keptStructured = append(keptStructured, ss)
		}
	}
	repaired.StructuredSources = keptStructured

	if len(repaired.VectorSources) == 0 && len(repaired.StructuredSources) == 0 {
		repaired.VectorSources = []model.VectorSource{{
			Collection:        DefaultVectorCollectionName,
			QueryVectorSource: "query_text",
			TopK:              50,
			Weight:            1.0,
		}}
		repaired.Strategy = "vector_only"
		repaired.Fusion = "none"
	}

	return &repaired
}

// BuildFilters constructs a structured filter list from an intent's
// vocabulary fields, price range, and constraints, skipping any field
// that is not filterable per the schema.
func (s *Schema) BuildFilters(intent *model.IntentState) []model.StructuredFilter {
	filterable := make(map[string]bool, len(s.StructuredDatabase.FilterableFields))
	for _, f := range s.StructuredDatabase.FilterableFields {
		filterable[f] = true
	}

	var filters []model.StructuredFilter

	addEquals := func(field, vocabName, value string) {
		if value == "" || !filterable[field] {
			return
		}
		canon, ok := s.Canonicalize(vocabName, value)
		if !ok {
			return
		}
		filters = append(filters, model.StructuredFilter{Field: field, Operator: string(OpEquals), Value: canon})
	}

	addEquals("categories", "categories", intent.Category)
	addEquals("interface", "interface", intent.Interface)
	addEquals("deployment", "deployment", intent.Deployment)
	addEquals("industries", "industries", intent.Industry)
	addEquals("userTypes", "userTypes", intent.UserType)
	addEquals("pricingModels", "pricingModels", intent.PricingModel)
	addEquals("billingPeriods", "billingPeriods", intent.BillingPeriod)

	if len(intent.Functionality) > 0 && filterable["functionality"] {
		values := make([]string, 0, len(intent.Functionality))
		for _, f := range intent.Functionality {
			if canon, ok := s.Canonicalize("functionality", f); ok {
				values = append(values, canon)
			}
		}
		if len(values) > 0 {
			filters = append(filters, model.StructuredFilter{Field: "functionality", Operator: string(OpIn), Value: values})
		}
	}

	if intent.PriceRange != nil && filterable["price"] {
		pr := intent.PriceRange
		switch pr.Operator {
		case string(PriceLessThan):
			if pr.Max != nil {
				filters = append(filters, model.StructuredFilter{Field: "price", Operator: string(OpLessEq), Value: *pr.Max})
			}
		case string(PriceGreaterThan):
			if pr.Min != nil {
				filters = append(filters, model.StructuredFilter{Field: "price", Operator: string(OpGreaterEq), Value: *pr.Min})
			}
		case string(PriceBetween):
			if pr.Min != nil {
				filters = append(filters, model.StructuredFilter{Field: "price", Operator: string(OpGreaterEq), Value: *pr.Min})
			}
			if pr.Max != nil {
				filters = append(filters, model.StructuredFilter{Field: "price", Operator: string(OpLessEq), Value: *pr.Max})
			}
		case string(PriceEquals):
			if pr.Min != nil {
				filters = append(filters, model.StructuredFilter{Field: "price", Operator: string(OpEquals), Value: *pr.Min})
			}
		}
	}

	// constraints map to vocabulary-backed filters only when they
	// resolve unambiguously; free-form constraints otherwise remain
	// query-side signal only (spec §4.3: "from constraints only when
	// they map to a known vocabulary value").
	for _, c := range intent.Constraints {
		for vocabName := range s.Vocabularies {
			if canon, ok := s.Canonicalize(vocabName, c); ok && filterable[vocabName] {
				filters = append(filters, model.StructuredFilter{Field: vocabName, Operator: string(OpEquals), Value: canon})
				break
			}
		}
	}

	return filters
}

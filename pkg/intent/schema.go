// Package intent extracts a structured IntentState from a free-text
// search query, per the schema-driven prompt and tolerant-parsing
// strategy grounded on pkg/agent/planner.go and pkg/schema/analyzer.go.
package intent

import "toolsearch/pkg/llm"

// jsonSchema describes the IntentState object for providers that
// support native structured output (llm.StructuredProvider). It only
// needs to be precise enough to keep the model from wandering outside
// the expected shape; the tolerant parser still validates and repairs
// the result afterward.
func jsonSchema() llm.JSONSchema {
	stringArray := llm.JSONSchema{Type: "array", Items: &llm.JSONSchema{Type: "string"}}

	priceRange := llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.JSONSchema{
			"min":      {Type: "number"},
			"max":      {Type: "number"},
			"operator": {Type: "string"},
		},
	}

	return llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.JSONSchema{
			"primary_goal":      {Type: "string"},
			"reference_tool":    {Type: "string"},
			"comparison_mode":   {Type: "string"},
			"pricing_model":     {Type: "string"},
			"billing_period":    {Type: "string"},
			"category":          {Type: "string"},
			"interface":         {Type: "string"},
			"deployment":        {Type: "string"},
			"industry":          {Type: "string"},
			"user_type":         {Type: "string"},
			"functionality":     stringArray,
			"price_range":       priceRange,
			"constraints":       stringArray,
			"semantic_variants": stringArray,
			"confidence":        {Type: "number"},
		},
		Required: []string{"primary_goal", "confidence"},
	}
}

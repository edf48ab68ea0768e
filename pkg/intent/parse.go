package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"toolsearch/pkg/model"
)

// intentResponse mirrors the JSON object the prompt asks the model to
// produce. Fields are kept loosely typed where different models tend
// to vary (price_range in particular), the same tolerance pkg/agent's
// planner applies to its "dependencies" field.
type intentResponse struct {
	PrimaryGoal      string          `json:"primary_goal"`
	ReferenceTool    string          `json:"reference_tool"`
	ComparisonMode   string          `json:"comparison_mode"`
	PricingModel     string          `json:"pricing_model"`
	BillingPeriod    string          `json:"billing_period"`
	Category         string          `json:"category"`
	Interface        string          `json:"interface"`
	Deployment       string          `json:"deployment"`
	Industry         string          `json:"industry"`
	UserType         string          `json:"user_type"`
	Functionality    []string        `json:"functionality"`
	PriceRange       json.RawMessage `json:"price_range"`
	Constraints      []string        `json:"constraints"`
	SemanticVariants []string        `json:"semantic_variants"`
	Confidence       float64         `json:"confidence"`
}

// stripThinkAndFences removes <think>...</think> blocks and markdown
// code fences some reasoning models wrap their JSON output in, before
// brace-matching is attempted.
func stripThinkAndFences(s string) string {
	for {
		start := strings.Index(s, "<think>")
		if start == -1 {
			break
		}
		end := strings.Index(s[start:], "</think>")
		if end == -1 {
			s = s[:start]
			break
		}
		s = s[:start] + s[start+end+len("</think>"):]
	}
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// findJSONStart locates the first '{' in text.
func findJSONStart(text string) int {
	for i, ch := range text {
		if ch == '{' {
			return i
		}
	}
	return -1
}

// findJSONEnd locates the closing brace matching the '{' at text[0],
// by brace depth, mirroring pkg/schema's analyzer.
func findJSONEnd(text string) int {
	depth := 0
	for i, ch := range text {
		if ch == '{' {
			depth++
		} else if ch == '}' {
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// extractBalancedJSON isolates the first balanced {...} object in raw,
// tolerating surrounding prose, markdown fences, and <think> blocks.
func extractBalancedJSON(raw string) (string, error) {
	cleaned := stripThinkAndFences(raw)

	start := findJSONStart(cleaned)
	if start == -1 {
		return "", fmt.Errorf("no JSON object found in response")
	}
	end := findJSONEnd(cleaned[start:])
	if end == -1 {
		return "", fmt.Errorf("no balanced JSON object found in response")
	}
	return cleaned[start : start+end+1], nil
}

// parseIntentJSON parses a raw LLM response into an IntentState,
// tolerating markdown fences, reasoning preambles, and a handful of
// price_range shapes different models tend to emit.
func parseIntentJSON(raw string) (*model.IntentState, error) {
	jsonStr, err := extractBalancedJSON(raw)
	if err != nil {
		return nil, err
	}

	var parsed intentResponse
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse intent JSON: %w", err)
	}

	state := &model.IntentState{
		PrimaryGoal:      parsed.PrimaryGoal,
		ReferenceTool:    parsed.ReferenceTool,
		ComparisonMode:   parsed.ComparisonMode,
		PricingModel:     parsed.PricingModel,
		BillingPeriod:    parsed.BillingPeriod,
		Category:         parsed.Category,
		Interface:        parsed.Interface,
		Deployment:       parsed.Deployment,
		Industry:         parsed.Industry,
		UserType:         parsed.UserType,
		Functionality:    parsed.Functionality,
		Constraints:      parsed.Constraints,
		SemanticVariants: parsed.SemanticVariants,
		Confidence:       parsed.Confidence,
	}

	if priceRange := parsePriceRange(parsed.PriceRange); priceRange != nil {
		state.PriceRange = priceRange
	}

	return state, nil
}

// parsePriceRange tolerates the price_range field arriving as a
// well-formed object, an empty object, or null/absent.
func parsePriceRange(raw json.RawMessage) *model.PriceRange {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "{}" {
		return nil
	}

	var parsed struct {
		Min      *float64 `json:"min"`
		Max      *float64 `json:"max"`
		Operator string   `json:"operator"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil
	}
	if parsed.Min == nil && parsed.Max == nil {
		return nil
	}
	return &model.PriceRange{Min: parsed.Min, Max: parsed.Max, Operator: parsed.Operator}
}

// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

// Package model holds the data records shared across pipeline stages:
// IntentState, QueryPlan, Candidate, and CachedPlan. It has no
// dependency on any other package in this module so that domainschema,
// intent, planner, retrieval, cache, and pipeline can all depend on it
// without introducing an import cycle.
package model

// IntentState is the structured result of intent extraction.
type IntentState struct {
	PrimaryGoal      string      `json:"primaryGoal"`
	ReferenceTool    string      `json:"referenceTool,omitempty"`
	ComparisonMode   string      `json:"comparisonMode,omitempty"`
	PricingModel     string      `json:"pricingModel,omitempty"`
	BillingPeriod    string      `json:"billingPeriod,omitempty"`
	Category         string      `json:"category,omitempty"`
	Interface        string      `json:"interface,omitempty"`
	Deployment       string      `json:"deployment,omitempty"`
	Industry         string      `json:"industry,omitempty"`
	UserType         string      `json:"userType,omitempty"`
	Functionality    []string    `json:"functionality,omitempty"`
	PriceRange       *PriceRange `json:"priceRange,omitempty"`
	Constraints      []string    `json:"constraints,omitempty"`
	SemanticVariants []string    `json:"semanticVariants,omitempty"`
	Confidence       float64     `json:"confidence"`
}

// PriceRange is an optional price constraint on IntentState.
type PriceRange struct {
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Operator string   `json:"operator"`
}

// QueryPlan is the deterministic retrieval recipe produced by the
// planner from an IntentState.
type QueryPlan struct {
	Strategy          string             `json:"strategy"`
	VectorSources     []VectorSource     `json:"vectorSources"`
	StructuredSources []StructuredSource `json:"structuredSources"`
	Fusion            string             `json:"fusion"`
	Rerank            string             `json:"rerank"`
	// MaxRefinementCycles is a reserved hook; always 0, never read.
	MaxRefinementCycles int     `json:"maxRefinementCycles"`
	Confidence          float64 `json:"confidence"`
	Explanation         string  `json:"explanation"`
}

// VectorSource is one vector sub-query within a QueryPlan.
type VectorSource struct {
	Collection        string            `json:"collection"`
	EmbeddingField    string            `json:"embeddingField"`
	QueryVectorSource string            `json:"queryVectorSource"`
	TopK              int               `json:"topK"`
	Weight            float64           `json:"weight"`
	Filter            map[string]string `json:"filter,omitempty"`
}

// StructuredSource is one structured sub-query within a QueryPlan.
type StructuredSource struct {
	Collection string            `json:"collection"`
	Filters    []StructuredFilter `json:"filters"`
	TopK       int               `json:"topK"`
	Weight     float64           `json:"weight"`
}

// StructuredFilter is one conjunctive clause of a structured source.
type StructuredFilter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// Candidate is the unified retrieval record produced by the executor
// and consumed by fusion.
type Candidate struct {
	ID         string             `json:"id"`
	Source     string             `json:"source"`
	Score      float64            `json:"score"`
	Metadata   CandidateMetadata  `json:"metadata"`
	Embedding  []float32          `json:"embedding,omitempty"`
	Provenance Provenance         `json:"provenance"`
}

// CandidateMetadata is the display-facing subset of a tool record.
type CandidateMetadata struct {
	Name        string   `json:"name"`
	Category    string   `json:"category,omitempty"`
	Pricing     string   `json:"pricing,omitempty"`
	Interface   string   `json:"interface,omitempty"`
	Deployment  string   `json:"deployment,omitempty"`
	Description string   `json:"description,omitempty"`
	Features    []string `json:"features,omitempty"`
}

// Provenance records which source(s) contributed to a Candidate.
type Provenance struct {
	Collection        string   `json:"collection"`
	QueryVectorSource string   `json:"queryVectorSource,omitempty"`
	FiltersApplied    []string `json:"filtersApplied,omitempty"`
	RankInSource      int      `json:"rankInSource"`
}

// CachedPlan is a plan-cache entry: a previously computed
// (intent, plan) pair keyed by the query that produced it.
type CachedPlan struct {
	ID             string      `json:"id"`
	QueryHash      string      `json:"queryHash"`
	OriginalQuery  string      `json:"originalQuery"`
	QueryEmbedding []float32   `json:"queryEmbedding"`
	IntentState    IntentState `json:"intentState"`
	ExecutionPlan  QueryPlan   `json:"executionPlan"`
	SchemaVersion  string      `json:"schemaVersion"`
	UsageCount     int         `json:"usageCount"`
	LastUsed       int64       `json:"lastUsed"`
	CreatedAt      int64       `json:"createdAt"`
	Confidence     float64     `json:"confidence"`
}

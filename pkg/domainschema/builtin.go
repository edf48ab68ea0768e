// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package domainschema

// BuiltInSchema returns the default AI-tool-discovery domain schema.
// It mirrors the shape a deployment would otherwise load from a schema
// file: one primary semantic collection plus two narrower collections
// for functionality- and interface-weighted search, and a structured
// tool catalog searchable by name/description/tagline.
func BuiltInSchema() *Schema {
	return &Schema{
		Name:               "ai-tool-discovery",
		Version:            "1.0.0",
		EmbeddingDimension: 1536,
		Vocabularies: map[string][]string{
			"primaryGoal":    {"find", "compare", "recommend", "explore", "analyze", "explain"},
			"comparisonMode": {"similar_to", "vs", "alternative_to"},
			"categories":     {"IDE", "CLI", "Plugin", "Library", "Platform", "API", "Extension"},
			"functionality":  {"Code Completion", "Code Generation", "Code Review", "Debugging", "Testing", "Documentation", "Refactoring", "Chat Assistant"},
			"userTypes":      {"Individual", "Team", "Enterprise", "Student", "Open Source Maintainer"},
			"interface":      {"CLI", "GUI", "Web", "VS Code Extension", "JetBrains Plugin", "API"},
			"deployment":     {"Cloud", "Self-Hosted", "Hybrid", "Local"},
			"industries":     {"General", "Finance", "Healthcare", "Gaming", "Education", "Government"},
			"pricingModels":  {"Free", "Freemium", "Subscription", "Pay-As-You-Go", "Open Source"},
			"billingPeriods": {"Monthly", "Annual", "One-Time", "Usage-Based"},
		},
		IntentFields: []IntentField{
			{Name: "primaryGoal", Type: FieldEnum, Required: true, Description: "the user's high-level search intent", EnumValues: "primaryGoal"},
			{Name: "referenceTool", Type: FieldString, Description: "a named tool the query is anchored to, casing preserved"},
			{Name: "comparisonMode", Type: FieldEnum, Description: "how referenceTool relates to the desired result", EnumValues: "comparisonMode"},
			{Name: "pricingModel", Type: FieldEnum, EnumValues: "pricingModels"},
			{Name: "billingPeriod", Type: FieldEnum, EnumValues: "billingPeriods"},
			{Name: "category", Type: FieldEnum, EnumValues: "categories"},
			{Name: "interface", Type: FieldEnum, EnumValues: "interface"},
			{Name: "deployment", Type: FieldEnum, EnumValues: "deployment"},
			{Name: "industry", Type: FieldEnum, EnumValues: "industries"},
			{Name: "userType", Type: FieldEnum, EnumValues: "userTypes"},
			{Name: "functionality", Type: FieldArray, EnumValues: "functionality", Description: "ordered list of functionality values, no duplicates"},
			{Name: "priceRange", Type: FieldObject, Description: "optional min/max/operator price constraint"},
			{Name: "constraints", Type: FieldArray, Description: "free-text qualifiers such as \"cheaper\", \"offline\""},
			{Name: "semanticVariants", Type: FieldArray, Description: "0-3 paraphrases of the query for embedding expansion"},
			{Name: "confidence", Type: FieldNumber, Required: true, Description: "extractor's confidence in [0,1]"},
		},
		VectorCollections: []VectorCollection{
			{Name: "semantic", EmbeddingField: "description_embedding", Dimension: 1536, Description: "general-purpose semantic search over tool descriptions", Enabled: true},
			{Name: "functionality", EmbeddingField: "functionality_embedding", Dimension: 1536, Description: "search weighted toward functionality/use-case phrasing", Enabled: true},
			{Name: "interface", EmbeddingField: "interface_embedding", Dimension: 1536, Description: "search weighted toward interface/deployment phrasing", Enabled: true},
		},
		StructuredDatabase: StructuredDatabase{
			Collection:       "tools",
			SearchFields:     []string{"name", "description", "longDescription", "tagline"},
			FilterableFields: []string{"categories", "functionality", "userTypes", "interface", "deployment", "industries", "pricingModels", "billingPeriods", "price", "isOpenSource"},
		},
		PriceOperators: []PriceOperator{PriceEquals, PriceLessThan, PriceGreaterThan, PriceBetween},
	}
}


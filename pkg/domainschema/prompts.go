// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package domainschema

import (
	"fmt"
	"sort"
	"strings"
)

// GenerateIntentExtractionPrompt builds the system prompt for the
// intent extractor. It is a pure function of the schema: identical
// schema input produces byte-identical output, and every vocabulary
// value appears verbatim (testable properties in spec §8).
func (s *Schema) GenerateIntentExtractionPrompt() string {
	var b strings.Builder

	fmt.Fprintf(&b, "You extract a structured search intent from a free-form query about developer tools, for the %q domain schema (version %s).\n\n", s.Name, s.Version)
	b.WriteString("Controlled vocabularies. Every enum or array field below must use one of these exact values, or be left null/empty if none applies:\n\n")

	names := make([]string, 0, len(s.Vocabularies))
	for name := range s.Vocabularies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "- %s: %s\n", name, strings.Join(s.Vocabularies[name], ", "))
	}

	b.WriteString("\nIntent fields to populate:\n\n")
	writeFields(&b, s.IntentFields, 0)

	b.WriteString("\nRules:\n")
	b.WriteString("- Respond with exactly one JSON object, no surrounding prose.\n")
	b.WriteString("- Use snake_case keys exactly as listed above, e.g. primary_goal, pricing_model.\n")
	b.WriteString("- Use null for any field you cannot determine; never invent a value outside the vocabularies above.\n")
	b.WriteString("- functionality and semantic_variants are arrays; semantic_variants holds 0 to 3 paraphrases of the query.\n")
	b.WriteString("- confidence is your own confidence in this extraction, in [0,1].\n")

	b.WriteString("\nWorked examples:\n")
	b.WriteString(`- "free cli" -> {"primary_goal": "find", "pricing_model": "Free", "interface": "CLI", "confidence": 0.8}` + "\n")
	b.WriteString(`- "self hosted cli" -> {"primary_goal": "find", "interface": "CLI", "deployment": "Self-Hosted", "confidence": 0.85}` + "\n")
	b.WriteString(`- "Cursor alternative but cheaper" -> {"primary_goal": "find", "reference_tool": "Cursor", "comparison_mode": "alternative_to", "constraints": ["cheaper"], "confidence": 0.75}` + "\n")
	b.WriteString(`- "Amazon Q vs GitHub Copilot" -> {"primary_goal": "compare", "reference_tool": "Amazon Q", "comparison_mode": "vs", "confidence": 0.8}` + "\n")
	b.WriteString(`- "best enterprise code review tool" -> {"primary_goal": "recommend", "user_type": "Enterprise", "functionality": ["Code Review"], "confidence": 0.7}` + "\n")

	return b.String()
}

func writeFields(b *strings.Builder, fields []IntentField, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, f := range fields {
		req := "optional"
		if f.Required {
			req = "required"
		}
		fmt.Fprintf(b, "%s- %s (%s, %s)", indent, toSnakeCase(f.Name), f.Type, req)
		if f.Description != "" {
			fmt.Fprintf(b, ": %s", f.Description)
		}
		b.WriteString("\n")
		if len(f.Children) > 0 {
			writeFields(b, f.Children, depth+1)
		}
	}
}

// toSnakeCase converts an IntentField's camelCase Go-facing name (e.g.
// "primaryGoal") into the snake_case key the extraction prompt, the
// tolerant parser, and the structured-output schema all agree on (e.g.
// "primary_goal").
func toSnakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// GenerateQueryPlanningPrompt builds the planner-assist prompt listing
// which vector collections are currently enabled. Like
// GenerateIntentExtractionPrompt, it is a pure function of its inputs.
func (s *Schema) GenerateQueryPlanningPrompt(enabledCollections []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You assist in choosing a retrieval strategy for the %q domain schema (version %s).\n\n", s.Name, s.Version)
	b.WriteString("Enabled vector collections:\n\n")

	sorted := append([]string(nil), enabledCollections...)
	sort.Strings(sorted)
	byName := make(map[string]VectorCollection, len(s.VectorCollections))
	for _, vc := range s.VectorCollections {
		byName[vc.Name] = vc
	}
	for _, name := range sorted {
		vc, ok := byName[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s (%s): %s\n", vc.Name, vc.EmbeddingField, vc.Description)
	}

	fmt.Fprintf(&b, "\nStructured database %q is searchable on: %s and filterable on: %s\n",
		s.StructuredDatabase.Collection,
		strings.Join(s.StructuredDatabase.SearchFields, ", "),
		strings.Join(s.StructuredDatabase.FilterableFields, ", "))

	b.WriteString("\nStrategies: vector_only, structured_only, hybrid, multi_collection_hybrid.\n")
	b.WriteString("Fusion methods: rrf (default), weighted_sum, none (single source only).\n")

	return b.String()
}

// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package domainschema

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Registry holds the single process-lifetime Schema. It is loaded once
// at startup; readers need no synchronization beyond the RWMutex that
// guards the (rare) reload path.
type Registry struct {
	mu     sync.RWMutex
	schema *Schema
}

// NewRegistry creates an empty registry. Call Load, LoadFromFile, or
// RegisterBuiltIn before Current is safe to call.
func NewRegistry() *Registry {
	return &Registry{}
}

// Load installs schema as the current schema, after validating its
// internal invariants.
func (r *Registry) Load(schema *Schema) error {
	if schema == nil {
		return fmt.Errorf("domainschema: nil schema")
	}
	if err := validateSchema(schema); err != nil {
		return fmt.Errorf("domainschema: invalid schema: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schema = schema
	return nil
}

// LoadFromFile reads a JSON-encoded Schema from path and installs it.
func (r *Registry) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("domainschema: failed to read schema file: %w", err)
	}

	var schema Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return fmt.Errorf("domainschema: failed to parse schema file: %w", err)
	}

	return r.Load(&schema)
}

// SaveToFile writes the current schema as JSON to path.
func (r *Registry) SaveToFile(path string) error {
	r.mu.RLock()
	schema := r.schema
	r.mu.RUnlock()

	if schema == nil {
		return fmt.Errorf("domainschema: no schema loaded")
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("domainschema: failed to marshal schema: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("domainschema: failed to write schema file: %w", err)
	}
	return nil
}

// Current returns the currently loaded schema, or nil if none has been
// loaded yet.
func (r *Registry) Current() *Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.schema
}

// RegisterBuiltIn installs the built-in AI-tool-discovery schema. Used
// when no schema file is configured.
func (r *Registry) RegisterBuiltIn() error {
	return r.Load(BuiltInSchema())
}

// validateSchema enforces the spec's schema invariants: every
// vocabulary referenced by an intent field exists, and every
// filterable field is either a vocabulary field or numeric/boolean.
func validateSchema(s *Schema) error {
	if s.Name == "" {
		return fmt.Errorf("schema name is required")
	}
	if s.EmbeddingDimension <= 0 {
		return fmt.Errorf("embeddingDimension must be positive")
	}

	var walk func(fields []IntentField) error
	walk = func(fields []IntentField) error {
		for _, f := range fields {
			if f.EnumValues != "" {
				if _, ok := s.Vocabularies[f.EnumValues]; !ok {
					return fmt.Errorf("intent field %q references unknown vocabulary %q", f.Name, f.EnumValues)
				}
			}
			if len(f.Children) > 0 {
				if err := walk(f.Children); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(s.IntentFields); err != nil {
		return err
	}

	numericOrBoolean := map[string]bool{"price": true, "pricing.amount": true, "isOpenSource": true, "isFree": true}
	for _, field := range s.StructuredDatabase.FilterableFields {
		if _, isVocab := s.Vocabularies[field]; isVocab {
			continue
		}
		if numericOrBoolean[field] {
			continue
		}
		return fmt.Errorf("filterable field %q is neither a vocabulary field nor a recognized numeric/boolean field", field)
	}

	for _, vc := range s.VectorCollections {
		if vc.Dimension != s.EmbeddingDimension {
			return fmt.Errorf("vector collection %q dimension %d does not match schema embeddingDimension %d", vc.Name, vc.Dimension, s.EmbeddingDimension)
		}
	}

	return nil
}

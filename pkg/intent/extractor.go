package intent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"toolsearch/pkg/domainschema"
	"toolsearch/pkg/llm"
	"toolsearch/pkg/model"
)

// Config tunes LLM call parameters for intent extraction. Defaults
// match spec: a low temperature keeps the classification stable across
// repeat calls for the same query.
type Config struct {
	Temperature float32
	MaxTokens   int
}

func defaultConfig() *Config {
	return &Config{Temperature: 0.1, MaxTokens: 500}
}

// Extractor turns a free-text query into a model.IntentState, using the
// active domainschema to build its prompt and validate the result.
type Extractor struct {
	provider llm.Provider
	registry *domainschema.Registry
	config   *Config
	logger   *zap.Logger
}

// New builds an Extractor. logger may be nil, in which case a no-op
// logger is used.
func New(provider llm.Provider, registry *domainschema.Registry, config *Config, logger *zap.Logger) *Extractor {
	if config == nil {
		config = defaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{provider: provider, registry: registry, config: config, logger: logger}
}

// Extract produces an IntentState for query. Empty or whitespace-only
// queries fail fast with model.ErrBadInput and never reach the LLM.
// A single retry with a tightened instruction is attempted on parse
// failure; a second failure surfaces model.ErrIntent.
func (e *Extractor) Extract(ctx context.Context, query string) (*model.IntentState, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: query is empty", model.ErrBadInput)
	}

	schema := e.registry.Current()
	systemPrompt := schema.GenerateIntentExtractionPrompt()

	state, err := e.attemptAndValidate(ctx, schema, systemPrompt, trimmed, false)
	if err != nil {
		e.logger.Warn("intent extraction retrying after parse or validation failure",
			zap.String("query", trimmed), zap.Error(err))
		state, err = e.attemptAndValidate(ctx, schema, systemPrompt, trimmed, true)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrIntent, err)
		}
	}

	return state, nil
}

// attemptAndValidate runs one LLM call, tolerant parse, canonicalization,
// and vocabulary validation. A non-empty set of validation issues is
// treated the same as a parse failure: the caller retries once tightened
// and gives up with model.ErrIntent if the retry is still invalid, per
// the "reject entries with values outside vocabulary" rule.
func (e *Extractor) attemptAndValidate(ctx context.Context, schema *domainschema.Schema, systemPrompt, query string, tightened bool) (*model.IntentState, error) {
	state, err := e.attempt(ctx, systemPrompt, query, tightened)
	if err != nil {
		return nil, err
	}

	canonicalizeState(schema, state)
	if issues := schema.ValidateIntent(state); len(issues) > 0 {
		return nil, fmt.Errorf("intent failed vocabulary validation: %s", strings.Join(issues, "; "))
	}

	return state, nil
}

// attempt runs one LLM call and tolerant parse. tightened appends a
// stricter reminder to the user prompt for the retry pass.
func (e *Extractor) attempt(ctx context.Context, systemPrompt, query string, tightened bool) (*model.IntentState, error) {
	userPrompt := fmt.Sprintf("Query: %s", query)
	if tightened {
		userPrompt += "\n\nYour previous response was not valid JSON. Respond with ONLY the JSON object, no markdown, no commentary."
	}

	if structured, ok := e.provider.(llm.StructuredProvider); ok {
		resp, err := structured.ChatStructured(ctx, &llm.StructuredRequest{
			SystemPrompt: systemPrompt,
			UserPrompt:   userPrompt,
			SchemaName:   "intent_state",
			Schema:       jsonSchema(),
			Temperature:  e.config.Temperature,
			MaxTokens:    e.config.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrLLM, err)
		}
		return parseIntentJSON(resp.JSON)
	}

	resp, err := e.provider.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: e.config.Temperature,
		MaxTokens:   e.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrLLM, err)
	}
	return parseIntentJSON(resp.Content)
}

// canonicalizeState normalizes every enum-valued field in place against
// the schema's vocabularies, the near-match handling spec calls for
// ("I need a self-hosted solution" -> deployment: "Self-Hosted" even
// when the model emits slightly different casing or spelling).
func canonicalizeState(schema *domainschema.Schema, state *model.IntentState) {
	type field struct {
		name  string
		value *string
	}
	fields := []field{
		{"primaryGoal", &state.PrimaryGoal},
		{"comparisonMode", &state.ComparisonMode},
		{"pricingModels", &state.PricingModel},
		{"billingPeriods", &state.BillingPeriod},
		{"categories", &state.Category},
		{"interface", &state.Interface},
		{"deployment", &state.Deployment},
		{"industries", &state.Industry},
		{"userTypes", &state.UserType},
	}
	for _, f := range fields {
		if *f.value == "" {
			continue
		}
		if canon, ok := schema.Canonicalize(f.name, *f.value); ok {
			*f.value = canon
		}
	}

	for i, fn := range state.Functionality {
		if canon, ok := schema.Canonicalize("functionality", fn); ok {
			state.Functionality[i] = canon
		}
	}
}

// Package pipeline sequences the five search stages — CacheLookup,
// IntentExtractor, QueryPlanner, Execute, Fuse — threading a single
// State record through them, generalizing the teacher's node/graph
// workflow state (pkg/workflow/state.go) from a cyclic multi-step RAG
// loop to the spec's fixed linear sequence.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"toolsearch/pkg/cache"
	"toolsearch/pkg/domainschema"
	"toolsearch/pkg/embedding"
	"toolsearch/pkg/intent"
	"toolsearch/pkg/model"
	"toolsearch/pkg/planner"
	"toolsearch/pkg/retrieval"
)

const (
	stageCacheLookup     = "cache-lookup"
	stageIntentExtractor = "intent-extractor"
	stageQueryPlanner    = "query-planner"
	stageQueryExecutor   = "query-executor"
)

// Options tunes a single Search call.
type Options struct {
	// EnableCheckpoints, when true, records a debugging checkpoint at
	// the end of every stage.
	EnableCheckpoints bool
}

// Reasoning summarizes the extracted intent and chosen plan for UI
// display, returned alongside candidates when both stages ran.
type Reasoning struct {
	Intent *model.IntentState
	Plan   *model.QueryPlan
}

// Response is the driver's output: the fused candidate list, optional
// reasoning, execution telemetry, request metadata, and any recorded
// errors, per spec §4.1/§6's `{candidates[], executionStats, metadata,
// errors[]}` contract.
type Response struct {
	Candidates     []model.Candidate
	Reasoning      *Reasoning
	ExecutionStats ExecutionStats
	Metadata       Metadata
	Errors         []RecordedError
}

// Driver orchestrates the five search stages over a request budget,
// generalizing the teacher's graph executor (pkg/workflow/executor.go)
// from a cyclic node-revisiting loop to a fixed linear sequence with no
// node executed more than once per request.
type Driver struct {
	registry  *domainschema.Registry
	cache     *cache.Cache
	extractor *intent.Extractor
	planner   *planner.Planner
	executor  *retrieval.Executor
	embedder  embedding.Embedder
	logger    *zap.Logger

	requestBudget time.Duration
}

// New builds a Driver. logger may be nil, in which case a no-op logger
// is used. requestBudget is the per-request wall-clock budget (spec
// §4.1's guideline default is 10s); zero disables the budget.
func New(
	registry *domainschema.Registry,
	planCache *cache.Cache,
	extractor *intent.Extractor,
	queryPlanner *planner.Planner,
	executor *retrieval.Executor,
	embedder embedding.Embedder,
	requestBudget time.Duration,
	logger *zap.Logger,
) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		registry:      registry,
		cache:         planCache,
		extractor:     extractor,
		planner:       queryPlanner,
		executor:      executor,
		embedder:      embedder,
		requestBudget: requestBudget,
		logger:        logger,
	}
}

// Search runs a single request end to end: CacheLookup, then either a
// cache short-circuit or IntentExtractor→QueryPlanner, then Execute
// (which fuses internally). correlationID is carried into every log
// line and returned implicitly via state.Metadata for the caller to
// surface in a response header.
func (d *Driver) Search(ctx context.Context, query, correlationID string, opts Options) *Response {
	if d.requestBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.requestBudget)
		defer cancel()
	}

	schema := d.registry.Current()
	state := NewState(schema, query, correlationID)
	logger := d.logger.With(zap.String("correlationID", correlationID))

	if query == "" {
		state.RecordError(stageIntentExtractor, model.ErrBadInput, false)
		return d.finish(state)
	}

	intentState, plan, cacheType := d.runCacheLookup(ctx, state, logger, opts)
	if cacheType == "" {
		intentState = d.runIntentExtraction(ctx, state, logger, query, opts)
		if state.HasFatalError() {
			return d.finish(state)
		}

		plan = d.runQueryPlanning(ctx, state, logger, intentState, opts)
		if state.HasFatalError() {
			return d.finish(state)
		}
	}

	state.IntentState = intentState
	state.ExecutionPlan = plan

	candidates := d.runExecution(ctx, state, logger, query, intentState, plan, opts)
	state.Candidates = candidates

	if cacheType == "" && !state.HasFatalError() && plan != nil {
		d.writeCache(ctx, state, logger, query, intentState, plan)
	}

	return d.finish(state)
}

// runCacheLookup embeds the query once (so both the exact and
// similarity paths can share it) and consults the plan cache. A hit
// short-circuits IntentExtractor and QueryPlanner entirely.
func (d *Driver) runCacheLookup(ctx context.Context, state *State, logger *zap.Logger, opts Options) (*model.IntentState, *model.QueryPlan, string) {
	start := time.Now()
	defer func() { state.RecordStage(stageCacheLookup, time.Since(start)) }()

	if d.cache == nil {
		return nil, nil, ""
	}

	var queryVector []float32
	if d.embedder != nil {
		resp, err := d.embedder.Embed(ctx, &embedding.EmbedRequest{Texts: []string{state.Query}})
		if err != nil {
			logger.Debug("cache embedding failed, falling back to exact-only lookup", zap.Error(err))
		} else if len(resp.Vectors) > 0 {
			queryVector = resp.Vectors[0].Embedding
		}
	}

	cached, cacheType, err := d.cache.Lookup(ctx, state.Query, queryVector)
	if err != nil {
		state.RecordError(stageCacheLookup, err, true)
		logger.Warn("plan cache lookup failed, continuing without cache", zap.Error(err))
		cacheType = ""
	}

	state.ExecutionStats.CacheHit = cached != nil
	state.ExecutionStats.CacheType = cacheType

	if opts.EnableCheckpoints {
		state.AddCheckpoint(stageCacheLookup, fmt.Sprintf("cacheType=%s", cacheType))
	}

	if cached == nil {
		return nil, nil, ""
	}
	intentCopy := cached.IntentState
	planCopy := cached.ExecutionPlan
	return &intentCopy, &planCopy, cacheType
}

func (d *Driver) runIntentExtraction(ctx context.Context, state *State, logger *zap.Logger, query string, opts Options) *model.IntentState {
	start := time.Now()
	defer func() { state.RecordStage(stageIntentExtractor, time.Since(start)) }()

	intentState, err := d.extractor.Extract(ctx, query)
	if err != nil {
		state.RecordError(stageIntentExtractor, err, false)
		logger.Error("intent extraction failed", zap.Error(err))
		return nil
	}

	if opts.EnableCheckpoints {
		state.AddCheckpoint(stageIntentExtractor, fmt.Sprintf("primaryGoal=%s confidence=%.2f", intentState.PrimaryGoal, intentState.Confidence))
	}
	return intentState
}

func (d *Driver) runQueryPlanning(ctx context.Context, state *State, logger *zap.Logger, intentState *model.IntentState, opts Options) *model.QueryPlan {
	start := time.Now()
	defer func() { state.RecordStage(stageQueryPlanner, time.Since(start)) }()

	plan, err := d.planner.Plan(intentState)
	if err != nil {
		state.RecordError(stageQueryPlanner, err, false)
		logger.Error("query planning failed", zap.Error(err))
		return nil
	}

	if opts.EnableCheckpoints {
		state.AddCheckpoint(stageQueryPlanner, plan.Explanation)
	}
	return plan
}

func (d *Driver) runExecution(ctx context.Context, state *State, logger *zap.Logger, query string, intentState *model.IntentState, plan *model.QueryPlan, opts Options) []model.Candidate {
	start := time.Now()
	defer func() { state.RecordStage(stageQueryExecutor, time.Since(start)) }()

	if plan == nil {
		return nil
	}

	result, err := d.executor.Run(ctx, plan, query, intentState)
	if err != nil {
		state.RecordError(stageQueryExecutor, err, false)
		logger.Error("query execution failed", zap.Error(err))
		if result == nil {
			return nil
		}
		for _, rec := range result.Recovered {
			state.RecordError(stageQueryExecutor, rec, true)
		}
		return result.Candidates
	}

	for _, rec := range result.Recovered {
		state.RecordError(stageQueryExecutor, rec, true)
	}

	if opts.EnableCheckpoints {
		state.AddCheckpoint(stageQueryExecutor, fmt.Sprintf("candidates=%d recovered=%d", len(result.Candidates), len(result.Recovered)))
	}
	return result.Candidates
}

// writeCache stores a fresh (query, intent, plan) triple after a
// successful request observed a cache miss, per spec §4.6's write
// policy. Failures are recorded as recovered: a broken cache write
// never fails an otherwise successful request.
func (d *Driver) writeCache(ctx context.Context, state *State, logger *zap.Logger, query string, intentState *model.IntentState, plan *model.QueryPlan) {
	if d.cache == nil || intentState == nil {
		return
	}

	var queryVector []float32
	if d.embedder != nil {
		resp, err := d.embedder.Embed(ctx, &embedding.EmbedRequest{Texts: []string{query}})
		if err == nil && len(resp.Vectors) > 0 {
			queryVector = resp.Vectors[0].Embedding
		}
	}

	if err := d.cache.Store(ctx, query, queryVector, intentState, plan); err != nil {
		state.RecordError(stageCacheLookup, err, true)
		logger.Warn("plan cache write failed", zap.Error(err))
	}
}

func (d *Driver) finish(state *State) *Response {
	state.Finish()

	var reasoning *Reasoning
	if state.IntentState != nil || state.ExecutionPlan != nil {
		reasoning = &Reasoning{Intent: state.IntentState, Plan: state.ExecutionPlan}
	}

	return &Response{
		Candidates:     state.Candidates,
		Reasoning:      reasoning,
		ExecutionStats: state.ExecutionStats,
		Metadata:       state.Metadata,
		Errors:         state.Errors,
	}
}

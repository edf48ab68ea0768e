package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"toolsearch/pkg/docstore"
	"toolsearch/pkg/embedding"
	"toolsearch/pkg/model"
	"toolsearch/pkg/vectorstore"
)

// RecoveredError records a single source's failure after the executor
// has decided to continue without it, per spec §4.4's per-source
// failure isolation: one bad source degrades the result set rather
// than failing the whole request.
type RecoveredError struct {
	Source string
	Err    error
}

func (r RecoveredError) Error() string {
	return fmt.Sprintf("%s: %v", r.Source, r.Err)
}

// Result is the executor's output: the fused candidate list plus any
// per-source errors it recovered from.
type Result struct {
	Candidates []model.Candidate
	Recovered  []RecoveredError
}

// Executor runs every source of a QueryPlan concurrently, bounded by an
// errgroup, and fuses the per-source results. Grounded on the teacher's
// bounded-fan-out retriever (pkg/agent/retriever.go), generalized from a
// single keyword/vector hybrid to the plan-driven multi-source fan-out
// spec §4.4 describes.
type Executor struct {
	vector     *VectorExecutor
	structured *StructuredExecutor
	logger     *zap.Logger
}

// NewExecutor builds an Executor over the given vector and document
// stores. A nil logger is replaced with a no-op logger.
func NewExecutor(vectorStore vectorstore.Store, embedder embedding.Embedder, docStore docstore.Store, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		vector:     NewVectorExecutor(vectorStore, embedder),
		structured: NewStructuredExecutor(docStore),
		logger:     logger,
	}
}

// Run executes every source in plan concurrently, isolating failures
// per source, and fuses the surviving results according to plan.Fusion.
// Run only fails outright if context is cancelled/deadline-exceeded, or
// if every single source failed.
func (e *Executor) Run(ctx context.Context, plan *model.QueryPlan, query string, intent *model.IntentState) (*Result, error) {
	type sourceOutcome struct {
		name       string
		weight     float64
		candidates []model.Candidate
		warnings   []string
		err        error
	}

	total := len(plan.VectorSources) + len(plan.StructuredSources)
	outcomes := make([]sourceOutcome, total)

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for i, vs := range plan.VectorSources {
		i, vs := i, vs
		g.Go(func() error {
			candidates, err := e.vector.Run(gctx, vs, query, intent)
			mu.Lock()
			outcomes[i] = sourceOutcome{name: vs.Collection, weight: vs.Weight, candidates: candidates, err: err}
			mu.Unlock()
			return nil // per-source errors are recovered, not propagated
		})
	}
	for j, ss := range plan.StructuredSources {
		idx := len(plan.VectorSources) + j
		ss := ss
		g.Go(func() error {
			candidates, warnings, err := e.structured.Run(gctx, ss)
			for _, w := range warnings {
				e.logger.Debug("structured source warning", zap.String("collection", ss.Collection), zap.String("warning", w))
			}
			mu.Lock()
			outcomes[idx] = sourceOutcome{name: ss.Collection, weight: ss.Weight, candidates: candidates, warnings: warnings, err: err}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Every source goroutine returns nil, so Wait reports no error
		// here; individual source failures are captured in outcomes
		// instead.
		return nil, fmt.Errorf("%w: %v", model.ErrSource, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDeadline, err)
	}

	var recovered []RecoveredError
	sources := make([]sourceResult, 0, total)
	succeeded := 0
	for _, o := range outcomes {
		for _, w := range o.warnings {
			recovered = append(recovered, RecoveredError{Source: o.name, Err: errors.New(w)})
		}
		if o.err != nil {
			recovered = append(recovered, RecoveredError{Source: o.name, Err: o.err})
			e.logger.Warn("source failed, continuing without it", zap.String("source", o.name), zap.Error(o.err))
			continue
		}
		succeeded++
		if len(o.candidates) == 0 {
			continue
		}
		weight := o.weight
		if weight == 0 {
			weight = 1.0
		}
		sources = append(sources, sourceResult{name: o.name, weight: weight, candidates: o.candidates})
	}

	if total > 0 && succeeded == 0 {
		// Every source failed: there is nothing left to fuse. Still
		// return the per-source errors alongside the empty candidate
		// list rather than discarding them, per the fusion-failure
		// contract (no survivors in, none out).
		return &Result{Candidates: []model.Candidate{}, Recovered: recovered},
			fmt.Errorf("%w: all %d sources failed", model.ErrFusion, total)
	}

	fused := Fuse(plan.Fusion, sources)
	return &Result{Candidates: fused, Recovered: recovered}, nil
}

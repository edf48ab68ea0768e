// Package pipeline sequences the five search stages — CacheLookup,
// IntentExtractor, QueryPlanner, Execute, Fuse — threading a single
// State record through them, generalizing the teacher's node/graph
// workflow state (pkg/workflow/state.go) from a cyclic multi-step RAG
// loop to the spec's fixed linear sequence.
package pipeline

import (
	"time"

	"toolsearch/pkg/domainschema"
	"toolsearch/pkg/model"
)

// RecordedError is one stage's recorded failure. Recovered errors do
// not fail the request; non-recovered errors may short-circuit
// downstream stages per the driver's recovery rules.
type RecordedError struct {
	Stage     string
	Err       error
	Recovered bool
}

// StageTiming records one stage's wall-clock elapsed time.
type StageTiming struct {
	Stage     string
	ElapsedMs int64
}

// ExecutionStats is the per-request telemetry summary returned
// alongside candidates.
type ExecutionStats struct {
	CacheHit      bool
	CacheType     string // "exact", "similar", or "" on a miss
	TotalElapsedMs int64
	StageTimings  []StageTiming
}

// Metadata carries observability fields that are not themselves part
// of the result but are useful for logging/debugging a single request.
type Metadata struct {
	CorrelationID  string
	StartedAt      time.Time
	ExecutionPath  []string
	Checkpoints    []Checkpoint
}

// Checkpoint is an optional per-stage debugging snapshot, emitted only
// when the caller sets options.enableCheckpoints.
type Checkpoint struct {
	Stage string
	State string // a short human-readable description of state at this point
}

// State is the single append-style record threaded through the
// pipeline. No stage mutates another stage's slice; each stage only
// appends to State.Errors and sets its own designated field.
type State struct {
	Schema *domainschema.Schema
	Query  string

	IntentState   *model.IntentState
	ExecutionPlan *model.QueryPlan
	Candidates    []model.Candidate

	ExecutionStats ExecutionStats
	Errors         []RecordedError
	Metadata       Metadata
}

// NewState creates a State for a fresh request.
func NewState(schema *domainschema.Schema, query, correlationID string) *State {
	return &State{
		Schema: schema,
		Query:  query,
		Metadata: Metadata{
			CorrelationID: correlationID,
			StartedAt:     time.Now(),
		},
	}
}

// RecordStage appends stage to the execution path and its timing.
func (s *State) RecordStage(stage string, elapsed time.Duration) {
	s.Metadata.ExecutionPath = append(s.Metadata.ExecutionPath, stage)
	s.ExecutionStats.StageTimings = append(s.ExecutionStats.StageTimings, StageTiming{
		Stage:     stage,
		ElapsedMs: elapsed.Milliseconds(),
	})
}

// RecordError appends a stage failure. recovered=false marks an error
// that should short-circuit remaining stages unless the driver applies
// a recovery rule.
func (s *State) RecordError(stage string, err error, recovered bool) {
	s.Errors = append(s.Errors, RecordedError{Stage: stage, Err: err, Recovered: recovered})
}

// HasFatalError reports whether any recorded error is non-recovered.
func (s *State) HasFatalError() bool {
	for _, e := range s.Errors {
		if !e.Recovered {
			return true
		}
	}
	return false
}

// AddCheckpoint records a debugging checkpoint for the given stage.
func (s *State) AddCheckpoint(stage, description string) {
	s.Metadata.Checkpoints = append(s.Metadata.Checkpoints, Checkpoint{Stage: stage, State: description})
}

// Finish stamps the total elapsed time from Metadata.StartedAt.
func (s *State) Finish() {
	s.ExecutionStats.TotalElapsedMs = time.Since(s.Metadata.StartedAt).Milliseconds()
}

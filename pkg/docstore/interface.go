// Package docstore defines the structured document store contract
// (the tool catalog): a conjunctive-filter query over a named
// collection, returning a topK-limited, rank-ordered set of records.
package docstore

import "context"

// FilterOperator enumerates the comparison operators a Filter clause
// may use.
type FilterOperator string

const (
	OpEquals      FilterOperator = "="
	OpIn          FilterOperator = "in"
	OpContains    FilterOperator = "contains"
	OpGreaterThan FilterOperator = ">"
	OpLessThan    FilterOperator = "<"
	OpGreaterEq   FilterOperator = ">="
	OpLessEq      FilterOperator = "<="
)

// Filter is one conjunctive clause of a Query.
type Filter struct {
	Field    string
	Operator FilterOperator
	Value    any
}

// Record is one structured document (a tool catalog entry).
type Record struct {
	ID       string
	Fields   map[string]any
}

// QueryRequest describes a structured lookup.
type QueryRequest struct {
	Collection string
	Filters    []Filter
	TopK       int
}

// QueryResponse carries the matched records in the order the store
// returns them (badgerstore orders them lexicographically by id).
type QueryResponse struct {
	Records []Record
}

// Store is the structured document store contract from spec §6:
// Query(collection, filter, topK) -> []Record.
type Store interface {
	Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error)
	Upsert(ctx context.Context, collection string, record Record) error
	Get(ctx context.Context, collection, id string) (*Record, error)
	Delete(ctx context.Context, collection, id string) error
	// EnsureIndexes builds (or validates) the secondary index for every
	// field in filterableFields, idempotently. Mirrors spec §6's
	// "Required indexes... created out-of-core" collaborator.
	EnsureIndexes(ctx context.Context, collection string, filterableFields []string) error
	Close() error
}

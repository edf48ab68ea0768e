package badgerstore

import (
	"context"
	"path/filepath"
	"testing"

	"toolsearch/pkg/docstore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "badger"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	tools := []docstore.Record{
		{ID: "a", Fields: map[string]any{"interface": "CLI", "deployment": "Self-Hosted", "price": 0.0}},
		{ID: "b", Fields: map[string]any{"interface": "GUI", "deployment": "Cloud", "price": 20.0}},
		{ID: "c", Fields: map[string]any{"interface": "CLI", "deployment": "Cloud", "price": 10.0}},
	}
	for _, tool := range tools {
		if err := s.Upsert(ctx, "tools", tool); err != nil {
			t.Fatalf("Upsert(%s) error = %v", tool.ID, err)
		}
	}
}

func TestQueryEqualsFilter(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	resp, err := s.Query(context.Background(), &docstore.QueryRequest{
		Collection: "tools",
		Filters:    []docstore.Filter{{Field: "interface", Operator: docstore.OpEquals, Value: "CLI"}},
		TopK:       10,
	})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(resp.Records) != 2 {
		t.Fatalf("Query(interface=CLI) returned %d records, want 2", len(resp.Records))
	}
}

func TestQueryConjunctiveFilters(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	resp, err := s.Query(context.Background(), &docstore.QueryRequest{
		Collection: "tools",
		Filters: []docstore.Filter{
			{Field: "interface", Operator: docstore.OpEquals, Value: "CLI"},
			{Field: "deployment", Operator: docstore.OpEquals, Value: "Cloud"},
		},
		TopK: 10,
	})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(resp.Records) != 1 || resp.Records[0].ID != "c" {
		t.Fatalf("Query(interface=CLI,deployment=Cloud) = %+v, want [c]", resp.Records)
	}
}

func TestQueryNumericOperator(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	resp, err := s.Query(context.Background(), &docstore.QueryRequest{
		Collection: "tools",
		Filters:    []docstore.Filter{{Field: "price", Operator: docstore.OpGreaterThan, Value: 5.0}},
		TopK:       10,
	})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(resp.Records) != 2 {
		t.Fatalf("Query(price>5) returned %d records, want 2", len(resp.Records))
	}
}

func TestUpsertThenDeleteRemovesFromIndex(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	if err := s.Delete(ctx, "tools", "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	resp, err := s.Query(ctx, &docstore.QueryRequest{
		Collection: "tools",
		Filters:    []docstore.Filter{{Field: "interface", Operator: docstore.OpEquals, Value: "CLI"}},
		TopK:       10,
	})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(resp.Records) != 1 || resp.Records[0].ID != "c" {
		t.Fatalf("Query after delete = %+v, want [c]", resp.Records)
	}
}

// Package badgerstore implements docstore.Store on top of an embedded
// BadgerDB, grounded on wbrown-janus-datalog's badger-backed datom
// store: one forward record key per document plus a secondary-index
// key per indexable field value, both scanned by prefix.
package badgerstore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"toolsearch/pkg/docstore"
)

// Store is a BadgerDB-backed docstore.Store.
type Store struct {
	db *badger.DB
}

// Open opens (creating if necessary) a BadgerDB database at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: failed to open badger: %w", err)
	}
	return &Store{db: db}, nil
}

func recordKey(collection, id string) []byte {
	return []byte(fmt.Sprintf("rec/%s/%s", collection, id))
}

func recordPrefix(collection string) []byte {
	return []byte(fmt.Sprintf("rec/%s/", collection))
}

func indexKey(collection, field, value, id string) []byte {
	return []byte(fmt.Sprintf("idx/%s/%s/%s/%s", collection, field, value, id))
}

func indexPrefix(collection, field, value string) []byte {
	return []byte(fmt.Sprintf("idx/%s/%s/%s/", collection, field, value))
}

// Upsert writes a record and refreshes its secondary index entries.
// Every field whose value is a string, a bool, a float64/int/int64
// number, or a []string/[]any list gets one index entry per value;
// fields of other types are not indexed.
func (s *Store) Upsert(ctx context.Context, collection string, record docstore.Record) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := s.clearIndexEntries(txn, collection, record.ID); err != nil {
			return err
		}

		payload, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("badgerstore: failed to marshal record: %w", err)
		}
		if err := txn.Set(recordKey(collection, record.ID), payload); err != nil {
			return err
		}

		for field, value := range record.Fields {
			for _, v := range indexableValues(value) {
				if err := txn.Set(indexKey(collection, field, v, record.ID), nil); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// clearIndexEntries removes every previously written index entry for
// id, keyed off the current record (if any), so Upsert never leaves a
// stale secondary-index pointer behind.
func (s *Store) clearIndexEntries(txn *badger.Txn, collection, id string) error {
	item, err := txn.Get(recordKey(collection, id))
	if err == badger.ErrKeyNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	var existing docstore.Record
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &existing)
	}); err != nil {
		return err
	}

	for field, value := range existing.Fields {
		for _, v := range indexableValues(value) {
			if err := txn.Delete(indexKey(collection, field, v, id)); err != nil && err != badger.ErrKeyNotFound {
				return err
			}
		}
	}
	return nil
}

func indexableValues(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	case float64, int, int64, bool:
		return []string{fmt.Sprintf("%v", v)}
	default:
		return nil
	}
}

// Get retrieves a single record by id.
func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.Record, error) {
	var record docstore.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(collection, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("badgerstore: get failed: %w", err)
	}
	return &record, nil
}

// Delete removes a record and its index entries.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := s.clearIndexEntries(txn, collection, id); err != nil {
			return err
		}
		err := txn.Delete(recordKey(collection, id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// EnsureIndexes is a no-op beyond validation: indexes here are derived
// structurally from whatever fields a record carries at Upsert time, so
// there is nothing to build ahead of data arriving. It only checks that
// collection is non-empty; filterableFields is not inspected.
func (s *Store) EnsureIndexes(ctx context.Context, collection string, filterableFields []string) error {
	if collection == "" {
		return fmt.Errorf("badgerstore: collection is required")
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Query runs a conjunctive filter query, intersecting the id set
// matched by each filter clause, then returns the first topK ids in
// deterministic (lexicographic id) order.
func (s *Store) Query(ctx context.Context, req *docstore.QueryRequest) (*docstore.QueryResponse, error) {
	if req == nil || req.Collection == "" {
		return nil, fmt.Errorf("badgerstore: collection is required")
	}

	var matched map[string]bool
	err := s.db.View(func(txn *badger.Txn) error {
		if len(req.Filters) == 0 {
			ids, err := s.scanAllIDs(txn, req.Collection)
			if err != nil {
				return err
			}
			matched = ids
			return nil
		}

		for _, f := range req.Filters {
			ids, err := s.matchFilter(txn, req.Collection, f)
			if err != nil {
				return err
			}
			if matched == nil {
				matched = ids
				continue
			}
			for id := range matched {
				if !ids[id] {
					delete(matched, id)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badgerstore: query failed: %w", err)
	}

	ids := make([]string, 0, len(matched))
	for id := range matched {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	topK := req.TopK
	if topK <= 0 || topK > len(ids) {
		topK = len(ids)
	}
	ids = ids[:topK]

	records := make([]docstore.Record, 0, len(ids))
	err = s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			item, err := txn.Get(recordKey(req.Collection, id))
			if err != nil {
				continue
			}
			var record docstore.Record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			}); err == nil {
				records = append(records, record)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badgerstore: query failed: %w", err)
	}

	return &docstore.QueryResponse{Records: records}, nil
}

func (s *Store) scanAllIDs(txn *badger.Txn, collection string) (map[string]bool, error) {
	ids := make(map[string]bool)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := recordPrefix(collection)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := string(it.Item().Key())
		ids[strings.TrimPrefix(key, string(prefix))] = true
	}
	return ids, nil
}

// matchFilter resolves one filter clause to the set of matching ids.
// Equality and "in" use the secondary index directly; the remaining
// operators require a collection scan since they are not amenable to
// exact-match prefix lookups.
func (s *Store) matchFilter(txn *badger.Txn, collection string, f docstore.Filter) (map[string]bool, error) {
	op := f.Operator
	if !validOperator(op) {
		op = docstore.OpEquals // unknown operators fall back to equality, recorded by the caller as a recovered error
	}

	switch op {
	case docstore.OpEquals:
		return s.scanIndex(txn, collection, f.Field, fmt.Sprintf("%v", f.Value))
	case docstore.OpIn:
		ids := make(map[string]bool)
		values, _ := f.Value.([]string)
		if values == nil {
			if vs, ok := f.Value.([]any); ok {
				for _, v := range vs {
					values = append(values, fmt.Sprintf("%v", v))
				}
			}
		}
		for _, v := range values {
			matched, err := s.scanIndex(txn, collection, f.Field, v)
			if err != nil {
				return nil, err
			}
			for id := range matched {
				ids[id] = true
			}
		}
		return ids, nil
	case docstore.OpContains:
		return s.scanWithPredicate(txn, collection, f.Field, func(value any) bool {
			str, ok := value.(string)
			if !ok {
				return false
			}
			re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(fmt.Sprintf("%v", f.Value)))
			return err == nil && re.MatchString(str)
		})
	default:
		return s.scanWithPredicate(txn, collection, f.Field, func(value any) bool {
			return compareNumeric(value, f.Value, op)
		})
	}
}

func validOperator(op docstore.FilterOperator) bool {
	switch op {
	case docstore.OpEquals, docstore.OpIn, docstore.OpContains,
		docstore.OpGreaterThan, docstore.OpLessThan, docstore.OpGreaterEq, docstore.OpLessEq:
		return true
	default:
		return false
	}
}

func (s *Store) scanIndex(txn *badger.Txn, collection, field, value string) (map[string]bool, error) {
	ids := make(map[string]bool)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := indexPrefix(collection, field, value)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := string(it.Item().Key())
		ids[strings.TrimPrefix(key, string(prefix))] = true
	}
	return ids, nil
}

func (s *Store) scanWithPredicate(txn *badger.Txn, collection, field string, predicate func(any) bool) (map[string]bool, error) {
	ids := make(map[string]bool)
	opts := badger.DefaultIteratorOptions
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := recordPrefix(collection)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		var record docstore.Record
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		}); err != nil {
			continue
		}
		value, ok := record.Fields[field]
		if ok && predicate(value) {
			ids[record.ID] = true
		}
	}
	return ids, nil
}

func compareNumeric(fieldValue, filterValue any, op docstore.FilterOperator) bool {
	a, aok := toFloat(fieldValue)
	b, bok := toFloat(filterValue)
	if !aok || !bok {
		return false
	}
	switch op {
	case docstore.OpGreaterThan:
		return a > b
	case docstore.OpLessThan:
		return a < b
	case docstore.OpGreaterEq:
		return a >= b
	case docstore.OpLessEq:
		return a <= b
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"bidhive-auction-core/internal/domain/shared"
	"bidhive-auction-core/internal/ports/outbound"
)

// MemoryStore is an in-memory document store used by tests and local runs. It
// honors the same version semantics as the hosted backend: every write bumps
// the document version, and conditional updates fail on a stale version.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*memoryDoc
}

type memoryDoc struct {
	data    json.RawMessage
	version int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*memoryDoc)}
}

func (s *MemoryStore) Get(_ context.Context, path string) (*outbound.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[path]
	if !ok {
		return nil, shared.ErrDocNotFound
	}
	return &outbound.Document{Path: path, Version: doc.version, Data: append(json.RawMessage(nil), doc.data...)}, nil
}

func (s *MemoryStore) Set(_ context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.docs[path]; ok {
		existing.data = data
		existing.version++
		return nil
	}
	s.docs[path] = &memoryDoc{data: data, version: 1}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, path)
	return nil
}

func (s *MemoryStore) ConditionalUpdate(_ context.Context, path string, expectedVersion int64, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[path]
	if !ok {
		return shared.ErrDocNotFound
	}
	if doc.version != expectedVersion {
		return shared.ErrVersionConflict
	}
	doc.data = data
	doc.version++
	return nil
}

func (s *MemoryStore) Query(_ context.Context, collection string, q outbound.Query) ([]outbound.Document, error) {
	prefix := collection + "/"

	s.mu.RLock()
	var results []outbound.Document
	for path, doc := range s.docs {
		if !strings.HasPrefix(path, prefix) || strings.Contains(path[len(prefix):], "/") {
			continue
		}

		fields := make(map[string]any)
		if err := json.Unmarshal(doc.data, &fields); err != nil {
			s.mu.RUnlock()
			return nil, fmt.Errorf("failed to decode document %s: %w", path, err)
		}

		if !matchesFilters(fields, q.Filters) {
			continue
		}

		results = append(results, outbound.Document{
			Path:    path,
			Version: doc.version,
			Data:    append(json.RawMessage(nil), doc.data...),
		})
	}
	s.mu.RUnlock()

	if len(q.OrderBy) > 0 {
		sortDocuments(results, q.OrderBy)
	} else {
		// deterministic order for callers that don't ask for one
		sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	}

	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

func matchesFilters(fields map[string]any, filters []outbound.Filter) bool {
	for _, f := range filters {
		value, ok := fields[f.Field]
		if !ok {
			return false
		}
		cmp, ok := compareValues(value, f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case outbound.OpEqual:
			if cmp != 0 {
				return false
			}
		case outbound.OpLessOrEqual:
			if cmp > 0 {
				return false
			}
		case outbound.OpGreaterOrEqual:
			if cmp < 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func sortDocuments(docs []outbound.Document, orderBy []outbound.Order) {
	decoded := make([]map[string]any, len(docs))
	for i, d := range docs {
		fields := make(map[string]any)
		_ = json.Unmarshal(d.Data, &fields)
		decoded[i] = fields
	}

	order := make([]int, len(docs))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		for _, o := range orderBy {
			cmp, ok := compareValues(decoded[order[a]][o.Field], decoded[order[b]][o.Field])
			if !ok || cmp == 0 {
				continue
			}
			if o.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return docs[order[a]].Path < docs[order[b]].Path
	})

	sorted := make([]outbound.Document, len(docs))
	for i, idx := range order {
		sorted[i] = docs[idx]
	}
	copy(docs, sorted)
}

// compareValues compares a decoded JSON field against a filter/order operand.
// Times stored as RFC 3339 strings compare chronologically against time.Time
// operands.
func compareValues(docValue, operand any) (int, bool) {
	if docValue == nil || operand == nil {
		return 0, false
	}

	switch op := operand.(type) {
	case time.Time:
		str, ok := docValue.(string)
		if !ok {
			return 0, false
		}
		t, err := time.Parse(time.RFC3339Nano, str)
		if err != nil {
			return 0, false
		}
		switch {
		case t.Before(op):
			return -1, true
		case t.After(op):
			return 1, true
		default:
			return 0, true
		}
	case bool:
		b, ok := docValue.(bool)
		if !ok {
			return 0, false
		}
		if b == op {
			return 0, true
		}
		if !b {
			return -1, true
		}
		return 1, true
	}

	if a, okA := toFloat(docValue); okA {
		if b, okB := toFloat(operand); okB {
			switch {
			case a < b:
				return -1, true
			case a > b:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}

	a, okA := docValue.(string)
	b, okB := operandString(operand)
	if !okA || !okB {
		return 0, false
	}

	// RFC 3339 strings of mixed precision don't compare lexicographically
	if ta, errA := time.Parse(time.RFC3339Nano, a); errA == nil {
		if tb, errB := time.Parse(time.RFC3339Nano, b); errB == nil {
			switch {
			case ta.Before(tb):
				return -1, true
			case ta.After(tb):
				return 1, true
			default:
				return 0, true
			}
		}
	}
	return strings.Compare(a, b), true
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
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func operandString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

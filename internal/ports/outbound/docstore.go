package outbound

import (
	"context"
	"encoding/json"
	"strings"
)

// Document is one stored record. Version increments on every write and backs
// conditional updates.
type Document struct {
	Path    string
	Version int64
	Data    json.RawMessage
}

// ID returns the last path segment of the document.
func (d *Document) ID() string {
	idx := strings.LastIndexByte(d.Path, '/')
	if idx < 0 {
		return d.Path
	}
	return d.Path[idx+1:]
}

// Decode unmarshals the document payload into v.
func (d *Document) Decode(v any) error {
	return json.Unmarshal(d.Data, v)
}

// Op is a filter comparison operator
type Op string

const (
	OpEqual          Op = "=="
	OpLessOrEqual    Op = "<="
	OpGreaterOrEqual Op = ">="
)

// Filter restricts a query to documents whose field compares against Value.
// Filters compose with AND.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// OrderAs selects the comparison domain for an ordering field. Timestamps and
// numbers stored as JSON do not order correctly as text, so callers sorting on
// them must say so.
type OrderAs int

const (
	OrderAsText OrderAs = iota
	OrderAsNumber
	OrderAsTime
)

// Order sorts query results by a field.
type Order struct {
	Field      string
	Descending bool
	As         OrderAs
}

// Query describes a filtered, ordered scan of one collection.
type Query struct {
	Filters []Filter
	OrderBy []Order
	Limit   int
}

// Store is the document database boundary. All durable state lives behind it;
// the core holds no storage of its own.
type Store interface {
	// Get retrieves a single document, or shared.ErrDocNotFound
	Get(ctx context.Context, path string) (*Document, error)

	// Set upserts a document and bumps its version
	Set(ctx context.Context, path string, value any) error

	// Delete removes a document; deleting a missing document is not an error
	Delete(ctx context.Context, path string) error

	// Query scans the direct children of a collection path
	Query(ctx context.Context, collection string, q Query) ([]Document, error)

	// ConditionalUpdate replaces a document only if its version still equals
	// expectedVersion, otherwise shared.ErrVersionConflict
	ConditionalUpdate(ctx context.Context, path string, expectedVersion int64, value any) error
}

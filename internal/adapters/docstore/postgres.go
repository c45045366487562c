package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bidhive-auction-core/internal/domain/shared"
	"bidhive-auction-core/internal/ports/outbound"
)

// PostgresStore keeps documents in a single table with a JSONB payload and a
// version column. Conditional updates key the UPDATE on the expected version
// and treat zero affected rows as a conflict.
type PostgresStore struct {
	conn *Connection
}

// NewPostgresStore creates a Postgres-backed document store.
func NewPostgresStore(conn *Connection) *PostgresStore {
	return &PostgresStore{conn: conn}
}

// Migrate creates the documents table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS documents (
			path TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			data JSONB NOT NULL,
			version BIGINT NOT NULL DEFAULT 1
		);
		CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents (collection);
	`

	if _, err := s.conn.GetDB().ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to migrate documents table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, path string) (*outbound.Document, error) {
	query := `
		SELECT data, version
		FROM documents
		WHERE path = $1
	`

	var data []byte
	var version int64
	err := s.conn.GetDB().QueryRowContext(ctx, query, path).Scan(&data, &version)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrDocNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &outbound.Document{Path: path, Version: version, Data: data}, nil
}

func (s *PostgresStore) Set(ctx context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", path, err)
	}

	query := `
		INSERT INTO documents (path, collection, data, version)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (path) DO UPDATE
		SET data = EXCLUDED.data, version = documents.version + 1
	`

	if _, err := s.conn.GetDB().ExecContext(ctx, query, path, collectionOf(path), data); err != nil {
		return fmt.Errorf("failed to set document: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, path string) error {
	query := `DELETE FROM documents WHERE path = $1`

	if _, err := s.conn.GetDB().ExecContext(ctx, query, path); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// ConditionalUpdate replaces the document only while its version is still the
// expected one. The update and the zero-rows classification run in one
// transaction so the answer reflects the state the update saw.
func (s *PostgresStore) ConditionalUpdate(ctx context.Context, path string, expectedVersion int64, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", path, err)
	}

	query := `
		UPDATE documents
		SET data = $2, version = version + 1
		WHERE path = $1 AND version = $3
	`

	return s.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, path, data, expectedVersion)
		if err != nil {
			return fmt.Errorf("failed to update document: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected > 0 {
			return nil
		}

		// No row matched: either the document is gone or another writer got there first
		var exists bool
		err = tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE path = $1)`, path).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check document: %w", err)
		}
		if !exists {
			return shared.ErrDocNotFound
		}
		return shared.ErrVersionConflict
	})
}

func (s *PostgresStore) Query(ctx context.Context, collection string, q outbound.Query) ([]outbound.Document, error) {
	query := `
		SELECT path, data, version
		FROM documents
		WHERE collection = $1
	`
	args := []any{collection}

	for _, f := range q.Filters {
		op, err := sqlOp(f.Op)
		if err != nil {
			return nil, err
		}
		expr, arg, err := filterExpr(f, len(args)+1, op)
		if err != nil {
			return nil, err
		}
		query += " AND " + expr
		args = append(args, arg)
	}

	query += orderClause(q.OrderBy)

	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := s.conn.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []outbound.Document
	for rows.Next() {
		var doc outbound.Document
		if err := rows.Scan(&doc.Path, &doc.Data, &doc.Version); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	return docs, nil
}

// orderClause builds the ORDER BY for a query, casting hinted fields the same
// way filterExpr does so times and numbers sort by value rather than as text.
func orderClause(orderBy []outbound.Order) string {
	if len(orderBy) == 0 {
		return " ORDER BY path ASC"
	}

	clauses := make([]string, 0, len(orderBy))
	for _, o := range orderBy {
		field := sanitizeField(o.Field)

		var expr string
		switch o.As {
		case outbound.OrderAsTime:
			expr = fmt.Sprintf("(data->>'%s')::timestamptz", field)
		case outbound.OrderAsNumber:
			expr = fmt.Sprintf("(data->>'%s')::numeric", field)
		default:
			expr = fmt.Sprintf("data->>'%s'", field)
		}

		direction := "ASC"
		if o.Descending {
			direction = "DESC"
		}
		clauses = append(clauses, expr+" "+direction)
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}

// filterExpr builds a typed comparison over the JSONB payload. Numbers and
// times are cast so they compare by value rather than as text.
func filterExpr(f outbound.Filter, argIdx int, op string) (string, any, error) {
	field := sanitizeField(f.Field)

	switch v := f.Value.(type) {
	case time.Time:
		return fmt.Sprintf("(data->>'%s')::timestamptz %s $%d", field, op, argIdx), v, nil
	case float64, float32, int, int64:
		return fmt.Sprintf("(data->>'%s')::numeric %s $%d", field, op, argIdx), v, nil
	case bool:
		return fmt.Sprintf("(data->>'%s')::boolean %s $%d", field, op, argIdx), v, nil
	case string:
		return fmt.Sprintf("data->>'%s' %s $%d", field, op, argIdx), v, nil
	default:
		return "", nil, fmt.Errorf("unsupported filter value type %T for field %s", f.Value, f.Field)
	}
}

func sqlOp(op outbound.Op) (string, error) {
	switch op {
	case outbound.OpEqual:
		return "=", nil
	case outbound.OpLessOrEqual:
		return "<=", nil
	case outbound.OpGreaterOrEqual:
		return ">=", nil
	default:
		return "", fmt.Errorf("unsupported filter operator %q", op)
	}
}

// sanitizeField guards the JSONB key interpolation; field names come from
// code, never user input, but a stray quote must not break the statement.
func sanitizeField(field string) string {
	return strings.ReplaceAll(field, "'", "")
}

// collectionOf returns the parent collection of a document path.
func collectionOf(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

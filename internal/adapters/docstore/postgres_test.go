package docstore

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"bidhive-auction-core/internal/config"
	"bidhive-auction-core/internal/domain/shared"
	"bidhive-auction-core/internal/ports/outbound"

	"github.com/stretchr/testify/require"
)

func TestOrderClause(t *testing.T) {
	tests := []struct {
		name    string
		orderBy []outbound.Order
		want    string
	}{
		{
			name: "default_path_order",
			want: " ORDER BY path ASC",
		},
		{
			name:    "text_field",
			orderBy: []outbound.Order{{Field: "category"}},
			want:    " ORDER BY data->>'category' ASC",
		},
		{
			name:    "time_field_cast",
			orderBy: []outbound.Order{{Field: "createdAt", Descending: true, As: outbound.OrderAsTime}},
			want:    " ORDER BY (data->>'createdAt')::timestamptz DESC",
		},
		{
			name: "number_then_time",
			orderBy: []outbound.Order{
				{Field: "bidAmount", Descending: true, As: outbound.OrderAsNumber},
				{Field: "bidTime", As: outbound.OrderAsTime},
			},
			want: " ORDER BY (data->>'bidAmount')::numeric DESC, (data->>'bidTime')::timestamptz ASC",
		},
		{
			name:    "quotes_stripped_from_field",
			orderBy: []outbound.Order{{Field: "cre'atedAt", As: outbound.OrderAsTime}},
			want:    " ORDER BY (data->>'createdAt')::timestamptz ASC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, orderClause(tt.orderBy))
		})
	}
}

// The remaining tests need a reachable database.
func openTestStore(t *testing.T) *PostgresStore {
	t.Helper()

	url := os.Getenv("TEST_DB_URL")
	if url == "" {
		t.Skip("TEST_DB_URL not set")
	}

	cfg := &config.Config{Database: config.DatabaseConfig{URL: url}}
	conn, err := NewConnection(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	store := NewPostgresStore(conn)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestPostgresConditionalUpdate(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	path := "listings/active/test-occ-item"
	t.Cleanup(func() { _ = store.Delete(ctx, path) })

	err := store.ConditionalUpdate(ctx, path, 1, map[string]any{"totalBids": 1})
	require.ErrorIs(t, err, shared.ErrDocNotFound)

	require.NoError(t, store.Set(ctx, path, map[string]any{"totalBids": 0}))
	require.NoError(t, store.ConditionalUpdate(ctx, path, 1, map[string]any{"totalBids": 1}))

	// the stale version loses
	err = store.ConditionalUpdate(ctx, path, 1, map[string]any{"totalBids": 99})
	require.ErrorIs(t, err, shared.ErrVersionConflict)

	doc, err := store.Get(ctx, path)
	require.NoError(t, err)
	require.Equal(t, int64(2), doc.Version)
}

func TestExecuteTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	path := "listings/active/test-tx-item"
	t.Cleanup(func() { _ = store.Delete(ctx, path) })

	boom := errors.New("boom")
	err := store.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO documents (path, collection, data, version) VALUES ($1, $2, $3, 1)`,
			path, collectionOf(path), []byte(`{}`))
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Get(ctx, path)
	require.ErrorIs(t, err, shared.ErrDocNotFound, "the insert did not survive the rollback")
}

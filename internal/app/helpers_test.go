package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"bidhive-auction-core/internal/adapters/docstore"
	"bidhive-auction-core/internal/domain/item"
	"bidhive-auction-core/internal/domain/shared"
	"bidhive-auction-core/internal/ports/outbound"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

type emitted struct {
	UserID  string
	Kind    shared.NotificationType
	Payload outbound.NotificationPayload
}

// captureNotifier records every emission; per-user failures can be injected.
type captureNotifier struct {
	mu      sync.Mutex
	emitted []emitted
	failFor map[string]error
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{failFor: make(map[string]error)}
}

func (n *captureNotifier) Emit(_ context.Context, userID string, kind shared.NotificationType, payload outbound.NotificationPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err, ok := n.failFor[userID]; ok {
		return err
	}
	n.emitted = append(n.emitted, emitted{UserID: userID, Kind: kind, Payload: payload})
	return nil
}

func (n *captureNotifier) forUser(userID string) []emitted {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []emitted
	for _, e := range n.emitted {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

// flakyStore fails configured deletes exactly once, then behaves normally.
type flakyStore struct {
	outbound.Store
	mu          sync.Mutex
	failDeletes map[string]error
}

func newFlakyStore(inner outbound.Store) *flakyStore {
	return &flakyStore{Store: inner, failDeletes: make(map[string]error)}
}

func (s *flakyStore) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	err, ok := s.failDeletes[path]
	if ok {
		delete(s.failDeletes, path)
	}
	s.mu.Unlock()

	if ok {
		return err
	}
	return s.Store.Delete(ctx, path)
}

func newActiveItem(id string) *item.Item {
	return &item.Item{
		ID:           id,
		Name:         "Vintage Camera",
		Description:  "A well-kept vintage rangefinder camera.",
		StartingBid:  100,
		ShippingCost: 10,
		Category:     "Electronics",
		Condition:    "Very Good",
		Photos:       []string{"photo1.jpg"},
		EndAt:        testNow.Add(24 * time.Hour),
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
		Status:       item.StatusActive,
	}
}

func seedActiveItem(t *testing.T, store outbound.Store, it *item.Item) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), shared.ListingPath(string(item.StatusActive), it.ID), it))
}

func seedUser(t *testing.T, store outbound.Store, uid, fullName, email string) {
	t.Helper()
	user := shared.User{
		UID:       uid,
		FullName:  fullName,
		Email:     email,
		IsActive:  true,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	require.NoError(t, store.Set(context.Background(), shared.UserPath(uid), user))
}

func newTestBidService(store outbound.Store, notifier outbound.NotificationGateway) *BidService {
	return NewBidService(BidServiceParams{
		Store:    store,
		Notifier: notifier,
		Logger:   zerolog.Nop(),
		Now:      fixedNow,
	})
}

func newTestCatalogService(store outbound.Store) *CatalogService {
	return NewCatalogService(CatalogServiceParams{
		Store:  store,
		Logger: zerolog.Nop(),
		Now:    fixedNow,
	})
}

func newTestLifecycleService(t *testing.T, store outbound.Store, notifier outbound.NotificationGateway) *LifecycleService {
	t.Helper()
	service := NewLifecycleService(LifecycleServiceParams{
		Store:    store,
		Notifier: notifier,
		Logger:   zerolog.Nop(),
		Now:      fixedNow,
	})
	t.Cleanup(service.Stop)
	return service
}

func newMemoryStore() *docstore.MemoryStore {
	return docstore.NewMemoryStore()
}

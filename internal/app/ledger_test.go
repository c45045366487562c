package app

import (
	"context"
	"testing"
	"time"

	"bidhive-auction-core/internal/domain/item"
	"bidhive-auction-core/internal/domain/shared"
	"bidhive-auction-core/internal/ports/inbound"
	"bidhive-auction-core/internal/ports/outbound"

	"github.com/stretchr/testify/require"
)

func TestPlaceBid(t *testing.T) {
	ctx := context.Background()

	t.Run("first_bid_must_exceed_starting_bid", func(t *testing.T) {
		store := newMemoryStore()
		service := newTestBidService(store, newCaptureNotifier())
		seedActiveItem(t, store, newActiveItem("item1"))

		_, err := service.PlaceBid(ctx, inbound.PlaceBidRequest{ItemID: "item1", BidderID: "u1", Amount: 100})
		var tooLow *shared.BidTooLowError
		require.ErrorAs(t, err, &tooLow, "a bid equal to the starting bid is not enough")
		require.Equal(t, 100.0, tooLow.Minimum)

		accepted, err := service.PlaceBid(ctx, inbound.PlaceBidRequest{ItemID: "item1", BidderID: "u1", Amount: 120})
		require.NoError(t, err)
		require.Equal(t, 120.0, accepted.Amount)
	})

	t.Run("projection_tracks_accepted_bids", func(t *testing.T) {
		store := newMemoryStore()
		service := newTestBidService(store, newCaptureNotifier())
		catalog := newTestCatalogService(store)
		seedActiveItem(t, store, newActiveItem("item1"))

		_, err := service.PlaceBid(ctx, inbound.PlaceBidRequest{ItemID: "item1", BidderID: "u1", Amount: 120})
		require.NoError(t, err)
		_, err = service.PlaceBid(ctx, inbound.PlaceBidRequest{ItemID: "item1", BidderID: "u2", Amount: 150})
		require.NoError(t, err)

		it, err := catalog.GetItem(ctx, item.StatusActive, "item1")
		require.NoError(t, err)
		require.Equal(t, "u2", it.TopBidderID)
		require.Equal(t, 150.0, it.TopBidAmount)
		require.Equal(t, 2, it.TotalBids)
	})

	t.Run("raising_own_bid_keeps_bidder_count", func(t *testing.T) {
		store := newMemoryStore()
		service := newTestBidService(store, newCaptureNotifier())
		catalog := newTestCatalogService(store)
		seedActiveItem(t, store, newActiveItem("item1"))

		_, err := service.PlaceBid(ctx, inbound.PlaceBidRequest{ItemID: "item1", BidderID: "u1", Amount: 120})
		require.NoError(t, err)
		_, err = service.PlaceBid(ctx, inbound.PlaceBidRequest{ItemID: "item1", BidderID: "u1", Amount: 140})
		require.NoError(t, err)

		it, err := catalog.GetItem(ctx, item.StatusActive, "item1")
		require.NoError(t, err)
		require.Equal(t, 1, it.TotalBids, "totalBids counts distinct bidders")

		bids, err := service.RankedBids(ctx, "item1")
		require.NoError(t, err)
		require.Len(t, bids, 2, "each accepted bid is its own immutable record")
	})

	t.Run("underbidding_the_top_is_rejected", func(t *testing.T) {
		store := newMemoryStore()
		service := newTestBidService(store, newCaptureNotifier())
		seedActiveItem(t, store, newActiveItem("item1"))

		_, err := service.PlaceBid(ctx, inbound.PlaceBidRequest{ItemID: "item1", BidderID: "u1", Amount: 120})
		require.NoError(t, err)
		_, err = service.PlaceBid(ctx, inbound.PlaceBidRequest{ItemID: "item1", BidderID: "u2", Amount: 150})
		require.NoError(t, err)

		_, err = service.PlaceBid(ctx, inbound.PlaceBidRequest{ItemID: "item1", BidderID: "u3", Amount: 140})
		var tooLow *shared.BidTooLowError
		require.ErrorAs(t, err, &tooLow)
		require.Equal(t, 150.0, tooLow.Minimum)

		bids, err := service.RankedBids(ctx, "item1")
		require.NoError(t, err)
		require.Len(t, bids, 2, "the rejected bid leaves no record")
	})

	t.Run("missing_item", func(t *testing.T) {
		service := newTestBidService(newMemoryStore(), newCaptureNotifier())

		_, err := service.PlaceBid(ctx, inbound.PlaceBidRequest{ItemID: "ghost", BidderID: "u1", Amount: 120})
		require.ErrorIs(t, err, shared.ErrItemNotFound)
	})

	t.Run("settled_item_is_not_active", func(t *testing.T) {
		store := newMemoryStore()
		service := newTestBidService(store, newCaptureNotifier())

		sold := newActiveItem("item1")
		sold.Status = item.StatusSold
		require.NoError(t, store.Set(ctx, shared.ListingPath(string(item.StatusSold), sold.ID), sold))

		_, err := service.PlaceBid(ctx, inbound.PlaceBidRequest{ItemID: "item1", BidderID: "u1", Amount: 120})
		require.ErrorIs(t, err, shared.ErrItemNotActive)
	})

	t.Run("ended_auction_rejects_bids", func(t *testing.T) {
		store := newMemoryStore()
		service := newTestBidService(store, newCaptureNotifier())

		it := newActiveItem("item1")
		it.EndAt = testNow.Add(-time.Minute)
		seedActiveItem(t, store, it)

		_, err := service.PlaceBid(ctx, inbound.PlaceBidRequest{ItemID: "item1", BidderID: "u1", Amount: 120})
		require.ErrorIs(t, err, shared.ErrItemExpired)
	})

	t.Run("active_pointer_written_for_bidder", func(t *testing.T) {
		store := newMemoryStore()
		service := newTestBidService(store, newCaptureNotifier())
		seedActiveItem(t, store, newActiveItem("item1"))

		_, err := service.PlaceBid(ctx, inbound.PlaceBidRequest{ItemID: "item1", BidderID: "u1", Amount: 120})
		require.NoError(t, err)

		doc, err := store.Get(ctx, shared.UserActiveBidPath("u1", "item1"))
		require.NoError(t, err)

		var record shared.ActiveBidRecord
		require.NoError(t, doc.Decode(&record))
		require.Equal(t, "item1", record.ItemID)
	})

	t.Run("prior_bidders_notified_once_each", func(t *testing.T) {
		store := newMemoryStore()
		notifier := newCaptureNotifier()
		service := newTestBidService(store, notifier)
		seedActiveItem(t, store, newActiveItem("item1"))

		_, err := service.PlaceBid(ctx, inbound.PlaceBidRequest{ItemID: "item1", BidderID: "u1", Amount: 120})
		require.NoError(t, err)
		require.Empty(t, notifier.emitted, "the first bidder has nobody to notify")

		_, err = service.PlaceBid(ctx, inbound.PlaceBidRequest{ItemID: "item1", BidderID: "u1", Amount: 130})
		require.NoError(t, err)
		require.Empty(t, notifier.emitted, "a bidder is not notified of their own raise")

		_, err = service.PlaceBid(ctx, inbound.PlaceBidRequest{ItemID: "item1", BidderID: "u2", Amount: 150})
		require.NoError(t, err)

		u1Notes := notifier.forUser("u1")
		require.Len(t, u1Notes, 1)
		require.Equal(t, shared.NotificationNewBid, u1Notes[0].Kind)
		require.Equal(t, 150.0, u1Notes[0].Payload.Amount)
		require.Empty(t, notifier.forUser("u2"))
	})
}

// conflictingStore simulates another bid landing between this placement's read
// and its projection update.
type conflictingStore struct {
	outbound.Store
	service   *BidService
	itemID    string
	conflicts int
	done      bool
}

func (s *conflictingStore) ConditionalUpdate(ctx context.Context, path string, expectedVersion int64, value any) error {
	if !s.done && s.conflicts > 0 {
		s.conflicts--
		s.done = s.conflicts == 0
		_, err := s.service.PlaceBid(ctx, inbound.PlaceBidRequest{ItemID: s.itemID, BidderID: "rival", Amount: 130})
		if err != nil {
			return err
		}
	}
	return s.Store.ConditionalUpdate(ctx, path, expectedVersion, value)
}

func TestPlaceBidConcurrentConflict(t *testing.T) {
	ctx := context.Background()

	t.Run("higher_bid_survives_losing_the_race", func(t *testing.T) {
		store := newMemoryStore()
		notifier := newCaptureNotifier()
		rivalService := newTestBidService(store, notifier)

		wrapped := &conflictingStore{Store: store, service: rivalService, itemID: "item1", conflicts: 1}
		service := newTestBidService(wrapped, notifier)

		seedActiveItem(t, store, newActiveItem("item1"))

		// the rival's 130 lands first; our 150 still clears the fresh top
		accepted, err := service.PlaceBid(ctx, inbound.PlaceBidRequest{ItemID: "item1", BidderID: "u1", Amount: 150})
		require.NoError(t, err)
		require.Equal(t, 150.0, accepted.Amount)

		catalog := newTestCatalogService(store)
		it, err := catalog.GetItem(ctx, item.StatusActive, "item1")
		require.NoError(t, err)
		require.Equal(t, "u1", it.TopBidderID)
		require.Equal(t, 150.0, it.TopBidAmount)
		require.Equal(t, 2, it.TotalBids)
	})

	t.Run("outraced_lower_bid_is_rejected_and_discarded", func(t *testing.T) {
		store := newMemoryStore()
		notifier := newCaptureNotifier()
		rivalService := newTestBidService(store, notifier)

		wrapped := &conflictingStore{Store: store, service: rivalService, itemID: "item1", conflicts: 1}
		service := newTestBidService(wrapped, notifier)

		seedActiveItem(t, store, newActiveItem("item1"))

		// the rival's 130 lands first; our 125 no longer clears the top
		_, err := service.PlaceBid(ctx, inbound.PlaceBidRequest{ItemID: "item1", BidderID: "u1", Amount: 125})
		var tooLow *shared.BidTooLowError
		require.ErrorAs(t, err, &tooLow)
		require.Equal(t, 130.0, tooLow.Minimum)

		bids, err := rivalService.RankedBids(ctx, "item1")
		require.NoError(t, err)
		require.Len(t, bids, 1, "the outraced bid record is removed")
		require.Equal(t, "rival", bids[0].BidderID)
	})
}

func TestTopBid(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	service := newTestBidService(store, newCaptureNotifier())
	seedActiveItem(t, store, newActiveItem("item1"))

	_, err := service.TopBid(ctx, "item1")
	require.ErrorIs(t, err, shared.ErrNoBidsFound)

	_, err = service.PlaceBid(ctx, inbound.PlaceBidRequest{ItemID: "item1", BidderID: "u1", Amount: 120})
	require.NoError(t, err)
	_, err = service.PlaceBid(ctx, inbound.PlaceBidRequest{ItemID: "item1", BidderID: "u2", Amount: 150})
	require.NoError(t, err)

	top, err := service.TopBid(ctx, "item1")
	require.NoError(t, err)
	require.Equal(t, "u2", top.BidderID)
	require.Equal(t, 150.0, top.Amount)
}

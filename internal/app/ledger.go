package app

import (
	"context"
	"errors"
	"time"

	"bidhive-auction-core/internal/domain/bid"
	"bidhive-auction-core/internal/domain/item"
	"bidhive-auction-core/internal/domain/shared"
	"bidhive-auction-core/internal/ports/inbound"
	"bidhive-auction-core/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultBidRetryLimit = 5

// BidService accepts and ranks bids for active listings and maintains each
// item's denormalized top-bid projection.
type BidService struct {
	store      outbound.Store
	notifier   outbound.NotificationGateway
	logger     zerolog.Logger
	retryLimit int
	now        func() time.Time
}

type BidServiceParams struct {
	Store      outbound.Store
	Notifier   outbound.NotificationGateway
	Logger     zerolog.Logger
	RetryLimit int
	Now        func() time.Time
}

// NewBidService creates a new bid service
func NewBidService(params BidServiceParams) *BidService {
	retryLimit := params.RetryLimit
	if retryLimit <= 0 {
		retryLimit = defaultBidRetryLimit
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &BidService{
		store:      params.Store,
		notifier:   params.Notifier,
		logger:     params.Logger.With().Str("component", "bid_service").Logger(),
		retryLimit: retryLimit,
		now:        now,
	}
}

// PlaceBid validates and records a bid. The bid record and the projection
// update form one logical unit: the projection write is conditional on the
// version observed during validation, and a conflict means another bid won
// the race, so the placement re-validates against the fresh top instead of
// failing. Each accepted bid is a new immutable record, even when a bidder
// raises their own bid.
func (service *BidService) PlaceBid(ctx context.Context, req inbound.PlaceBidRequest) (*bid.Bid, error) {
	service.logger.Info().
		Str("item_id", req.ItemID).
		Str("bidder_id", req.BidderID).
		Float64("amount", req.Amount).
		Msg("Attempting to place bid")

	itemPath := shared.ListingPath(string(item.StatusActive), req.ItemID)

	var recorded *bid.Bid
	var isNewBidder bool
	var recipients []string

	for attempt := 0; attempt <= service.retryLimit; attempt++ {
		doc, err := service.store.Get(ctx, itemPath)
		if err != nil {
			if errors.Is(err, shared.ErrDocNotFound) {
				service.discardRecorded(ctx, req.ItemID, recorded)
				return nil, service.classifyMissingActive(ctx, req.ItemID)
			}
			return nil, err
		}

		it, err := decodeItem(doc)
		if err != nil {
			return nil, err
		}

		now := service.now()

		if it.Status != item.StatusActive {
			service.logger.Warn().Str("item_id", req.ItemID).Str("status", string(it.Status)).Msg("Item not accepting bids")
			service.discardRecorded(ctx, req.ItemID, recorded)
			return nil, shared.ErrItemNotActive
		}
		if it.IsExpired(now) {
			service.logger.Warn().Str("item_id", req.ItemID).Time("end_at", it.EndAt).Msg("Auction has ended")
			service.discardRecorded(ctx, req.ItemID, recorded)
			return nil, shared.ErrItemExpired
		}

		minimum := it.MinimumBid()
		if req.Amount <= minimum {
			service.logger.Warn().
				Str("item_id", req.ItemID).
				Float64("minimum", minimum).
				Float64("amount", req.Amount).
				Msg("Bid amount too low")
			service.discardRecorded(ctx, req.ItemID, recorded)
			return nil, &shared.BidTooLowError{Minimum: minimum}
		}

		if recorded == nil {
			existing, err := readRankedBids(ctx, service.store, string(item.StatusActive), req.ItemID)
			if err != nil {
				return nil, err
			}
			isNewBidder = !bid.HasBidder(existing, req.BidderID)
			recipients = priorBidders(existing, req.BidderID)

			newBid := &bid.Bid{
				ID:       uuid.New().String(),
				BidderID: req.BidderID,
				Amount:   req.Amount,
				PlacedAt: now,
			}
			if err := service.store.Set(ctx, shared.BidPath(string(item.StatusActive), req.ItemID, newBid.ID), newBid); err != nil {
				service.logger.Error().Err(err).Str("item_id", req.ItemID).Msg("Failed to record bid")
				return nil, err
			}
			recorded = newBid
		}

		updated := *it
		updated.TopBidderID = req.BidderID
		updated.TopBidAmount = req.Amount
		if isNewBidder {
			updated.TotalBids = it.TotalBids + 1
		}
		updated.UpdatedAt = now

		err = service.store.ConditionalUpdate(ctx, itemPath, doc.Version, &updated)
		if err == nil {
			service.finishPlacement(ctx, &updated, recorded, recipients)
			return recorded, nil
		}
		if errors.Is(err, shared.ErrVersionConflict) {
			service.logger.Debug().
				Str("item_id", req.ItemID).
				Int("attempt", attempt+1).
				Msg("Projection update conflicted, re-validating against fresh top bid")
			continue
		}
		service.logger.Error().Err(err).Str("item_id", req.ItemID).Msg("Failed to update top-bid projection")
		return nil, err
	}

	service.logger.Error().
		Str("item_id", req.ItemID).
		Int("attempts", service.retryLimit+1).
		Msg("Gave up placing bid after repeated projection conflicts")
	service.discardRecorded(ctx, req.ItemID, recorded)
	return nil, shared.ErrStoreContention
}

// finishPlacement runs the post-acceptance side effects: the bidder's
// active-view pointer and the fanout to prior bidders. Neither may fail the
// already-accepted bid.
func (service *BidService) finishPlacement(ctx context.Context, it *item.Item, accepted *bid.Bid, recipients []string) {
	pointer := shared.ActiveBidRecord{ItemID: it.ID}
	if err := service.store.Set(ctx, shared.UserActiveBidPath(accepted.BidderID, it.ID), pointer); err != nil {
		service.logger.Error().Err(err).
			Str("item_id", it.ID).
			Str("bidder_id", accepted.BidderID).
			Msg("Failed to upsert active bid pointer")
	}

	payload := outbound.NotificationPayload{
		ItemID:   it.ID,
		ItemName: it.Name,
		Amount:   accepted.Amount,
	}
	for _, userID := range recipients {
		if err := service.notifier.Emit(ctx, userID, shared.NotificationNewBid, payload); err != nil {
			service.logger.Error().Err(err).
				Str("item_id", it.ID).
				Str("user_id", userID).
				Msg("Failed to notify prior bidder")
		}
	}

	service.logger.Info().
		Str("item_id", it.ID).
		Str("bid_id", accepted.ID).
		Str("bidder_id", accepted.BidderID).
		Float64("amount", accepted.Amount).
		Int("notified", len(recipients)).
		Msg("Bid placed successfully")
}

// discardRecorded removes a bid record whose projection update lost the race
// to a higher bid; leaving it would fabricate an accepted bid below the top.
func (service *BidService) discardRecorded(ctx context.Context, itemID string, recorded *bid.Bid) {
	if recorded == nil {
		return
	}
	path := shared.BidPath(string(item.StatusActive), itemID, recorded.ID)
	if err := service.store.Delete(ctx, path); err != nil {
		service.logger.Error().Err(err).Str("bid_id", recorded.ID).Msg("Failed to discard outraced bid record")
	}
}

// classifyMissingActive distinguishes a settled item from a stale reference.
func (service *BidService) classifyMissingActive(ctx context.Context, itemID string) error {
	for _, partition := range []item.Status{item.StatusSold, item.StatusExpired} {
		if _, err := service.store.Get(ctx, shared.ListingPath(string(partition), itemID)); err == nil {
			return shared.ErrItemNotActive
		}
	}
	return shared.ErrItemNotFound
}

// RankedBids returns an active item's bids, amount descending, earliest first
// on ties. Rank 0 is the top bidder.
func (service *BidService) RankedBids(ctx context.Context, itemID string) ([]*bid.Bid, error) {
	return readRankedBids(ctx, service.store, string(item.StatusActive), itemID)
}

// TopBid returns the current top bid for an active item.
func (service *BidService) TopBid(ctx context.Context, itemID string) (*bid.Bid, error) {
	bids, err := service.RankedBids(ctx, itemID)
	if err != nil {
		return nil, err
	}
	top := bid.Top(bids)
	if top == nil {
		return nil, shared.ErrNoBidsFound
	}
	return top, nil
}

// priorBidders returns every distinct bidder except the one who just bid.
func priorBidders(bids []*bid.Bid, exclude string) []string {
	var recipients []string
	for _, bidderID := range bid.DistinctBidders(bids) {
		if bidderID != exclude {
			recipients = append(recipients, bidderID)
		}
	}
	return recipients
}

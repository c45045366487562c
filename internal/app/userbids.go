package app

import (
	"context"
	"errors"

	"bidhive-auction-core/internal/domain/bid"
	"bidhive-auction-core/internal/domain/item"
	"bidhive-auction-core/internal/domain/shared"
	"bidhive-auction-core/internal/ports/inbound"
	"bidhive-auction-core/internal/ports/outbound"

	"github.com/rs/zerolog"
)

// UserBidsService answers what a user is bidding on and what they won or
// lost. Active entries are joined against live listings at read time; past
// entries against the settled partitions.
type UserBidsService struct {
	store  outbound.Store
	logger zerolog.Logger
}

type UserBidsServiceParams struct {
	Store  outbound.Store
	Logger zerolog.Logger
}

// NewUserBidsService creates a new user bids service
func NewUserBidsService(params UserBidsServiceParams) *UserBidsService {
	return &UserBidsService{
		store:  params.Store,
		logger: params.Logger.With().Str("component", "user_bids_service").Logger(),
	}
}

// ActiveBidsFor resolves a user's active-bid pointers into live listing data.
// A pointer whose listing has meanwhile left the active partition is skipped;
// settlement clears the pointer itself.
func (service *UserBidsService) ActiveBidsFor(ctx context.Context, userID string) ([]inbound.ActiveBidEntry, error) {
	docs, err := service.store.Query(ctx, shared.UserActiveBidsCollection(userID), outbound.Query{})
	if err != nil {
		return nil, err
	}

	entries := make([]inbound.ActiveBidEntry, 0, len(docs))
	for i := range docs {
		var record shared.ActiveBidRecord
		if err := docs[i].Decode(&record); err != nil {
			return nil, err
		}

		itemDoc, err := service.store.Get(ctx, shared.ListingPath(string(item.StatusActive), record.ItemID))
		if err != nil {
			if errors.Is(err, shared.ErrDocNotFound) {
				service.logger.Debug().
					Str("user_id", userID).
					Str("item_id", record.ItemID).
					Msg("Active bid pointer references settled item, skipping")
				continue
			}
			return nil, err
		}

		it, err := decodeItem(itemDoc)
		if err != nil {
			return nil, err
		}

		bids, err := readRankedBids(ctx, service.store, string(item.StatusActive), record.ItemID)
		if err != nil {
			return nil, err
		}

		own := bid.BestFor(bids, userID)
		if own == nil {
			service.logger.Warn().
				Str("user_id", userID).
				Str("item_id", record.ItemID).
				Msg("Active bid pointer has no matching bid record")
			continue
		}

		top := bid.Top(bids)
		entries = append(entries, inbound.ActiveBidEntry{
			Item:          it,
			UserBidAmount: own.Amount,
			CurrentTopBid: top.Amount,
			IsTopBidder:   top.BidderID == userID,
		})
	}

	return entries, nil
}

// PastBidsFor resolves a user's past records into settled listing data. Each
// item appears at most once: settlement writes a single record per bidder no
// matter how many bids they placed.
func (service *UserBidsService) PastBidsFor(ctx context.Context, userID string) ([]inbound.PastBidEntry, error) {
	docs, err := service.store.Query(ctx, shared.UserPastBidsCollection(userID), outbound.Query{})
	if err != nil {
		return nil, err
	}

	entries := make([]inbound.PastBidEntry, 0, len(docs))
	for i := range docs {
		var record shared.PastBidRecord
		if err := docs[i].Decode(&record); err != nil {
			return nil, err
		}

		it, err := service.findSettledItem(ctx, record.ItemID)
		if err != nil {
			if errors.Is(err, shared.ErrItemNotFound) {
				service.logger.Warn().
					Str("user_id", userID).
					Str("item_id", record.ItemID).
					Msg("Past bid record references missing item, skipping")
				continue
			}
			return nil, err
		}

		entries = append(entries, inbound.PastBidEntry{
			Item:          it,
			UserBidAmount: record.FinalBid,
			FinalAmount:   finalAmountOf(it),
			Won:           record.Won,
		})
	}

	return entries, nil
}

func (service *UserBidsService) findSettledItem(ctx context.Context, itemID string) (*item.Item, error) {
	for _, status := range []item.Status{item.StatusSold, item.StatusExpired} {
		doc, err := service.store.Get(ctx, shared.ListingPath(string(status), itemID))
		if err == nil {
			return decodeItem(doc)
		}
		if !errors.Is(err, shared.ErrDocNotFound) {
			return nil, err
		}
	}
	return nil, shared.ErrItemNotFound
}

// finalAmountOf is the closing price of a settled item: the sale amount for
// sold items, the highest bid reached for expired ones.
func finalAmountOf(it *item.Item) float64 {
	if it.Status == item.StatusSold {
		return it.FinalBidAmount
	}
	return it.TopBidAmount
}

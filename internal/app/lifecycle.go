package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bidhive-auction-core/internal/config"
	"bidhive-auction-core/internal/domain/bid"
	"bidhive-auction-core/internal/domain/item"
	"bidhive-auction-core/internal/domain/shared"
	"bidhive-auction-core/internal/ports/outbound"

	"github.com/alitto/pond"
	"github.com/rs/zerolog"
)

const transitionFlipRetries = 5

// LifecycleService owns the active -> sold | expired state machine. Both
// transitions are terminal. The status flip on the active document strictly
// precedes the copy steps so a racing bid placement observes a non-active
// status and is rejected instead of writing into a partition about to be
// deleted.
type LifecycleService struct {
	store    outbound.Store
	notifier outbound.NotificationGateway
	pool     *pond.WorkerPool
	logger   zerolog.Logger
	now      func() time.Time
}

type LifecycleServiceParams struct {
	Store    outbound.Store
	Notifier outbound.NotificationGateway
	Logger   zerolog.Logger
	Now      func() time.Time
}

// NewLifecycleService creates a new lifecycle service
func NewLifecycleService(params LifecycleServiceParams) *LifecycleService {
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &LifecycleService{
		store:    params.Store,
		notifier: params.Notifier,
		pool:     pond.New(config.FanoutMaxWorkers, config.FanoutMaxCapacity, pond.Strategy(pond.Balanced())),
		logger:   params.Logger.With().Str("component", "lifecycle_service").Logger(),
		now:      now,
	}
}

// Stop drains the settlement worker pool.
func (service *LifecycleService) Stop() {
	service.pool.StopAndWait()
}

// SweepExpired transitions every active item whose end time has passed.
// Idempotent: an item already moved out of the active partition is absent
// from the candidate set, so re-running immediately after a sweep is a no-op.
func (service *LifecycleService) SweepExpired(ctx context.Context, now time.Time) ([]string, error) {
	docs, err := service.store.Query(ctx, shared.ListingsCollection(string(item.StatusActive)), outbound.Query{
		Filters: []outbound.Filter{
			{Field: "expiresAt", Op: outbound.OpLessOrEqual, Value: now},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query expired candidates: %w", err)
	}

	if len(docs) > 0 {
		service.logger.Debug().Int("count", len(docs)).Msg("Found expired candidates")
	}

	var transitioned []string
	var errs []error
	for i := range docs {
		itemID := docs[i].ID()

		err := service.Expire(ctx, itemID)
		switch {
		case err == nil:
			transitioned = append(transitioned, itemID)
		case errors.Is(err, shared.ErrItemNotActive):
			// another sweeper or an admin got there first
			continue
		default:
			var partial *shared.PartialFailure
			if errors.As(err, &partial) {
				// the item itself moved; only bidder remediation remains
				transitioned = append(transitioned, itemID)
			}
			service.logger.Error().Err(err).Str("item_id", itemID).Msg("Failed to expire item")
			errs = append(errs, fmt.Errorf("item %s: %w", itemID, err))
		}
	}

	return transitioned, errors.Join(errs...)
}

// Expire moves one item to the expired partition. The winner, if any bids
// exist, is the current top-ranked bid.
func (service *LifecycleService) Expire(ctx context.Context, itemID string) error {
	return service.transition(ctx, itemID, item.StatusExpired, "")
}

// MarkSold moves one item to the sold partition with an explicitly chosen
// winning bid. The chosen bid is usually, but not necessarily, the top-ranked
// one: an admin may override the winner.
func (service *LifecycleService) MarkSold(ctx context.Context, itemID, winningBidID string) error {
	if winningBidID == "" {
		return shared.ErrBidNotFound
	}
	return service.transition(ctx, itemID, item.StatusSold, winningBidID)
}

func (service *LifecycleService) transition(ctx context.Context, itemID string, target item.Status, winningBidID string) error {
	activePath := shared.ListingPath(string(item.StatusActive), itemID)
	now := service.now()

	var it *item.Item
	var bids []*bid.Bid
	var winner *bid.Bid

	// Flip the status before any copy step. A conflict means a concurrent
	// bid bumped the document version; re-read and try again.
	for attempt := 0; ; attempt++ {
		doc, err := service.store.Get(ctx, activePath)
		if err != nil {
			if errors.Is(err, shared.ErrDocNotFound) {
				return shared.ErrItemNotActive
			}
			return err
		}

		if it, err = decodeItem(doc); err != nil {
			return err
		}

		// A terminal status matching the target means a previous run flipped
		// the item but did not finish; resume. Any other terminal status
		// belongs to a competing transition.
		if it.Status != item.StatusActive && it.Status != target {
			return shared.ErrItemNotActive
		}

		if bids, err = readRankedBids(ctx, service.store, string(item.StatusActive), itemID); err != nil {
			return err
		}

		if winner, err = selectWinner(bids, target, winningBidID); err != nil {
			return err
		}

		if it.Status == target {
			break
		}

		it.Status = target
		it.UpdatedAt = now
		err = service.store.ConditionalUpdate(ctx, activePath, doc.Version, it)
		if err == nil {
			break
		}
		if errors.Is(err, shared.ErrVersionConflict) && attempt < transitionFlipRetries {
			continue
		}
		return fmt.Errorf("failed to flip item %s status: %w", itemID, err)
	}

	// Re-read after the flip: a placement losing the version race to the flip
	// discards its own record, so the set read before the flip may hold
	// records about to vanish.
	var err error
	if bids, err = readRankedBids(ctx, service.store, string(item.StatusActive), itemID); err != nil {
		return err
	}
	if winner, err = selectWinner(bids, target, winningBidID); err != nil {
		return err
	}

	service.logger.Info().
		Str("item_id", itemID).
		Str("target", string(target)).
		Int("bids", len(bids)).
		Msg("Transitioning item")

	settled := service.buildSettledItem(ctx, it, target, winner, now)
	if err := service.store.Set(ctx, shared.ListingPath(string(target), itemID), settled); err != nil {
		return fmt.Errorf("failed to copy item %s to %s partition: %w", itemID, target, err)
	}

	// Bidders follow the item into its terminal partition
	for _, b := range bids {
		if err := service.store.Set(ctx, shared.BidPath(string(target), itemID, b.ID), b); err != nil {
			return fmt.Errorf("failed to copy bid %s: %w", b.ID, err)
		}
	}

	failures := service.settleBidders(ctx, settled, bids, winner)
	if len(failures) > 0 {
		// Leave the active copy in place so a re-run can finish the failed
		// bidder steps without losing data.
		return &shared.PartialFailure{ItemID: itemID, Failures: failures}
	}

	for _, b := range bids {
		if err := service.store.Delete(ctx, shared.BidPath(string(item.StatusActive), itemID, b.ID)); err != nil {
			return fmt.Errorf("failed to remove active bid %s: %w", b.ID, err)
		}
	}
	if err := service.store.Delete(ctx, activePath); err != nil {
		return fmt.Errorf("failed to remove item %s from active partition: %w", itemID, err)
	}

	service.logger.Info().
		Str("item_id", itemID).
		Str("target", string(target)).
		Msg("Item transitioned successfully")
	return nil
}

func selectWinner(bids []*bid.Bid, target item.Status, winningBidID string) (*bid.Bid, error) {
	if target == item.StatusExpired {
		return bid.Top(bids), nil
	}

	if len(bids) == 0 {
		return nil, shared.ErrNoBidsToSell
	}
	for _, b := range bids {
		if b.ID == winningBidID {
			return b, nil
		}
	}
	return nil, shared.ErrBidNotFound
}

// buildSettledItem returns the item document destined for the terminal
// partition. Sold items carry the buyer identity resolved from the chosen
// bid; a missing user profile degrades to an id-only buyer rather than
// blocking the sale.
func (service *LifecycleService) buildSettledItem(ctx context.Context, it *item.Item, target item.Status, winner *bid.Bid, now time.Time) *item.Item {
	settled := *it
	settled.Status = target
	settled.UpdatedAt = now

	if winner != nil {
		settled.TopBidderID = winner.BidderID
		settled.TopBidAmount = winner.Amount
	}

	switch target {
	case item.StatusExpired:
		settled.ExpiredAt = &now
	case item.StatusSold:
		settled.SoldAt = &now
		settled.BuyerID = winner.BidderID
		settled.FinalBidAmount = winner.Amount

		buyer, err := service.resolveBuyer(ctx, winner.BidderID)
		if err != nil {
			service.logger.Warn().Err(err).
				Str("item_id", it.ID).
				Str("buyer_id", winner.BidderID).
				Msg("Could not resolve buyer profile")
		} else {
			settled.BuyerName = buyer.FullName
			settled.BuyerEmail = buyer.Email
		}
	}

	return &settled
}

// resolveBuyer loads the winning bidder's profile.
func (service *LifecycleService) resolveBuyer(ctx context.Context, buyerID string) (*shared.User, error) {
	doc, err := service.store.Get(ctx, shared.UserPath(buyerID))
	if err != nil {
		if errors.Is(err, shared.ErrDocNotFound) {
			return nil, shared.ErrUserNotFound
		}
		return nil, err
	}

	var buyer shared.User
	if err := doc.Decode(&buyer); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", buyerID, err)
	}
	return &buyer, nil
}

// settleBidders runs the per-bidder settlement steps concurrently. The steps
// for different bidders touch disjoint records, so one bidder's failure never
// blocks another's; failures are collected for the caller.
func (service *LifecycleService) settleBidders(ctx context.Context, it *item.Item, bids []*bid.Bid, winner *bid.Bid) []shared.BidderFailure {
	bidders := bid.DistinctBidders(bids)
	if len(bidders) == 0 {
		return nil
	}

	var mu sync.Mutex
	var failures []shared.BidderFailure

	group := service.pool.Group()
	for _, bidderID := range bidders {
		bidderID := bidderID
		won := winner != nil && winner.BidderID == bidderID
		ownFinal := bid.BestFor(bids, bidderID).Amount
		finalAmount := winner.Amount

		group.Submit(func() {
			for _, failure := range service.settleBidder(ctx, it, bidderID, won, ownFinal, finalAmount) {
				mu.Lock()
				failures = append(failures, failure)
				mu.Unlock()
			}
		})
	}
	group.Wait()

	return failures
}

// settleBidder writes one bidder's past record, clears their active pointer
// and emits their single win/loss notification. A past record that already
// exists marks the bidder as settled by a previous run: the record and
// notification are not repeated, only the pointer cleanup is retried.
func (service *LifecycleService) settleBidder(ctx context.Context, it *item.Item, bidderID string, won bool, ownFinal, finalAmount float64) []shared.BidderFailure {
	var failures []shared.BidderFailure

	pastPath := shared.UserPastBidPath(bidderID, it.ID)
	_, err := service.store.Get(ctx, pastPath)
	alreadySettled := err == nil

	if !alreadySettled {
		if err != nil && !errors.Is(err, shared.ErrDocNotFound) {
			return append(failures, shared.BidderFailure{BidderID: bidderID, Step: "past_record", Err: err})
		}

		record := shared.PastBidRecord{ItemID: it.ID, Won: won, FinalBid: ownFinal}
		if err := service.store.Set(ctx, pastPath, record); err != nil {
			// without the past record nothing else for this bidder may run
			return append(failures, shared.BidderFailure{BidderID: bidderID, Step: "past_record", Err: err})
		}
	}

	if err := service.store.Delete(ctx, shared.UserActiveBidPath(bidderID, it.ID)); err != nil {
		failures = append(failures, shared.BidderFailure{BidderID: bidderID, Step: "clear_active", Err: err})
	}

	if !alreadySettled {
		kind := shared.NotificationItemLost
		amount := finalAmount
		if won {
			kind = shared.NotificationItemWon
			amount = ownFinal
		}
		payload := outbound.NotificationPayload{ItemID: it.ID, ItemName: it.Name, Amount: amount}
		if err := service.notifier.Emit(ctx, bidderID, kind, payload); err != nil {
			failures = append(failures, shared.BidderFailure{BidderID: bidderID, Step: "notify", Err: err})
		}
	}

	return failures
}

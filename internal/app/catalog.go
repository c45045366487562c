package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"bidhive-auction-core/internal/domain/item"
	"bidhive-auction-core/internal/domain/shared"
	"bidhive-auction-core/internal/ports/inbound"
	"bidhive-auction-core/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const catalogUpdateRetries = 3

// CatalogService implements listing CRUD and catalog queries
type CatalogService struct {
	store  outbound.Store
	logger zerolog.Logger
	now    func() time.Time
}

type CatalogServiceParams struct {
	Store  outbound.Store
	Logger zerolog.Logger
	Now    func() time.Time
}

// NewCatalogService creates a new catalog service
func NewCatalogService(params CatalogServiceParams) *CatalogService {
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &CatalogService{
		store:  params.Store,
		logger: params.Logger.With().Str("component", "catalog_service").Logger(),
		now:    now,
	}
}

// CreateItem validates and writes a new active listing
func (service *CatalogService) CreateItem(ctx context.Context, req inbound.CreateItemRequest) (*item.Item, error) {
	now := service.now()

	service.logger.Info().
		Str("item_name", req.Name).
		Str("category", req.Category).
		Float64("starting_bid", req.StartingBid).
		Msg("Attempting to create listing")

	endAt := req.EndAt
	if req.Duration != "" {
		resolved, ok := item.EndTimeForDuration(now, req.Duration)
		if !ok {
			verr := &shared.ValidationError{}
			verr.Add("duration", "unknown duration preset")
			return nil, verr
		}
		endAt = resolved
	}

	it := &item.Item{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(req.Name),
		Description:  strings.TrimSpace(req.Description),
		StartingBid:  req.StartingBid,
		ShippingCost: req.ShippingCost,
		Category:     req.Category,
		Condition:    req.Condition,
		Photos:       req.Photos,
		EndAt:        endAt,
		CreatedAt:    now,
		UpdatedAt:    now,
		Status:       item.StatusActive,
		TotalBids:    0,
	}

	if verr := it.Validate(now); verr != nil {
		service.logger.Warn().
			Str("item_name", req.Name).
			Int("field_errors", len(verr.Fields)).
			Msg("Listing validation failed")
		return nil, verr
	}

	if err := service.store.Set(ctx, shared.ListingPath(string(item.StatusActive), it.ID), it); err != nil {
		service.logger.Error().Err(err).Str("item_id", it.ID).Msg("Failed to save listing")
		return nil, err
	}

	service.logger.Info().Str("item_id", it.ID).Msg("Listing created successfully")
	return it, nil
}

// GetItem retrieves an item from one listings partition
func (service *CatalogService) GetItem(ctx context.Context, status item.Status, itemID string) (*item.Item, error) {
	doc, err := service.store.Get(ctx, shared.ListingPath(string(status), itemID))
	if err != nil {
		if errors.Is(err, shared.ErrDocNotFound) {
			return nil, shared.ErrItemNotFound
		}
		return nil, err
	}
	return decodeItem(doc)
}

// ListItems retrieves every item in one listings partition
func (service *CatalogService) ListItems(ctx context.Context, status item.Status) ([]*item.Item, error) {
	docs, err := service.store.Query(ctx, shared.ListingsCollection(string(status)), outbound.Query{
		OrderBy: []outbound.Order{{Field: "createdAt", Descending: true, As: outbound.OrderAsTime}},
	})
	if err != nil {
		return nil, err
	}

	items := make([]*item.Item, 0, len(docs))
	for i := range docs {
		it, err := decodeItem(&docs[i])
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// UpdateItem edits an active listing. The patched listing is re-validated and
// the write is conditional on the read version so a concurrent bid's
// projection update is never clobbered.
func (service *CatalogService) UpdateItem(ctx context.Context, itemID string, patch inbound.ItemPatch) (*item.Item, error) {
	path := shared.ListingPath(string(item.StatusActive), itemID)

	for attempt := 0; attempt < catalogUpdateRetries; attempt++ {
		doc, err := service.store.Get(ctx, path)
		if err != nil {
			if errors.Is(err, shared.ErrDocNotFound) {
				service.logger.Warn().Str("item_id", itemID).Msg("Listing not found for update")
				return nil, shared.ErrItemNotFound
			}
			return nil, err
		}

		it, err := decodeItem(doc)
		if err != nil {
			return nil, err
		}

		now := service.now()
		applyPatch(it, patch)
		it.UpdatedAt = now

		if verr := it.Validate(now); verr != nil {
			service.logger.Warn().
				Str("item_id", itemID).
				Int("field_errors", len(verr.Fields)).
				Msg("Listing update validation failed")
			return nil, verr
		}

		err = service.store.ConditionalUpdate(ctx, path, doc.Version, it)
		if err == nil {
			service.logger.Info().Str("item_id", itemID).Msg("Listing updated successfully")
			return it, nil
		}
		if errors.Is(err, shared.ErrVersionConflict) {
			continue
		}
		return nil, err
	}

	return nil, shared.ErrStoreContention
}

// RepairItem edits a sold or expired listing without re-validating the
// auction-ended invariants. Administrative data fixes only.
func (service *CatalogService) RepairItem(ctx context.Context, status item.Status, itemID string, patch inbound.ItemPatch) (*item.Item, error) {
	path := shared.ListingPath(string(status), itemID)

	doc, err := service.store.Get(ctx, path)
	if err != nil {
		if errors.Is(err, shared.ErrDocNotFound) {
			return nil, shared.ErrItemNotFound
		}
		return nil, err
	}

	it, err := decodeItem(doc)
	if err != nil {
		return nil, err
	}

	applyPatch(it, patch)
	it.UpdatedAt = service.now()

	if err := service.store.Set(ctx, path, it); err != nil {
		return nil, err
	}

	service.logger.Info().
		Str("item_id", itemID).
		Str("partition", string(status)).
		Msg("Listing repaired")
	return it, nil
}

// DeleteItem removes an item and its bid records from its partition. This is
// an administrative override, not a lifecycle transition: bidders are not
// notified and per-user records are left to the operator.
func (service *CatalogService) DeleteItem(ctx context.Context, status item.Status, itemID string) error {
	partition := string(status)

	bidDocs, err := service.store.Query(ctx, shared.BiddersCollection(partition, itemID), outbound.Query{})
	if err != nil {
		return err
	}
	for i := range bidDocs {
		if err := service.store.Delete(ctx, bidDocs[i].Path); err != nil {
			return err
		}
	}

	if err := service.store.Delete(ctx, shared.ListingPath(partition, itemID)); err != nil {
		return err
	}

	service.logger.Info().
		Str("item_id", itemID).
		Str("partition", partition).
		Int("bid_records", len(bidDocs)).
		Msg("Listing deleted")
	return nil
}

// Search filters active listings by term, category, price and ending window.
// Filters compose with AND; term matching is a case-insensitive substring
// match across name, category and description.
func (service *CatalogService) Search(ctx context.Context, req inbound.SearchRequest) ([]*item.Item, error) {
	items, err := service.ListItems(ctx, item.StatusActive)
	if err != nil {
		return nil, err
	}

	now := service.now()
	term := strings.ToLower(strings.TrimSpace(req.Term))

	var matched []*item.Item
	for _, it := range items {
		if term != "" && !matchesTerm(it, term) {
			continue
		}
		if req.Category != "" && it.Category != req.Category {
			continue
		}
		price := it.MinimumBid()
		if req.MinPrice != nil && price < *req.MinPrice {
			continue
		}
		if req.MaxPrice != nil && price > *req.MaxPrice {
			continue
		}
		if req.Bucket != item.BucketNone && !bucketIncludes(it.EndingBucket(now), req.Bucket) {
			continue
		}
		matched = append(matched, it)
	}
	return matched, nil
}

func matchesTerm(it *item.Item, term string) bool {
	return strings.Contains(strings.ToLower(it.Name), term) ||
		strings.Contains(strings.ToLower(it.Category), term) ||
		strings.Contains(strings.ToLower(it.Description), term)
}

// bucketIncludes widens a bucket filter to tighter buckets: an item ending in
// 30 minutes also ends today and this week.
func bucketIncludes(got, want item.Bucket) bool {
	rank := map[item.Bucket]int{
		item.BucketEndingSoon:  1,
		item.BucketEndingToday: 2,
		item.BucketThisWeek:    3,
	}
	gotRank, ok := rank[got]
	if !ok {
		return false
	}
	return gotRank <= rank[want]
}

func applyPatch(it *item.Item, patch inbound.ItemPatch) {
	if patch.Name != nil {
		it.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		it.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.StartingBid != nil {
		it.StartingBid = *patch.StartingBid
	}
	if patch.ShippingCost != nil {
		it.ShippingCost = *patch.ShippingCost
	}
	if patch.Category != nil {
		it.Category = *patch.Category
	}
	if patch.Condition != nil {
		it.Condition = *patch.Condition
	}
	if patch.Photos != nil {
		it.Photos = patch.Photos
	}
	if patch.EndAt != nil {
		it.EndAt = *patch.EndAt
	}
}

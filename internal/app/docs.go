package app

import (
	"context"
	"fmt"

	"bidhive-auction-core/internal/domain/bid"
	"bidhive-auction-core/internal/domain/item"
	"bidhive-auction-core/internal/domain/shared"
	"bidhive-auction-core/internal/ports/outbound"
)

func decodeItem(doc *outbound.Document) (*item.Item, error) {
	var it item.Item
	if err := doc.Decode(&it); err != nil {
		return nil, fmt.Errorf("failed to decode item %s: %w", doc.Path, err)
	}
	it.ID = doc.ID()
	return &it, nil
}

func decodeBid(doc *outbound.Document) (*bid.Bid, error) {
	var b bid.Bid
	if err := doc.Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode bid %s: %w", doc.Path, err)
	}
	b.ID = doc.ID()
	return &b, nil
}

// readRankedBids loads an item's bid sub-collection in ranking order.
func readRankedBids(ctx context.Context, store outbound.Store, partition, itemID string) ([]*bid.Bid, error) {
	docs, err := store.Query(ctx, shared.BiddersCollection(partition, itemID), outbound.Query{
		OrderBy: []outbound.Order{
			{Field: "bidAmount", Descending: true, As: outbound.OrderAsNumber},
			{Field: "bidTime", As: outbound.OrderAsTime},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query bids for item %s: %w", itemID, err)
	}

	bids := make([]*bid.Bid, 0, len(docs))
	for i := range docs {
		b, err := decodeBid(&docs[i])
		if err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}

	// store ordering is advisory; ranking is the invariant
	bid.Rank(bids)
	return bids, nil
}

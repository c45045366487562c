package inbound

import (
	"context"
	"time"

	"bidhive-auction-core/internal/domain/bid"
	"bidhive-auction-core/internal/domain/item"
	"bidhive-auction-core/internal/domain/shared"
)

// CatalogService defines listing CRUD and catalog queries
type CatalogService interface {
	// CreateItem validates and writes a new active listing
	CreateItem(ctx context.Context, req CreateItemRequest) (*item.Item, error)

	// GetItem retrieves an item from one listings partition
	GetItem(ctx context.Context, status item.Status, itemID string) (*item.Item, error)

	// ListItems retrieves every item in one listings partition
	ListItems(ctx context.Context, status item.Status) ([]*item.Item, error)

	// UpdateItem edits an active listing, re-validating the result
	UpdateItem(ctx context.Context, itemID string, patch ItemPatch) (*item.Item, error)

	// RepairItem edits a sold or expired listing without re-validating
	// auction-ended invariants; an administrative data-fix path
	RepairItem(ctx context.Context, status item.Status, itemID string, patch ItemPatch) (*item.Item, error)

	// DeleteItem removes an item and its bid records from its partition
	DeleteItem(ctx context.Context, status item.Status, itemID string) error

	// Search filters active listings by term, category, price and ending window
	Search(ctx context.Context, req SearchRequest) ([]*item.Item, error)
}

// BidService defines bid acceptance and ranking for active listings
type BidService interface {
	// PlaceBid validates and records a bid, updating the item's top-bid projection
	PlaceBid(ctx context.Context, req PlaceBidRequest) (*bid.Bid, error)

	// RankedBids returns an active item's bids, amount descending, earliest first on ties
	RankedBids(ctx context.Context, itemID string) ([]*bid.Bid, error)

	// TopBid returns the current top bid, or shared.ErrNoBidsFound
	TopBid(ctx context.Context, itemID string) (*bid.Bid, error)
}

// LifecycleService owns the one-way active -> sold | expired state machine
type LifecycleService interface {
	// SweepExpired transitions every active item whose end time has passed.
	// Idempotent: items already moved are absent from the candidate set.
	SweepExpired(ctx context.Context, now time.Time) ([]string, error)

	// Expire moves one item to the expired partition, settling every bidder
	Expire(ctx context.Context, itemID string) error

	// MarkSold moves one item to the sold partition with an explicitly chosen
	// winning bid, which need not be the top-ranked one
	MarkSold(ctx context.Context, itemID, winningBidID string) error
}

// UserBidsService answers what a user is bidding on and what they won or lost
type UserBidsService interface {
	ActiveBidsFor(ctx context.Context, userID string) ([]ActiveBidEntry, error)
	PastBidsFor(ctx context.Context, userID string) ([]PastBidEntry, error)
}

// NotificationsService is the read side of the notifications collection
type NotificationsService interface {
	For(ctx context.Context, userID string) ([]*shared.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

// request to create a listing. EndAt is used directly unless Duration names
// one of the listing duration presets.
type CreateItemRequest struct {
	Name         string    `json:"itemName"`
	Description  string    `json:"description"`
	StartingBid  float64   `json:"startingBid"`
	ShippingCost float64   `json:"shippingCost"`
	Category     string    `json:"category"`
	Condition    string    `json:"condition"`
	Photos       []string  `json:"photos"`
	Duration     string    `json:"duration,omitempty"`
	EndAt        time.Time `json:"expiresAt,omitempty"`
}

// ItemPatch holds the fields an edit may change; nil fields are left as-is
type ItemPatch struct {
	Name         *string    `json:"itemName,omitempty"`
	Description  *string    `json:"description,omitempty"`
	StartingBid  *float64   `json:"startingBid,omitempty"`
	ShippingCost *float64   `json:"shippingCost,omitempty"`
	Category     *string    `json:"category,omitempty"`
	Condition    *string    `json:"condition,omitempty"`
	Photos       []string   `json:"photos,omitempty"`
	EndAt        *time.Time `json:"expiresAt,omitempty"`
}

// request to search active listings; zero-valued fields are ignored
type SearchRequest struct {
	Term     string      `json:"term"`
	Category string      `json:"category"`
	MinPrice *float64    `json:"minPrice,omitempty"`
	MaxPrice *float64    `json:"maxPrice,omitempty"`
	Bucket   item.Bucket `json:"bucket,omitempty"`
}

// request to place a bid
type PlaceBidRequest struct {
	ItemID   string  `json:"item_id"`
	BidderID string  `json:"bidder_id"`
	Amount   float64 `json:"amount"`
}

// ActiveBidEntry joins a user's active-bid pointer with live item data
type ActiveBidEntry struct {
	Item          *item.Item `json:"item"`
	UserBidAmount float64    `json:"userBidAmount"`
	CurrentTopBid float64    `json:"currentTopBid"`
	IsTopBidder   bool       `json:"isTopBidder"`
}

// PastBidEntry joins a user's past record with the settled item
type PastBidEntry struct {
	Item          *item.Item `json:"item"`
	UserBidAmount float64    `json:"userBidAmount"`
	FinalAmount   float64    `json:"finalAmount"`
	Won           bool       `json:"won"`
}

package item

import (
	"strings"
	"time"

	"bidhive-auction-core/internal/domain/shared"
)

// Status represents the lifecycle state of a listing. The status doubles as
// the listings partition the item document lives in.
type Status string

const (
	StatusActive  Status = "active"
	StatusSold    Status = "sold"
	StatusExpired Status = "expired"
)

// Bucket classifies how soon an active listing ends
type Bucket string

const (
	BucketEndingSoon  Bucket = "ending_soon"  // under an hour
	BucketEndingToday Bucket = "ending_today" // under a day
	BucketThisWeek    Bucket = "this_week"    // under a week
	BucketNone        Bucket = ""
)

// Categories an item can be listed under
var Categories = []string{
	"Electronics", "Fashion", "Home & Garden", "Sports", "Books",
	"Art & Collectibles", "Jewelry", "Automotive", "Music", "Other",
}

// Conditions an item can be listed in
var Conditions = []string{
	"New", "Like New", "Very Good", "Good", "Fair", "Poor",
}

// Durations are the listing duration presets offered to admins
var Durations = map[string]time.Duration{
	"1 day":   24 * time.Hour,
	"3 days":  3 * 24 * time.Hour,
	"7 days":  7 * 24 * time.Hour,
	"14 days": 14 * 24 * time.Hour,
	"30 days": 30 * 24 * time.Hour,
}

const (
	MinPhotos = 1
	MaxPhotos = 5
)

// Item is an auction listing. TopBidderID/TopBidAmount are a denormalized
// projection of the bidders sub-collection, kept for cheap list rendering and
// recomputed on every accepted bid. Buyer fields are populated only for sold
// items.
type Item struct {
	ID           string    `json:"-"`
	Name         string    `json:"itemName"`
	Description  string    `json:"description"`
	StartingBid  float64   `json:"startingBid"`
	ShippingCost float64   `json:"shippingCost"`
	Category     string    `json:"category"`
	Condition    string    `json:"condition"`
	Photos       []string  `json:"photos"`
	EndAt        time.Time `json:"expiresAt"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Status       Status  `json:"status"`
	TotalBids    int     `json:"totalBids"`
	TopBidderID  string  `json:"topBidder,omitempty"`
	TopBidAmount float64 `json:"topBidAmount,omitempty"`

	BuyerID        string     `json:"buyerId,omitempty"`
	BuyerName      string     `json:"buyerName,omitempty"`
	BuyerEmail     string     `json:"buyerEmail,omitempty"`
	FinalBidAmount float64    `json:"finalBidAmount,omitempty"`
	SoldAt         *time.Time `json:"soldAt,omitempty"`
	ExpiredAt      *time.Time `json:"expiredAt,omitempty"`
}

// Validate checks the listing invariants and returns every violated field.
// Returns nil when the item is valid.
func (i *Item) Validate(now time.Time) *shared.ValidationError {
	verr := &shared.ValidationError{}

	if len(strings.TrimSpace(i.Name)) < 3 {
		verr.Add("itemName", "item name must be at least 3 characters long")
	}
	if len(strings.TrimSpace(i.Description)) < 10 {
		verr.Add("description", "description must be at least 10 characters long")
	}
	if i.StartingBid <= 0 {
		verr.Add("startingBid", "starting bid must be greater than 0")
	}
	if i.ShippingCost < 0 {
		verr.Add("shippingCost", "shipping cost cannot be negative")
	}
	if !contains(Categories, i.Category) {
		verr.Add("category", "category is required")
	}
	if !contains(Conditions, i.Condition) {
		verr.Add("condition", "condition is required")
	}
	if len(i.Photos) < MinPhotos {
		verr.Add("photos", "at least one photo is required")
	} else if len(i.Photos) > MaxPhotos {
		verr.Add("photos", "at most five photos are allowed")
	}
	if !i.EndAt.After(now) {
		verr.Add("expiresAt", "end time must be in the future")
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// IsExpired reports whether the listing's end time has passed.
func (i *Item) IsExpired(now time.Time) bool {
	return !now.Before(i.EndAt)
}

// MinimumBid is the amount a new bid must strictly exceed: the current top
// bid, or the starting bid while no bid has been accepted.
func (i *Item) MinimumBid() float64 {
	if i.TopBidderID != "" {
		return i.TopBidAmount
	}
	return i.StartingBid
}

// HasBids reports whether the projection has recorded any accepted bid.
func (i *Item) HasBids() bool {
	return i.TopBidderID != ""
}

// EndingBucket classifies how soon the listing ends relative to now.
func (i *Item) EndingBucket(now time.Time) Bucket {
	remaining := i.EndAt.Sub(now)
	switch {
	case remaining <= 0:
		return BucketNone
	case remaining < time.Hour:
		return BucketEndingSoon
	case remaining < 24*time.Hour:
		return BucketEndingToday
	case remaining < 7*24*time.Hour:
		return BucketThisWeek
	default:
		return BucketNone
	}
}

// EndTimeForDuration resolves a duration preset to an end time.
func EndTimeForDuration(now time.Time, duration string) (time.Time, bool) {
	d, ok := Durations[duration]
	if !ok {
		return time.Time{}, false
	}
	return now.Add(d), true
}

func contains(set []string, value string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}

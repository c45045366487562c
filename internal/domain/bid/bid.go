package bid

import (
	"sort"
	"time"
)

// Bid is one immutable bid record in an item's bidders sub-collection. A
// bidder raising their own bid appends a new record; records are only ever
// copied, never mutated, after acceptance.
type Bid struct {
	ID       string    `json:"-"`
	BidderID string    `json:"bidderId"`
	Amount   float64   `json:"bidAmount"`
	PlacedAt time.Time `json:"bidTime"`
}

// Rank sorts bids in place: amount descending, earliest bid first on ties.
// Rank 0 is the current top bid.
func Rank(bids []*Bid) {
	sort.SliceStable(bids, func(i, j int) bool {
		if bids[i].Amount != bids[j].Amount {
			return bids[i].Amount > bids[j].Amount
		}
		return bids[i].PlacedAt.Before(bids[j].PlacedAt)
	})
}

// Top returns the highest-ranked bid, or nil if there are none. The slice
// must already be ranked.
func Top(bids []*Bid) *Bid {
	if len(bids) == 0 {
		return nil
	}
	return bids[0]
}

// HasBidder reports whether the given user holds any bid in the set.
func HasBidder(bids []*Bid, bidderID string) bool {
	for _, b := range bids {
		if b.BidderID == bidderID {
			return true
		}
	}
	return false
}

// DistinctBidders returns each participating bidder once, in rank order of
// their best bid.
func DistinctBidders(bids []*Bid) []string {
	seen := make(map[string]bool, len(bids))
	var bidders []string
	for _, b := range bids {
		if !seen[b.BidderID] {
			seen[b.BidderID] = true
			bidders = append(bidders, b.BidderID)
		}
	}
	return bidders
}

// BestFor returns the given bidder's highest bid in the set, or nil. The
// slice must already be ranked.
func BestFor(bids []*Bid, bidderID string) *Bid {
	for _, b := range bids {
		if b.BidderID == bidderID {
			return b
		}
	}
	return nil
}

package shared

import (
	"errors"
	"fmt"
	"strings"
)

// Domain-specific errors
var (
	// Item errors
	ErrItemNotFound  = errors.New("item not found")
	ErrItemNotActive = errors.New("item is not open for bidding")
	ErrItemExpired   = errors.New("auction for this item has ended")

	// Bid errors
	ErrBidNotFound  = errors.New("bid not found")
	ErrNoBidsFound  = errors.New("no bids found")
	ErrNoBidsToSell = errors.New("item has no bids to sell")

	// User errors
	ErrUserNotFound = errors.New("user not found")

	// Notification errors
	ErrNotificationNotFound = errors.New("notification not found")

	// Document store errors
	ErrDocNotFound     = errors.New("document not found")
	ErrVersionConflict = errors.New("document version conflict")

	// Concurrency errors
	ErrStoreContention = errors.New("too many concurrent updates, try again")
)

// FieldError describes a single invalid field on a request.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field-level problem found on a request so the
// caller can render all of them at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add records a field-level problem.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any field failed validation.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// BidTooLowError rejects a bid that does not strictly exceed the current
// minimum. Minimum is the amount the bid must exceed.
type BidTooLowError struct {
	Minimum float64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid must be higher than %.2f", e.Minimum)
}

// BidderFailure records one failed per-bidder step of a lifecycle transition.
type BidderFailure struct {
	BidderID string
	Step     string
	Err      error
}

func (f BidderFailure) String() string {
	return fmt.Sprintf("bidder %s failed at %s: %v", f.BidderID, f.Step, f.Err)
}

// PartialFailure reports a lifecycle transition that moved the item but could
// not complete every per-bidder side effect. The item-level state change is
// final; only the listed bidder steps need remediation.
type PartialFailure struct {
	ItemID   string
	Failures []BidderFailure
}

func (e *PartialFailure) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.String())
	}
	return fmt.Sprintf("transition of item %s partially failed: %s", e.ItemID, strings.Join(msgs, "; "))
}

package shared

import "time"

// User represents an account in the marketplace. IsAdmin routes the account to
// admin capabilities; an inactive account cannot act in either role.
type User struct {
	UID          string     `json:"uid"`
	FullName     string     `json:"fullName"`
	Email        string     `json:"email"`
	IsAdmin      bool       `json:"isAdmin"`
	IsActive     bool       `json:"isActive"`
	ProfileImage string     `json:"profileImage,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Address      string     `json:"address,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// NotificationType identifies the event a notification describes
type NotificationType string

const (
	NotificationNewBid   NotificationType = "new_bid"
	NotificationItemWon  NotificationType = "item_won"
	NotificationItemLost NotificationType = "item_lost"
)

// NotificationPriority drives ordering and styling on the client
type NotificationPriority string

const (
	PriorityHigh   NotificationPriority = "high"
	PriorityMedium NotificationPriority = "medium"
	PriorityLow    NotificationPriority = "low"
)

// Notification is the durable record of an event delivered to one user.
// Mutated only by read-state toggles, never auto-deleted.
type Notification struct {
	ID        string               `json:"-"`
	UserID    string               `json:"userId"`
	Type      NotificationType     `json:"type"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	ItemID    string               `json:"itemId"`
	ItemName  string               `json:"itemName"`
	Amount    float64              `json:"amount"`
	IsRead    bool                 `json:"isRead"`
	CreatedAt time.Time            `json:"createdAt"`
	Priority  NotificationPriority `json:"priority"`
}

// ActiveBidRecord is a user's pointer to an item they are currently bidding on
type ActiveBidRecord struct {
	ItemID string `json:"itemId"`
}

// PastBidRecord is a user's historical record of a completed auction they
// participated in. FinalBid is the user's own final bid on the item.
type PastBidRecord struct {
	ItemID   string  `json:"itemId"`
	Won      bool    `json:"won"`
	FinalBid float64 `json:"finalBid"`
}

package shared

import "fmt"

// Document paths mirror the hosted layout the mobile clients already depend on:
//
//	listings/{active|sold|expired}/{itemId}
//	listings/{active|sold|expired}/{itemId}/bidders/{bidId}
//	users/{userId}/active/{itemId}
//	users/{userId}/past/{itemId}
//	notifications/{notificationId}
//
// An item lives in exactly one listings partition at a time; transitions move
// the item and its bidder sub-records together.

// ListingsCollection returns the collection holding items in the given partition.
func ListingsCollection(partition string) string {
	return fmt.Sprintf("listings/%s", partition)
}

// ListingPath returns the document path of an item in the given partition.
func ListingPath(partition, itemID string) string {
	return fmt.Sprintf("listings/%s/%s", partition, itemID)
}

// BiddersCollection returns the bid sub-collection of an item.
func BiddersCollection(partition, itemID string) string {
	return fmt.Sprintf("listings/%s/%s/bidders", partition, itemID)
}

// BidPath returns the document path of one bid record.
func BidPath(partition, itemID, bidID string) string {
	return fmt.Sprintf("listings/%s/%s/bidders/%s", partition, itemID, bidID)
}

// UserPath returns the document path of a user profile.
func UserPath(userID string) string {
	return fmt.Sprintf("users/%s", userID)
}

// UserActiveBidsCollection returns a user's active-bid pointer collection.
func UserActiveBidsCollection(userID string) string {
	return fmt.Sprintf("users/%s/active", userID)
}

// UserActiveBidPath returns a user's active-bid pointer for one item.
func UserActiveBidPath(userID, itemID string) string {
	return fmt.Sprintf("users/%s/active/%s", userID, itemID)
}

// UserPastBidsCollection returns a user's past-bid record collection.
func UserPastBidsCollection(userID string) string {
	return fmt.Sprintf("users/%s/past", userID)
}

// UserPastBidPath returns a user's past-bid record for one item.
func UserPastBidPath(userID, itemID string) string {
	return fmt.Sprintf("users/%s/past/%s", userID, itemID)
}

// NotificationsCollection returns the flat notifications collection.
func NotificationsCollection() string {
	return "notifications"
}

// NotificationPath returns the document path of one notification.
func NotificationPath(id string) string {
	return fmt.Sprintf("notifications/%s", id)
}

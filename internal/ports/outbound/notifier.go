package outbound

import (
	"context"

	"bidhive-auction-core/internal/domain/shared"
)

// NotificationPayload carries the item context a notification describes
type NotificationPayload struct {
	ItemID   string  `json:"itemId"`
	ItemName string  `json:"itemName"`
	Amount   float64 `json:"amount"`
}

// NotificationGateway fans events out to users. Emissions are fire-and-forget
// from the triggering operation's perspective: an emit failure is reported but
// must never roll back the bid or transition it describes.
type NotificationGateway interface {
	Emit(ctx context.Context, userID string, kind shared.NotificationType, payload NotificationPayload) error
}

package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bidhive-auction-core/internal/domain/shared"
	"bidhive-auction-core/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// StoreNotifier delivers notifications by writing the durable document to the
// notifications collection and then publishing the same payload to the
// recipient's Redis channel for connected clients. The store write is the
// source of truth; a failed publish is logged and dropped.
type StoreNotifier struct {
	store  outbound.Store
	client *redis.Client
	logger zerolog.Logger
}

type StoreNotifierParams struct {
	Store       outbound.Store
	RedisClient *redis.Client
	Logger      zerolog.Logger
}

// NewStoreNotifier creates a new store-backed notification gateway. The Redis
// client is optional; without it only the durable copy is written.
func NewStoreNotifier(params StoreNotifierParams) *StoreNotifier {
	return &StoreNotifier{
		store:  params.Store,
		client: params.RedisClient,
		logger: params.Logger.With().Str("component", "store_notifier").Logger(),
	}
}

// Emit writes and fans out one notification.
func (n *StoreNotifier) Emit(ctx context.Context, userID string, kind shared.NotificationType, payload outbound.NotificationPayload) error {
	notification := buildNotification(userID, kind, payload)

	if err := n.store.Set(ctx, shared.NotificationPath(notification.ID), notification); err != nil {
		n.logger.Error().Err(err).
			Str("user_id", userID).
			Str("type", string(kind)).
			Str("item_id", payload.ItemID).
			Msg("Failed to write notification")
		return fmt.Errorf("failed to write notification: %w", err)
	}

	n.publish(ctx, userID, notification)

	n.logger.Debug().
		Str("notification_id", notification.ID).
		Str("user_id", userID).
		Str("type", string(kind)).
		Msg("Notification emitted")
	return nil
}

func (n *StoreNotifier) publish(ctx context.Context, userID string, notification *shared.Notification) {
	if n.client == nil {
		return
	}

	data, err := json.Marshal(notification)
	if err != nil {
		n.logger.Error().Err(err).Str("notification_id", notification.ID).Msg("Failed to encode notification for publish")
		return
	}

	channel := fmt.Sprintf("user:%s:notifications", userID)
	if err := n.client.Publish(ctx, channel, data).Err(); err != nil {
		// Live delivery is best-effort; the durable copy already exists
		n.logger.Warn().Err(err).
			Str("user_id", userID).
			Str("channel", channel).
			Msg("Failed to publish notification")
	}
}

func buildNotification(userID string, kind shared.NotificationType, payload outbound.NotificationPayload) *shared.Notification {
	notification := &shared.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      kind,
		ItemID:    payload.ItemID,
		ItemName:  payload.ItemName,
		Amount:    payload.Amount,
		IsRead:    false,
		CreatedAt: time.Now().UTC(),
	}

	switch kind {
	case shared.NotificationNewBid:
		notification.Title = "New Bid Alert"
		notification.Message = fmt.Sprintf("Someone placed a new bid of $%.2f on %q", payload.Amount, payload.ItemName)
		notification.Priority = shared.PriorityMedium
	case shared.NotificationItemWon:
		notification.Title = "Congratulations! You Won!"
		notification.Message = fmt.Sprintf("You won %q with a bid of $%.2f!", payload.ItemName, payload.Amount)
		notification.Priority = shared.PriorityHigh
	case shared.NotificationItemLost:
		notification.Title = "Auction Ended"
		notification.Message = fmt.Sprintf("The auction for %q has ended. Final bid was $%.2f.", payload.ItemName, payload.Amount)
		notification.Priority = shared.PriorityLow
	default:
		notification.Title = "Notification"
		notification.Priority = shared.PriorityMedium
	}

	return notification
}

package app

import (
	"context"
	"errors"

	"bidhive-auction-core/internal/domain/shared"
	"bidhive-auction-core/internal/ports/outbound"

	"github.com/rs/zerolog"
)

// NotificationsService is the read side of the notifications collection:
// listing, unread counting and read-state toggles. Writes happen through the
// notification gateway during bid placement and settlement.
type NotificationsService struct {
	store  outbound.Store
	logger zerolog.Logger
}

type NotificationsServiceParams struct {
	Store  outbound.Store
	Logger zerolog.Logger
}

// NewNotificationsService creates a new notifications service
func NewNotificationsService(params NotificationsServiceParams) *NotificationsService {
	return &NotificationsService{
		store:  params.Store,
		logger: params.Logger.With().Str("component", "notifications_service").Logger(),
	}
}

// For returns a user's notifications, newest first.
func (service *NotificationsService) For(ctx context.Context, userID string) ([]*shared.Notification, error) {
	docs, err := service.store.Query(ctx, shared.NotificationsCollection(), outbound.Query{
		Filters: []outbound.Filter{
			{Field: "userId", Op: outbound.OpEqual, Value: userID},
		},
		OrderBy: []outbound.Order{{Field: "createdAt", Descending: true, As: outbound.OrderAsTime}},
	})
	if err != nil {
		return nil, err
	}

	notifications := make([]*shared.Notification, 0, len(docs))
	for i := range docs {
		var n shared.Notification
		if err := docs[i].Decode(&n); err != nil {
			return nil, err
		}
		n.ID = docs[i].ID()
		notifications = append(notifications, &n)
	}
	return notifications, nil
}

// UnreadCount returns how many of a user's notifications are unread.
func (service *NotificationsService) UnreadCount(ctx context.Context, userID string) (int, error) {
	docs, err := service.store.Query(ctx, shared.NotificationsCollection(), outbound.Query{
		Filters: []outbound.Filter{
			{Field: "userId", Op: outbound.OpEqual, Value: userID},
			{Field: "isRead", Op: outbound.OpEqual, Value: false},
		},
	})
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// MarkRead flags one notification as read.
func (service *NotificationsService) MarkRead(ctx context.Context, notificationID string) error {
	path := shared.NotificationPath(notificationID)

	doc, err := service.store.Get(ctx, path)
	if err != nil {
		if errors.Is(err, shared.ErrDocNotFound) {
			return shared.ErrNotificationNotFound
		}
		return err
	}

	var n shared.Notification
	if err := doc.Decode(&n); err != nil {
		return err
	}
	if n.IsRead {
		return nil
	}

	n.IsRead = true
	return service.store.Set(ctx, path, &n)
}

// MarkAllRead flags every unread notification of a user as read.
func (service *NotificationsService) MarkAllRead(ctx context.Context, userID string) error {
	docs, err := service.store.Query(ctx, shared.NotificationsCollection(), outbound.Query{
		Filters: []outbound.Filter{
			{Field: "userId", Op: outbound.OpEqual, Value: userID},
			{Field: "isRead", Op: outbound.OpEqual, Value: false},
		},
	})
	if err != nil {
		return err
	}

	for i := range docs {
		var n shared.Notification
		if err := docs[i].Decode(&n); err != nil {
			return err
		}
		n.IsRead = true
		if err := service.store.Set(ctx, docs[i].Path, &n); err != nil {
			return err
		}
	}

	if len(docs) > 0 {
		service.logger.Info().
			Str("user_id", userID).
			Int("count", len(docs)).
			Msg("Marked notifications read")
	}
	return nil
}

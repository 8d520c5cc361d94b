package notify

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates the notification or subscription does not
	// exist or belongs to someone else.
	ErrNotFound = errors.New("notify: not found")
	// ErrInvalidSubscription indicates a registration with a missing
	// endpoint or key.
	ErrInvalidSubscription = errors.New("notify: endpoint and keys are required")
)

// Service is the recipient-facing read model: listing notifications,
// marking them read and managing push subscriptions. Notifications are
// only ever mutated here by their own recipient.
type Service struct {
	db *gorm.DB
}

// NewService constructs the notification read model.
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	return &Service{db: db}, nil
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID uint, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var notifications []Notification
	err := s.db.WithContext(ctx).
		Where("recipient_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// UnreadCount returns how many notifications the user has not read.
func (s *Service) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Notification{}).
		Where("recipient_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flags one notification as read. The update applies only when
// the notification belongs to the user; otherwise ErrNotFound.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID uint) error {
	result := s.db.WithContext(ctx).
		Model(&Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, userID).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification of the user as read.
func (s *Service) MarkAllRead(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).
		Model(&Notification{}).
		Where("recipient_id = ? AND read = ?", userID, false).
		Update("read", true).Error
}

// RegisterSubscription stores one push registration for the user.
// Duplicate endpoints are stored as-is.
func (s *Service) RegisterSubscription(ctx context.Context, userID uint, endpoint, p256dhKey, authKey string) (PushSubscription, error) {
	if endpoint == "" || p256dhKey == "" || authKey == "" {
		return PushSubscription{}, ErrInvalidSubscription
	}
	subscription := PushSubscription{
		UserID:    userID,
		Endpoint:  endpoint,
		P256dhKey: p256dhKey,
		AuthKey:   authKey,
	}
	if err := s.db.WithContext(ctx).Create(&subscription).Error; err != nil {
		return PushSubscription{}, err
	}
	return subscription, nil
}

// DeleteSubscription removes one of the user's own registrations.
func (s *Service) DeleteSubscription(ctx context.Context, userID, subscriptionID uint) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", subscriptionID, userID).
		Delete(&PushSubscription{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Subscriptions returns the user's push registrations.
func (s *Service) Subscriptions(ctx context.Context, userID uint) ([]PushSubscription, error) {
	var subscriptions []PushSubscription
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Find(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}

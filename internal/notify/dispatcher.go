package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultPushTimeout = 10 * time.Second

// PushSender transmits one encrypted push message to a subscription's
// endpoint and reports the push service's HTTP status.
type PushSender interface {
	Send(ctx context.Context, subscription PushSubscription, body []byte) (int, error)
}

// WirePayload is the notification shape shared by the live and push
// channels.
type WirePayload struct {
	ID        uint      `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	BoardID   *uint     `json:"board_id"`
	CardID    *uint     `json:"card_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// pushEnvelope is the JSON body handed to the service worker.
type pushEnvelope struct {
	Title              string        `json:"title"`
	Body               string        `json:"body"`
	Icon               string        `json:"icon"`
	Badge              string        `json:"badge"`
	Data               pushEnvelopeD `json:"data"`
	RequireInteraction bool          `json:"requireInteraction"`
	Renotify           bool          `json:"renotify"`
}

type pushEnvelopeD struct {
	NotificationID uint   `json:"notification_id"`
	BoardID        *uint  `json:"board_id"`
	CardID         *uint  `json:"card_id,omitempty"`
	Type           string `json:"type"`
}

// DispatcherConfig describes the dependencies of the delivery dispatcher.
// A nil Push sender disables the push channel entirely.
type DispatcherConfig struct {
	Database    *gorm.DB
	Bus         Bus
	Push        PushSender
	Logger      *zap.Logger
	PushTimeout time.Duration
}

// Dispatcher delivers one persisted notification over two independent
// best-effort channels: the recipient's live broadcast group and every
// push subscription the recipient has registered. Channel failures are
// logged and never invalidate the persisted notification.
type Dispatcher struct {
	db           *gorm.DB
	bus          Bus
	push         PushSender
	logger       *zap.Logger
	pushTimeout  time.Duration
	disabledOnce sync.Once
}

// NewDispatcher constructs the delivery dispatcher.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.PushTimeout
	if timeout <= 0 {
		timeout = defaultPushTimeout
	}
	return &Dispatcher{
		db:          cfg.Database,
		bus:         cfg.Bus,
		push:        cfg.Push,
		logger:      logger,
		pushTimeout: timeout,
	}, nil
}

// Deliver runs both channels for one notification. The live publish is a
// no-op when no session is subscribed to the recipient's group.
func (d *Dispatcher) Deliver(ctx context.Context, notification Notification) {
	payload, err := json.Marshal(wirePayload(notification))
	if err != nil {
		d.logger.Warn("notification payload not serializable",
			zap.Uint("notification_id", notification.ID),
			zap.Error(err))
		return
	}

	if d.bus != nil {
		d.bus.Publish(UserGroup(notification.RecipientID), payload)
	}
	d.deliverPush(ctx, notification)
}

func (d *Dispatcher) deliverPush(ctx context.Context, notification Notification) {
	if d.push == nil {
		d.disabledOnce.Do(func() {
			d.logger.Warn("push channel disabled: VAPID keys not configured")
		})
		return
	}

	var subscriptions []PushSubscription
	if err := d.db.WithContext(ctx).Where("user_id = ?", notification.RecipientID).Find(&subscriptions).Error; err != nil {
		d.logger.Warn("push subscription lookup failed",
			zap.Uint("recipient_id", notification.RecipientID),
			zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	body, err := json.Marshal(pushBody(notification))
	if err != nil {
		d.logger.Warn("push body not serializable",
			zap.Uint("notification_id", notification.ID),
			zap.Error(err))
		return
	}

	for _, subscription := range subscriptions {
		sendCtx, cancel := context.WithTimeout(ctx, d.pushTimeout)
		status, err := d.push.Send(sendCtx, subscription, body)
		cancel()
		if err != nil {
			d.logger.Warn("push delivery failed",
				zap.Uint("subscription_id", subscription.ID),
				zap.Error(err))
			continue
		}
		if status == http.StatusNotFound || status == http.StatusGone {
			// The push service reports the endpoint permanently gone;
			// drop the stale registration.
			if err := d.db.WithContext(ctx).Delete(&PushSubscription{}, subscription.ID).Error; err != nil {
				d.logger.Warn("stale subscription cleanup failed",
					zap.Uint("subscription_id", subscription.ID),
					zap.Error(err))
				continue
			}
			d.logger.Info("stale push subscription removed",
				zap.Uint("subscription_id", subscription.ID),
				zap.Int("status", status))
			continue
		}
		if status >= http.StatusBadRequest {
			d.logger.Warn("push service rejected delivery",
				zap.Uint("subscription_id", subscription.ID),
				zap.Int("status", status))
		}
	}
}

func wirePayload(notification Notification) WirePayload {
	payload := WirePayload{
		ID:        notification.ID,
		Type:      notification.Type,
		Title:     notification.Title,
		Message:   notification.Message,
		BoardID:   notification.BoardID,
		CreatedAt: notification.CreatedAt,
	}
	payload.CardID = cardIDFromData(notification.DataJSON)
	return payload
}

func pushBody(notification Notification) pushEnvelope {
	return pushEnvelope{
		Title: notification.Title,
		Body:  notification.Message,
		Icon:  "/icons/icon-192.png",
		Badge: "/icons/badge-72.png",
		Data: pushEnvelopeD{
			NotificationID: notification.ID,
			BoardID:        notification.BoardID,
			CardID:         cardIDFromData(notification.DataJSON),
			Type:           notification.Type,
		},
		RequireInteraction: false,
		Renotify:           true,
	}
}

func cardIDFromData(dataJSON string) *uint {
	if dataJSON == "" {
		return nil
	}
	var data struct {
		CardID *uint `json:"card_id"`
	}
	if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
		return nil
	}
	return data.CardID
}

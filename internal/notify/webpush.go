package notify

import (
	"context"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// Messages survive one day at the push service before expiring.
const pushTTLSeconds = 86400

// WebPushConfig carries the VAPID signing material for the push channel.
type WebPushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	// Subscriber is the contact address push services may use, usually a
	// mailto: URL.
	Subscriber string
}

// Configured reports whether both signing keys are present.
func (c WebPushConfig) Configured() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// WebPushSender sends encrypted Web Push messages signed with VAPID keys.
type WebPushSender struct {
	config WebPushConfig
}

// NewWebPushSender constructs the sender. Callers should check
// WebPushConfig.Configured first and leave the dispatcher's push channel
// nil when keys are absent.
func NewWebPushSender(cfg WebPushConfig) *WebPushSender {
	return &WebPushSender{config: cfg}
}

// Send encrypts the body against the subscription keys and posts it to
// the subscription endpoint, returning the push service's status code.
func (s *WebPushSender) Send(ctx context.Context, subscription PushSubscription, body []byte) (int, error) {
	response, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: subscription.Endpoint,
		Keys: webpush.Keys{
			P256dh: subscription.P256dhKey,
			Auth:   subscription.AuthKey,
		},
	}, &webpush.Options{
		Subscriber:      s.config.Subscriber,
		TTL:             pushTTLSeconds,
		Urgency:         webpush.UrgencyNormal,
		VAPIDPublicKey:  s.config.VAPIDPublicKey,
		VAPIDPrivateKey: s.config.VAPIDPrivateKey,
	})
	if err != nil {
		return 0, err
	}
	defer response.Body.Close()
	return response.StatusCode, nil
}

var _ PushSender = (*WebPushSender)(nil)

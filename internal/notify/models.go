package notify

import (
	"fmt"
	"time"
)

// Notification is one message addressed to one recipient for one event.
// Rows are created by the fan-out engine and mutated only by the recipient
// marking them read. BoardID is nil once the board no longer exists.
type Notification struct {
	ID          uint      `gorm:"column:id;primaryKey"`
	RecipientID uint      `gorm:"column:recipient_id;not null;index:idx_notifications_recipient_time,priority:1"`
	BoardID     *uint     `gorm:"column:board_id"`
	Type        string    `gorm:"column:type;size:50;not null"`
	Title       string    `gorm:"column:title;size:255;not null"`
	Message     string    `gorm:"column:message;type:text;not null"`
	DataJSON    string    `gorm:"column:data_json;type:text;not null;default:'{}'"`
	Read        bool      `gorm:"column:read;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime;index:idx_notifications_recipient_time,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (Notification) TableName() string {
	return "notifications"
}

// PushSubscription is one browser push registration for a user: the
// delivery endpoint plus the two keys the push service needs for payload
// encryption. Duplicate endpoints are not deduplicated.
type PushSubscription struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	UserID    uint      `gorm:"column:user_id;not null;index"`
	Endpoint  string    `gorm:"column:endpoint;type:text;not null"`
	P256dhKey string    `gorm:"column:p256dh_key;size:255;not null"`
	AuthKey   string    `gorm:"column:auth_key;size:255;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (PushSubscription) TableName() string {
	return "push_subscriptions"
}

// UserGroup names the broadcast group carrying one user's live
// notifications.
func UserGroup(userID uint) string {
	return fmt.Sprintf("notifications_user_%d", userID)
}

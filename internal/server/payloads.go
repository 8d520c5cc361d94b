package server

import (
	"encoding/json"
	"time"

	"github.com/aulaboard/backend/internal/board"
	"github.com/aulaboard/backend/internal/notify"
)

type userPayload struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
	IDNumber string `json:"id_number,omitempty"`
	IsStaff  bool   `json:"is_staff"`
}

func toUserPayload(user board.User) userPayload {
	return userPayload{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     string(user.Role),
		IDNumber: user.IDNumber,
		IsStaff:  user.IsStaff,
	}
}

type boardPayload struct {
	ID        uint          `json:"id"`
	Name      string        `json:"name"`
	Owner     userPayload   `json:"owner"`
	Members   []userPayload `json:"members"`
	Color     string        `json:"color"`
	DueDate   *string       `json:"due_date"`
	CreatedAt time.Time     `json:"created_at"`
}

func toBoardPayload(b board.Board) boardPayload {
	members := make([]userPayload, 0, len(b.Members))
	for _, member := range b.Members {
		members = append(members, toUserPayload(member))
	}
	return boardPayload{
		ID:        b.ID,
		Name:      b.Name,
		Owner:     toUserPayload(b.Owner),
		Members:   members,
		Color:     b.Color,
		DueDate:   dateString(b.DueDate),
		CreatedAt: b.CreatedAt,
	}
}

type listPayload struct {
	ID       uint   `json:"id"`
	BoardID  uint   `json:"board_id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

func toListPayload(list board.List) listPayload {
	return listPayload{ID: list.ID, BoardID: list.BoardID, Title: list.Title, Position: list.Position}
}

type cardPayload struct {
	ID          uint          `json:"id"`
	ListID      uint          `json:"list_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	DueDate     *string       `json:"due_date"`
	Priority    string        `json:"priority"`
	Position    int           `json:"position"`
	CreatedBy   userPayload   `json:"created_by"`
	Assignees   []userPayload `json:"assignees"`
	CreatedAt   time.Time     `json:"created_at"`
}

func toCardPayload(card board.Card) cardPayload {
	assignees := make([]userPayload, 0, len(card.Assignees))
	for _, assignee := range card.Assignees {
		assignees = append(assignees, toUserPayload(assignee))
	}
	return cardPayload{
		ID:          card.ID,
		ListID:      card.ListID,
		Title:       card.Title,
		Description: card.Description,
		DueDate:     dateString(card.DueDate),
		Priority:    string(card.Priority),
		Position:    card.Position,
		CreatedBy:   toUserPayload(card.CreatedBy),
		Assignees:   assignees,
		CreatedAt:   card.CreatedAt,
	}
}

type commentPayload struct {
	ID        uint        `json:"id"`
	CardID    uint        `json:"card_id"`
	Author    userPayload `json:"author"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

func toCommentPayload(comment board.Comment) commentPayload {
	return commentPayload{
		ID:        comment.ID,
		CardID:    comment.CardID,
		Author:    toUserPayload(comment.Author),
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}
}

type checklistItemPayload struct {
	ID       uint   `json:"id"`
	CardID   uint   `json:"card_id"`
	Text     string `json:"text"`
	Done     bool   `json:"done"`
	Position int    `json:"position"`
}

func toChecklistItemPayload(item board.ChecklistItem) checklistItemPayload {
	return checklistItemPayload{ID: item.ID, CardID: item.CardID, Text: item.Text, Done: item.Done, Position: item.Position}
}

type labelPayload struct {
	ID      uint   `json:"id"`
	BoardID uint   `json:"board_id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
}

func toLabelPayload(label board.Label) labelPayload {
	return labelPayload{ID: label.ID, BoardID: label.BoardID, Name: label.Name, Color: label.Color}
}

type activityPayload struct {
	ID        uint            `json:"id"`
	Actor     userPayload     `json:"actor"`
	Action    string          `json:"action"`
	Meta      json.RawMessage `json:"meta"`
	CreatedAt time.Time       `json:"created_at"`
}

func toActivityPayload(entry board.ActivityLog) activityPayload {
	meta := json.RawMessage(entry.MetaJSON)
	if len(meta) == 0 {
		meta = json.RawMessage("{}")
	}
	return activityPayload{
		ID:        entry.ID,
		Actor:     toUserPayload(entry.Actor),
		Action:    entry.Action,
		Meta:      meta,
		CreatedAt: entry.CreatedAt,
	}
}

type notificationPayload struct {
	ID        uint            `json:"id"`
	BoardID   *uint           `json:"board_id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Read      bool            `json:"read"`
	CreatedAt time.Time       `json:"created_at"`
}

func toNotificationPayload(notification notify.Notification) notificationPayload {
	data := json.RawMessage(notification.DataJSON)
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	return notificationPayload{
		ID:        notification.ID,
		BoardID:   notification.BoardID,
		Type:      notification.Type,
		Title:     notification.Title,
		Message:   notification.Message,
		Data:      data,
		Read:      notification.Read,
		CreatedAt: notification.CreatedAt,
	}
}

type subscriptionPayload struct {
	ID        uint      `json:"id"`
	Endpoint  string    `json:"endpoint"`
	CreatedAt time.Time `json:"created_at"`
}

func toSubscriptionPayload(subscription notify.PushSubscription) subscriptionPayload {
	return subscriptionPayload{ID: subscription.ID, Endpoint: subscription.Endpoint, CreatedAt: subscription.CreatedAt}
}

func dateString(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.Format(time.DateOnly)
	return &formatted
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aulaboard/backend/internal/board"
)

var errMissingDatabase = errors.New("notify: database handle is required")

// Deliverer pushes a persisted notification over the live and push
// channels. Delivery is best effort and never returns an error to the
// fan-out engine.
type Deliverer interface {
	Deliver(ctx context.Context, notification Notification)
}

// EngineConfig describes the dependencies of the fan-out engine.
type EngineConfig struct {
	Database  *gorm.DB
	Deliverer Deliverer
	Logger    *zap.Logger
	QueueSize int
}

// Engine computes the recipient set for each mutation event, persists one
// Notification per recipient and hands each to the deliverer. Events are
// consumed from an in-process queue so fan-out latency never sits on the
// request path.
type Engine struct {
	db        *gorm.DB
	deliverer Deliverer
	logger    *zap.Logger
	queue     chan board.Event
}

// NewEngine constructs the fan-out engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Engine{
		db:        cfg.Database,
		deliverer: cfg.Deliverer,
		logger:    logger,
		queue:     make(chan board.Event, queueSize),
	}, nil
}

// Emit enqueues an event for background fan-out. Once an event is
// accepted there is no cancellation; a full queue drops the event rather
// than stalling the mutation that produced it.
func (e *Engine) Emit(event board.Event) {
	select {
	case e.queue <- event:
	default:
		e.logger.Warn("fan-out queue full, event dropped",
			zap.String("event_type", string(event.Type)))
	}
}

// Run consumes the queue until the context ends.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-e.queue:
			e.Process(ctx, event)
		}
	}
}

// Process fans one event out to its recipients. Each recipient's persist
// and delivery attempt is isolated: one failure is logged and the rest of
// the recipients still get their notifications.
func (e *Engine) Process(ctx context.Context, event board.Event) {
	recipients := Recipients(event)
	if len(recipients) == 0 {
		return
	}

	title, message := composeMessage(event)
	dataJSON := composeData(event)

	var boardID *uint
	if !event.BoardDeleted {
		id := event.Board.ID
		boardID = &id
	}

	for _, recipient := range recipients {
		notification := Notification{
			RecipientID: recipient.ID,
			BoardID:     boardID,
			Type:        string(event.Type),
			Title:       title,
			Message:     message,
			DataJSON:    dataJSON,
		}
		if err := e.db.WithContext(ctx).Create(&notification).Error; err != nil {
			e.logger.Warn("notification persist failed",
				zap.Uint("recipient_id", recipient.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
			continue
		}
		if e.deliverer != nil {
			e.deliverer.Deliver(ctx, notification)
		}
	}
}

// Recipients resolves the audience for one event. Only students receive
// most notifications; card_moved goes to a teacher owner watching student
// activity; board_deleted addresses every prior member.
func Recipients(event board.Event) []board.User {
	actorID := event.Actor.ID
	switch event.Type {
	case board.EventBoardCreated:
		if !event.Actor.IsTeacher() {
			return nil
		}
		return studentMembers(event.Board, actorID)
	case board.EventBoardDeleted:
		recipients := make([]board.User, 0, len(event.Board.Members))
		for _, member := range event.Board.Members {
			if member.ID != actorID {
				recipients = append(recipients, member)
			}
		}
		return recipients
	case board.EventMemberInvited:
		if event.Member == nil || event.Member.ID == actorID || event.Member.Role != board.RoleStudent {
			return nil
		}
		return []board.User{*event.Member}
	case board.EventCardCreated, board.EventCardUpdated, board.EventCardDeleted:
		return studentMembers(event.Board, actorID)
	case board.EventCardMoved:
		if event.Actor.Role != board.RoleStudent {
			return nil
		}
		owner := boardOwner(event.Board)
		if owner == nil || !owner.IsTeacher() || owner.ID == actorID {
			return nil
		}
		return []board.User{*owner}
	case board.EventCardAssigned, board.EventCardUnassigned:
		if event.Member == nil || event.Member.ID == actorID || event.Member.Role != board.RoleStudent {
			return nil
		}
		return []board.User{*event.Member}
	}
	return nil
}

// studentMembers collects members with the student role, excluding the
// actor. The owner is included when the owner is a student member.
func studentMembers(b board.Board, actorID uint) []board.User {
	seen := map[uint]bool{}
	recipients := make([]board.User, 0, len(b.Members))
	for _, member := range b.Members {
		if member.ID == actorID || member.Role != board.RoleStudent || seen[member.ID] {
			continue
		}
		seen[member.ID] = true
		recipients = append(recipients, member)
	}
	if b.Owner.ID != 0 && b.Owner.ID != actorID && b.Owner.Role == board.RoleStudent && !seen[b.Owner.ID] {
		recipients = append(recipients, b.Owner)
	}
	return recipients
}

func boardOwner(b board.Board) *board.User {
	if b.Owner.ID != 0 {
		owner := b.Owner
		return &owner
	}
	for _, member := range b.Members {
		if member.ID == b.OwnerID {
			owner := member
			return &owner
		}
	}
	return nil
}

func composeMessage(event board.Event) (title, message string) {
	actor := event.Actor.Username
	switch event.Type {
	case board.EventBoardCreated:
		return "New board",
			fmt.Sprintf("%s added you to the board %q", actor, event.Board.Name)
	case board.EventBoardDeleted:
		return "Board deleted",
			fmt.Sprintf("%s deleted the board %q", actor, event.Board.Name)
	case board.EventMemberInvited:
		return "Added to board",
			fmt.Sprintf("%s added you to the board %q", actor, event.Board.Name)
	case board.EventCardCreated:
		return "New card",
			fmt.Sprintf("%s created the card %q in %q", actor, cardTitle(event), listTitle(event.List))
	case board.EventCardUpdated:
		return "Card updated",
			fmt.Sprintf("%s updated %s on %q", actor, describeChanges(event), cardTitle(event))
	case board.EventCardMoved:
		return "Card moved",
			fmt.Sprintf("%s moved %q from %q to %q", actor, cardTitle(event), listTitle(event.FromList), listTitle(event.ToList))
	case board.EventCardDeleted:
		return "Card deleted",
			fmt.Sprintf("%s deleted the card %q", actor, cardTitle(event))
	case board.EventCardAssigned:
		return "Assigned to card",
			fmt.Sprintf("%s assigned you to %q", actor, cardTitle(event))
	case board.EventCardUnassigned:
		return "Removed from card",
			fmt.Sprintf("%s removed you from %q", actor, cardTitle(event))
	}
	return string(event.Type), ""
}

// describeChanges enumerates the changed fields with their old and new
// values where both are known.
func describeChanges(event board.Event) string {
	parts := make([]string, 0, len(event.ChangedFields))
	for _, field := range event.ChangedFields {
		oldValue, hasOld := event.OldValues[field]
		newValue, hasNew := event.NewValues[field]
		if field == "description" || !hasOld || !hasNew {
			parts = append(parts, field)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s to %s)", field, oldValue, newValue))
	}
	if len(parts) == 0 {
		return "the card"
	}
	return strings.Join(parts, ", ")
}

func composeData(event board.Event) string {
	data := map[string]any{"type": string(event.Type)}
	if !event.BoardDeleted {
		data["board_id"] = event.Board.ID
	}
	if event.Card != nil {
		data["card_id"] = event.Card.ID
	}
	if event.List != nil {
		data["list_id"] = event.List.ID
	} else if event.ToList != nil {
		data["list_id"] = event.ToList.ID
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

func cardTitle(event board.Event) string {
	if event.Card == nil {
		return ""
	}
	return event.Card.Title
}

func listTitle(list *board.List) string {
	if list == nil {
		return ""
	}
	return list.Title
}

var _ board.EventSink = (*Engine)(nil)

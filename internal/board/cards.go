package board

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// CardInput carries creatable/updatable card fields. Nil pointers mean
// "not supplied"; the Set flags distinguish clearing a value from leaving
// it alone.
type CardInput struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	DueDateSet  bool
	Priority    *Priority
	Position    *int
	ListID      *uint
}

func (s *Service) loadCardWithBoard(ctx context.Context, cardID uint) (Card, List, Board, error) {
	var card Card
	err := s.db.WithContext(ctx).
		Preload("CreatedBy").
		Preload("Assignees").
		First(&card, cardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Card{}, List{}, Board{}, ErrNotFound
	}
	if err != nil {
		return Card{}, List{}, Board{}, err
	}
	list, b, err := s.loadListWithBoard(ctx, card.ListID)
	if err != nil {
		return Card{}, List{}, Board{}, err
	}
	return card, list, b, nil
}

func validateCardDueDate(dueDate *time.Time, b Board) error {
	if dueDate == nil || b.DueDate == nil {
		return nil
	}
	if dueDate.After(*b.DueDate) {
		return newValidationError("due_date", "exceeds board due date")
	}
	return nil
}

// CreateCard adds a card to a list. Any board member may create cards.
// With no explicit priority the tier is auto-computed when both the card
// and board due dates are known, otherwise it defaults to med.
func (s *Service) CreateCard(ctx context.Context, actor User, listID uint, input CardInput) (Card, error) {
	list, b, err := s.loadListWithBoard(ctx, listID)
	if err != nil {
		return Card{}, err
	}
	if !CanAccessBoard(actor, b) {
		return Card{}, ErrForbidden
	}
	if input.Title == nil || *input.Title == "" {
		return Card{}, newValidationError("title", "required")
	}
	if err := validateCardDueDate(input.DueDate, b); err != nil {
		return Card{}, err
	}
	if input.Priority != nil && !ValidPriority(string(*input.Priority)) {
		return Card{}, newValidationError("priority", "unknown tier")
	}

	card := Card{
		ListID:      list.ID,
		Title:       *input.Title,
		CreatedByID: actor.ID,
		Priority:    PriorityMed,
	}
	if input.Description != nil {
		card.Description = *input.Description
	}
	if input.DueDateSet {
		card.DueDate = input.DueDate
	}
	if input.Position != nil {
		card.Position = *input.Position
	}
	if input.Priority != nil {
		card.Priority = *input.Priority
	} else if card.DueDate != nil && b.DueDate != nil {
		card.Priority = AutoPriority(card.DueDate, b.DueDate, s.clock())
	}

	if err := s.db.WithContext(ctx).Create(&card).Error; err != nil {
		return Card{}, err
	}

	s.recorder.Record(ctx, b.ID, actor.ID, "card_created", map[string]any{
		"card_id":    card.ID,
		"card_title": card.Title,
		"list_id":    list.ID,
	})

	s.emit(Event{Type: EventCardCreated, Actor: actor, Board: b, Card: &card, List: &list})
	return card, nil
}

// Cards returns the list's cards ordered by position.
func (s *Service) Cards(ctx context.Context, actor User, listID uint) ([]Card, error) {
	list, b, err := s.loadListWithBoard(ctx, listID)
	if err != nil {
		return nil, err
	}
	if !CanAccessBoard(actor, b) {
		return nil, ErrForbidden
	}
	var cards []Card
	err = s.db.WithContext(ctx).
		Preload("CreatedBy").
		Preload("Assignees").
		Where("list_id = ?", list.ID).
		Order("position, id").
		Find(&cards).Error
	if err != nil {
		return nil, err
	}
	return cards, nil
}

// GetCard returns one card the actor can access.
func (s *Service) GetCard(ctx context.Context, actor User, cardID uint) (Card, error) {
	card, _, b, err := s.loadCardWithBoard(ctx, cardID)
	if err != nil {
		return Card{}, err
	}
	if !CanAccessBoard(actor, b) {
		return Card{}, ErrForbidden
	}
	return card, nil
}

// UpdateCard applies a partial update, optionally moving the card to
// another list. Due date and priority changes are gated on teacher or
// board owner. A due-date change with no explicit priority recomputes the
// tier. card_updated fires only when a watched field actually changed;
// card_moved only when the list changed.
func (s *Service) UpdateCard(ctx context.Context, actor User, cardID uint, input CardInput) (Card, error) {
	card, oldList, b, err := s.loadCardWithBoard(ctx, cardID)
	if err != nil {
		return Card{}, err
	}
	if !CanAccessBoard(actor, b) {
		return Card{}, ErrForbidden
	}

	targetBoard := b
	targetList := oldList
	moved := false
	if input.ListID != nil && *input.ListID != oldList.ID {
		newList, newBoard, err := s.loadListWithBoard(ctx, *input.ListID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return Card{}, newValidationError("list_id", "destination list does not exist")
			}
			return Card{}, err
		}
		if !CanAccessBoard(actor, newBoard) {
			return Card{}, ErrForbidden
		}
		targetBoard = newBoard
		targetList = newList
		moved = true
	}

	if input.Priority != nil && !ValidPriority(string(*input.Priority)) {
		return Card{}, newValidationError("priority", "unknown tier")
	}
	if input.DueDateSet || input.Priority != nil {
		if !CanSetCardSchedule(actor, targetBoard) {
			return Card{}, ErrForbidden
		}
	}
	if input.DueDateSet {
		if err := validateCardDueDate(input.DueDate, targetBoard); err != nil {
			return Card{}, err
		}
	} else if moved {
		// The existing due date still has to fit the destination board.
		if err := validateCardDueDate(card.DueDate, targetBoard); err != nil {
			return Card{}, err
		}
	}

	changed := make([]string, 0, 4)
	oldValues := map[string]string{}
	newValues := map[string]string{}

	updates := map[string]any{}
	if input.Title != nil && *input.Title != card.Title {
		if *input.Title == "" {
			return Card{}, newValidationError("title", "required")
		}
		changed = append(changed, "title")
		oldValues["title"] = card.Title
		newValues["title"] = *input.Title
		updates["title"] = *input.Title
	}
	if input.Description != nil && *input.Description != card.Description {
		changed = append(changed, "description")
		oldValues["description"] = card.Description
		newValues["description"] = *input.Description
		updates["description"] = *input.Description
	}

	dueChanged := false
	if input.DueDateSet && !sameDate(input.DueDate, card.DueDate) {
		dueChanged = true
		changed = append(changed, "due_date")
		oldValues["due_date"] = formatDate(card.DueDate)
		newValues["due_date"] = formatDate(input.DueDate)
		updates["due_date"] = input.DueDate
	}

	newPriority := card.Priority
	if input.Priority != nil {
		newPriority = *input.Priority
	} else if dueChanged && input.DueDate != nil && targetBoard.DueDate != nil {
		newPriority = AutoPriority(input.DueDate, targetBoard.DueDate, s.clock())
	}
	if newPriority != card.Priority {
		changed = append(changed, "priority")
		oldValues["priority"] = string(card.Priority)
		newValues["priority"] = string(newPriority)
		updates["priority"] = newPriority
	}

	if input.Position != nil && *input.Position != card.Position {
		updates["position"] = *input.Position
	}
	if moved {
		updates["list_id"] = targetList.ID
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&Card{}).Where("id = ?", card.ID).Updates(updates).Error; err != nil {
			return Card{}, err
		}
	}

	if moved {
		s.recorder.Record(ctx, targetBoard.ID, actor.ID, "card_moved", map[string]any{
			"card_id":    card.ID,
			"card_title": card.Title,
			"from_list":  oldList.Title,
			"to_list":    targetList.Title,
		})
	}

	updated, _, _, err := s.loadCardWithBoard(ctx, card.ID)
	if err != nil {
		return Card{}, err
	}

	if len(changed) > 0 {
		s.emit(Event{
			Type:          EventCardUpdated,
			Actor:         actor,
			Board:         targetBoard,
			Card:          &updated,
			List:          &targetList,
			ChangedFields: changed,
			OldValues:     oldValues,
			NewValues:     newValues,
		})
	}
	if moved {
		s.emit(Event{
			Type:     EventCardMoved,
			Actor:    actor,
			Board:    targetBoard,
			Card:     &updated,
			FromList: &oldList,
			ToList:   &targetList,
		})
	}
	return updated, nil
}

// DeleteCard removes a card. Only the board owner or the card's creator
// may delete. The notification audience is captured before the row goes
// away.
func (s *Service) DeleteCard(ctx context.Context, actor User, cardID uint) error {
	card, list, b, err := s.loadCardWithBoard(ctx, cardID)
	if err != nil {
		return err
	}
	if !CanDeleteCard(actor, b, card) {
		return ErrForbidden
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteCardOwned(tx, []uint{card.ID}); err != nil {
			return err
		}
		return tx.Delete(&Card{}, card.ID).Error
	})
	if err != nil {
		return err
	}

	s.recorder.Record(ctx, b.ID, actor.ID, "card_deleted", map[string]any{
		"card_title": card.Title,
	})

	s.emit(Event{Type: EventCardDeleted, Actor: actor, Board: b, Card: &card, List: &list})
	return nil
}

// AssignCard adds an assignee. Re-assigning an already-assigned user is a
// no-op: no row changes and nobody is notified.
func (s *Service) AssignCard(ctx context.Context, actor User, cardID, userID uint) (Card, error) {
	card, list, b, err := s.loadCardWithBoard(ctx, cardID)
	if err != nil {
		return Card{}, err
	}
	if !CanAccessBoard(actor, b) {
		return Card{}, ErrForbidden
	}
	member, err := s.GetUser(ctx, userID)
	if err != nil {
		return Card{}, err
	}
	if card.IsAssignee(member.ID) {
		return card, nil
	}

	if err := s.db.WithContext(ctx).Model(&card).Association("Assignees").Append(&member); err != nil {
		return Card{}, err
	}

	updated, _, _, err := s.loadCardWithBoard(ctx, card.ID)
	if err != nil {
		return Card{}, err
	}
	s.emit(Event{Type: EventCardAssigned, Actor: actor, Board: b, Card: &updated, List: &list, Member: &member})
	return updated, nil
}

// UnassignCard removes an assignee. Removing a non-assignee is a no-op.
func (s *Service) UnassignCard(ctx context.Context, actor User, cardID, userID uint) (Card, error) {
	card, list, b, err := s.loadCardWithBoard(ctx, cardID)
	if err != nil {
		return Card{}, err
	}
	if !CanAccessBoard(actor, b) {
		return Card{}, ErrForbidden
	}
	member, err := s.GetUser(ctx, userID)
	if err != nil {
		return Card{}, err
	}
	if !card.IsAssignee(member.ID) {
		return card, nil
	}

	if err := s.db.WithContext(ctx).Model(&card).Association("Assignees").Delete(&member); err != nil {
		return Card{}, err
	}

	updated, _, _, err := s.loadCardWithBoard(ctx, card.ID)
	if err != nil {
		return Card{}, err
	}
	s.emit(Event{Type: EventCardUnassigned, Actor: actor, Board: b, Card: &updated, List: &list, Member: &member})
	return updated, nil
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Format(time.DateOnly) == b.Format(time.DateOnly)
}

func formatDate(value *time.Time) string {
	if value == nil {
		return "none"
	}
	return value.Format(time.DateOnly)
}

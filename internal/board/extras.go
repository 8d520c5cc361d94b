package board

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// AddComment attaches a comment to a card. Any board member may comment.
func (s *Service) AddComment(ctx context.Context, actor User, cardID uint, content string) (Comment, error) {
	card, _, b, err := s.loadCardWithBoard(ctx, cardID)
	if err != nil {
		return Comment{}, err
	}
	if !CanAccessBoard(actor, b) {
		return Comment{}, ErrForbidden
	}
	if content == "" {
		return Comment{}, newValidationError("content", "required")
	}

	comment := Comment{CardID: card.ID, AuthorID: actor.ID, Content: content}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return Comment{}, err
	}

	s.recorder.Record(ctx, b.ID, actor.ID, "comment_added", map[string]any{
		"card_id":    card.ID,
		"comment_id": comment.ID,
	})
	comment.Author = actor
	return comment, nil
}

// Comments returns a card's comments, newest first.
func (s *Service) Comments(ctx context.Context, actor User, cardID uint) ([]Comment, error) {
	card, _, b, err := s.loadCardWithBoard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if !CanAccessBoard(actor, b) {
		return nil, ErrForbidden
	}
	var comments []Comment
	err = s.db.WithContext(ctx).
		Preload("Author").
		Where("card_id = ?", card.ID).
		Order("created_at DESC, id DESC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// AddChecklistItem appends one checklist line to a card.
func (s *Service) AddChecklistItem(ctx context.Context, actor User, cardID uint, text string, position int) (ChecklistItem, error) {
	card, _, b, err := s.loadCardWithBoard(ctx, cardID)
	if err != nil {
		return ChecklistItem{}, err
	}
	if !CanAccessBoard(actor, b) {
		return ChecklistItem{}, ErrForbidden
	}
	if text == "" {
		return ChecklistItem{}, newValidationError("text", "required")
	}

	item := ChecklistItem{CardID: card.ID, Text: text, Position: position}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return ChecklistItem{}, err
	}
	return item, nil
}

// ToggleChecklistItem flips or sets the done state of a checklist line.
func (s *Service) ToggleChecklistItem(ctx context.Context, actor User, itemID uint, done bool) (ChecklistItem, error) {
	var item ChecklistItem
	err := s.db.WithContext(ctx).First(&item, itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ChecklistItem{}, ErrNotFound
	}
	if err != nil {
		return ChecklistItem{}, err
	}
	_, _, b, err := s.loadCardWithBoard(ctx, item.CardID)
	if err != nil {
		return ChecklistItem{}, err
	}
	if !CanAccessBoard(actor, b) {
		return ChecklistItem{}, ErrForbidden
	}

	if err := s.db.WithContext(ctx).Model(&ChecklistItem{}).Where("id = ?", item.ID).Update("done", done).Error; err != nil {
		return ChecklistItem{}, err
	}
	item.Done = done
	return item, nil
}

// ChecklistItems returns a card's checklist ordered by position.
func (s *Service) ChecklistItems(ctx context.Context, actor User, cardID uint) ([]ChecklistItem, error) {
	card, _, b, err := s.loadCardWithBoard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if !CanAccessBoard(actor, b) {
		return nil, ErrForbidden
	}
	var items []ChecklistItem
	err = s.db.WithContext(ctx).
		Where("card_id = ?", card.ID).
		Order("position, id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// CreateLabel adds a board label. Only the owner or staff may create
// labels.
func (s *Service) CreateLabel(ctx context.Context, actor User, boardID uint, name, color string) (Label, error) {
	b, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return Label{}, err
	}
	if !CanCreateLabel(actor, b) {
		return Label{}, ErrForbidden
	}
	if name == "" {
		return Label{}, newValidationError("name", "required")
	}

	label := Label{BoardID: b.ID, Name: name}
	if color != "" {
		label.Color = color
	}
	if err := s.db.WithContext(ctx).Create(&label).Error; err != nil {
		return Label{}, err
	}
	return label, nil
}

// Labels returns the board's labels.
func (s *Service) Labels(ctx context.Context, actor User, boardID uint) ([]Label, error) {
	b, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if !CanAccessBoard(actor, b) {
		return nil, ErrForbidden
	}
	var labels []Label
	if err := s.db.WithContext(ctx).Where("board_id = ?", b.ID).Find(&labels).Error; err != nil {
		return nil, err
	}
	return labels, nil
}

// AttachLabel links a label to a card on the same board. Any member may
// attach or detach labels.
func (s *Service) AttachLabel(ctx context.Context, actor User, labelID, cardID uint, attach bool) error {
	var label Label
	err := s.db.WithContext(ctx).First(&label, labelID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	card, _, b, err := s.loadCardWithBoard(ctx, cardID)
	if err != nil {
		return err
	}
	if !CanAccessBoard(actor, b) {
		return ErrForbidden
	}
	if label.BoardID != b.ID {
		return newValidationError("label_id", "label belongs to another board")
	}

	assoc := s.db.WithContext(ctx).Model(&label).Association("Cards")
	if attach {
		return assoc.Append(&card)
	}
	return assoc.Delete(&card)
}

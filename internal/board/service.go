package board

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("board: database handle is required")
	noOpLogger         = zap.NewNop()
)

// ServiceConfig describes the dependencies of the board service.
type ServiceConfig struct {
	Database *gorm.DB
	Events   EventSink
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service applies permission-gated mutations to boards, lists and cards,
// records activity and emits events for notification fan-out.
type Service struct {
	db       *gorm.DB
	events   EventSink
	recorder *Recorder
	clock    func() time.Time
	logger   *zap.Logger
}

// NewService constructs the board service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:       cfg.Database,
		events:   cfg.Events,
		recorder: NewRecorder(cfg.Database, logger),
		clock:    clock,
		logger:   logger,
	}, nil
}

func (s *Service) emit(event Event) {
	if s.events != nil {
		s.events.Emit(event)
	}
}

// GetUser loads one account by id.
func (s *Service) GetUser(ctx context.Context, userID uint) (User, error) {
	var user User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *Service) loadBoard(ctx context.Context, boardID uint) (Board, error) {
	var b Board
	err := s.db.WithContext(ctx).
		Preload("Owner").
		Preload("Members").
		First(&b, boardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Board{}, ErrNotFound
	}
	if err != nil {
		return Board{}, err
	}
	return b, nil
}

// BoardInput carries creatable/updatable board fields. Nil pointers on
// update mean "leave unchanged".
type BoardInput struct {
	Name    *string
	Color   *string
	DueDate *time.Time
	// DueDateSet distinguishes "clear the due date" from "not supplied".
	DueDateSet bool
}

// CreateBoard creates a board owned by the actor, who also becomes a
// member. Setting a due date at creation requires the teacher role.
func (s *Service) CreateBoard(ctx context.Context, actor User, input BoardInput) (Board, error) {
	if input.Name == nil || *input.Name == "" {
		return Board{}, newValidationError("name", "required")
	}
	if input.DueDateSet && input.DueDate != nil && !actor.IsTeacher() {
		return Board{}, ErrForbidden
	}

	b := Board{
		Name:    *input.Name,
		OwnerID: actor.ID,
	}
	if input.Color != nil {
		b.Color = *input.Color
	}
	if input.DueDateSet {
		b.DueDate = input.DueDate
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&b).Error; err != nil {
			return err
		}
		return tx.Model(&b).Association("Members").Append(&actor)
	})
	if err != nil {
		return Board{}, err
	}

	s.recorder.Record(ctx, b.ID, actor.ID, "board_created", map[string]any{
		"board_id":   b.ID,
		"board_name": b.Name,
	})

	created, loadErr := s.loadBoard(ctx, b.ID)
	if loadErr != nil {
		return b, nil
	}
	s.emit(Event{Type: EventBoardCreated, Actor: actor, Board: created})
	return created, nil
}

// ListBoards returns every board the actor owns or belongs to.
func (s *Service) ListBoards(ctx context.Context, actor User) ([]Board, error) {
	var boards []Board
	err := s.db.WithContext(ctx).
		Preload("Owner").
		Preload("Members").
		Joins("LEFT JOIN board_members ON board_members.board_id = boards.id").
		Where("boards.owner_id = ? OR board_members.user_id = ?", actor.ID, actor.ID).
		Group("boards.id").
		Order("boards.created_at DESC").
		Find(&boards).Error
	if err != nil {
		return nil, err
	}
	return boards, nil
}

// GetBoard returns one board the actor can access.
func (s *Service) GetBoard(ctx context.Context, actor User, boardID uint) (Board, error) {
	b, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return Board{}, err
	}
	if !CanAccessBoard(actor, b) {
		return Board{}, ErrForbidden
	}
	return b, nil
}

// UpdateBoard applies owner-only edits. Changing the due date additionally
// requires the teacher role.
func (s *Service) UpdateBoard(ctx context.Context, actor User, boardID uint, input BoardInput) (Board, error) {
	b, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return Board{}, err
	}
	if !CanEditBoard(actor, b) {
		return Board{}, ErrForbidden
	}

	updates := map[string]any{}
	if input.Name != nil {
		if *input.Name == "" {
			return Board{}, newValidationError("name", "required")
		}
		updates["name"] = *input.Name
	}
	if input.Color != nil {
		updates["color"] = *input.Color
	}
	if input.DueDateSet {
		if !CanSetBoardDueDate(actor, b) {
			return Board{}, ErrForbidden
		}
		updates["due_date"] = input.DueDate
	}
	if len(updates) == 0 {
		return b, nil
	}

	if err := s.db.WithContext(ctx).Model(&Board{}).Where("id = ?", b.ID).Updates(updates).Error; err != nil {
		return Board{}, err
	}
	return s.loadBoard(ctx, boardID)
}

// DeleteBoard removes the board and everything it owns. The prior member
// set is captured first so board_deleted fan-out can still address it.
func (s *Service) DeleteBoard(ctx context.Context, actor User, boardID uint) error {
	b, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if !CanEditBoard(actor, b) {
		return ErrForbidden
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listIDs []uint
		if err := tx.Model(&List{}).Where("board_id = ?", b.ID).Pluck("id", &listIDs).Error; err != nil {
			return err
		}
		if len(listIDs) > 0 {
			var cardIDs []uint
			if err := tx.Model(&Card{}).Where("list_id IN ?", listIDs).Pluck("id", &cardIDs).Error; err != nil {
				return err
			}
			if len(cardIDs) > 0 {
				if err := deleteCardOwned(tx, cardIDs); err != nil {
					return err
				}
				if err := tx.Where("list_id IN ?", listIDs).Delete(&Card{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("board_id = ?", b.ID).Delete(&List{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("board_id = ?", b.ID).Delete(&Label{}).Error; err != nil {
			return err
		}
		if err := tx.Where("board_id = ?", b.ID).Delete(&ActivityLog{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM board_members WHERE board_id = ?", b.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&Board{}, b.ID).Error
	})
	if err != nil {
		return err
	}

	s.emit(Event{Type: EventBoardDeleted, Actor: actor, Board: b, BoardDeleted: true})
	return nil
}

// AddMember puts a user on the board. Re-adding an existing member is a
// no-op and emits nothing.
func (s *Service) AddMember(ctx context.Context, actor User, boardID, userID uint) (Board, error) {
	b, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return Board{}, err
	}
	if !CanManageMembers(actor, b) {
		return Board{}, ErrForbidden
	}
	member, err := s.GetUser(ctx, userID)
	if err != nil {
		return Board{}, err
	}
	if b.HasMember(member.ID) {
		return b, nil
	}

	if err := s.db.WithContext(ctx).Model(&b).Association("Members").Append(&member); err != nil {
		return Board{}, err
	}

	s.recorder.Record(ctx, b.ID, actor.ID, "member_added", map[string]any{
		"user_id":  member.ID,
		"username": member.Username,
	})

	updated, loadErr := s.loadBoard(ctx, boardID)
	if loadErr != nil {
		updated = b
	}
	s.emit(Event{Type: EventMemberInvited, Actor: actor, Board: updated, Member: &member})
	return updated, nil
}

// RemoveMember takes a user off the board. Removing a non-member is a
// no-op.
func (s *Service) RemoveMember(ctx context.Context, actor User, boardID, userID uint) (Board, error) {
	b, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return Board{}, err
	}
	if !CanManageMembers(actor, b) {
		return Board{}, ErrForbidden
	}
	member, err := s.GetUser(ctx, userID)
	if err != nil {
		return Board{}, err
	}

	present := false
	for _, existing := range b.Members {
		if existing.ID == member.ID {
			present = true
			break
		}
	}
	if !present {
		return b, nil
	}

	if err := s.db.WithContext(ctx).Model(&b).Association("Members").Delete(&member); err != nil {
		return Board{}, err
	}

	s.recorder.Record(ctx, b.ID, actor.ID, "member_removed", map[string]any{
		"user_id":  member.ID,
		"username": member.Username,
	})
	return s.loadBoard(ctx, boardID)
}

// ListInput carries creatable/updatable list fields.
type ListInput struct {
	Title    *string
	Position *int
}

// CreateList adds a list to the board. Any member may create lists.
func (s *Service) CreateList(ctx context.Context, actor User, boardID uint, input ListInput) (List, error) {
	b, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return List{}, err
	}
	if !CanAccessBoard(actor, b) {
		return List{}, ErrForbidden
	}
	if input.Title == nil || *input.Title == "" {
		return List{}, newValidationError("title", "required")
	}

	list := List{BoardID: b.ID, Title: *input.Title}
	if input.Position != nil {
		list.Position = *input.Position
	}
	if err := s.db.WithContext(ctx).Create(&list).Error; err != nil {
		return List{}, err
	}

	s.recorder.Record(ctx, b.ID, actor.ID, "list_created", map[string]any{
		"list_id":    list.ID,
		"list_title": list.Title,
	})
	return list, nil
}

// Lists returns the board's lists ordered by position.
func (s *Service) Lists(ctx context.Context, actor User, boardID uint) ([]List, error) {
	b, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if !CanAccessBoard(actor, b) {
		return nil, ErrForbidden
	}
	var lists []List
	err = s.db.WithContext(ctx).
		Where("board_id = ?", b.ID).
		Order("position, id").
		Find(&lists).Error
	if err != nil {
		return nil, err
	}
	return lists, nil
}

// UpdateList renames or repositions a list. Any member may update.
func (s *Service) UpdateList(ctx context.Context, actor User, listID uint, input ListInput) (List, error) {
	list, b, err := s.loadListWithBoard(ctx, listID)
	if err != nil {
		return List{}, err
	}
	if !CanAccessBoard(actor, b) {
		return List{}, ErrForbidden
	}

	updates := map[string]any{}
	if input.Title != nil {
		if *input.Title == "" {
			return List{}, newValidationError("title", "required")
		}
		updates["title"] = *input.Title
	}
	if input.Position != nil {
		updates["position"] = *input.Position
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&List{}).Where("id = ?", list.ID).Updates(updates).Error; err != nil {
			return List{}, err
		}
	}

	var updated List
	if err := s.db.WithContext(ctx).First(&updated, list.ID).Error; err != nil {
		return List{}, err
	}
	return updated, nil
}

// DeleteList removes a list and its cards. Only the board owner may delete
// lists.
func (s *Service) DeleteList(ctx context.Context, actor User, listID uint) error {
	list, b, err := s.loadListWithBoard(ctx, listID)
	if err != nil {
		return err
	}
	if !CanDeleteList(actor, b) {
		return ErrForbidden
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cardIDs []uint
		if err := tx.Model(&Card{}).Where("list_id = ?", list.ID).Pluck("id", &cardIDs).Error; err != nil {
			return err
		}
		if len(cardIDs) > 0 {
			if err := deleteCardOwned(tx, cardIDs); err != nil {
				return err
			}
			if err := tx.Where("list_id = ?", list.ID).Delete(&Card{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&List{}, list.ID).Error
	})
	if err != nil {
		return err
	}

	s.recorder.Record(ctx, b.ID, actor.ID, "list_deleted", map[string]any{
		"list_title": list.Title,
	})
	return nil
}

func (s *Service) loadListWithBoard(ctx context.Context, listID uint) (List, Board, error) {
	var list List
	err := s.db.WithContext(ctx).First(&list, listID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return List{}, Board{}, ErrNotFound
	}
	if err != nil {
		return List{}, Board{}, err
	}
	b, err := s.loadBoard(ctx, list.BoardID)
	if err != nil {
		return List{}, Board{}, err
	}
	return list, b, nil
}

// deleteCardOwned removes records owned by the given cards: comments,
// checklist items, assignee and label links.
func deleteCardOwned(tx *gorm.DB, cardIDs []uint) error {
	if err := tx.Where("card_id IN ?", cardIDs).Delete(&Comment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("card_id IN ?", cardIDs).Delete(&ChecklistItem{}).Error; err != nil {
		return err
	}
	if err := tx.Exec("DELETE FROM card_assignees WHERE card_id IN ?", cardIDs).Error; err != nil {
		return err
	}
	return tx.Exec("DELETE FROM card_labels WHERE card_id IN ?", cardIDs).Error
}

// Activities returns the most recent activity entries for a board,
// newest first.
func (s *Service) Activities(ctx context.Context, actor User, boardID uint, limit int) ([]ActivityLog, error) {
	b, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if !CanAccessBoard(actor, b) {
		return nil, ErrForbidden
	}
	if limit <= 0 {
		limit = 50
	}
	var entries []ActivityLog
	err = s.db.WithContext(ctx).
		Preload("Actor").
		Where("board_id = ?", b.ID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

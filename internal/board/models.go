package board

import (
	"time"
)

// Role classifies an account for permission and notification decisions.
// Accounts created before roles existed carry RoleUnknown, which is never
// treated as a teacher.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleUnknown Role = "unknown"
)

// Priority is the urgency tier of a card.
type Priority string

const (
	PriorityLow  Priority = "low"
	PriorityMed  Priority = "med"
	PriorityHigh Priority = "high"
)

// ValidPriority reports whether the raw value names a known tier.
func ValidPriority(value string) bool {
	switch Priority(value) {
	case PriorityLow, PriorityMed, PriorityHigh:
		return true
	}
	return false
}

// User is an account on the board service. IDNumber is the external
// ten-digit institutional identifier.
type User struct {
	ID           uint      `gorm:"column:id;primaryKey"`
	Username     string    `gorm:"column:username;size:150;uniqueIndex;not null"`
	Email        string    `gorm:"column:email;size:320;not null;default:''"`
	PasswordHash string    `gorm:"column:password_hash;size:128;not null"`
	Role         Role      `gorm:"column:role;size:10;not null;default:'unknown'"`
	IDNumber     string    `gorm:"column:id_number;size:10;uniqueIndex"`
	IsStaff      bool      `gorm:"column:is_staff;not null;default:false"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (User) TableName() string {
	return "users"
}

// IsTeacher reports whether the account holds the teacher role. An unknown
// or missing role is not a teacher.
func (u User) IsTeacher() bool {
	return u.Role == RoleTeacher
}

// Board is the top-level collaborative workspace. The owner is conceptually
// always a member; membership rows are kept anyway so queries stay uniform.
type Board struct {
	ID        uint       `gorm:"column:id;primaryKey"`
	Name      string     `gorm:"column:name;size:200;not null"`
	OwnerID   uint       `gorm:"column:owner_id;not null;index"`
	Owner     User       `gorm:"foreignKey:OwnerID"`
	Members   []User     `gorm:"many2many:board_members"`
	Color     string     `gorm:"column:color;size:20;not null;default:''"`
	DueDate   *time.Time `gorm:"column:due_date;type:date"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Board) TableName() string {
	return "boards"
}

// HasMember reports whether the user id appears in the loaded member set or
// matches the owner.
func (b Board) HasMember(userID uint) bool {
	if b.OwnerID == userID {
		return true
	}
	for _, member := range b.Members {
		if member.ID == userID {
			return true
		}
	}
	return false
}

// List is an ordered column of cards within a board.
type List struct {
	ID       uint   `gorm:"column:id;primaryKey"`
	BoardID  uint   `gorm:"column:board_id;not null;index"`
	Title    string `gorm:"column:title;size:200;not null"`
	Position int    `gorm:"column:position;not null;default:0"`
}

// TableName provides the explicit table binding for GORM.
func (List) TableName() string {
	return "lists"
}

// Card is a work item. Position orders cards within a list and is not
// required to be unique.
type Card struct {
	ID          uint       `gorm:"column:id;primaryKey"`
	ListID      uint       `gorm:"column:list_id;not null;index"`
	Title       string     `gorm:"column:title;size:255;not null"`
	Description string     `gorm:"column:description;type:text;not null;default:''"`
	DueDate     *time.Time `gorm:"column:due_date;type:date"`
	Priority    Priority   `gorm:"column:priority;size:10;not null;default:'med'"`
	Position    int        `gorm:"column:position;not null;default:0"`
	CreatedByID uint       `gorm:"column:created_by_id;not null"`
	CreatedBy   User       `gorm:"foreignKey:CreatedByID"`
	Assignees   []User     `gorm:"many2many:card_assignees"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Card) TableName() string {
	return "cards"
}

// IsAssignee reports whether the user id appears in the loaded assignee set.
func (c Card) IsAssignee(userID uint) bool {
	for _, assignee := range c.Assignees {
		if assignee.ID == userID {
			return true
		}
	}
	return false
}

// Label is a board-scoped tag attachable to cards.
type Label struct {
	ID      uint   `gorm:"column:id;primaryKey"`
	BoardID uint   `gorm:"column:board_id;not null;index"`
	Name    string `gorm:"column:name;size:50;not null"`
	Color   string `gorm:"column:color;size:20;not null;default:'#3b82f6'"`
	Cards   []Card `gorm:"many2many:card_labels"`
}

// TableName provides the explicit table binding for GORM.
func (Label) TableName() string {
	return "labels"
}

// Comment is free text attached to a card.
type Comment struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	CardID    uint      `gorm:"column:card_id;not null;index"`
	AuthorID  uint      `gorm:"column:author_id;not null"`
	Author    User      `gorm:"foreignKey:AuthorID"`
	Content   string    `gorm:"column:content;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Comment) TableName() string {
	return "comments"
}

// ChecklistItem is a single line of a card checklist.
type ChecklistItem struct {
	ID       uint   `gorm:"column:id;primaryKey"`
	CardID   uint   `gorm:"column:card_id;not null;index"`
	Text     string `gorm:"column:text;size:255;not null"`
	Done     bool   `gorm:"column:done;not null;default:false"`
	Position int    `gorm:"column:position;not null;default:0"`
}

// TableName provides the explicit table binding for GORM.
func (ChecklistItem) TableName() string {
	return "checklist_items"
}

// ActivityLog is an append-only audit record scoped to a board. Entries are
// never updated or deleted individually; they cascade with the board.
type ActivityLog struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	BoardID   uint      `gorm:"column:board_id;not null;index:idx_activity_board_time,priority:1"`
	ActorID   uint      `gorm:"column:actor_id;not null"`
	Actor     User      `gorm:"foreignKey:ActorID"`
	Action    string    `gorm:"column:action;size:50;not null"`
	MetaJSON  string    `gorm:"column:meta_json;type:text;not null;default:'{}'"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index:idx_activity_board_time,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (ActivityLog) TableName() string {
	return "activity_log"
}

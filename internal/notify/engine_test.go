package notify

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aulaboard/backend/internal/board"
)

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&board.User{}, &Notification{}, &PushSubscription{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// deliveryCapture records what the engine hands to the delivery layer.
type deliveryCapture struct {
	delivered []Notification
}

func (c *deliveryCapture) Deliver(_ context.Context, notification Notification) {
	c.delivered = append(c.delivered, notification)
}

func recipientIDs(recipients []board.User) map[uint]bool {
	ids := make(map[uint]bool, len(recipients))
	for _, recipient := range recipients {
		ids[recipient.ID] = true
	}
	return ids
}

var (
	teacherOwner = board.User{ID: 1, Username: "prof", Role: board.RoleTeacher}
	studentAna   = board.User{ID: 2, Username: "ana", Role: board.RoleStudent}
	studentBruno = board.User{ID: 3, Username: "bruno", Role: board.RoleStudent}
)

func classBoard() board.Board {
	return board.Board{
		ID:      10,
		Name:    "Algebra",
		OwnerID: teacherOwner.ID,
		Owner:   teacherOwner,
		Members: []board.User{teacherOwner, studentAna, studentBruno},
	}
}

func TestRecipientsCardCreatedGoesToStudentsExceptActor(t *testing.T) {
	event := board.Event{Type: board.EventCardCreated, Actor: studentAna, Board: classBoard()}
	ids := recipientIDs(Recipients(event))

	if len(ids) != 1 || !ids[studentBruno.ID] {
		t.Fatalf("recipients = %v, want only bruno", ids)
	}
}

func TestRecipientsCardCreatedByTeacherReachesAllStudents(t *testing.T) {
	event := board.Event{Type: board.EventCardCreated, Actor: teacherOwner, Board: classBoard()}
	ids := recipientIDs(Recipients(event))

	if len(ids) != 2 || !ids[studentAna.ID] || !ids[studentBruno.ID] {
		t.Fatalf("recipients = %v, want both students", ids)
	}
}

func TestRecipientsBoardCreatedOnlyForTeacherActor(t *testing.T) {
	byTeacher := board.Event{Type: board.EventBoardCreated, Actor: teacherOwner, Board: classBoard()}
	if ids := recipientIDs(Recipients(byTeacher)); len(ids) != 2 {
		t.Fatalf("teacher-created board recipients = %v, want both students", ids)
	}

	b := classBoard()
	b.OwnerID = studentAna.ID
	b.Owner = studentAna
	byStudent := board.Event{Type: board.EventBoardCreated, Actor: studentAna, Board: b}
	if got := Recipients(byStudent); len(got) != 0 {
		t.Fatalf("student-created board must notify nobody, got %v", recipientIDs(got))
	}
}

func TestRecipientsBoardDeletedReachesAllPriorMembers(t *testing.T) {
	event := board.Event{
		Type:         board.EventBoardDeleted,
		Actor:        teacherOwner,
		Board:        classBoard(),
		BoardDeleted: true,
	}
	ids := recipientIDs(Recipients(event))
	if len(ids) != 2 || !ids[studentAna.ID] || !ids[studentBruno.ID] {
		t.Fatalf("recipients = %v, want every member except the actor", ids)
	}
}

func TestRecipientsMemberInvitedOnlyTheStudent(t *testing.T) {
	invited := studentAna
	event := board.Event{Type: board.EventMemberInvited, Actor: teacherOwner, Board: classBoard(), Member: &invited}
	ids := recipientIDs(Recipients(event))
	if len(ids) != 1 || !ids[studentAna.ID] {
		t.Fatalf("recipients = %v, want only the invited student", ids)
	}

	colleague := board.User{ID: 4, Username: "colleague", Role: board.RoleTeacher}
	teacherInvite := board.Event{Type: board.EventMemberInvited, Actor: teacherOwner, Board: classBoard(), Member: &colleague}
	if got := Recipients(teacherInvite); len(got) != 0 {
		t.Fatalf("inviting a teacher must notify nobody, got %v", recipientIDs(got))
	}
}

func TestRecipientsCardMovedStudentActorToTeacherOwner(t *testing.T) {
	byStudent := board.Event{Type: board.EventCardMoved, Actor: studentAna, Board: classBoard()}
	ids := recipientIDs(Recipients(byStudent))
	if len(ids) != 1 || !ids[teacherOwner.ID] {
		t.Fatalf("recipients = %v, want only the teacher owner", ids)
	}

	byTeacher := board.Event{Type: board.EventCardMoved, Actor: teacherOwner, Board: classBoard()}
	if got := Recipients(byTeacher); len(got) != 0 {
		t.Fatalf("a teacher moving a card must notify nobody, got %v", recipientIDs(got))
	}

	studentOwned := classBoard()
	studentOwned.OwnerID = studentBruno.ID
	studentOwned.Owner = studentBruno
	onStudentBoard := board.Event{Type: board.EventCardMoved, Actor: studentAna, Board: studentOwned}
	if got := Recipients(onStudentBoard); len(got) != 0 {
		t.Fatalf("card_moved on a student-owned board must notify nobody, got %v", recipientIDs(got))
	}
}

func TestRecipientsCardAssignedOnlyTheAssignee(t *testing.T) {
	assignee := studentBruno
	event := board.Event{Type: board.EventCardAssigned, Actor: teacherOwner, Board: classBoard(), Member: &assignee}
	ids := recipientIDs(Recipients(event))
	if len(ids) != 1 || !ids[studentBruno.ID] {
		t.Fatalf("recipients = %v, want only the assignee", ids)
	}

	self := studentAna
	selfAssign := board.Event{Type: board.EventCardAssigned, Actor: studentAna, Board: classBoard(), Member: &self}
	if got := Recipients(selfAssign); len(got) != 0 {
		t.Fatalf("self-assignment must notify nobody, got %v", recipientIDs(got))
	}
}

func TestProcessPersistsOneNotificationPerRecipient(t *testing.T) {
	db := openTestDatabase(t)
	capture := &deliveryCapture{}
	engine, err := NewEngine(EngineConfig{Database: db, Deliverer: capture})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	card := board.Card{ID: 20, Title: "Read chapter 2"}
	list := board.List{ID: 30, Title: "Todo"}
	event := board.Event{
		Type:  board.EventCardCreated,
		Actor: teacherOwner,
		Board: classBoard(),
		Card:  &card,
		List:  &list,
	}
	engine.Process(context.Background(), event)

	var stored []Notification
	if err := db.Order("recipient_id").Find(&stored).Error; err != nil {
		t.Fatalf("load notifications: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored %d notifications, want 2", len(stored))
	}
	if stored[0].RecipientID != studentAna.ID || stored[1].RecipientID != studentBruno.ID {
		t.Fatalf("recipients = %d, %d", stored[0].RecipientID, stored[1].RecipientID)
	}
	for _, notification := range stored {
		if notification.Type != string(board.EventCardCreated) {
			t.Fatalf("type = %q", notification.Type)
		}
		if notification.BoardID == nil || *notification.BoardID != 10 {
			t.Fatalf("board_id = %v", notification.BoardID)
		}
		if notification.Read {
			t.Fatal("new notifications must start unread")
		}
	}
	if len(capture.delivered) != 2 {
		t.Fatalf("delivered %d notifications, want 2", len(capture.delivered))
	}
}

func TestProcessBoardDeletedStoresNilBoardReference(t *testing.T) {
	db := openTestDatabase(t)
	engine, err := NewEngine(EngineConfig{Database: db})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	event := board.Event{
		Type:         board.EventBoardDeleted,
		Actor:        teacherOwner,
		Board:        classBoard(),
		BoardDeleted: true,
	}
	engine.Process(context.Background(), event)

	var stored []Notification
	if err := db.Find(&stored).Error; err != nil {
		t.Fatalf("load notifications: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored %d notifications, want 2", len(stored))
	}
	for _, notification := range stored {
		if notification.BoardID != nil {
			t.Fatalf("board_id = %v, want nil after board deletion", *notification.BoardID)
		}
	}
}

func TestProcessEventWithoutAudienceStoresNothing(t *testing.T) {
	db := openTestDatabase(t)
	capture := &deliveryCapture{}
	engine, err := NewEngine(EngineConfig{Database: db, Deliverer: capture})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	// A student creating a card on a teacher-owned board with no other
	// students produces an empty audience.
	b := board.Board{
		ID:      10,
		Name:    "Algebra",
		OwnerID: teacherOwner.ID,
		Owner:   teacherOwner,
		Members: []board.User{teacherOwner, studentAna},
	}
	event := board.Event{Type: board.EventCardCreated, Actor: studentAna, Board: b}
	engine.Process(context.Background(), event)

	var count int64
	if err := db.Model(&Notification{}).Count(&count).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	if count != 0 {
		t.Fatalf("stored %d notifications, want 0", count)
	}
	if len(capture.delivered) != 0 {
		t.Fatalf("delivered %d notifications, want 0", len(capture.delivered))
	}
}

func TestComposeMessageDescribesChangedFields(t *testing.T) {
	card := board.Card{ID: 20, Title: "Final report"}
	event := board.Event{
		Type:          board.EventCardUpdated,
		Actor:         teacherOwner,
		Board:         classBoard(),
		Card:          &card,
		ChangedFields: []string{"due_date", "description"},
		OldValues:     map[string]string{"due_date": "2026-03-10", "description": "old"},
		NewValues:     map[string]string{"due_date": "2026-03-12", "description": "new"},
	}

	_, message := composeMessage(event)
	want := `prof updated due_date (2026-03-10 to 2026-03-12), description on "Final report"`
	if message != want {
		t.Fatalf("message = %q, want %q", message, want)
	}
}

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aulaboard/backend/internal/board"
	"github.com/aulaboard/backend/internal/notify"
	"github.com/aulaboard/backend/internal/users"
)

type stack struct {
	db       *gorm.DB
	accounts *users.Service
	boards   *board.Service
	engine   *notify.Engine
	bus      *notify.GroupBus
	inbox    *notify.Service
}

func newStack(t *testing.T, today time.Time) *stack {
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

	err = db.AutoMigrate(
		&board.User{}, &board.Board{}, &board.List{}, &board.Card{},
		&board.Label{}, &board.Comment{}, &board.ChecklistItem{}, &board.ActivityLog{},
		&notify.Notification{}, &notify.PushSubscription{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	bus := notify.NewGroupBus()
	dispatcher, err := notify.NewDispatcher(notify.DispatcherConfig{Database: db, Bus: bus})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	engine, err := notify.NewEngine(notify.EngineConfig{Database: db, Deliverer: dispatcher})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	boards, err := board.NewService(board.ServiceConfig{
		Database: db,
		Events:   engine,
		Clock:    func() time.Time { return today },
	})
	if err != nil {
		t.Fatalf("new board service: %v", err)
	}
	accounts, err := users.NewService(users.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("new account service: %v", err)
	}
	inbox, err := notify.NewService(db)
	if err != nil {
		t.Fatalf("new notification service: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go engine.Run(ctx)

	return &stack{db: db, accounts: accounts, boards: boards, engine: engine, bus: bus, inbox: inbox}
}

var enrolled int

func (s *stack) register(t *testing.T, username string, role board.Role) board.User {
	t.Helper()
	enrolled++
	account, err := s.accounts.Register(context.Background(), users.RegisterInput{
		Username: username,
		Password: "correct horse",
		Role:     role,
		IDNumber: fmt.Sprintf("%010d", enrolled),
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return account
}

// waitForNotifications polls until the recipient has the wanted number of
// notifications of the given type, or fails after three seconds.
func (s *stack) waitForNotifications(t *testing.T, recipientID uint, notificationType string, want int) []notify.Notification {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		var stored []notify.Notification
		err := s.db.Where("recipient_id = ? AND type = ?", recipientID, notificationType).Find(&stored).Error
		if err != nil {
			t.Fatalf("load notifications: %v", err)
		}
		if len(stored) == want {
			return stored
		}
		if time.Now().After(deadline) {
			t.Fatalf("recipient %d has %d %s notifications, want %d", recipientID, len(stored), notificationType, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// settle gives the fan-out queue time to drain before asserting that
// something did NOT happen.
func settle() {
	time.Sleep(150 * time.Millisecond)
}

func TestClassroomBoardFlow(t *testing.T) {
	today, err := time.Parse(time.DateOnly, "2026-03-02")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	s := newStack(t, today)
	ctx := context.Background()

	teacher := s.register(t, "prof", board.RoleTeacher)
	ana := s.register(t, "ana", board.RoleStudent)
	bruno := s.register(t, "bruno", board.RoleStudent)

	// Teacher opens the class board with a deadline ten days out.
	boardDue := today.AddDate(0, 0, 10)
	name := "Algebra"
	class, err := s.boards.CreateBoard(ctx, teacher, board.BoardInput{
		Name:       &name,
		DueDate:    &boardDue,
		DueDateSet: true,
	})
	if err != nil {
		t.Fatalf("create board: %v", err)
	}

	if _, err := s.boards.AddMember(ctx, teacher, class.ID, ana.ID); err != nil {
		t.Fatalf("add ana: %v", err)
	}
	if _, err := s.boards.AddMember(ctx, teacher, class.ID, bruno.ID); err != nil {
		t.Fatalf("add bruno: %v", err)
	}

	// Each student is told once about joining the board.
	s.waitForNotifications(t, ana.ID, "member_invited", 1)
	s.waitForNotifications(t, bruno.ID, "member_invited", 1)

	todoTitle := "Todo"
	todo, err := s.boards.CreateList(ctx, teacher, class.ID, board.ListInput{Title: &todoTitle})
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	doneTitle := "Done"
	done, err := s.boards.CreateList(ctx, teacher, class.ID, board.ListInput{Title: &doneTitle})
	if err != nil {
		t.Fatalf("create second list: %v", err)
	}

	// Teacher posts an assignment due in three days: 30% of the time to
	// the board deadline remains, so the tier is computed as med.
	cardDue := today.AddDate(0, 0, 3)
	cardTitle := "Read chapter 2"
	card, err := s.boards.CreateCard(ctx, teacher, todo.ID, board.CardInput{
		Title:      &cardTitle,
		DueDate:    &cardDue,
		DueDateSet: true,
	})
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	if card.Priority != board.PriorityMed {
		t.Fatalf("priority = %s, want med", card.Priority)
	}

	// Both students hear about the new card; the teacher does not notify
	// themself.
	s.waitForNotifications(t, ana.ID, "card_created", 1)
	s.waitForNotifications(t, bruno.ID, "card_created", 1)
	settle()
	s.waitForNotifications(t, teacher.ID, "card_created", 0)

	// Ana finishes the work and moves the card. The teacher owner is the
	// only one told about student progress.
	if _, err := s.boards.UpdateCard(ctx, ana, card.ID, board.CardInput{ListID: &done.ID}); err != nil {
		t.Fatalf("move card: %v", err)
	}
	moved := s.waitForNotifications(t, teacher.ID, "card_moved", 1)
	if moved[0].BoardID == nil || *moved[0].BoardID != class.ID {
		t.Fatalf("card_moved board reference = %v", moved[0].BoardID)
	}
	settle()
	s.waitForNotifications(t, bruno.ID, "card_moved", 0)

	// A teacher moving a card back tells nobody.
	if _, err := s.boards.UpdateCard(ctx, teacher, card.ID, board.CardInput{ListID: &todo.ID}); err != nil {
		t.Fatalf("move card back: %v", err)
	}
	settle()
	s.waitForNotifications(t, teacher.ID, "card_moved", 1)
	s.waitForNotifications(t, ana.ID, "card_moved", 0)

	// Every move left an audit trail regardless of who was notified.
	entries, err := s.boards.Activities(ctx, teacher, class.ID, 50)
	if err != nil {
		t.Fatalf("activities: %v", err)
	}
	movedEntries := 0
	for _, entry := range entries {
		if entry.Action == "card_moved" {
			movedEntries++
		}
	}
	if movedEntries != 2 {
		t.Fatalf("activity has %d card_moved entries, want 2", movedEntries)
	}

	// Unread counts reflect what each account was told.
	unread, err := s.inbox.UnreadCount(ctx, ana.ID)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if unread != 2 {
		t.Fatalf("ana unread = %d, want 2 (invite and card)", unread)
	}

	// Deleting the board notifies every remaining member and detaches the
	// stored notifications from the board.
	if err := s.boards.DeleteBoard(ctx, teacher, class.ID); err != nil {
		t.Fatalf("delete board: %v", err)
	}
	deleted := s.waitForNotifications(t, ana.ID, "board_deleted", 1)
	if deleted[0].BoardID != nil {
		t.Fatalf("board_deleted board reference = %v, want nil", *deleted[0].BoardID)
	}
	s.waitForNotifications(t, bruno.ID, "board_deleted", 1)
}

func TestLiveDeliveryReachesSubscribedSession(t *testing.T) {
	today, err := time.Parse(time.DateOnly, "2026-03-02")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	s := newStack(t, today)
	ctx := context.Background()

	teacher := s.register(t, "prof", board.RoleTeacher)
	ana := s.register(t, "ana", board.RoleStudent)

	stream, cancel := s.bus.Subscribe(ctx, notify.UserGroup(ana.ID))
	defer cancel()

	name := "Algebra"
	class, err := s.boards.CreateBoard(ctx, teacher, board.BoardInput{Name: &name})
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	if _, err := s.boards.AddMember(ctx, teacher, class.ID, ana.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}

	select {
	case payload := <-stream:
		if len(payload) == 0 {
			t.Fatal("empty live payload")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no live delivery for member_invited")
	}
}

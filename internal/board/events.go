package board

// EventType tags a finished mutation handed to the notification layer.
type EventType string

const (
	EventBoardCreated   EventType = "board_created"
	EventBoardDeleted   EventType = "board_deleted"
	EventMemberInvited  EventType = "member_invited"
	EventCardCreated    EventType = "card_created"
	EventCardUpdated    EventType = "card_updated"
	EventCardMoved      EventType = "card_moved"
	EventCardDeleted    EventType = "card_deleted"
	EventCardAssigned   EventType = "card_assigned"
	EventCardUnassigned EventType = "card_unassigned"
)

// Event describes a mutation that already happened. The Board snapshot
// carries the member set as it was relevant for the event: for
// EventBoardDeleted it is the membership before deletion, and BoardDeleted
// marks that the board row no longer exists.
type Event struct {
	Type         EventType
	Actor        User
	Board        Board
	BoardDeleted bool

	// Card-scoped fields, nil when not applicable.
	Card     *Card
	List     *List
	FromList *List
	ToList   *List

	// Member is the user added, removed, assigned or unassigned.
	Member *User

	// ChangedFields enumerates which card fields changed on
	// EventCardUpdated, in the order title, description, due_date,
	// priority.
	ChangedFields []string
	OldValues     map[string]string
	NewValues     map[string]string
}

// EventSink consumes mutation events. The notification fan-out engine
// implements it; a nil sink on the service swallows events.
type EventSink interface {
	Emit(event Event)
}

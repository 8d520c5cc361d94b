package board

// Permission predicates. All are synchronous and side-effect free; callers
// turn a false result into ErrForbidden. The board value must have its
// member set loaded.

// CanAccessBoard reports whether the actor is the owner or a member.
func CanAccessBoard(actor User, b Board) bool {
	return b.HasMember(actor.ID)
}

// CanEditBoard reports whether the actor may change or delete the board.
// Only the owner qualifies; staff have no override here.
func CanEditBoard(actor User, b Board) bool {
	return b.OwnerID == actor.ID
}

// CanManageMembers reports whether the actor may add or remove members.
// Staff accounts may manage membership on any board.
func CanManageMembers(actor User, b Board) bool {
	return b.OwnerID == actor.ID || actor.IsStaff
}

// CanSetBoardDueDate reports whether the actor may set or change the board
// deadline. Requires the teacher role in addition to ownership.
func CanSetBoardDueDate(actor User, b Board) bool {
	return actor.IsTeacher() && b.OwnerID == actor.ID
}

// CanSetCardSchedule reports whether the actor may change a card's due date
// or priority: any teacher, or the board owner.
func CanSetCardSchedule(actor User, b Board) bool {
	return actor.IsTeacher() || b.OwnerID == actor.ID
}

// CanDeleteCard reports whether the actor may delete the card: the board
// owner or the card's creator.
func CanDeleteCard(actor User, b Board, c Card) bool {
	return b.OwnerID == actor.ID || c.CreatedByID == actor.ID
}

// CanDeleteList reports whether the actor may delete a list. Only the board
// owner qualifies.
func CanDeleteList(actor User, b Board) bool {
	return b.OwnerID == actor.ID
}

// CanCreateLabel reports whether the actor may create labels on the board.
func CanCreateLabel(actor User, b Board) bool {
	return b.OwnerID == actor.ID || actor.IsStaff
}

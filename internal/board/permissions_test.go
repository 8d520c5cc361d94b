package board

import "testing"

func TestBoardMembershipCheck(t *testing.T) {
	owner := User{ID: 1, Role: RoleTeacher}
	member := User{ID: 2, Role: RoleStudent}
	stranger := User{ID: 3, Role: RoleStudent}
	b := Board{ID: 10, OwnerID: owner.ID, Members: []User{member}}

	if !CanAccessBoard(owner, b) {
		t.Fatal("owner must have access")
	}
	if !CanAccessBoard(member, b) {
		t.Fatal("member must have access")
	}
	if CanAccessBoard(stranger, b) {
		t.Fatal("non-member must not have access")
	}
}

func TestOnlyOwnerMayEditBoard(t *testing.T) {
	b := Board{ID: 10, OwnerID: 1}
	staff := User{ID: 4, IsStaff: true}

	if !CanEditBoard(User{ID: 1}, b) {
		t.Fatal("owner must be able to edit")
	}
	if CanEditBoard(User{ID: 2}, b) {
		t.Fatal("member must not be able to edit")
	}
	if CanEditBoard(staff, b) {
		t.Fatal("staff override applies to member management only, not edits")
	}
	if !CanManageMembers(staff, b) {
		t.Fatal("staff must be able to manage members")
	}
}

func TestBoardDueDateRequiresTeacherOwner(t *testing.T) {
	teacherOwner := User{ID: 1, Role: RoleTeacher}
	studentOwner := User{ID: 2, Role: RoleStudent}
	unknownOwner := User{ID: 3, Role: RoleUnknown}
	teacherMember := User{ID: 4, Role: RoleTeacher}

	ownedByTeacher := Board{OwnerID: teacherOwner.ID, Members: []User{teacherMember}}
	ownedByStudent := Board{OwnerID: studentOwner.ID}
	ownedByUnknown := Board{OwnerID: unknownOwner.ID}

	if !CanSetBoardDueDate(teacherOwner, ownedByTeacher) {
		t.Fatal("teacher owner must be able to set the board due date")
	}
	if CanSetBoardDueDate(studentOwner, ownedByStudent) {
		t.Fatal("student owner must not set the board due date")
	}
	if CanSetBoardDueDate(unknownOwner, ownedByUnknown) {
		t.Fatal("an account without a role is not a teacher")
	}
	if CanSetBoardDueDate(teacherMember, ownedByTeacher) {
		t.Fatal("teacher who is not the owner must not set the board due date")
	}
}

func TestCardScheduleGate(t *testing.T) {
	b := Board{OwnerID: 1}
	teacher := User{ID: 5, Role: RoleTeacher}
	studentOwner := User{ID: 1, Role: RoleStudent}
	studentMember := User{ID: 6, Role: RoleStudent}

	if !CanSetCardSchedule(teacher, b) {
		t.Fatal("any teacher may change card due date and priority")
	}
	if !CanSetCardSchedule(studentOwner, b) {
		t.Fatal("the board owner may change card due date and priority")
	}
	if CanSetCardSchedule(studentMember, b) {
		t.Fatal("a student member must not change card due date or priority")
	}
}

func TestCardAndListDeletion(t *testing.T) {
	b := Board{OwnerID: 1}
	card := Card{CreatedByID: 7}

	if !CanDeleteCard(User{ID: 1}, b, card) {
		t.Fatal("board owner may delete any card")
	}
	if !CanDeleteCard(User{ID: 7}, b, card) {
		t.Fatal("card creator may delete their card")
	}
	if CanDeleteCard(User{ID: 8}, b, card) {
		t.Fatal("other members must not delete the card")
	}

	if !CanDeleteList(User{ID: 1}, b) {
		t.Fatal("board owner may delete lists")
	}
	if CanDeleteList(User{ID: 7}, b) {
		t.Fatal("non-owner must not delete lists")
	}
}

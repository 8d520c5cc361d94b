package board

import (
	"testing"
	"time"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.DateOnly, value)
	if err != nil {
		t.Fatalf("bad date literal %q: %v", value, err)
	}
	return parsed
}

func daysOut(today time.Time, days int) *time.Time {
	due := today.AddDate(0, 0, days)
	return &due
}

func TestAutoPriorityMissingDatesDefaultsToMed(t *testing.T) {
	today := date(t, "2026-03-02")
	boardDue := daysOut(today, 30)

	if got := AutoPriority(nil, boardDue, today); got != PriorityMed {
		t.Fatalf("expected med with missing card due date, got %s", got)
	}
	if got := AutoPriority(daysOut(today, 5), nil, today); got != PriorityMed {
		t.Fatalf("expected med with missing board due date, got %s", got)
	}
	if got := AutoPriority(nil, nil, today); got != PriorityMed {
		t.Fatalf("expected med with both dates missing, got %s", got)
	}
}

func TestAutoPriorityPastBoardDeadlineIsHigh(t *testing.T) {
	today := date(t, "2026-03-02")

	if got := AutoPriority(daysOut(today, 90), daysOut(today, -1), today); got != PriorityHigh {
		t.Fatalf("expected high for past board deadline, got %s", got)
	}
	if got := AutoPriority(daysOut(today, 90), daysOut(today, 0), today); got != PriorityHigh {
		t.Fatalf("expected high for board due today, got %s", got)
	}
}

func TestAutoPriorityPastCardDeadlineIsHigh(t *testing.T) {
	today := date(t, "2026-03-02")

	if got := AutoPriority(daysOut(today, -3), daysOut(today, 50), today); got != PriorityHigh {
		t.Fatalf("expected high for past card deadline, got %s", got)
	}
	if got := AutoPriority(daysOut(today, 0), daysOut(today, 50), today); got != PriorityHigh {
		t.Fatalf("expected high for card due today, got %s", got)
	}
}

func TestAutoPriorityPercentageBoundaries(t *testing.T) {
	today := date(t, "2026-03-02")
	boardDue := daysOut(today, 100)

	cases := []struct {
		cardDays int
		expected Priority
	}{
		{25, PriorityHigh}, // exactly 25%
		{26, PriorityMed},
		{50, PriorityMed}, // exactly 50%
		{49, PriorityMed},
		{51, PriorityLow},
		{75, PriorityLow},
		{1, PriorityHigh},
	}
	for _, tc := range cases {
		got := AutoPriority(daysOut(today, tc.cardDays), boardDue, today)
		if got != tc.expected {
			t.Fatalf("card due in %d of 100 days: expected %s, got %s", tc.cardDays, tc.expected, got)
		}
	}
}

func TestAutoPriorityIgnoresTimeOfDay(t *testing.T) {
	today := time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC)
	cardDue := time.Date(2026, 3, 5, 1, 0, 0, 0, time.UTC)
	boardDue := time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC)

	// 3 of 10 days remaining: 30% sits in the med band.
	if got := AutoPriority(&cardDue, &boardDue, today); got != PriorityMed {
		t.Fatalf("expected med for 30%% of remaining time, got %s", got)
	}
}

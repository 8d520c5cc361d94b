package board

import "time"

// AutoPriority derives a card's urgency tier from how much of the board's
// remaining time the card consumes. With either date missing the tier is
// med. Past-due boards or cards are high. Otherwise the card's remaining
// days as a percentage of the board's remaining days decide the tier:
// <=25% high, <=50% med, else low.
func AutoPriority(cardDue, boardDue *time.Time, today time.Time) Priority {
	if cardDue == nil || boardDue == nil {
		return PriorityMed
	}

	daysUntilBoard := daysUntil(today, *boardDue)
	if daysUntilBoard <= 0 {
		return PriorityHigh
	}
	daysUntilCard := daysUntil(today, *cardDue)
	if daysUntilCard <= 0 {
		return PriorityHigh
	}

	pct := float64(daysUntilCard) / float64(daysUntilBoard) * 100
	switch {
	case pct <= 25:
		return PriorityHigh
	case pct <= 50:
		return PriorityMed
	default:
		return PriorityLow
	}
}

// daysUntil counts whole calendar days from one date to another, negative
// when the target is in the past. Time-of-day components are discarded.
func daysUntil(from, to time.Time) int {
	fromDate := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDate := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDate.Sub(fromDate).Hours() / 24)
}

package orders

type Status string

const (
	StatusPendingPayment    Status = "PENDING_PAYMENT"
	StatusAwaitingShipment  Status = "AWAITING_SHIPMENT"
	StatusShipped           Status = "SHIPPED"
	StatusCompleted         Status = "COMPLETED"
	StatusPartiallyReviewed Status = "PARTIALLY_REVIEWED"
	StatusFullyReviewed     Status = "FULLY_REVIEWED"
)

var validNext = map[Status]map[Status]bool{
	StatusPendingPayment:    {StatusAwaitingShipment: true},
	StatusAwaitingShipment:  {StatusShipped: true},
	StatusShipped:           {StatusCompleted: true},
	StatusCompleted:         {StatusPartiallyReviewed: true, StatusFullyReviewed: true},
	StatusPartiallyReviewed: {StatusPartiallyReviewed: true, StatusFullyReviewed: true},
	StatusFullyReviewed:     {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Reviewable reports whether lines of an order in this status may be commented.
// Orders still moving toward delivery cannot collect reviews.
func (s Status) Reviewable() bool {
	switch s {
	case StatusCompleted, StatusPartiallyReviewed, StatusFullyReviewed:
		return true
	}
	return false
}

// reviewStatus recomputes the review sub-state from the per-line commented
// flags. Review state only moves forward: lines are never un-reviewed.
func reviewStatus(lines []OrderLine) Status {
	for _, l := range lines {
		if !l.IsCommented {
			return StatusPartiallyReviewed
		}
	}
	return StatusFullyReviewed
}

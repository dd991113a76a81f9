package orders

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Lifecycle: pending -> confirmed -> shipped -> delivered, with cancelled
// reachable from the two stock-holding states only.
var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed: {StatusShipped: true, StatusCancelled: true},
	StatusShipped:   {StatusDelivered: true},
	StatusDelivered: {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return len(validNext[s]) == 0
}

// HoldsStock reports whether stock reserved at creation is still owned by
// the order. Only these states restore stock on cancellation.
func (s Status) HoldsStock() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) String() string { return string(s) }

// RevenueStatuses are the states whose orders count toward revenue.
var RevenueStatuses = []Status{StatusConfirmed, StatusShipped, StatusDelivered}

func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	_, ok := validNext[st]
	return st, ok
}

package order

import (
	"errors"
	"slices"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var ErrInvalidStatus = errors.New("invalid order status")

// transitions maps a status to the statuses it may move to next.
var transitions = map[Status][]Status{
	StatusPending:   {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered},
	StatusDelivered: {StatusCompleted},
	StatusCompleted: {},
	StatusCancelled: {},
}

// Statuses returns every known status in lifecycle order.
func Statuses() []Status {
	return []Status{
		StatusPending,
		StatusPaid,
		StatusShipped,
		StatusDelivered,
		StatusCompleted,
		StatusCancelled,
	}
}

func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// AllowedNext returns the statuses reachable from s in one step.
func (s Status) AllowedNext() []Status {
	return slices.Clone(transitions[s])
}

// CanTransitionTo reports whether moving from s to next is permitted.
func (s Status) CanTransitionTo(next Status) bool {
	return slices.Contains(transitions[s], next)
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// Cancellable reports whether an order in status s may be cancelled.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusPaid
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", ErrInvalidStatus
	}

	return st, nil
}

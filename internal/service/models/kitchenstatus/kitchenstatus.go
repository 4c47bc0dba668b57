package kitchenstatus

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

// Status is the kitchen workflow state of a single order item.
type Status string

const (
	New        Status = "new"
	InProgress Status = "in-progress"
	Completed  Status = "completed"
	Passed     Status = "passed"
	Reordered  Status = "reordered"
)

var (
	ErrInvalidStatus     = errors.New("invalid kitchen status")
	ErrInvalidTransition = errors.New("invalid kitchen status transition")
)

// All lists every status in workflow order.
var All = []Status{New, InProgress, Completed, Passed, Reordered}

// Active are the statuses shown on the kitchen board as work to do.
var Active = []Status{New, InProgress, Reordered}

// Excludable are the statuses that auto-removal of excluded products moves to passed.
var Excludable = []Status{New, InProgress, Reordered, Completed}

// Returnable are the statuses staff may send back to preparation.
var Returnable = []Status{Completed, Passed}

func (s Status) String() string {
	return string(s)
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

// Parse parses a stored or user supplied status.
func Parse(s string) (Status, error) {
	switch Status(s) {
	case New, InProgress, Completed, Passed, Reordered:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Display folds reordered into new; both render and merge identically.
func (s Status) Display() Status {
	if s == Reordered {
		return New
	}

	return s
}

// IsActive reports whether the item still waits for the kitchen.
func (s Status) IsActive() bool {
	return In(s, Active)
}

// IsPreserved reports whether the status is kitchen progress an upstream sync must not overwrite.
func (s Status) IsPreserved() bool {
	return s == Completed || s == Passed
}

// In reports whether s is one of set.
func In(s Status, set []Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}

	return false
}

// Strings converts statuses to their string form for query arguments.
func Strings(set []Status) []string {
	out := make([]string, len(set))
	for i, s := range set {
		out[i] = s.String()
	}

	return out
}

// Resolve picks the status an item is stored with after an upstream sync.
// Local completed or passed always wins. Otherwise the upstream status is adopted,
// unknown or empty upstream values fall back to new.
func Resolve(local *Status, upstream string) Status {
	if local != nil && local.IsPreserved() {
		return *local
	}

	parsed, err := Parse(strings.ToLower(strings.TrimSpace(upstream)))
	if err != nil {
		return New
	}

	return parsed
}

var transitions = map[Status][]Status{
	New:        {InProgress, Completed, Passed},
	Reordered:  {InProgress, Completed, Passed},
	InProgress: {Completed, Passed},
	Completed:  {Passed, InProgress},
	Passed:     {InProgress, Reordered},
}

// CanTransition checks the kitchen workflow graph. Writes themselves are
// unconditional; the graph decides which actions a board offers.
func CanTransition(from, to Status) error {
	if from == to {
		return nil
	}
	if In(to, transitions[from]) {
		return nil
	}

	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Next returns the statuses reachable from s.
func Next(s Status) []Status {
	return append([]Status(nil), transitions[s]...)
}

package product

import (
	"strings"
	"time"
)

// Product is a POS catalogue entry.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	LastUpdated time.Time `json:"last_updated"`
}

// IDSet is a set of product identifiers.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids, dropping blanks and duplicates.
func NewIDSet(ids ...string) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}

	return set
}

// Contains reports whether productID is in the set. A nil or empty id never matches.
func (s IDSet) Contains(productID *string) bool {
	if productID == nil || *productID == "" {
		return false
	}
	_, ok := s[*productID]

	return ok
}

// Slice returns the ids in no particular order.
func (s IDSet) Slice() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}

	return out
}

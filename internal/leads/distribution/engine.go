// Package distribution assigns lead ownership across the active
// salesperson roster.
package distribution

import (
	"time"

	"leadcrm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// Draft is a pre-normalized lead waiting to be persisted.
type Draft struct {
	Name    string
	Email   string
	Phone   string
	Country string
	Product string
	Source  string
	Status  domain.Status
	// Date is the original creation date carried by an import row.
	Date *time.Time
}

// Assignment pairs a draft with its owner. Owner is nil when the roster
// was empty.
type Assignment struct {
	Draft Draft
	Owner *uuid.UUID
}

// Distribute assigns drafts round-robin: the i-th draft goes to
// roster[i mod len(roster)]. The result depends only on input order and the
// roster snapshot.
func Distribute(drafts []Draft, roster []uuid.UUID) []Assignment {
	out := make([]Assignment, len(drafts))
	for i, d := range drafts {
		out[i] = Assignment{Draft: d, Owner: OwnerAt(i, roster)}
	}
	return out
}

// OwnerAt returns the round-robin owner for position i, or nil for an
// empty roster.
func OwnerAt(i int, roster []uuid.UUID) *uuid.UUID {
	if len(roster) == 0 {
		return nil
	}
	owner := roster[i%len(roster)]
	return &owner
}

// Tally counts leads per owner. Unassigned leads are not counted.
func Tally(owners []*uuid.UUID) map[uuid.UUID]int {
	counts := make(map[uuid.UUID]int)
	for _, o := range owners {
		if o != nil {
			counts[*o]++
		}
	}
	return counts
}

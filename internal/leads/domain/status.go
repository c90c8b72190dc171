// Package domain provides core business rules for the leads bounded context.
package domain

import "strings"

// Status is the canonical lifecycle tag of a lead.
type Status string

const (
	StatusFresh     Status = "fresh"
	StatusFollowUp  Status = "follow-up"
	StatusRNR       Status = "rnr"
	StatusClosed    Status = "closed"
	StatusDead      Status = "dead"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
)

// registeredAlias is a legacy spelling of the won state. It is only accepted
// on input and never stored.
const registeredAlias = "registered"

// Statuses lists every canonical status in reporting order.
var Statuses = []Status{
	StatusFresh,
	StatusFollowUp,
	StatusRNR,
	StatusClosed,
	StatusDead,
	StatusCancelled,
	StatusRejected,
}

var statusLookup = func() map[string]Status {
	m := make(map[string]Status, len(Statuses)+4)
	for _, s := range Statuses {
		m[string(s)] = s
	}
	m[registeredAlias] = StatusClosed
	m["followup"] = StatusFollowUp
	m["follow_up"] = StatusFollowUp
	m["follow up"] = StatusFollowUp
	return m
}()

// ParseStatus normalizes a raw status string. The legacy "registered" value
// folds into StatusClosed.
func ParseStatus(raw string) (Status, bool) {
	s, ok := statusLookup[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

// ParseStatusOrFresh is the lenient variant used by the import pipeline.
func ParseStatusOrFresh(raw string) Status {
	if s, ok := ParseStatus(raw); ok {
		return s
	}
	return StatusFresh
}

// IsWon reports whether the status is the terminal won state.
func (s Status) IsWon() bool {
	return s == StatusClosed
}

// IsLost reports whether the status is one of the terminal lost states.
func (s Status) IsLost() bool {
	return s == StatusDead || s == StatusCancelled || s == StatusRejected
}

// IsStaleEligible reports whether a lead in this status counts as unworked.
func (s Status) IsStaleEligible() bool {
	return s == StatusFresh || s == StatusRNR
}

// IsPending reports whether the lead still needs attention from its owner.
func (s Status) IsPending() bool {
	return s == StatusFresh || s == StatusFollowUp
}

// Valid reports whether s is a canonical status.
func (s Status) Valid() bool {
	for _, candidate := range Statuses {
		if s == candidate {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

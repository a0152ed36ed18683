package domain

import "time"

// CorrelationRecord links a grouping key to the tickets tracking it in the
// two downstream stores. Created on the first correlated delivery of a key
// and mutated on every subsequent delivery or escalation. Concurrent writers
// race last-write-wins; the record expires when untouched for the retention
// window and a later delivery of the same key starts over as first-seen.
type CorrelationRecord struct {
	TaskID    string    `json:"task_id,omitempty"`   // secondary-store ticket
	IssueIID  int       `json:"issue_iid,omitempty"` // primary-store ticket
	Count     int       `json:"count"`
	FirstSeen time.Time `json:"first_seen"`
}

// Delivery is one audit-trail row describing a correlated delivery or an
// escalation and the ticket action it produced.
type Delivery struct {
	ID          string
	GroupingKey string
	Store       string
	Action      string
	TicketID    string
	Count       int
	OccurredAt  time.Time
}

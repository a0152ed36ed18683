package events

import (
	"time"

	"github.com/spec-kit/alert-bridge/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "ticket_created"
	EventTicketUpdated   EventType = "ticket_updated"
	EventTicketEscalated EventType = "ticket_escalated"
)

// Store identifies which downstream system a ticket action targeted.
const (
	StorePrimary   = "primary"
	StoreSecondary = "secondary"
)

// Event describes one ticket action taken for a correlated delivery. The
// audit subscriber persists these; losing one never fails the request that
// produced it.
type Event struct {
	Type        EventType          `json:"type"`
	GroupingKey domain.GroupingKey `json:"grouping_key"`
	Store       string             `json:"store"`
	TicketID    string             `json:"ticket_id"`
	Count       int                `json:"count"`
	Timestamp   time.Time          `json:"timestamp"`
}

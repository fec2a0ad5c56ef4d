package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists every status in lifecycle order.
func TicketStatuses() []TicketStatus {
	return []TicketStatus{TicketStatusPending, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed}
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusPending, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// Label is the human readable form used in notifications and reports.
func (s TicketStatus) Label() string {
	switch s {
	case TicketStatusPending:
		return "Pending"
	case TicketStatusInProgress:
		return "In Progress"
	case TicketStatusResolved:
		return "Resolved"
	case TicketStatusClosed:
		return "Closed"
	}
	return string(s)
}

// TicketNumberPrefix prefixes every human readable ticket identifier.
const TicketNumberPrefix = "TKT-"

// FormatTicketNumber derives the ticket number from the row's surrogate key.
func FormatTicketNumber(id int64) string {
	return fmt.Sprintf("%s%05d", TicketNumberPrefix, id)
}

// Ticket is the aggregate for helpdesk requests.
type Ticket struct {
	ID           int64
	TicketNumber string
	Title        string
	Description  string
	CategoryID   int64
	PriorityID   int64
	Building     string
	RoomName     string
	Status       TicketStatus
	OwnerID      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ArchivedAt   *time.Time

	// Resolved on reads, not persisted on the ticket row.
	Category *Category
	Priority *Priority
}

// Archived reports whether the ticket has been soft-deleted.
func (t *Ticket) Archived() bool {
	return t.ArchivedAt != nil
}

// OwnedBy reports whether userID filed the ticket.
func (t *Ticket) OwnedBy(userID int64) bool {
	return t.OwnerID == userID
}

// Field length limits for ticket input.
const (
	MaxTitleLength    = 200
	MaxLocationLength = 100
	MaxCommentLength  = 2000
)

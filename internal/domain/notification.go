package domain

import (
	"fmt"
	"time"
)

// NotificationType drives how clients style a notification.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// Notification events.
const (
	EventTicketCreated  = "ticket_created"
	EventCommentAdded   = "comment_added"
	EventTicketEscalate = "ticket_escalation"
	EventDailySummary   = "daily_summary"
	EventWeeklyReport   = "weekly_report"
)

// StatusEvent is the event tag recorded for a status change notification.
func StatusEvent(s TicketStatus) string {
	return "status_" + string(s)
}

// Notification is a persisted in-app message for one recipient.
type Notification struct {
	ID          int64
	RecipientID int64
	TicketID    *int64
	Event       string
	Type        NotificationType
	Title       string
	Message     string
	ActionURL   string
	Read        bool
	CreatedAt   time.Time
}

// Notice is the content of a notification before it is addressed and stored.
type Notice struct {
	TicketID  *int64
	Event     string
	Type      NotificationType
	Title     string
	Message   string
	ActionURL string
}

// TicketLink is the client route of a ticket.
func TicketLink(ticketID int64) string {
	return fmt.Sprintf("/tickets/%d", ticketID)
}

// StatusNotice renders the owner notification for a status change.
func StatusNotice(ticketID int64, title string, status TicketStatus) Notice {
	n := Notice{
		TicketID:  &ticketID,
		Event:     StatusEvent(status),
		Type:      NotificationInfo,
		ActionURL: TicketLink(ticketID),
	}
	switch status {
	case TicketStatusPending:
		n.Title, n.Message = "Ticket updated", "Your ticket status was set to Pending."
	case TicketStatusInProgress:
		n.Title, n.Message = "Ticket in progress", "Your ticket is now being worked on."
	case TicketStatusResolved:
		n.Title = "Ticket resolved"
		n.Message = fmt.Sprintf("Your ticket \"%s\" has been marked as resolved.", title)
		n.Type = NotificationSuccess
	case TicketStatusClosed:
		n.Title = "Ticket closed"
		n.Message = fmt.Sprintf("Your ticket \"%s\" has been closed.", title)
		n.Type = NotificationSuccess
	default:
		n.Title = "Status updated"
		n.Message = fmt.Sprintf("Your ticket status was changed to %s.", status)
	}
	return n
}

// CommentPreviewLength bounds the comment excerpt carried in notifications.
const CommentPreviewLength = 80

// CommentNotice renders the notification sent to the other side of a thread.
func CommentNotice(ticketID int64, title, message string) Notice {
	return Notice{
		TicketID:  &ticketID,
		Event:     EventCommentAdded,
		Type:      NotificationInfo,
		Title:     "New comment on your ticket",
		Message:   fmt.Sprintf("\"%s\": %s", title, Truncate(message, CommentPreviewLength)),
		ActionURL: TicketLink(ticketID),
	}
}

// NewTicketNotice renders the staff notification for a freshly filed ticket.
func NewTicketNotice(ticket *Ticket) Notice {
	id := ticket.ID
	return Notice{
		TicketID:  &id,
		Event:     EventTicketCreated,
		Type:      NotificationInfo,
		Title:     "New ticket submitted",
		Message:   fmt.Sprintf("%s: %s", ticket.TicketNumber, ticket.Title),
		ActionURL: TicketLink(ticket.ID),
	}
}

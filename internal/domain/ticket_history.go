package domain

import (
	"strings"
	"time"
)

// StatusHistory is an append-only record of an observed status transition.
type StatusHistory struct {
	ID        int64
	TicketID  int64
	OldStatus TicketStatus
	NewStatus TicketStatus
	ChangedBy int64
	ChangedAt time.Time
}

// HistoryAction classifies an entry in the activity feed.
type HistoryAction string

const (
	HistoryActionCreated   HistoryAction = "created"
	HistoryActionUpdated   HistoryAction = "updated"
	HistoryActionResolved  HistoryAction = "resolved"
	HistoryActionClosed    HistoryAction = "closed"
	HistoryActionReopened  HistoryAction = "reopened"
	HistoryActionCommented HistoryAction = "commented"
)

// ClassifyTransition derives the feed action for a status change.
func ClassifyTransition(oldStatus, newStatus TicketStatus) HistoryAction {
	switch {
	case newStatus == TicketStatusResolved:
		return HistoryActionResolved
	case newStatus == TicketStatusClosed:
		return HistoryActionClosed
	case newStatus == TicketStatusPending && (oldStatus == TicketStatusResolved || oldStatus == TicketStatusClosed):
		return HistoryActionReopened
	}
	return HistoryActionUpdated
}

// StatusTag is the feed form of a status, in_progress becomes in-progress.
func StatusTag(s TicketStatus) string {
	if s == TicketStatusInProgress {
		return "in-progress"
	}
	return string(s)
}

// PriorityTag collapses a priority name onto low, medium or high.
func PriorityTag(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "low":
		return "low"
	case "high", "urgent":
		return "high"
	}
	return "medium"
}

// HistoryEvent is one derived entry of the activity feed.
type HistoryEvent struct {
	ID           string
	TicketID     int64
	TicketNumber string
	Title        string
	Action       HistoryAction
	Description  string
	At           time.Time
	Status       string
	Priority     string
	Category     string
}

// Truncate shortens s to max runes and appends an ellipsis when it was cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

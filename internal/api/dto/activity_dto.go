package dto

import "time"

// HistoryEventResponse is one entry of the activity feed.
type HistoryEventResponse struct {
	ID           string    `json:"id"`
	TicketID     int64     `json:"ticket_id"`
	TicketNumber string    `json:"ticket_number"`
	Title        string    `json:"title"`
	Action       string    `json:"action"`
	Description  string    `json:"description"`
	Timestamp    time.Time `json:"timestamp"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority"`
	Category     string    `json:"category"`
}

// MarkNotificationRequest toggles the read flag. Read defaults to true.
type MarkNotificationRequest struct {
	Read *bool `json:"read"`
}

// UnreadCountResponse response.
type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

// MetricResponse compares a window with the one before it.
type MetricResponse struct {
	Current  int     `json:"current"`
	Previous int     `json:"previous"`
	Change   float64 `json:"change"`
	Trend    string  `json:"trend"`
}

// VolumePointResponse is one day of the creation histogram.
type VolumePointResponse struct {
	Date  string `json:"date"`
	Value int    `json:"value"`
}

// BreakdownResponse is a labelled count.
type BreakdownResponse struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DashboardResponse is the staff overview.
type DashboardResponse struct {
	GeneratedAt       time.Time             `json:"generated_at"`
	Total             MetricResponse        `json:"total"`
	Resolved          MetricResponse        `json:"resolved"`
	Pending           MetricResponse        `json:"pending"`
	Volume            []VolumePointResponse `json:"volume"`
	StatusBreakdown   []BreakdownResponse   `json:"status_breakdown"`
	CategoryBreakdown []BreakdownResponse   `json:"category_breakdown"`
	// Nil when no ticket created in the last week has a staff reply.
	AvgFirstResponseHours *float64 `json:"avg_first_response_hours"`
	RespondedTickets      int      `json:"responded_tickets"`
}

package domain

import "time"

// Category classifies tickets, e.g. Network or Printing.
type Category struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Priority is a ranked urgency level.
type Priority struct {
	ID        int64
	Name      string
	Level     int
	ColorCode string
}

// DefaultPriorityName is applied to tickets created without an explicit priority.
const DefaultPriorityName = "Medium"

// DefaultColorCode is used when a priority is created without a color.
const DefaultColorCode = "#6b7280"

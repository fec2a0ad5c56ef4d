package domain

import "time"

// Trend tags the direction of a metric against its previous window.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

// MetricComparison holds a count for the current window and the one before it.
type MetricComparison struct {
	Current  int
	Previous int
	Change   float64
}

// TrendOf reports the direction of a percent change.
func TrendOf(change float64) Trend {
	switch {
	case change > 0:
		return TrendUp
	case change < 0:
		return TrendDown
	}
	return TrendNeutral
}

// VolumePoint is the number of tickets created on one day.
type VolumePoint struct {
	Day   time.Time
	Value int
}

// Breakdown is a labelled count.
type Breakdown struct {
	Label string
	Count int
}

// DashboardStats is the staff overview of ticket activity.
type DashboardStats struct {
	GeneratedAt       time.Time
	Total             MetricComparison
	Resolved          MetricComparison
	Pending           MetricComparison
	Volume            []VolumePoint
	StatusBreakdown   []Breakdown
	CategoryBreakdown []Breakdown
	// AvgFirstResponse is nil when no ticket in the window has a staff comment.
	AvgFirstResponse *time.Duration
	RespondedTickets int
}

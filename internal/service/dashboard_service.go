package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

const (
	dashboardWindow   = 30 * 24 * time.Hour
	volumeDays        = 7
	responseWindow    = 7 * 24 * time.Hour
	uncategorizedName = "Uncategorized"
)

// DashboardCache holds a recently computed dashboard. Load returns nil on a miss.
type DashboardCache interface {
	Load(ctx context.Context) (*domain.DashboardStats, error)
	Store(ctx context.Context, stats *domain.DashboardStats) error
}

// DashboardService computes staff metrics over the active tickets.
type DashboardService struct {
	store  repository.Store
	cache  DashboardCache
	logger *zap.Logger
	now    func() time.Time
}

// NewDashboardService constructs the service. cache may be nil.
func NewDashboardService(store repository.Store, cache DashboardCache, logger *zap.Logger, now func() time.Time) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &DashboardService{store: store, cache: cache, logger: logger, now: now}
}

// Stats returns the dashboard for staff.
func (s *DashboardService) Stats(ctx context.Context, actor domain.Actor) (*domain.DashboardStats, error) {
	if err := requireStaff(actor, "view the dashboard"); err != nil {
		return nil, err
	}
	if s.cache != nil {
		cached, err := s.cache.Load(ctx)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	tickets, err := s.store.Tickets().List(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, err
	}
	now := s.now()
	var recent []int64
	for i := range tickets {
		if !tickets[i].CreatedAt.Before(now.Add(-responseWindow)) {
			recent = append(recent, tickets[i].ID)
		}
	}
	var comments []domain.Comment
	if len(recent) > 0 {
		if comments, err = s.store.Comments().ListByTickets(ctx, recent); err != nil {
			return nil, err
		}
	}

	stats := ComputeDashboard(now, tickets, comments)
	if s.cache != nil {
		if err := s.cache.Store(ctx, stats); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// ComputeDashboard derives the dashboard at now from active tickets and their comments.
func ComputeDashboard(now time.Time, tickets []domain.Ticket, comments []domain.Comment) *domain.DashboardStats {
	currentFrom := now.Add(-dashboardWindow)
	previousFrom := now.Add(-2 * dashboardWindow)
	inCurrent := func(t time.Time) bool { return !t.Before(currentFrom) && !t.After(now) }
	inPrevious := func(t time.Time) bool { return !t.Before(previousFrom) && t.Before(currentFrom) }

	stats := &domain.DashboardStats{GeneratedAt: now}
	statusCounts := make(map[domain.TicketStatus]int)
	categoryCounts := make(map[string]int)

	for i := range tickets {
		t := &tickets[i]
		statusCounts[t.Status]++
		name := uncategorizedName
		if t.Category != nil && t.Category.Name != "" {
			name = t.Category.Name
		}
		categoryCounts[name]++

		switch {
		case inCurrent(t.CreatedAt):
			stats.Total.Current++
			if t.Status == domain.TicketStatusPending {
				stats.Pending.Current++
			}
		case inPrevious(t.CreatedAt):
			stats.Total.Previous++
			if t.Status == domain.TicketStatusPending {
				stats.Pending.Previous++
			}
		}
		if t.Status == domain.TicketStatusResolved || t.Status == domain.TicketStatusClosed {
			switch {
			case inCurrent(t.UpdatedAt):
				stats.Resolved.Current++
			case inPrevious(t.UpdatedAt):
				stats.Resolved.Previous++
			}
		}
	}
	stats.Total.Change = PercentChange(stats.Total.Current, stats.Total.Previous)
	stats.Resolved.Change = PercentChange(stats.Resolved.Current, stats.Resolved.Previous)
	stats.Pending.Change = PercentChange(stats.Pending.Current, stats.Pending.Previous)

	stats.Volume = dailyVolume(now, tickets)

	for _, status := range domain.TicketStatuses() {
		stats.StatusBreakdown = append(stats.StatusBreakdown, domain.Breakdown{Label: status.Label(), Count: statusCounts[status]})
	}
	for name, count := range categoryCounts {
		stats.CategoryBreakdown = append(stats.CategoryBreakdown, domain.Breakdown{Label: name, Count: count})
	}
	sort.Slice(stats.CategoryBreakdown, func(i, j int) bool {
		a, b := stats.CategoryBreakdown[i], stats.CategoryBreakdown[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Label < b.Label
	})

	stats.AvgFirstResponse, stats.RespondedTickets = averageFirstResponse(now, tickets, comments)
	return stats
}

// PercentChange is (current-previous)/previous*100, and 0 when previous is 0.
func PercentChange(current, previous int) float64 {
	if previous == 0 {
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}

func dailyVolume(now time.Time, tickets []domain.Ticket) []domain.VolumePoint {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	first := today.AddDate(0, 0, -(volumeDays - 1))
	points := make([]domain.VolumePoint, volumeDays)
	for i := range points {
		points[i].Day = first.AddDate(0, 0, i)
	}
	for i := range tickets {
		created := tickets[i].CreatedAt.In(loc)
		day := time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, loc)
		if day.Before(first) || day.After(today) {
			continue
		}
		for j := range points {
			if points[j].Day.Equal(day) {
				points[j].Value++
				break
			}
		}
	}
	return points
}

func averageFirstResponse(now time.Time, tickets []domain.Ticket, comments []domain.Comment) (*time.Duration, int) {
	firstStaff := make(map[int64]time.Time)
	for _, c := range comments {
		if !c.AuthorIsStaff {
			continue
		}
		if at, ok := firstStaff[c.TicketID]; !ok || c.CreatedAt.Before(at) {
			firstStaff[c.TicketID] = c.CreatedAt
		}
	}
	var (
		total     time.Duration
		responded int
	)
	for i := range tickets {
		t := &tickets[i]
		if t.CreatedAt.Before(now.Add(-responseWindow)) {
			continue
		}
		at, ok := firstStaff[t.ID]
		if !ok {
			continue
		}
		total += at.Sub(t.CreatedAt)
		responded++
	}
	if responded == 0 {
		return nil, 0
	}
	avg := total / time.Duration(responded)
	return &avg, responded
}

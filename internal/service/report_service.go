package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// ReportService runs the periodic staff reports. Reports only read tickets
// and append notifications.
type ReportService struct {
	store         repository.Store
	notifier      *NotificationService
	logger        *zap.Logger
	now           func() time.Time
	location      *time.Location
	escalateAfter time.Duration
}

// ReportDependencies bundles collaborators for the report service.
type ReportDependencies struct {
	Store         repository.Store
	Notifier      *NotificationService
	Logger        *zap.Logger
	Now           func() time.Time
	Location      *time.Location
	EscalateAfter time.Duration
}

// EscalationResult summarizes one escalation sweep.
type EscalationResult struct {
	StalePending int
	Notified     int
}

// DailySummary counts the activity of one calendar day.
type DailySummary struct {
	Created  int
	Resolved int
	Pending  int
	Notified int
}

// WeeklyReport counts the activity of the trailing seven days.
type WeeklyReport struct {
	Created  int
	Resolved int
	ByStatus []domain.Breakdown
	Notified int
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.EscalateAfter <= 0 {
		deps.EscalateAfter = 24 * time.Hour
	}
	return &ReportService{
		store:         deps.Store,
		notifier:      deps.Notifier,
		logger:        deps.Logger,
		now:           deps.Now,
		location:      deps.Location,
		escalateAfter: deps.EscalateAfter,
	}
}

// EscalationSweep finds tickets pending longer than the escalation threshold
// and alerts staff when there are any.
func (s *ReportService) EscalationSweep(ctx context.Context) (EscalationResult, error) {
	cutoff := s.now().Add(-s.escalateAfter)
	stale, err := s.store.Tickets().Count(ctx, repository.TicketFilter{
		Statuses:  []domain.TicketStatus{domain.TicketStatusPending},
		CreatedTo: &cutoff,
	})
	if err != nil {
		return EscalationResult{}, err
	}
	result := EscalationResult{StalePending: stale}
	if stale == 0 {
		return result, nil
	}
	hours := int(s.escalateAfter / time.Hour)
	notice := domain.Notice{
		Event:     domain.EventTicketEscalate,
		Type:      domain.NotificationWarning,
		Title:     "Tickets awaiting triage",
		Message:   fmt.Sprintf("%d ticket(s) have been pending for more than %d hours.", stale, hours),
		ActionURL: "/tickets?status=pending",
	}
	result.Notified, err = s.notifyStaff(ctx, notice)
	if err != nil {
		return result, err
	}
	s.logger.Info("escalation sweep", zap.Int("stale_pending", stale), zap.Int("notified", result.Notified))
	return result, nil
}

// DailySummary reports the calendar day of now in the configured location.
func (s *ReportService) DailySummary(ctx context.Context) (DailySummary, error) {
	now := s.now().In(s.location)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	dayEnd := dayStart.AddDate(0, 0, 1)

	tickets, err := s.store.Tickets().List(ctx, repository.TicketFilter{})
	if err != nil {
		return DailySummary{}, err
	}
	var summary DailySummary
	for i := range tickets {
		t := &tickets[i]
		if within(t.CreatedAt, dayStart, dayEnd) {
			summary.Created++
		}
		if t.Status == domain.TicketStatusResolved && within(t.UpdatedAt, dayStart, dayEnd) {
			summary.Resolved++
		}
		if t.Status == domain.TicketStatusPending {
			summary.Pending++
		}
	}
	message := fmt.Sprintf("Daily summary: %d created, %d resolved, %d pending.", summary.Created, summary.Resolved, summary.Pending)
	summary.Notified, err = s.notifyStaff(ctx, domain.Notice{
		Event:   domain.EventDailySummary,
		Type:    domain.NotificationInfo,
		Title:   "Daily ticket summary",
		Message: message,
	})
	if err != nil {
		return summary, err
	}
	s.logger.Info("daily summary", zap.String("message", message), zap.Int("notified", summary.Notified))
	return summary, nil
}

// WeeklyReport reports the seven days before now.
func (s *ReportService) WeeklyReport(ctx context.Context) (WeeklyReport, error) {
	now := s.now()
	weekStart := now.AddDate(0, 0, -7)
	tickets, err := s.store.Tickets().List(ctx, repository.TicketFilter{})
	if err != nil {
		return WeeklyReport{}, err
	}
	var (
		report WeeklyReport
		counts = make(map[domain.TicketStatus]int)
	)
	for i := range tickets {
		t := &tickets[i]
		if !t.CreatedAt.Before(weekStart) {
			report.Created++
			counts[t.Status]++
		}
		if t.Status == domain.TicketStatusResolved && !t.UpdatedAt.Before(weekStart) {
			report.Resolved++
		}
	}
	parts := make([]string, 0, len(counts))
	for _, status := range domain.TicketStatuses() {
		if counts[status] == 0 {
			continue
		}
		report.ByStatus = append(report.ByStatus, domain.Breakdown{Label: status.Label(), Count: counts[status]})
		parts = append(parts, fmt.Sprintf("%s %d", domain.StatusTag(status), counts[status]))
	}
	byStatus := "none"
	if len(parts) > 0 {
		byStatus = strings.Join(parts, ", ")
	}
	message := fmt.Sprintf("Weekly report: %d created, %d resolved. By status: %s", report.Created, report.Resolved, byStatus)
	report.Notified, err = s.notifyStaff(ctx, domain.Notice{
		Event:   domain.EventWeeklyReport,
		Type:    domain.NotificationInfo,
		Title:   "Weekly ticket report",
		Message: message,
	})
	if err != nil {
		return report, err
	}
	s.logger.Info("weekly report", zap.String("message", message), zap.Int("notified", report.Notified))
	return report, nil
}

func (s *ReportService) notifyStaff(ctx context.Context, notice domain.Notice) (int, error) {
	var sent int
	err := s.notifier.Mutate(ctx, func(tx repository.Store, b *Batch) error {
		var err error
		sent, err = s.notifier.NotifyStaff(ctx, tx, b, 0, notice)
		return err
	})
	return sent, err
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

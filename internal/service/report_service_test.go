package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestEscalationSweepNotifiesStaffAboutStalePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.reports.EscalationSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, EscalationResult{}, result)

	stale := f.createTicket(t, f.student, "Old")
	f.createTicket(t, f.other, "Old but moving")
	f.setStatus(t, 2, domain.TicketStatusInProgress)
	f.clock.Advance(25 * time.Hour)
	f.createTicket(t, f.student, "Fresh")

	result, err = f.reports.EscalationSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.StalePending)
	assert.Equal(t, 2, result.Notified)

	notes := f.store.notificationsFor(f.staff.UserID)
	last := notes[len(notes)-1]
	assert.Equal(t, domain.EventTicketEscalate, last.Event)
	assert.Equal(t, domain.NotificationWarning, last.Type)
	assert.Equal(t, "1 ticket(s) have been pending for more than 24 hours.", last.Message)

	// Reporting never changes tickets.
	assert.Equal(t, domain.TicketStatusPending, f.store.rawTicket(stale.ID).Status)
	assert.Empty(t, f.store.notificationsFor(f.student.UserID))
}

func TestDailySummaryCountsToday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	yesterday := f.createTicket(t, f.student, "Yesterday")
	f.clock.Advance(24 * time.Hour)
	f.createTicket(t, f.student, "Today pending")
	today := f.createTicket(t, f.other, "Today resolved")
	f.setStatus(t, today.ID, domain.TicketStatusResolved)
	f.setStatus(t, yesterday.ID, domain.TicketStatusClosed)

	summary, err := f.reports.DailySummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 1, summary.Resolved)
	assert.Equal(t, 1, summary.Pending)
	assert.Equal(t, 2, summary.Notified)

	notes := f.store.notificationsFor(f.staff2.UserID)
	last := notes[len(notes)-1]
	assert.Equal(t, domain.EventDailySummary, last.Event)
	assert.Equal(t, "Daily summary: 2 created, 1 resolved, 1 pending.", last.Message)
	assert.Nil(t, last.TicketID)
}

func TestWeeklyReportBreaksDownByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createTicket(t, f.student, "Too old")
	f.clock.Advance(8 * 24 * time.Hour)
	a := f.createTicket(t, f.student, "a")
	f.createTicket(t, f.student, "b")
	f.setStatus(t, a.ID, domain.TicketStatusResolved)

	report, err := f.reports.WeeklyReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.Resolved)
	assert.Equal(t, []domain.Breakdown{{Label: "Pending", Count: 1}, {Label: "Resolved", Count: 1}}, report.ByStatus)

	notes := f.store.notificationsFor(f.staff.UserID)
	assert.Equal(t, "Weekly report: 2 created, 1 resolved. By status: pending 1, resolved 1", notes[len(notes)-1].Message)
}

func TestEscalationSweepLogsOnce(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zapcore.InfoLevel)
	reports := NewReportService(ReportDependencies{
		Store:    f.store,
		Notifier: f.notifier,
		Logger:   zap.New(core),
		Now:      f.clock.Now,
	})

	f.createTicket(t, f.student, "Printer jam")
	f.clock.Advance(30 * time.Hour)

	_, err := reports.EscalationSweep(context.Background())
	require.NoError(t, err)
	entries := logs.FilterMessage("escalation sweep").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["stale_pending"])
}

package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/storage"
	"github.com/spec-kit/helpdesk/internal/upload"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n', 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

type fixture struct {
	store      *memStore
	dispatcher *recordingDispatcher
	mailer     *recordingMailer
	clock      *fakeClock
	blobs      *storage.LocalBlobStore

	notifier  *NotificationService
	tickets   *TicketService
	comments  *CommentService
	feedback  *FeedbackService
	history   *HistoryService
	reports   *ReportService
	reference *ReferenceService

	student, other, staff, staff2 domain.Actor

	network, printing domain.Category
	low, medium, high domain.Priority
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:      newMemStore(),
		dispatcher: &recordingDispatcher{},
		mailer:     &recordingMailer{},
		clock:      &fakeClock{now: time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)},
	}
	f.network, f.printing, f.low, f.medium, f.high = f.store.seedReference()
	f.student = f.store.addUser(1, "Ada", false)
	f.other = f.store.addUser(2, "Grace", false)
	f.staff = f.store.addUser(10, "Linus", true)
	f.staff2 = f.store.addUser(11, "Barbara", true)

	blobs, err := storage.NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)
	f.blobs = blobs

	logger := zap.NewNop()
	f.notifier = NewNotificationService(NotificationDependencies{
		Store:      f.store,
		Dispatcher: f.dispatcher,
		Mailer:     f.mailer,
		BaseURL:    "https://helpdesk.example",
		Logger:     logger,
		Now:        f.clock.Now,
	})
	deps := TicketDependencies{
		Store:       f.store,
		Notifier:    f.notifier,
		Attachments: NewAttachmentStager(upload.NewGuard(0), blobs, logger),
		Logger:      logger,
		Now:         f.clock.Now,
	}
	f.tickets = NewTicketService(deps)
	f.comments = NewCommentService(deps)
	f.feedback = NewFeedbackService(deps)
	f.history = NewHistoryService(f.store)
	f.reference = NewReferenceService(f.store)
	f.reports = NewReportService(ReportDependencies{
		Store:    f.store,
		Notifier: f.notifier,
		Logger:   logger,
		Now:      f.clock.Now,
	})
	return f
}

func (f *fixture) createTicket(t *testing.T, owner domain.Actor, title string) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.CreateTicket(context.Background(), owner, TicketCreateInput{
		Title:       title,
		Description: "Details for " + title,
		CategoryID:  f.network.ID,
		Building:    "Library",
		RoomName:    "L-204",
	})
	require.NoError(t, err)
	return ticket
}

func (f *fixture) setStatus(t *testing.T, ticketID int64, status domain.TicketStatus) {
	t.Helper()
	_, err := f.tickets.UpdateTicket(context.Background(), f.staff, ticketID, TicketUpdateInput{Status: &status})
	require.NoError(t, err)
}

func pngFile(extra int) *upload.File {
	body := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, extra)...)
	return &upload.File{Name: "screen.png", ContentType: "image/png", Reader: bytes.NewReader(body)}
}

func ptr[T any](v T) *T {
	return &v
}

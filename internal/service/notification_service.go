package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/mail"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// DefaultNotificationLimit caps notification listings.
const DefaultNotificationLimit = 50

// NotificationService records in-app notifications and pushes live events.
type NotificationService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	mailer     mail.Mailer
	baseURL    string
	logger     *zap.Logger
	now        func() time.Time
	seq        *sequencer
}

// NotificationDependencies bundles collaborators of the notification service.
type NotificationDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	// Mailer is optional; nil disables email copies.
	Mailer  mail.Mailer
	BaseURL string
	Logger  *zap.Logger
	Now     func() time.Time
}

// NewNotificationService constructs the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &NotificationService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		mailer:     deps.Mailer,
		baseURL:    deps.BaseURL,
		logger:     deps.Logger,
		now:        deps.Now,
		seq:        newSequencer(),
	}
}

// Notify stores a notification for recipientID in tx and queues its live push and email.
func (n *NotificationService) Notify(ctx context.Context, tx repository.Store, b *Batch, recipientID int64, notice domain.Notice) error {
	recipient, err := tx.Users().GetByID(ctx, recipientID)
	if err != nil {
		return err
	}
	return n.notifyUser(ctx, tx, b, recipient, notice)
}

// NotifyStaff notifies every staff member except exceptID.
func (n *NotificationService) NotifyStaff(ctx context.Context, tx repository.Store, b *Batch, exceptID int64, notice domain.Notice) (int, error) {
	staff, err := tx.Users().ListStaff(ctx)
	if err != nil {
		return 0, err
	}
	sent := 0
	for i := range staff {
		if staff[i].ID == exceptID {
			continue
		}
		if err := n.notifyUser(ctx, tx, b, &staff[i], notice); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func (n *NotificationService) notifyUser(ctx context.Context, tx repository.Store, b *Batch, recipient *domain.User, notice domain.Notice) error {
	record := &domain.Notification{
		RecipientID: recipient.ID,
		TicketID:    notice.TicketID,
		Event:       notice.Event,
		Type:        notice.Type,
		Title:       notice.Title,
		Message:     notice.Message,
		ActionURL:   notice.ActionURL,
		CreatedAt:   n.now(),
	}
	if err := tx.Notifications().Create(ctx, record); err != nil {
		return err
	}

	event := events.Event{
		Type:    events.EventNotification,
		Payload: SerializeNotification(record),
	}
	if record.TicketID != nil {
		event.TicketID = *record.TicketID
	}
	b.Broadcast(events.UserTopic(recipient.ID), event)

	if recipient.Email != "" && n.mailer != nil {
		b.mails = append(b.mails, n.renderMail(recipient, record))
	}
	return nil
}

func (n *NotificationService) renderMail(recipient *domain.User, record *domain.Notification) mail.Message {
	body := record.Message
	if record.ActionURL != "" {
		body += "\n\n" + n.baseURL + record.ActionURL
	}
	greeting := "Hello"
	if recipient.DisplayName != "" {
		greeting += " " + recipient.DisplayName
	}
	return mail.Message{
		To:        recipient.Email,
		Subject:   record.Title,
		PlainBody: greeting + ",\n\n" + body + "\n",
	}
}

// Flush publishes queued pushes in order, then sends queued mail. Failures are
// logged and never surface to the caller.
func (n *NotificationService) Flush(ctx context.Context, b *Batch) {
	defer b.release()

	for _, fn := range b.onCommit {
		fn(ctx)
	}
	for _, p := range b.pushes {
		event := p.event
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = n.now()
		}
		if n.dispatcher == nil {
			continue
		}
		if err := n.dispatcher.Publish(ctx, p.topic, event); err != nil {
			n.logger.Warn("live push failed",
				zap.String("topic", p.topic),
				zap.String("event_type", string(event.Type)),
				zap.Int64("ticket_id", event.TicketID),
				zap.Error(err))
		}
	}
	b.release()
	for _, msg := range b.mails {
		if err := n.mailer.Send(ctx, msg); err != nil {
			n.logger.Warn("notification mail failed", zap.String("subject", msg.Subject), zap.Error(err))
		}
	}
}

// List returns the recipient's most recent notifications.
func (n *NotificationService) List(ctx context.Context, recipientID int64, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > DefaultNotificationLimit {
		limit = DefaultNotificationLimit
	}
	return n.store.Notifications().ListByRecipient(ctx, recipientID, limit)
}

// UnreadCount returns how many notifications the recipient has not read.
func (n *NotificationService) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	return n.store.Notifications().CountUnread(ctx, recipientID)
}

// MarkRead sets the read flag of one of the recipient's notifications.
func (n *NotificationService) MarkRead(ctx context.Context, recipientID, id int64, read bool) (*domain.Notification, error) {
	var result *domain.Notification
	err := n.store.WithinTx(ctx, func(tx repository.Store) error {
		record, err := n.owned(ctx, tx, recipientID, id)
		if err != nil {
			return err
		}
		if err := tx.Notifications().SetRead(ctx, id, read); err != nil {
			return err
		}
		record.Read = read
		result = record
		return nil
	})
	return result, err
}

// MarkAllRead marks every unread notification of the recipient and returns how many changed.
func (n *NotificationService) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	return n.store.Notifications().MarkAllRead(ctx, recipientID)
}

// Delete removes one of the recipient's notifications.
func (n *NotificationService) Delete(ctx context.Context, recipientID, id int64) error {
	return n.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := n.owned(ctx, tx, recipientID, id); err != nil {
			return err
		}
		return tx.Notifications().Delete(ctx, id)
	})
}

func (n *NotificationService) owned(ctx context.Context, tx repository.Store, recipientID, id int64) (*domain.Notification, error) {
	record, err := tx.Notifications().GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && record.RecipientID != recipientID) {
		// Other users' notifications are indistinguishable from missing ones.
		return nil, errorutil.NewNotFound("notification", map[string]any{"id": id})
	}
	return record, err
}

// SerializeNotification renders a notification the way clients consume it.
func SerializeNotification(record *domain.Notification) events.NotificationPayload {
	payload := events.NotificationPayload{
		ID:        strconv.FormatInt(record.ID, 10),
		Type:      string(record.Type),
		Title:     record.Title,
		Message:   record.Message,
		Timestamp: record.CreatedAt.Format(time.RFC3339),
		Read:      record.Read,
	}
	if record.ActionURL != "" {
		url := record.ActionURL
		payload.ActionURL = &url
	}
	return payload
}

package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/upload"
	"github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const maxFeedbackComments = 2000

// FeedbackService handles the owner's rating of a resolved ticket.
type FeedbackService struct {
	store       repository.Store
	notifier    *NotificationService
	attachments *AttachmentStager
	logger      *zap.Logger
	now         func() time.Time
}

// NewFeedbackService constructs the service from the shared ticket dependencies.
func NewFeedbackService(deps TicketDependencies) *FeedbackService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &FeedbackService{
		store:       deps.Store,
		notifier:    deps.Notifier,
		attachments: deps.Attachments,
		logger:      deps.Logger,
		now:         deps.Now,
	}
}

// FeedbackInput is a feedback submission.
type FeedbackInput struct {
	Rating     int
	Comments   string
	Attachment *upload.File
}

// FeedbackUpdateInput changes a submitted feedback.
type FeedbackUpdateInput struct {
	Rating   *int
	Comments *string
}

// GetFeedback returns the feedback of a visible ticket.
func (s *FeedbackService) GetFeedback(ctx context.Context, actor domain.Actor, ticketRef string) (*domain.Feedback, error) {
	ticket, err := loadVisibleTicket(ctx, s.store, actor, ticketRef)
	if err != nil {
		return nil, err
	}
	feedback, err := s.store.Feedback().GetByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, notFoundAs(err, "feedback", ticket.ID)
	}
	if feedback.Attachments, err = s.store.Attachments().ListByParent(ctx, domain.AttachmentParentFeedback, feedback.ID); err != nil {
		return nil, err
	}
	return feedback, nil
}

// SubmitFeedback records the owner's rating and closes the ticket.
func (s *FeedbackService) SubmitFeedback(ctx context.Context, actor domain.Actor, ticketID int64, input FeedbackInput) (*domain.Feedback, error) {
	if !domain.ValidRating(input.Rating) {
		return nil, errorutil.NewValidationError("rating must be between 1 and 5", map[string]any{"field": "rating", "value": input.Rating})
	}
	if err := validateText("comments", input.Comments, false, maxFeedbackComments); err != nil {
		return nil, err
	}
	staged, err := s.attachments.Check(input.Attachment)
	if err != nil {
		return nil, err
	}

	var feedback *domain.Feedback
	err = s.notifier.Mutate(ctx, func(tx repository.Store, b *Batch) error {
		ticket, err := lockTicket(ctx, tx, b, actor, ticketID)
		if err != nil {
			return err
		}
		if !ticket.OwnedBy(actor.UserID) {
			return errorutil.NewForbidden("only the ticket owner may submit feedback")
		}
		if _, err := tx.Feedback().GetByTicket(ctx, ticket.ID); err == nil {
			return errorutil.NewInvalidState("feedback already submitted for this ticket", nil)
		} else if !errorutil.HasCode(notFoundAs(err, "feedback", ticket.ID), errorutil.CodeNotFound) {
			return err
		}
		if ticket.Status != domain.TicketStatusResolved {
			return errorutil.NewInvalidState("feedback can only be submitted for resolved tickets",
				map[string]any{"status": ticket.Status})
		}

		now := s.now()
		feedback = &domain.Feedback{
			TicketID:  ticket.ID,
			AuthorID:  actor.UserID,
			Rating:    input.Rating,
			Comments:  strings.TrimSpace(input.Comments),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Feedback().Create(ctx, feedback); err != nil {
			return err
		}
		att, err := s.attachments.Store(ctx, tx, b, domain.AttachmentParentFeedback, feedback.ID, actor.UserID, staged)
		if err != nil {
			return err
		}
		if att != nil {
			feedback.Attachments = []domain.Attachment{*att}
		}

		oldStatus := ticket.Status
		ticket.Status = domain.TicketStatusClosed
		ticket.UpdatedAt = now
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		if err := recordTransition(ctx, tx, b, s.notifier, actor, ticket, oldStatus, now); err != nil {
			return err
		}
		b.Broadcast(events.TopicFeedbackUpdates, events.Event{
			Type:     events.EventFeedbackUpdate,
			Action:   events.ActionSubmitted,
			TicketID: ticket.ID,
			ActorID:  actor.UserID,
			Message:  "Feedback was submitted",
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("feedback submitted", zap.Int64("ticket_id", ticketID), zap.Int("rating", feedback.Rating))
	return feedback, nil
}

// UpdateFeedback edits the actor's feedback within its edit window.
func (s *FeedbackService) UpdateFeedback(ctx context.Context, actor domain.Actor, ticketID, feedbackID int64, input FeedbackUpdateInput) (*domain.Feedback, error) {
	if input.Rating != nil && !domain.ValidRating(*input.Rating) {
		return nil, errorutil.NewValidationError("rating must be between 1 and 5", map[string]any{"field": "rating", "value": *input.Rating})
	}
	if input.Comments != nil {
		if err := validateText("comments", *input.Comments, false, maxFeedbackComments); err != nil {
			return nil, err
		}
	}
	var feedback *domain.Feedback
	err := s.notifier.Mutate(ctx, func(tx repository.Store, b *Batch) error {
		var err error
		feedback, err = s.editable(ctx, tx, b, actor, ticketID, feedbackID)
		if err != nil {
			return err
		}
		if input.Rating != nil {
			feedback.Rating = *input.Rating
		}
		if input.Comments != nil {
			feedback.Comments = strings.TrimSpace(*input.Comments)
		}
		feedback.UpdatedAt = s.now()
		if err := tx.Feedback().Update(ctx, feedback); err != nil {
			return err
		}
		b.Broadcast(events.TopicFeedbackUpdates, events.Event{
			Type:     events.EventFeedbackUpdate,
			Action:   events.ActionUpdated,
			TicketID: ticketID,
			ActorID:  actor.UserID,
			Message:  "Feedback was updated",
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return feedback, nil
}

// DeleteFeedback removes the actor's feedback within its edit window. The ticket stays closed.
func (s *FeedbackService) DeleteFeedback(ctx context.Context, actor domain.Actor, ticketID, feedbackID int64) error {
	return s.notifier.Mutate(ctx, func(tx repository.Store, b *Batch) error {
		feedback, err := s.editable(ctx, tx, b, actor, ticketID, feedbackID)
		if err != nil {
			return err
		}
		if err := s.attachments.Drop(ctx, tx, b, domain.AttachmentParentFeedback, feedback.ID); err != nil {
			return err
		}
		if err := tx.Feedback().Delete(ctx, feedback.ID); err != nil {
			return err
		}
		b.Broadcast(events.TopicFeedbackUpdates, events.Event{
			Type:     events.EventFeedbackUpdate,
			Action:   events.ActionDeleted,
			TicketID: ticketID,
			ActorID:  actor.UserID,
			Message:  "Feedback was deleted",
		})
		return nil
	})
}

func (s *FeedbackService) editable(ctx context.Context, tx repository.Store, b *Batch, actor domain.Actor, ticketID, feedbackID int64) (*domain.Feedback, error) {
	ticket, err := lockTicket(ctx, tx, b, actor, ticketID)
	if err != nil {
		return nil, err
	}
	feedback, err := tx.Feedback().GetByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, notFoundAs(err, "feedback", feedbackID)
	}
	if feedback.ID != feedbackID {
		return nil, errorutil.NewNotFound("feedback", map[string]any{"id": feedbackID})
	}
	if feedback.AuthorID != actor.UserID {
		return nil, errorutil.NewForbidden("only the author may change feedback")
	}
	if !feedback.Editable(s.now()) {
		return nil, errorutil.NewInvalidState("feedback can only be changed within 24 hours of submission",
			map[string]any{"created_at": feedback.CreatedAt})
	}
	return feedback, nil
}

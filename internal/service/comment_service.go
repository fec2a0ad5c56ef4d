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

// CommentService manages ticket threads.
type CommentService struct {
	store       repository.Store
	notifier    *NotificationService
	attachments *AttachmentStager
	logger      *zap.Logger
	now         func() time.Time
}

// NewCommentService constructs the service from the shared ticket dependencies.
func NewCommentService(deps TicketDependencies) *CommentService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &CommentService{
		store:       deps.Store,
		notifier:    deps.Notifier,
		attachments: deps.Attachments,
		logger:      deps.Logger,
		now:         deps.Now,
	}
}

// CommentInput is the body of a new comment.
type CommentInput struct {
	Message    string
	Attachment *upload.File
}

// ListComments returns the thread of a visible ticket, oldest first.
func (s *CommentService) ListComments(ctx context.Context, actor domain.Actor, ticketRef string) ([]domain.Comment, error) {
	ticket, err := loadVisibleTicket(ctx, s.store, actor, ticketRef)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.Comments().ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	for i := range comments {
		atts, err := s.store.Attachments().ListByParent(ctx, domain.AttachmentParentComment, comments[i].ID)
		if err != nil {
			return nil, err
		}
		comments[i].Attachments = atts
	}
	return comments, nil
}

// AddComment posts a comment and notifies the other side of the thread.
func (s *CommentService) AddComment(ctx context.Context, actor domain.Actor, ticketID int64, input CommentInput) (*domain.Comment, error) {
	if err := validateText("message", input.Message, true, domain.MaxCommentLength); err != nil {
		return nil, err
	}
	staged, err := s.attachments.Check(input.Attachment)
	if err != nil {
		return nil, err
	}

	var comment *domain.Comment
	err = s.notifier.Mutate(ctx, func(tx repository.Store, b *Batch) error {
		ticket, err := lockTicket(ctx, tx, b, actor, ticketID)
		if err != nil {
			return err
		}
		if ticket.Status == domain.TicketStatusClosed {
			return errorutil.NewInvalidState("cannot comment on a closed ticket",
				map[string]any{"status": ticket.Status})
		}

		now := s.now()
		comment = &domain.Comment{
			TicketID:      ticket.ID,
			AuthorID:      actor.UserID,
			AuthorIsStaff: actor.IsStaff(),
			Message:       strings.TrimSpace(input.Message),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.Comments().Create(ctx, comment); err != nil {
			return err
		}
		att, err := s.attachments.Store(ctx, tx, b, domain.AttachmentParentComment, comment.ID, actor.UserID, staged)
		if err != nil {
			return err
		}
		if att != nil {
			comment.Attachments = []domain.Attachment{*att}
		}

		notice := domain.CommentNotice(ticket.ID, ticket.Title, comment.Message)
		if ticket.OwnedBy(actor.UserID) {
			if _, err := s.notifier.NotifyStaff(ctx, tx, b, actor.UserID, notice); err != nil {
				return err
			}
		} else if err := s.notifier.Notify(ctx, tx, b, ticket.OwnerID, notice); err != nil {
			return err
		}

		b.Broadcast(events.TopicCommentUpdates, events.Event{
			Type:     events.EventCommentUpdate,
			Action:   events.ActionCommented,
			TicketID: ticket.ID,
			ActorID:  actor.UserID,
			Message:  "A comment was added",
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("comment added", zap.Int64("ticket_id", ticketID), zap.Int64("comment_id", comment.ID))
	return comment, nil
}

// EditComment rewrites the message of the actor's own comment.
func (s *CommentService) EditComment(ctx context.Context, actor domain.Actor, ticketID, commentID int64, message string) (*domain.Comment, error) {
	if err := validateText("message", message, true, domain.MaxCommentLength); err != nil {
		return nil, err
	}
	var comment *domain.Comment
	err := s.notifier.Mutate(ctx, func(tx repository.Store, b *Batch) error {
		var err error
		comment, err = s.ownComment(ctx, tx, b, actor, ticketID, commentID)
		if err != nil {
			return err
		}
		comment.Message = strings.TrimSpace(message)
		comment.UpdatedAt = s.now()
		if err := tx.Comments().Update(ctx, comment); err != nil {
			return err
		}
		b.Broadcast(events.TopicCommentUpdates, events.Event{
			Type:     events.EventCommentUpdate,
			Action:   events.ActionEdited,
			TicketID: ticketID,
			ActorID:  actor.UserID,
			Message:  "A comment was edited",
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment removes the actor's own comment and its attachments.
func (s *CommentService) DeleteComment(ctx context.Context, actor domain.Actor, ticketID, commentID int64) error {
	return s.notifier.Mutate(ctx, func(tx repository.Store, b *Batch) error {
		comment, err := s.ownComment(ctx, tx, b, actor, ticketID, commentID)
		if err != nil {
			return err
		}
		if err := s.attachments.Drop(ctx, tx, b, domain.AttachmentParentComment, comment.ID); err != nil {
			return err
		}
		if err := tx.Comments().Delete(ctx, comment.ID); err != nil {
			return err
		}
		b.Broadcast(events.TopicCommentUpdates, events.Event{
			Type:     events.EventCommentUpdate,
			Action:   events.ActionDeleted,
			TicketID: ticketID,
			ActorID:  actor.UserID,
			Message:  "A comment was deleted",
		})
		return nil
	})
}

func (s *CommentService) ownComment(ctx context.Context, tx repository.Store, b *Batch, actor domain.Actor, ticketID, commentID int64) (*domain.Comment, error) {
	if _, err := lockTicket(ctx, tx, b, actor, ticketID); err != nil {
		return nil, err
	}
	comment, err := tx.Comments().GetByID(ctx, commentID)
	if err != nil {
		return nil, notFoundAs(err, "comment", commentID)
	}
	if comment.TicketID != ticketID {
		return nil, errorutil.NewNotFound("comment", map[string]any{"id": commentID})
	}
	if comment.AuthorID != actor.UserID {
		return nil, errorutil.NewForbidden("only the author may change a comment")
	}
	return comment, nil
}

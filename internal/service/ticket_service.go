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

// TicketService coordinates the ticket lifecycle.
type TicketService struct {
	store       repository.Store
	notifier    *NotificationService
	attachments *AttachmentStager
	logger      *zap.Logger
	now         func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store       repository.Store
	Notifier    *NotificationService
	Attachments *AttachmentStager
	Logger      *zap.Logger
	Now         func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	CategoryID  int64
	// PriorityID defaults to the Medium priority when nil.
	PriorityID *int64
	Building   string
	RoomName   string
	Attachment *upload.File
}

// TicketUpdateInput carries a partial update. Owners may set the descriptive
// fields while the ticket is pending; staff may set Status and PriorityID.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	CategoryID  *int64
	Building    *string
	RoomName    *string
	Attachment  *upload.File

	Status     *domain.TicketStatus
	PriorityID *int64
}

func (in TicketUpdateInput) touchesOwnerFields() bool {
	return in.Title != nil || in.Description != nil || in.CategoryID != nil ||
		in.Building != nil || in.RoomName != nil || in.Attachment != nil
}

func (in TicketUpdateInput) touchesStaffFields() bool {
	return in.Status != nil || in.PriorityID != nil
}

// TicketListFilter narrows listings.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	CategoryID *int64
	PriorityID *int64
	Search     *string
	Limit      int
	Offset     int
}

// TicketDetail is a ticket with everything hanging off it.
type TicketDetail struct {
	Ticket      *domain.Ticket
	Attachments []domain.Attachment
	Comments    []domain.Comment
	Feedback    *domain.Feedback
	History     []domain.StatusHistory
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &TicketService{
		store:       deps.Store,
		notifier:    deps.Notifier,
		attachments: deps.Attachments,
		logger:      deps.Logger,
		now:         deps.Now,
	}
}

// CreateTicket files a new pending ticket for the actor.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if err := validateText("title", input.Title, true, domain.MaxTitleLength); err != nil {
		return nil, err
	}
	if err := validateText("description", input.Description, true, 1<<16); err != nil {
		return nil, err
	}
	if err := validateText("building", input.Building, false, domain.MaxLocationLength); err != nil {
		return nil, err
	}
	if err := validateText("room_name", input.RoomName, false, domain.MaxLocationLength); err != nil {
		return nil, err
	}
	if input.CategoryID <= 0 {
		return nil, errorutil.NewValidationError("category is required", map[string]any{"field": "category"})
	}
	staged, err := s.attachments.Check(input.Attachment)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ticket := &domain.Ticket{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		CategoryID:  input.CategoryID,
		Building:    strings.TrimSpace(input.Building),
		RoomName:    strings.TrimSpace(input.RoomName),
		Status:      domain.TicketStatusPending,
		OwnerID:     actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.notifier.Mutate(ctx, func(tx repository.Store, b *Batch) error {
		category, err := resolveCategory(ctx, tx, input.CategoryID)
		if err != nil {
			return err
		}
		priority, err := resolvePriority(ctx, tx, input.PriorityID)
		if err != nil {
			return err
		}
		ticket.PriorityID = priority.ID

		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return err
		}
		ticket.Category, ticket.Priority = category, priority
		b.sequence(ticket.ID)

		if _, err := s.attachments.Store(ctx, tx, b, domain.AttachmentParentTicket, ticket.ID, actor.UserID, staged); err != nil {
			return err
		}
		if _, err := s.notifier.NotifyStaff(ctx, tx, b, actor.UserID, domain.NewTicketNotice(ticket)); err != nil {
			return err
		}
		b.Broadcast(events.TopicTicketUpdates, events.Event{
			Type:     events.EventTicketUpdate,
			Action:   events.ActionCreated,
			TicketID: ticket.ID,
			ActorID:  actor.UserID,
			Message:  "A ticket was created",
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("ticket created",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("ticket_number", ticket.TicketNumber),
		zap.Int64("owner_id", ticket.OwnerID))
	return ticket, nil
}

// GetTicket returns a ticket by numeric id or ticket number.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, ref string) (*TicketDetail, error) {
	ticket, err := loadVisibleTicket(ctx, s.store, actor, ref)
	if err != nil {
		return nil, err
	}
	detail := &TicketDetail{Ticket: ticket}
	if detail.Attachments, err = s.store.Attachments().ListByParent(ctx, domain.AttachmentParentTicket, ticket.ID); err != nil {
		return nil, err
	}
	if detail.Comments, err = s.store.Comments().ListByTicket(ctx, ticket.ID); err != nil {
		return nil, err
	}
	for i := range detail.Comments {
		atts, err := s.store.Attachments().ListByParent(ctx, domain.AttachmentParentComment, detail.Comments[i].ID)
		if err != nil {
			return nil, err
		}
		detail.Comments[i].Attachments = atts
	}
	feedback, err := s.store.Feedback().GetByTicket(ctx, ticket.ID)
	switch {
	case err == nil:
		if feedback.Attachments, err = s.store.Attachments().ListByParent(ctx, domain.AttachmentParentFeedback, feedback.ID); err != nil {
			return nil, err
		}
		detail.Feedback = feedback
	case !errorutil.HasCode(notFoundAs(err, "feedback", ticket.ID), errorutil.CodeNotFound):
		return nil, err
	}
	if detail.History, err = s.store.History().ListByTicket(ctx, ticket.ID); err != nil {
		return nil, err
	}
	return detail, nil
}

// ListTickets lists the actor's own tickets, or every active ticket for staff.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.Ticket, int, error) {
	repoFilter := toRepoFilter(filter)
	if !actor.IsStaff() {
		owner := actor.UserID
		repoFilter.OwnerID = &owner
	}
	return s.list(ctx, repoFilter)
}

// CommunityTickets lists every active ticket for any signed-in user.
func (s *TicketService) CommunityTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, int, error) {
	return s.list(ctx, toRepoFilter(filter))
}

func (s *TicketService) list(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	tickets, err := s.store.Tickets().List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.Tickets().Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func toRepoFilter(filter TicketListFilter) repository.TicketFilter {
	return repository.TicketFilter{
		Statuses:   filter.Statuses,
		CategoryID: filter.CategoryID,
		PriorityID: filter.PriorityID,
		SearchTerm: filter.Search,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
}

// UpdateTicket applies an owner edit or a staff triage change.
func (s *TicketService) UpdateTicket(ctx context.Context, actor domain.Actor, ticketID int64, input TicketUpdateInput) (*domain.Ticket, error) {
	if err := validateUpdate(actor, input); err != nil {
		return nil, err
	}
	staged, err := s.attachments.Check(input.Attachment)
	if err != nil {
		return nil, err
	}

	var ticket *domain.Ticket
	err = s.notifier.Mutate(ctx, func(tx repository.Store, b *Batch) error {
		var err error
		ticket, err = lockTicket(ctx, tx, b, actor, ticketID)
		if err != nil {
			return err
		}
		if actor.IsStaff() {
			return s.applyStaffUpdate(ctx, tx, b, actor, ticket, input)
		}
		return s.applyOwnerUpdate(ctx, tx, b, actor, ticket, input, staged)
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func validateUpdate(actor domain.Actor, input TicketUpdateInput) error {
	if actor.IsStaff() {
		if input.touchesOwnerFields() {
			return errorutil.NewForbidden("staff may change only status and priority")
		}
		if input.Status != nil && !input.Status.Valid() {
			return errorutil.NewValidationError("unknown status", map[string]any{"field": "status", "value": *input.Status})
		}
		return nil
	}
	if input.Status != nil {
		return errorutil.NewForbidden("ticket owners change status only by submitting feedback")
	}
	if input.PriorityID != nil {
		return errorutil.NewForbidden("only staff may change priority")
	}
	if input.Title != nil {
		if err := validateText("title", *input.Title, true, domain.MaxTitleLength); err != nil {
			return err
		}
	}
	if input.Description != nil {
		if err := validateText("description", *input.Description, true, 1<<16); err != nil {
			return err
		}
	}
	if input.Building != nil {
		if err := validateText("building", *input.Building, false, domain.MaxLocationLength); err != nil {
			return err
		}
	}
	if input.RoomName != nil {
		if err := validateText("room_name", *input.RoomName, false, domain.MaxLocationLength); err != nil {
			return err
		}
	}
	return nil
}

func (s *TicketService) applyOwnerUpdate(ctx context.Context, tx repository.Store, b *Batch, actor domain.Actor, ticket *domain.Ticket, input TicketUpdateInput, staged *stagedFile) error {
	if !ticket.OwnedBy(actor.UserID) {
		return errorutil.NewForbidden("only the ticket owner may edit it")
	}
	if ticket.Status != domain.TicketStatusPending {
		return errorutil.NewInvalidState("ticket can only be edited while pending",
			map[string]any{"status": ticket.Status})
	}
	if input.CategoryID != nil {
		category, err := resolveCategory(ctx, tx, *input.CategoryID)
		if err != nil {
			return err
		}
		ticket.CategoryID, ticket.Category = category.ID, category
	}
	if input.Title != nil {
		ticket.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		ticket.Description = strings.TrimSpace(*input.Description)
	}
	if input.Building != nil {
		ticket.Building = strings.TrimSpace(*input.Building)
	}
	if input.RoomName != nil {
		ticket.RoomName = strings.TrimSpace(*input.RoomName)
	}
	ticket.UpdatedAt = s.now()
	if err := tx.Tickets().Update(ctx, ticket); err != nil {
		return err
	}
	if staged != nil {
		if err := s.attachments.Drop(ctx, tx, b, domain.AttachmentParentTicket, ticket.ID); err != nil {
			return err
		}
		if _, err := s.attachments.Store(ctx, tx, b, domain.AttachmentParentTicket, ticket.ID, actor.UserID, staged); err != nil {
			return err
		}
	}
	b.Broadcast(events.TopicTicketUpdates, events.Event{
		Type:     events.EventTicketUpdate,
		Action:   events.ActionUpdated,
		TicketID: ticket.ID,
		ActorID:  actor.UserID,
		Message:  "A ticket was updated",
	})
	return nil
}

func (s *TicketService) applyStaffUpdate(ctx context.Context, tx repository.Store, b *Batch, actor domain.Actor, ticket *domain.Ticket, input TicketUpdateInput) error {
	if input.PriorityID != nil {
		priority, err := resolvePriority(ctx, tx, input.PriorityID)
		if err != nil {
			return err
		}
		ticket.PriorityID, ticket.Priority = priority.ID, priority
	}
	oldStatus := ticket.Status
	if input.Status != nil {
		ticket.Status = *input.Status
	}
	ticket.UpdatedAt = s.now()
	if err := tx.Tickets().Update(ctx, ticket); err != nil {
		return err
	}
	if err := s.recordStatusChange(ctx, tx, b, actor, ticket, oldStatus); err != nil {
		return err
	}
	b.Broadcast(events.TopicTicketUpdates, events.Event{
		Type:     events.EventTicketUpdate,
		Action:   events.ActionUpdated,
		TicketID: ticket.ID,
		ActorID:  actor.UserID,
		Message:  "A ticket was updated",
	})
	return nil
}

// recordStatusChange appends history and notifies the owner when the status moved.
func (s *TicketService) recordStatusChange(ctx context.Context, tx repository.Store, b *Batch, actor domain.Actor, ticket *domain.Ticket, oldStatus domain.TicketStatus) error {
	return recordTransition(ctx, tx, b, s.notifier, actor, ticket, oldStatus, s.now())
}

func recordTransition(ctx context.Context, tx repository.Store, b *Batch, notifier *NotificationService, actor domain.Actor, ticket *domain.Ticket, oldStatus domain.TicketStatus, at time.Time) error {
	if oldStatus == ticket.Status {
		return nil
	}
	entry := &domain.StatusHistory{
		TicketID:  ticket.ID,
		OldStatus: oldStatus,
		NewStatus: ticket.Status,
		ChangedBy: actor.UserID,
		ChangedAt: at,
	}
	if err := tx.History().Append(ctx, entry); err != nil {
		return err
	}
	if !ticket.OwnedBy(actor.UserID) {
		if err := notifier.Notify(ctx, tx, b, ticket.OwnerID, domain.StatusNotice(ticket.ID, ticket.Title, ticket.Status)); err != nil {
			return err
		}
	}
	b.Broadcast(events.TopicTicketUpdates, events.Event{
		Type:     events.EventStatusUpdate,
		Action:   string(domain.ClassifyTransition(oldStatus, ticket.Status)),
		TicketID: ticket.ID,
		ActorID:  actor.UserID,
		Payload: events.StatusChangedPayload{
			OldStatus: domain.StatusTag(oldStatus),
			NewStatus: domain.StatusTag(ticket.Status),
		},
	})
	return nil
}

// ArchiveTicket soft-deletes a ticket.
func (s *TicketService) ArchiveTicket(ctx context.Context, actor domain.Actor, ticketID int64) error {
	return s.notifier.Mutate(ctx, func(tx repository.Store, b *Batch) error {
		ticket, err := lockTicket(ctx, tx, b, actor, ticketID)
		if err != nil {
			return err
		}
		if !actor.IsStaff() {
			if !ticket.OwnedBy(actor.UserID) {
				return errorutil.NewForbidden("only the ticket owner may delete it")
			}
			if ticket.Status != domain.TicketStatusPending {
				return errorutil.NewInvalidState("ticket can only be deleted while pending",
					map[string]any{"status": ticket.Status})
			}
		}
		now := s.now()
		ticket.ArchivedAt = &now
		ticket.UpdatedAt = now
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		b.Broadcast(events.TopicTicketUpdates, events.Event{
			Type:     events.EventTicketUpdate,
			Action:   events.ActionArchived,
			TicketID: ticket.ID,
			ActorID:  actor.UserID,
			Message:  "A ticket was deleted",
		})
		return nil
	})
}

func resolveCategory(ctx context.Context, tx repository.Store, id int64) (*domain.Category, error) {
	category, err := tx.Categories().GetByID(ctx, id)
	if err != nil {
		if errorutil.HasCode(notFoundAs(err, "category", id), errorutil.CodeNotFound) {
			return nil, errorutil.NewValidationError("unknown category", map[string]any{"field": "category", "value": id})
		}
		return nil, err
	}
	return category, nil
}

func resolvePriority(ctx context.Context, tx repository.Store, id *int64) (*domain.Priority, error) {
	var (
		priority *domain.Priority
		err      error
	)
	if id == nil {
		priority, err = tx.Priorities().GetByName(ctx, domain.DefaultPriorityName)
	} else {
		priority, err = tx.Priorities().GetByID(ctx, *id)
	}
	if err != nil {
		if errorutil.HasCode(notFoundAs(err, "priority", id), errorutil.CodeNotFound) {
			return nil, errorutil.NewValidationError("unknown priority", map[string]any{"field": "priority"})
		}
		return nil, err
	}
	return priority, nil
}

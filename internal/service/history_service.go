package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

const commentExcerptLength = 100

// HistoryService derives the activity feed.
type HistoryService struct {
	store repository.Store
}

// NewHistoryService constructs the service.
func NewHistoryService(store repository.Store) *HistoryService {
	return &HistoryService{store: store}
}

// Feed returns the activity of the tickets visible to actor, newest first.
// A non-empty ticketRef narrows the feed to that ticket.
func (s *HistoryService) Feed(ctx context.Context, actor domain.Actor, ticketRef string) ([]domain.HistoryEvent, error) {
	var tickets []domain.Ticket
	if ticketRef != "" {
		ticket, err := loadVisibleTicket(ctx, s.store, actor, ticketRef)
		if err != nil {
			return nil, err
		}
		tickets = []domain.Ticket{*ticket}
	} else {
		filter := repository.TicketFilter{}
		if !actor.IsStaff() {
			owner := actor.UserID
			filter.OwnerID = &owner
		}
		var err error
		if tickets, err = s.store.Tickets().List(ctx, filter); err != nil {
			return nil, err
		}
	}
	if len(tickets) == 0 {
		return []domain.HistoryEvent{}, nil
	}

	ids := make([]int64, len(tickets))
	for i := range tickets {
		ids[i] = tickets[i].ID
	}
	transitions, err := s.store.History().ListByTickets(ctx, ids)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.Comments().ListByTickets(ctx, ids)
	if err != nil {
		return nil, err
	}
	return BuildHistory(tickets, transitions, comments), nil
}

// BuildHistory merges ticket creations, status transitions and comments into
// one feed ordered by time descending. Rows whose ticket is absent are skipped.
func BuildHistory(tickets []domain.Ticket, transitions []domain.StatusHistory, comments []domain.Comment) []domain.HistoryEvent {
	byID := make(map[int64]*domain.Ticket, len(tickets))
	for i := range tickets {
		byID[tickets[i].ID] = &tickets[i]
	}
	feed := make([]domain.HistoryEvent, 0, len(tickets)+len(transitions)+len(comments))

	for i := range tickets {
		t := &tickets[i]
		ev := baseEvent(t, "created-"+strconv.FormatInt(t.ID, 10))
		ev.Action = domain.HistoryActionCreated
		ev.Description = "Ticket created"
		ev.At = t.CreatedAt
		ev.Status = domain.StatusTag(domain.TicketStatusPending)
		feed = append(feed, ev)
	}
	for _, h := range transitions {
		t, ok := byID[h.TicketID]
		if !ok {
			continue
		}
		ev := baseEvent(t, "status-"+strconv.FormatInt(h.ID, 10))
		ev.Action = domain.ClassifyTransition(h.OldStatus, h.NewStatus)
		ev.Description = fmt.Sprintf("Status changed from %s to %s", domain.StatusTag(h.OldStatus), domain.StatusTag(h.NewStatus))
		ev.At = h.ChangedAt
		ev.Status = domain.StatusTag(h.NewStatus)
		feed = append(feed, ev)
	}
	for _, c := range comments {
		t, ok := byID[c.TicketID]
		if !ok {
			continue
		}
		ev := baseEvent(t, "comment-"+strconv.FormatInt(c.ID, 10))
		ev.Action = domain.HistoryActionCommented
		ev.Description = "Comment: " + domain.Truncate(c.Message, commentExcerptLength)
		ev.At = c.CreatedAt
		ev.Status = domain.StatusTag(t.Status)
		feed = append(feed, ev)
	}

	sort.SliceStable(feed, func(i, j int) bool {
		if !feed[i].At.Equal(feed[j].At) {
			return feed[i].At.After(feed[j].At)
		}
		return feed[i].ID > feed[j].ID
	})
	return feed
}

func baseEvent(t *domain.Ticket, id string) domain.HistoryEvent {
	ev := domain.HistoryEvent{
		ID:           id,
		TicketID:     t.ID,
		TicketNumber: t.TicketNumber,
		Title:        t.Title,
		Priority:     domain.PriorityTag(""),
	}
	if t.Priority != nil {
		ev.Priority = domain.PriorityTag(t.Priority.Name)
	}
	if t.Category != nil {
		ev.Category = t.Category.Name
	}
	return ev
}

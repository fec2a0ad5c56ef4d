package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/mail"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// memData is the full state of the in-memory store.
type memData struct {
	seq           int64
	tickets       map[int64]domain.Ticket
	comments      map[int64]domain.Comment
	history       []domain.StatusHistory
	feedback      map[int64]domain.Feedback
	attachments   map[int64]domain.Attachment
	notifications map[int64]domain.Notification
	categories    map[int64]domain.Category
	priorities    map[int64]domain.Priority
	users         map[int64]domain.User
}

func newMemData() *memData {
	return &memData{
		tickets:       map[int64]domain.Ticket{},
		comments:      map[int64]domain.Comment{},
		feedback:      map[int64]domain.Feedback{},
		attachments:   map[int64]domain.Attachment{},
		notifications: map[int64]domain.Notification{},
		categories:    map[int64]domain.Category{},
		priorities:    map[int64]domain.Priority{},
		users:         map[int64]domain.User{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *memData) clone() *memData {
	return &memData{
		seq:           d.seq,
		tickets:       cloneMap(d.tickets),
		comments:      cloneMap(d.comments),
		history:       append([]domain.StatusHistory(nil), d.history...),
		feedback:      cloneMap(d.feedback),
		attachments:   cloneMap(d.attachments),
		notifications: cloneMap(d.notifications),
		categories:    cloneMap(d.categories),
		priorities:    cloneMap(d.priorities),
		users:         cloneMap(d.users),
	}
}

func (d *memData) next() int64 {
	d.seq++
	return d.seq
}

// memStore serializes transactions and rolls back by restoring a snapshot.
// Ticket ids come from their own counter so numbering matches a fresh database.
type memStore struct {
	txMu     *sync.Mutex
	mu       *sync.Mutex
	data     **memData
	ticketID *int64
	inTx     bool
}

func newMemStore() *memStore {
	data := newMemData()
	var ticketID int64
	return &memStore{txMu: &sync.Mutex{}, mu: &sync.Mutex{}, data: &data, ticketID: &ticketID}
}

func (s *memStore) view(fn func(d *memData)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(*s.data)
}

func (s *memStore) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	var snapshot *memData
	s.view(func(d *memData) { snapshot = d.clone() })
	tx := *s
	tx.inTx = true
	if err := fn(&tx); err != nil {
		// Like a database sequence, the ticket id counter is not rolled back.
		s.mu.Lock()
		*s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) Tickets() repository.TicketRepository             { return memTickets{s} }
func (s *memStore) Comments() repository.CommentRepository           { return memComments{s} }
func (s *memStore) History() repository.StatusHistoryRepository      { return memHistory{s} }
func (s *memStore) Feedback() repository.FeedbackRepository          { return memFeedback{s} }
func (s *memStore) Attachments() repository.AttachmentRepository     { return memAttachments{s} }
func (s *memStore) Notifications() repository.NotificationRepository { return memNotifications{s} }
func (s *memStore) Categories() repository.CategoryRepository        { return memCategories{s} }
func (s *memStore) Priorities() repository.PriorityRepository        { return memPriorities{s} }
func (s *memStore) Users() repository.UserRepository                 { return memUsers{s} }

// seedReference adds the default categories and priorities.
func (s *memStore) seedReference() (network, printing domain.Category, low, medium, high domain.Priority) {
	s.view(func(d *memData) {
		network = domain.Category{ID: d.next(), Name: "Network"}
		printing = domain.Category{ID: d.next(), Name: "Printing"}
		d.categories[network.ID] = network
		d.categories[printing.ID] = printing
		low = domain.Priority{ID: d.next(), Name: "Low", Level: 1, ColorCode: "#22c55e"}
		medium = domain.Priority{ID: d.next(), Name: "Medium", Level: 2, ColorCode: "#eab308"}
		high = domain.Priority{ID: d.next(), Name: "High", Level: 3, ColorCode: "#ef4444"}
		for _, p := range []domain.Priority{low, medium, high} {
			d.priorities[p.ID] = p
		}
	})
	return
}

func (s *memStore) addUser(id int64, name string, staff bool) domain.Actor {
	s.view(func(d *memData) {
		d.users[id] = domain.User{ID: id, Email: strings.ToLower(name) + "@uni.example", DisplayName: name, IsStaff: staff}
	})
	role := domain.RoleStudent
	if staff {
		role = domain.RoleStaff
	}
	return domain.Actor{UserID: id, Role: role}
}

func (s *memStore) historyRows(ticketID int64) []domain.StatusHistory {
	var out []domain.StatusHistory
	s.view(func(d *memData) {
		for _, h := range d.history {
			if h.TicketID == ticketID {
				out = append(out, h)
			}
		}
	})
	return out
}

func (s *memStore) notificationsFor(userID int64) []domain.Notification {
	var out []domain.Notification
	s.view(func(d *memData) {
		for _, n := range d.notifications {
			if n.RecipientID == userID {
				out = append(out, n)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) rawTicket(id int64) domain.Ticket {
	var t domain.Ticket
	s.view(func(d *memData) { t = d.tickets[id] })
	return t
}

type memTickets struct{ s *memStore }

func (r memTickets) hydrate(d *memData, t domain.Ticket) *domain.Ticket {
	if c, ok := d.categories[t.CategoryID]; ok {
		t.Category = &c
	}
	if p, ok := d.priorities[t.PriorityID]; ok {
		t.Priority = &p
	}
	return &t
}

func (r memTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.view(func(d *memData) {
		*r.s.ticketID++
		ticket.ID = *r.s.ticketID
		ticket.TicketNumber = domain.FormatTicketNumber(ticket.ID)
		ticket.UpdatedAt = ticket.CreatedAt
		stored := *ticket
		stored.Category, stored.Priority = nil, nil
		d.tickets[ticket.ID] = stored
	})
	return nil
}

func (r memTickets) Update(_ context.Context, ticket *domain.Ticket) error {
	var err error
	r.s.view(func(d *memData) {
		if _, ok := d.tickets[ticket.ID]; !ok {
			err = pgx.ErrNoRows
			return
		}
		stored := *ticket
		stored.Category, stored.Priority = nil, nil
		d.tickets[ticket.ID] = stored
	})
	return err
}

func (r memTickets) get(match func(domain.Ticket) bool) (*domain.Ticket, error) {
	var out *domain.Ticket
	r.s.view(func(d *memData) {
		for _, t := range d.tickets {
			if t.ArchivedAt == nil && match(t) {
				out = r.hydrate(d, t)
				return
			}
		}
	})
	if out == nil {
		return nil, pgx.ErrNoRows
	}
	return out, nil
}

func (r memTickets) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	return r.get(func(t domain.Ticket) bool { return t.ID == id })
}

func (r memTickets) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	return r.get(func(t domain.Ticket) bool { return t.TicketNumber == number })
}

func (r memTickets) GetForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r memTickets) filtered(filter repository.TicketFilter) []domain.Ticket {
	var out []domain.Ticket
	r.s.view(func(d *memData) {
		for _, t := range d.tickets {
			if t.ArchivedAt != nil {
				continue
			}
			if filter.OwnerID != nil && t.OwnerID != *filter.OwnerID {
				continue
			}
			if len(filter.Statuses) > 0 {
				found := false
				for _, st := range filter.Statuses {
					found = found || st == t.Status
				}
				if !found {
					continue
				}
			}
			if filter.CategoryID != nil && t.CategoryID != *filter.CategoryID {
				continue
			}
			if filter.PriorityID != nil && t.PriorityID != *filter.PriorityID {
				continue
			}
			if filter.CreatedFrom != nil && t.CreatedAt.Before(*filter.CreatedFrom) {
				continue
			}
			if filter.CreatedTo != nil && !t.CreatedAt.Before(*filter.CreatedTo) {
				continue
			}
			if filter.SearchTerm != nil {
				term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
				if !strings.Contains(strings.ToLower(t.Title), term) && !strings.Contains(strings.ToLower(t.TicketNumber), term) {
					continue
				}
			}
			out = append(out, *r.hydrate(d, t))
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r memTickets) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	out := r.filtered(filter)
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r memTickets) Count(_ context.Context, filter repository.TicketFilter) (int, error) {
	return len(r.filtered(filter)), nil
}

type memComments struct{ s *memStore }

func (r memComments) Create(_ context.Context, c *domain.Comment) error {
	r.s.view(func(d *memData) {
		c.ID = d.next()
		stored := *c
		stored.Attachments = nil
		d.comments[c.ID] = stored
	})
	return nil
}

func (r memComments) GetByID(_ context.Context, id int64) (*domain.Comment, error) {
	var (
		c  domain.Comment
		ok bool
	)
	r.s.view(func(d *memData) { c, ok = d.comments[id] })
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (r memComments) Update(_ context.Context, c *domain.Comment) error {
	var err error
	r.s.view(func(d *memData) {
		if _, ok := d.comments[c.ID]; !ok {
			err = pgx.ErrNoRows
			return
		}
		stored := *c
		stored.Attachments = nil
		d.comments[c.ID] = stored
	})
	return err
}

func (r memComments) Delete(_ context.Context, id int64) error {
	var err error
	r.s.view(func(d *memData) {
		if _, ok := d.comments[id]; !ok {
			err = pgx.ErrNoRows
			return
		}
		delete(d.comments, id)
	})
	return err
}

func (r memComments) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Comment, error) {
	return r.ListByTickets(ctx, []int64{ticketID})
}

func (r memComments) ListByTickets(_ context.Context, ids []int64) ([]domain.Comment, error) {
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.Comment
	r.s.view(func(d *memData) {
		for _, c := range d.comments {
			if want[c.TicketID] {
				out = append(out, c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type memHistory struct{ s *memStore }

func (r memHistory) Append(_ context.Context, h *domain.StatusHistory) error {
	if h.OldStatus == h.NewStatus {
		return errors.New("ticket_status_history_check violated")
	}
	r.s.view(func(d *memData) {
		h.ID = d.next()
		d.history = append(d.history, *h)
	})
	return nil
}

func (r memHistory) ListByTicket(ctx context.Context, ticketID int64) ([]domain.StatusHistory, error) {
	return r.ListByTickets(ctx, []int64{ticketID})
}

func (r memHistory) ListByTickets(_ context.Context, ids []int64) ([]domain.StatusHistory, error) {
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.StatusHistory
	r.s.view(func(d *memData) {
		for _, h := range d.history {
			if want[h.TicketID] {
				out = append(out, h)
			}
		}
	})
	return out, nil
}

type memFeedback struct{ s *memStore }

func (r memFeedback) Create(_ context.Context, f *domain.Feedback) error {
	var err error
	r.s.view(func(d *memData) {
		for _, existing := range d.feedback {
			if existing.TicketID == f.TicketID {
				err = errors.New("ticket_feedback_ticket_id_key violated")
				return
			}
		}
		f.ID = d.next()
		stored := *f
		stored.Attachments = nil
		d.feedback[f.ID] = stored
	})
	return err
}

func (r memFeedback) GetByTicket(_ context.Context, ticketID int64) (*domain.Feedback, error) {
	var out *domain.Feedback
	r.s.view(func(d *memData) {
		for _, f := range d.feedback {
			if f.TicketID == ticketID {
				f := f
				out = &f
				return
			}
		}
	})
	if out == nil {
		return nil, pgx.ErrNoRows
	}
	return out, nil
}

func (r memFeedback) Update(_ context.Context, f *domain.Feedback) error {
	var err error
	r.s.view(func(d *memData) {
		if _, ok := d.feedback[f.ID]; !ok {
			err = pgx.ErrNoRows
			return
		}
		stored := *f
		stored.Attachments = nil
		d.feedback[f.ID] = stored
	})
	return err
}

func (r memFeedback) Delete(_ context.Context, id int64) error {
	var err error
	r.s.view(func(d *memData) {
		if _, ok := d.feedback[id]; !ok {
			err = pgx.ErrNoRows
			return
		}
		delete(d.feedback, id)
	})
	return err
}

type memAttachments struct{ s *memStore }

func (r memAttachments) Create(_ context.Context, a *domain.Attachment) error {
	r.s.view(func(d *memData) {
		a.ID = d.next()
		a.CreatedAt = time.Now()
		d.attachments[a.ID] = *a
	})
	return nil
}

func (r memAttachments) ListByParent(_ context.Context, kind domain.AttachmentParent, parentID int64) ([]domain.Attachment, error) {
	var out []domain.Attachment
	r.s.view(func(d *memData) {
		for _, a := range d.attachments {
			if a.ParentKind == kind && a.ParentID == parentID {
				out = append(out, a)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memAttachments) DeleteByParent(ctx context.Context, kind domain.AttachmentParent, parentID int64) ([]domain.Attachment, error) {
	out, _ := r.ListByParent(ctx, kind, parentID)
	r.s.view(func(d *memData) {
		for _, a := range out {
			delete(d.attachments, a.ID)
		}
	})
	return out, nil
}

type memNotifications struct{ s *memStore }

func (r memNotifications) Create(_ context.Context, n *domain.Notification) error {
	r.s.view(func(d *memData) {
		n.ID = d.next()
		d.notifications[n.ID] = *n
	})
	return nil
}

func (r memNotifications) GetByID(_ context.Context, id int64) (*domain.Notification, error) {
	var (
		n  domain.Notification
		ok bool
	)
	r.s.view(func(d *memData) { n, ok = d.notifications[id] })
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &n, nil
}

func (r memNotifications) ListByRecipient(_ context.Context, recipientID int64, limit int) ([]domain.Notification, error) {
	out := r.s.notificationsFor(recipientID)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memNotifications) SetRead(_ context.Context, id int64, read bool) error {
	var err error
	r.s.view(func(d *memData) {
		n, ok := d.notifications[id]
		if !ok {
			err = pgx.ErrNoRows
			return
		}
		n.Read = read
		d.notifications[id] = n
	})
	return err
}

func (r memNotifications) MarkAllRead(_ context.Context, recipientID int64) (int64, error) {
	var changed int64
	r.s.view(func(d *memData) {
		for id, n := range d.notifications {
			if n.RecipientID == recipientID && !n.Read {
				n.Read = true
				d.notifications[id] = n
				changed++
			}
		}
	})
	return changed, nil
}

func (r memNotifications) Delete(_ context.Context, id int64) error {
	var err error
	r.s.view(func(d *memData) {
		if _, ok := d.notifications[id]; !ok {
			err = pgx.ErrNoRows
			return
		}
		delete(d.notifications, id)
	})
	return err
}

func (r memNotifications) CountUnread(_ context.Context, recipientID int64) (int, error) {
	count := 0
	for _, n := range r.s.notificationsFor(recipientID) {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

type memCategories struct{ s *memStore }

func (r memCategories) List(_ context.Context) ([]domain.Category, error) {
	var out []domain.Category
	r.s.view(func(d *memData) {
		for _, c := range d.categories {
			out = append(out, c)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memCategories) GetByID(_ context.Context, id int64) (*domain.Category, error) {
	var (
		c  domain.Category
		ok bool
	)
	r.s.view(func(d *memData) { c, ok = d.categories[id] })
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (r memCategories) Create(_ context.Context, c *domain.Category) error {
	r.s.view(func(d *memData) {
		c.ID = d.next()
		c.CreatedAt = time.Now()
		d.categories[c.ID] = *c
	})
	return nil
}

func (r memCategories) Delete(_ context.Context, id int64) error {
	r.s.view(func(d *memData) { delete(d.categories, id) })
	return nil
}

func (r memCategories) InUse(_ context.Context, id int64) (bool, error) {
	used := false
	r.s.view(func(d *memData) {
		for _, t := range d.tickets {
			used = used || t.CategoryID == id
		}
	})
	return used, nil
}

type memPriorities struct{ s *memStore }

func (r memPriorities) List(_ context.Context) ([]domain.Priority, error) {
	var out []domain.Priority
	r.s.view(func(d *memData) {
		for _, p := range d.priorities {
			out = append(out, p)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

func (r memPriorities) GetByID(_ context.Context, id int64) (*domain.Priority, error) {
	var (
		p  domain.Priority
		ok bool
	)
	r.s.view(func(d *memData) { p, ok = d.priorities[id] })
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (r memPriorities) GetByName(_ context.Context, name string) (*domain.Priority, error) {
	var out *domain.Priority
	r.s.view(func(d *memData) {
		for _, p := range d.priorities {
			if strings.EqualFold(p.Name, name) {
				p := p
				out = &p
				return
			}
		}
	})
	if out == nil {
		return nil, pgx.ErrNoRows
	}
	return out, nil
}

func (r memPriorities) Create(_ context.Context, p *domain.Priority) error {
	r.s.view(func(d *memData) {
		p.ID = d.next()
		d.priorities[p.ID] = *p
	})
	return nil
}

func (r memPriorities) Delete(_ context.Context, id int64) error {
	r.s.view(func(d *memData) { delete(d.priorities, id) })
	return nil
}

func (r memPriorities) InUse(_ context.Context, id int64) (bool, error) {
	used := false
	r.s.view(func(d *memData) {
		for _, t := range d.tickets {
			used = used || t.PriorityID == id
		}
	})
	return used, nil
}

type memUsers struct{ s *memStore }

func (r memUsers) Upsert(_ context.Context, u *domain.User) error {
	r.s.view(func(d *memData) { d.users[u.ID] = *u })
	return nil
}

func (r memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	var (
		u  domain.User
		ok bool
	)
	r.s.view(func(d *memData) { u, ok = d.users[id] })
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (r memUsers) ListStaff(_ context.Context) ([]domain.User, error) {
	var out []domain.User
	r.s.view(func(d *memData) {
		for _, u := range d.users {
			if u.IsStaff {
				out = append(out, u)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// recordingDispatcher captures every push in order.
type recordingDispatcher struct {
	mu     sync.Mutex
	pushes []recordedPush
	err    error
}

type recordedPush struct {
	Topic string
	Event events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, topic string, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushes = append(d.pushes, recordedPush{Topic: topic, Event: event})
	return d.err
}

func (d *recordingDispatcher) all() []recordedPush {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]recordedPush(nil), d.pushes...)
}

func (d *recordingDispatcher) onTopic(topic string) []events.Event {
	var out []events.Event
	for _, p := range d.all() {
		if p.Topic == topic {
			out = append(out, p.Event)
		}
	}
	return out
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// fakeClock is a settable clock safe for concurrent use.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store exposes every repository bound to the same connection or transaction.
type Store interface {
	Tickets() TicketRepository
	Comments() CommentRepository
	History() StatusHistoryRepository
	Feedback() FeedbackRepository
	Attachments() AttachmentRepository
	Notifications() NotificationRepository
	Categories() CategoryRepository
	Priorities() PriorityRepository
	Users() UserRepository

	// WithinTx runs fn in a transaction. fn receives a Store bound to it.
	// Calls nested inside fn reuse the outer transaction.
	WithinTx(ctx context.Context, fn func(Store) error) error
}

type pgStore struct {
	pool *pgxpool.Pool
	db   DBTX
	inTx bool
}

// NewStore constructs a Store backed by a pgx pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool, db: pool}
}

func (s *pgStore) Tickets() TicketRepository             { return &ticketRepository{db: s.db} }
func (s *pgStore) Comments() CommentRepository           { return &commentRepository{db: s.db} }
func (s *pgStore) History() StatusHistoryRepository      { return &statusHistoryRepository{db: s.db} }
func (s *pgStore) Feedback() FeedbackRepository          { return &feedbackRepository{db: s.db} }
func (s *pgStore) Attachments() AttachmentRepository     { return &attachmentRepository{db: s.db} }
func (s *pgStore) Notifications() NotificationRepository { return &notificationRepository{db: s.db} }
func (s *pgStore) Categories() CategoryRepository        { return &categoryRepository{db: s.db} }
func (s *pgStore) Priorities() PriorityRepository        { return &priorityRepository{db: s.db} }
func (s *pgStore) Users() UserRepository                 { return &userRepository{db: s.db} }

func (s *pgStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(&pgStore{pool: s.pool, db: tx, inTx: true})
	})
}

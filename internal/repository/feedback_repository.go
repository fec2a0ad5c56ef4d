package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// FeedbackRepository persists ticket feedback. A ticket has at most one.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *domain.Feedback) error
	GetByTicket(ctx context.Context, ticketID int64) (*domain.Feedback, error)
	Update(ctx context.Context, feedback *domain.Feedback) error
	Delete(ctx context.Context, id int64) error
}

type feedbackRepository struct {
	db DBTX
}

func (r *feedbackRepository) Create(ctx context.Context, feedback *domain.Feedback) error {
	const query = `
        INSERT INTO ticket_feedback (ticket_id, author_id, rating, comments, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$5)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		feedback.TicketID,
		feedback.AuthorID,
		feedback.Rating,
		feedback.Comments,
		feedback.CreatedAt,
	).Scan(&feedback.ID, &feedback.CreatedAt, &feedback.UpdatedAt)
}

func (r *feedbackRepository) GetByTicket(ctx context.Context, ticketID int64) (*domain.Feedback, error) {
	const query = `
        SELECT id, ticket_id, author_id, rating, comments, created_at, updated_at
        FROM ticket_feedback WHERE ticket_id=$1`
	var feedback domain.Feedback
	if err := r.db.QueryRow(ctx, query, ticketID).Scan(
		&feedback.ID,
		&feedback.TicketID,
		&feedback.AuthorID,
		&feedback.Rating,
		&feedback.Comments,
		&feedback.CreatedAt,
		&feedback.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &feedback, nil
}

func (r *feedbackRepository) Update(ctx context.Context, feedback *domain.Feedback) error {
	cmd, err := r.db.Exec(ctx, `UPDATE ticket_feedback SET rating=$1, comments=$2, updated_at=$3 WHERE id=$4`,
		feedback.Rating, feedback.Comments, feedback.UpdatedAt, feedback.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *feedbackRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM ticket_feedback WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

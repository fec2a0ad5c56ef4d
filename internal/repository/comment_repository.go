package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CommentRepository persists ticket thread comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id int64) (*domain.Comment, error)
	Update(ctx context.Context, comment *domain.Comment) error
	Delete(ctx context.Context, id int64) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Comment, error)
	// ListByTickets returns comments of every given ticket ordered by creation time.
	ListByTickets(ctx context.Context, ticketIDs []int64) ([]domain.Comment, error)
}

type commentRepository struct {
	db DBTX
}

const commentColumns = `id, ticket_id, author_id, author_is_staff, message, created_at, updated_at`

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO ticket_comments (ticket_id, author_id, author_is_staff, message, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$5)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		comment.TicketID,
		comment.AuthorID,
		comment.AuthorIsStaff,
		comment.Message,
		comment.CreatedAt,
	).Scan(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt)
}

func (r *commentRepository) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+commentColumns+` FROM ticket_comments WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	comments, err := collectComments(rows)
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &comments[0], nil
}

func (r *commentRepository) Update(ctx context.Context, comment *domain.Comment) error {
	cmd, err := r.db.Exec(ctx, `UPDATE ticket_comments SET message=$1, updated_at=$2 WHERE id=$3`,
		comment.Message, comment.UpdatedAt, comment.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM ticket_comments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Comment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+commentColumns+` FROM ticket_comments WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`, ticketID)
	if err != nil {
		return nil, err
	}
	return collectComments(rows)
}

func (r *commentRepository) ListByTickets(ctx context.Context, ticketIDs []int64) ([]domain.Comment, error) {
	if len(ticketIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+commentColumns+` FROM ticket_comments WHERE ticket_id = ANY($1) ORDER BY created_at ASC, id ASC`, ticketIDs)
	if err != nil {
		return nil, err
	}
	return collectComments(rows)
}

func collectComments(rows pgx.Rows) ([]domain.Comment, error) {
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.AuthorID,
			&comment.AuthorIsStaff,
			&comment.Message,
			&comment.CreatedAt,
			&comment.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}

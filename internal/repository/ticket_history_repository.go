package repository

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// StatusHistoryRepository stores the append-only status audit trail.
type StatusHistoryRepository interface {
	Append(ctx context.Context, entry *domain.StatusHistory) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.StatusHistory, error)
	ListByTickets(ctx context.Context, ticketIDs []int64) ([]domain.StatusHistory, error)
}

type statusHistoryRepository struct {
	db DBTX
}

func (r *statusHistoryRepository) Append(ctx context.Context, entry *domain.StatusHistory) error {
	const query = `
        INSERT INTO ticket_status_history (ticket_id, old_status, new_status, changed_by, changed_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, changed_at`
	return r.db.QueryRow(ctx, query,
		entry.TicketID,
		entry.OldStatus,
		entry.NewStatus,
		entry.ChangedBy,
		entry.ChangedAt,
	).Scan(&entry.ID, &entry.ChangedAt)
}

func (r *statusHistoryRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.StatusHistory, error) {
	return r.list(ctx, `WHERE ticket_id=$1`, ticketID)
}

func (r *statusHistoryRepository) ListByTickets(ctx context.Context, ticketIDs []int64) ([]domain.StatusHistory, error) {
	if len(ticketIDs) == 0 {
		return nil, nil
	}
	return r.list(ctx, `WHERE ticket_id = ANY($1)`, ticketIDs)
}

func (r *statusHistoryRepository) list(ctx context.Context, where string, arg any) ([]domain.StatusHistory, error) {
	query := `
        SELECT id, ticket_id, old_status, new_status, changed_by, changed_at
        FROM ticket_status_history ` + where + ` ORDER BY changed_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusHistory
	for rows.Next() {
		var entry domain.StatusHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.ChangedBy,
			&entry.ChangedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

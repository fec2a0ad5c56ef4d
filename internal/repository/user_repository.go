package repository

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// UserRepository maintains the local directory of identity provider users.
type UserRepository interface {
	// Upsert records the user's current profile, keyed by the identity provider id.
	Upsert(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ListStaff(ctx context.Context) ([]domain.User, error)
}

type userRepository struct {
	db DBTX
}

func (r *userRepository) Upsert(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, email, display_name, is_staff)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE SET
            email = EXCLUDED.email,
            display_name = EXCLUDED.display_name,
            is_staff = EXCLUDED.is_staff,
            updated_at = NOW()
        WHERE (users.email, users.display_name, users.is_staff)
            IS DISTINCT FROM (EXCLUDED.email, EXCLUDED.display_name, EXCLUDED.is_staff)`
	_, err := r.db.Exec(ctx, query, user.ID, user.Email, user.DisplayName, user.IsStaff)
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `SELECT id, email, display_name, is_staff, created_at, updated_at FROM users WHERE id=$1`
	var user domain.User
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.IsStaff,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ListStaff(ctx context.Context) ([]domain.User, error) {
	const query = `SELECT id, email, display_name, is_staff, created_at, updated_at FROM users WHERE is_staff ORDER BY id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.DisplayName,
			&user.IsStaff,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

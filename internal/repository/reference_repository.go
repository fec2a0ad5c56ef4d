package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CategoryRepository persists ticket categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]domain.Category, error)
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
	Create(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id int64) error
	// InUse reports whether any ticket, archived ones included, references the category.
	InUse(ctx context.Context, id int64) (bool, error)
}

// PriorityRepository persists priority levels.
type PriorityRepository interface {
	List(ctx context.Context) ([]domain.Priority, error)
	GetByID(ctx context.Context, id int64) (*domain.Priority, error)
	GetByName(ctx context.Context, name string) (*domain.Priority, error)
	Create(ctx context.Context, priority *domain.Priority) error
	Delete(ctx context.Context, id int64) error
	InUse(ctx context.Context, id int64) (bool, error)
}

type categoryRepository struct {
	db DBTX
}

func (r *categoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	if err := r.db.QueryRow(ctx, `SELECT id, name, created_at FROM categories WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	return r.db.QueryRow(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id, created_at`, category.Name).
		Scan(&category.ID, &category.CreatedAt)
}

func (r *categoryRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, `DELETE FROM categories WHERE id=$1`, id)
}

func (r *categoryRepository) InUse(ctx context.Context, id int64) (bool, error) {
	var used bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE category_id=$1)`, id).Scan(&used)
	return used, err
}

type priorityRepository struct {
	db DBTX
}

const priorityColumns = `id, name, level, color_code`

func (r *priorityRepository) List(ctx context.Context) ([]domain.Priority, error) {
	rows, err := r.db.Query(ctx, `SELECT `+priorityColumns+` FROM priorities ORDER BY level`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Priority
	for rows.Next() {
		var p domain.Priority
		if err := rows.Scan(&p.ID, &p.Name, &p.Level, &p.ColorCode); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *priorityRepository) GetByID(ctx context.Context, id int64) (*domain.Priority, error) {
	return r.get(ctx, `WHERE id=$1`, id)
}

func (r *priorityRepository) GetByName(ctx context.Context, name string) (*domain.Priority, error) {
	return r.get(ctx, `WHERE LOWER(name)=LOWER($1)`, name)
}

func (r *priorityRepository) get(ctx context.Context, where string, arg any) (*domain.Priority, error) {
	var p domain.Priority
	if err := r.db.QueryRow(ctx, `SELECT `+priorityColumns+` FROM priorities `+where, arg).
		Scan(&p.ID, &p.Name, &p.Level, &p.ColorCode); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *priorityRepository) Create(ctx context.Context, priority *domain.Priority) error {
	return r.db.QueryRow(ctx, `INSERT INTO priorities (name, level, color_code) VALUES ($1,$2,$3) RETURNING id`,
		priority.Name, priority.Level, priority.ColorCode).Scan(&priority.ID)
}

func (r *priorityRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, `DELETE FROM priorities WHERE id=$1`, id)
}

func (r *priorityRepository) InUse(ctx context.Context, id int64) (bool, error) {
	var used bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE priority_id=$1)`, id).Scan(&used)
	return used, err
}

func deleteByID(ctx context.Context, db DBTX, query string, id int64) error {
	cmd, err := db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

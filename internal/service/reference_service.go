package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const maxReferenceName = 50

var colorCodePattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ReferenceService manages categories and priorities.
type ReferenceService struct {
	store repository.Store
}

// NewReferenceService constructs the service.
func NewReferenceService(store repository.Store) *ReferenceService {
	return &ReferenceService{store: store}
}

// PriorityInput describes a new priority level.
type PriorityInput struct {
	Name      string
	Level     int
	ColorCode string
}

// ListCategories returns every category by name.
func (s *ReferenceService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.store.Categories().List(ctx)
}

// ListPriorities returns every priority by level.
func (s *ReferenceService) ListPriorities(ctx context.Context) ([]domain.Priority, error) {
	return s.store.Priorities().List(ctx)
}

// CreateCategory adds a category. Staff only.
func (s *ReferenceService) CreateCategory(ctx context.Context, actor domain.Actor, name string) (*domain.Category, error) {
	if err := requireStaff(actor, "manage categories"); err != nil {
		return nil, err
	}
	if err := validateText("name", name, true, maxReferenceName); err != nil {
		return nil, err
	}
	category := &domain.Category{Name: strings.TrimSpace(name)}
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Categories().List(ctx)
		if err != nil {
			return err
		}
		for _, c := range existing {
			if strings.EqualFold(c.Name, category.Name) {
				return errorutil.NewConflict("category already exists", map[string]any{"name": category.Name})
			}
		}
		return tx.Categories().Create(ctx, category)
	})
	if err != nil {
		return nil, uniqueAsConflict(err, "category")
	}
	return category, nil
}

// DeleteCategory removes a category no ticket references. Staff only.
func (s *ReferenceService) DeleteCategory(ctx context.Context, actor domain.Actor, id int64) error {
	if err := requireStaff(actor, "manage categories"); err != nil {
		return err
	}
	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Categories().GetByID(ctx, id); err != nil {
			return notFoundAs(err, "category", id)
		}
		used, err := tx.Categories().InUse(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return errorutil.NewConflict("category is referenced by tickets", map[string]any{"id": id})
		}
		return tx.Categories().Delete(ctx, id)
	})
}

// CreatePriority adds a priority level. Staff only.
func (s *ReferenceService) CreatePriority(ctx context.Context, actor domain.Actor, input PriorityInput) (*domain.Priority, error) {
	if err := requireStaff(actor, "manage priorities"); err != nil {
		return nil, err
	}
	if err := validateText("name", input.Name, true, maxReferenceName); err != nil {
		return nil, err
	}
	if input.Level < 0 {
		return nil, errorutil.NewValidationError("level must not be negative", map[string]any{"field": "level"})
	}
	priority := &domain.Priority{
		Name:      strings.TrimSpace(input.Name),
		Level:     input.Level,
		ColorCode: strings.TrimSpace(input.ColorCode),
	}
	if priority.ColorCode == "" {
		priority.ColorCode = domain.DefaultColorCode
	}
	if !colorCodePattern.MatchString(priority.ColorCode) {
		return nil, errorutil.NewValidationError("color code must look like #rrggbb", map[string]any{"field": "color_code"})
	}
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Priorities().GetByName(ctx, priority.Name); err == nil {
			return errorutil.NewConflict("priority already exists", map[string]any{"name": priority.Name})
		} else if !errorutil.HasCode(notFoundAs(err, "priority", priority.Name), errorutil.CodeNotFound) {
			return err
		}
		return tx.Priorities().Create(ctx, priority)
	})
	if err != nil {
		return nil, uniqueAsConflict(err, "priority")
	}
	return priority, nil
}

// DeletePriority removes a priority no ticket references. Staff only.
func (s *ReferenceService) DeletePriority(ctx context.Context, actor domain.Actor, id int64) error {
	if err := requireStaff(actor, "manage priorities"); err != nil {
		return err
	}
	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Priorities().GetByID(ctx, id); err != nil {
			return notFoundAs(err, "priority", id)
		}
		used, err := tx.Priorities().InUse(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return errorutil.NewConflict("priority is referenced by tickets", map[string]any{"id": id})
		}
		return tx.Priorities().Delete(ctx, id)
	})
}

func uniqueAsConflict(err error, resource string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return errorutil.NewConflict(resource+" already exists", nil)
	}
	return err
}

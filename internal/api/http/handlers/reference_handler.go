package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// ReferenceHandler serves categories and priorities.
type ReferenceHandler struct {
	service *service.ReferenceService
}

// NewReferenceHandler constructs handler.
func NewReferenceHandler(referenceService *service.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{service: referenceService}
}

// ListCategories GET /api/categories.
func (h *ReferenceHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.service.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for _, category := range categories {
		items = append(items, categoryResponse(category))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateCategory POST /api/categories.
func (h *ReferenceHandler) CreateCategory(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateCategoryRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	category, err := h.service.CreateCategory(c.UserContext(), actor, req.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": categoryResponse(*category)})
}

// DeleteCategory DELETE /api/categories/:id.
func (h *ReferenceHandler) DeleteCategory(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.DeleteCategory(c.UserContext(), actor, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListPriorities GET /api/priorities.
func (h *ReferenceHandler) ListPriorities(c *fiber.Ctx) error {
	priorities, err := h.service.ListPriorities(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.PriorityResponse, 0, len(priorities))
	for _, priority := range priorities {
		items = append(items, priorityResponse(priority))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreatePriority POST /api/priorities.
func (h *ReferenceHandler) CreatePriority(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreatePriorityRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	priority, err := h.service.CreatePriority(c.UserContext(), actor, service.PriorityInput{
		Name:      req.Name,
		Level:     req.Level,
		ColorCode: req.ColorCode,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": priorityResponse(*priority)})
}

// DeletePriority DELETE /api/priorities/:id.
func (h *ReferenceHandler) DeletePriority(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.DeletePriority(c.UserContext(), actor, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func categoryResponse(category domain.Category) dto.CategoryResponse {
	return dto.CategoryResponse{ID: category.ID, Name: category.Name}
}

func priorityResponse(priority domain.Priority) dto.PriorityResponse {
	return dto.PriorityResponse{
		ID:        priority.ID,
		Name:      priority.Name,
		Level:     priority.Level,
		ColorCode: priority.ColorCode,
	}
}

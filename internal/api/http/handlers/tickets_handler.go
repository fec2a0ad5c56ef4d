package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// MediaPrefix is the public route attachments are served under.
const MediaPrefix = "/media"

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	file, release, err := formAttachment(c)
	if err != nil {
		return err
	}
	defer release()

	ticket, err := h.service.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		PriorityID:  req.PriorityID,
		Building:    req.Building,
		RoomName:    req.RoomName,
		Attachment:  file,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /api/tickets. Students see their own tickets, staff see all.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	query, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, total, err := h.service.ListTickets(c.UserContext(), actor, listFilter(query))
	if err != nil {
		return err
	}
	return c.JSON(ticketPage(tickets, total, query))
}

// CommunityTickets GET /api/tickets/community.
func (h *TicketsHandler) CommunityTickets(c *fiber.Ctx) error {
	if _, err := currentActor(c); err != nil {
		return err
	}
	query, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, total, err := h.service.CommunityTickets(c.UserContext(), listFilter(query))
	if err != nil {
		return err
	}
	return c.JSON(ticketPage(tickets, total, query))
}

// GetTicket GET /api/tickets/:id, where id is the numeric id or the ticket number.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	detail, err := h.service.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(detail)})
}

// UpdateTicket PATCH /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	file, release, err := formAttachment(c)
	if err != nil {
		return err
	}
	defer release()

	ticket, err := h.service.UpdateTicket(c.UserContext(), actor, id, service.TicketUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Building:    req.Building,
		RoomName:    req.RoomName,
		Attachment:  file,
		Status:      req.Status,
		PriorityID:  req.PriorityID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ArchiveTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) ArchiveTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.ArchiveTicket(c.UserContext(), actor, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseTicketQuery(c *fiber.Ctx) (dto.TicketListQuery, error) {
	query := dto.TicketListQuery{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status := domain.TicketStatus(strings.TrimSpace(part))
			if !status.Valid() {
				return query, apperrors.NewValidationError("invalid status filter", map[string]any{"status": part})
			}
			query.Statuses = append(query.Statuses, status)
		}
	}
	var err error
	if query.CategoryID, err = parseOptionalID(c.Query("category")); err != nil {
		return query, err
	}
	if query.PriorityID, err = parseOptionalID(c.Query("priority")); err != nil {
		return query, err
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		query.Search = &search
	}
	query.Page, query.PageSize = page(c)
	return query, nil
}

func listFilter(query dto.TicketListQuery) service.TicketListFilter {
	return service.TicketListFilter{
		Statuses:   query.Statuses,
		CategoryID: query.CategoryID,
		PriorityID: query.PriorityID,
		Search:     query.Search,
		Limit:      query.PageSize,
		Offset:     (query.Page - 1) * query.PageSize,
	}
}

func ticketPage(tickets []domain.Ticket, total int, query dto.TicketListQuery) fiber.Map {
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return fiber.Map{
		"data": items,
		"meta": dto.ListMeta{Total: total, Page: query.Page, PageSize: query.PageSize},
	}
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	summary := dto.TicketSummary{
		ID:           ticket.ID,
		TicketNumber: ticket.TicketNumber,
		Title:        ticket.Title,
		Description:  ticket.Description,
		Status:       ticket.Status,
		StatusLabel:  ticket.Status.Label(),
		Building:     ticket.Building,
		RoomName:     ticket.RoomName,
		OwnerID:      ticket.OwnerID,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}
	if ticket.Category != nil {
		category := categoryResponse(*ticket.Category)
		summary.Category = &category
	}
	if ticket.Priority != nil {
		priority := priorityResponse(*ticket.Priority)
		summary.Priority = &priority
	}
	return summary
}

func ticketDetail(detail *service.TicketDetail) dto.TicketDetailResponse {
	comments := make([]dto.CommentResponse, 0, len(detail.Comments))
	for i := range detail.Comments {
		comments = append(comments, commentResponse(&detail.Comments[i]))
	}
	history := make([]dto.StatusHistoryResponse, 0, len(detail.History))
	for _, entry := range detail.History {
		history = append(history, dto.StatusHistoryResponse{
			ID:        entry.ID,
			OldStatus: entry.OldStatus,
			NewStatus: entry.NewStatus,
			ChangedBy: entry.ChangedBy,
			ChangedAt: entry.ChangedAt,
		})
	}
	resp := dto.TicketDetailResponse{
		TicketSummary: ticketSummary(detail.Ticket),
		Attachments:   attachmentResponses(detail.Attachments),
		Comments:      comments,
		History:       history,
	}
	if detail.Feedback != nil {
		feedback := feedbackResponse(detail.Feedback)
		resp.Feedback = &feedback
	}
	return resp
}

func attachmentResponses(atts []domain.Attachment) []dto.AttachmentResponse {
	resp := make([]dto.AttachmentResponse, 0, len(atts))
	for _, att := range atts {
		resp = append(resp, dto.AttachmentResponse{
			ID:         att.ID,
			FilePath:   att.FilePath,
			FileType:   att.FileType,
			SizeBytes:  att.SizeBytes,
			UploadedBy: att.UploadedBy,
			URL:        MediaPrefix + "/" + att.FilePath,
		})
	}
	return resp
}

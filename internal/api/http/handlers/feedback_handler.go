package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// FeedbackHandler serves ticket ratings.
type FeedbackHandler struct {
	service *service.FeedbackService
}

// NewFeedbackHandler constructs handler.
func NewFeedbackHandler(feedbackService *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{service: feedbackService}
}

// GetFeedback GET /api/tickets/:id/feedback.
func (h *FeedbackHandler) GetFeedback(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	feedback, err := h.service.GetFeedback(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": feedbackResponse(feedback)})
}

// SubmitFeedback POST /api/tickets/:id/feedback. Closes the resolved ticket.
func (h *FeedbackHandler) SubmitFeedback(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticketID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CreateFeedbackRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	file, release, err := formAttachment(c)
	if err != nil {
		return err
	}
	defer release()

	feedback, err := h.service.SubmitFeedback(c.UserContext(), actor, ticketID, service.FeedbackInput{
		Rating:     req.Rating,
		Comments:   req.Comments,
		Attachment: file,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": feedbackResponse(feedback)})
}

// UpdateFeedback PATCH /api/tickets/:id/feedback/:feedbackId.
func (h *FeedbackHandler) UpdateFeedback(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticketID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	feedbackID, err := paramID(c, "feedbackId")
	if err != nil {
		return err
	}
	var req dto.UpdateFeedbackRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	feedback, err := h.service.UpdateFeedback(c.UserContext(), actor, ticketID, feedbackID, service.FeedbackUpdateInput{
		Rating:   req.Rating,
		Comments: req.Comments,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": feedbackResponse(feedback)})
}

// DeleteFeedback DELETE /api/tickets/:id/feedback/:feedbackId.
func (h *FeedbackHandler) DeleteFeedback(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticketID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	feedbackID, err := paramID(c, "feedbackId")
	if err != nil {
		return err
	}
	if err := h.service.DeleteFeedback(c.UserContext(), actor, ticketID, feedbackID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func feedbackResponse(feedback *domain.Feedback) dto.FeedbackResponse {
	return dto.FeedbackResponse{
		ID:          feedback.ID,
		TicketID:    feedback.TicketID,
		AuthorID:    feedback.AuthorID,
		Rating:      feedback.Rating,
		Comments:    feedback.Comments,
		Editable:    feedback.Editable(time.Now()),
		Attachments: attachmentResponses(feedback.Attachments),
		CreatedAt:   feedback.CreatedAt,
		UpdatedAt:   feedback.UpdatedAt,
	}
}

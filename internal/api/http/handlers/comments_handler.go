package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// CommentsHandler serves ticket threads.
type CommentsHandler struct {
	service *service.CommentService
}

// NewCommentsHandler constructs handler.
func NewCommentsHandler(commentService *service.CommentService) *CommentsHandler {
	return &CommentsHandler{service: commentService}
}

// ListComments GET /api/tickets/:id/comments.
func (h *CommentsHandler) ListComments(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	comments, err := h.service.ListComments(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, commentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddComment POST /api/tickets/:id/comments.
func (h *CommentsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticketID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	file, release, err := formAttachment(c)
	if err != nil {
		return err
	}
	defer release()

	comment, err := h.service.AddComment(c.UserContext(), actor, ticketID, service.CommentInput{
		Message:    req.Message,
		Attachment: file,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// EditComment PATCH /api/tickets/:id/comments/:commentId.
func (h *CommentsHandler) EditComment(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticketID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	commentID, err := paramID(c, "commentId")
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	comment, err := h.service.EditComment(c.UserContext(), actor, ticketID, commentID, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": commentResponse(comment)})
}

// DeleteComment DELETE /api/tickets/:id/comments/:commentId.
func (h *CommentsHandler) DeleteComment(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticketID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	commentID, err := paramID(c, "commentId")
	if err != nil {
		return err
	}
	if err := h.service.DeleteComment(c.UserContext(), actor, ticketID, commentID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func commentResponse(comment *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:            comment.ID,
		TicketID:      comment.TicketID,
		AuthorID:      comment.AuthorID,
		AuthorIsStaff: comment.AuthorIsStaff,
		Message:       comment.Message,
		Attachments:   attachmentResponses(comment.Attachments),
		CreatedAt:     comment.CreatedAt,
		UpdatedAt:     comment.UpdatedAt,
	}
}

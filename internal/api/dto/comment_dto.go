package dto

import "time"

// CommentRequest payload for creating or editing a comment.
type CommentRequest struct {
	Message string `json:"message" form:"message" validate:"required,max=2000"`
}

// CommentResponse represents a thread message.
type CommentResponse struct {
	ID            int64                `json:"id"`
	TicketID      int64                `json:"ticket_id"`
	AuthorID      int64                `json:"author_id"`
	AuthorIsStaff bool                 `json:"author_is_staff"`
	Message       string               `json:"message"`
	Attachments   []AttachmentResponse `json:"attachments"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

package dto

import "time"

// CreateFeedbackRequest payload.
type CreateFeedbackRequest struct {
	Rating   int    `json:"rating" form:"rating" validate:"min=1,max=5"`
	Comments string `json:"comments" form:"comments"`
}

// UpdateFeedbackRequest payload; omitted fields are left untouched.
type UpdateFeedbackRequest struct {
	Rating   *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comments *string `json:"comments"`
}

// FeedbackResponse is the owner's rating of a ticket.
type FeedbackResponse struct {
	ID          int64                `json:"id"`
	TicketID    int64                `json:"ticket_id"`
	AuthorID    int64                `json:"author_id"`
	Rating      int                  `json:"rating"`
	Comments    string               `json:"comments"`
	Editable    bool                 `json:"editable"`
	Attachments []AttachmentResponse `json:"attachments"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

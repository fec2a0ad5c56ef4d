package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload. Accepted as JSON or multipart form; the optional
// attachment travels in the "attachment" form file.
type CreateTicketRequest struct {
	Title       string `json:"title" form:"title" validate:"required,max=200"`
	Description string `json:"description" form:"description" validate:"required"`
	CategoryID  int64  `json:"category_id" form:"category_id" validate:"required,gt=0"`
	PriorityID  *int64 `json:"priority_id" form:"priority_id" validate:"omitempty,gt=0"`
	Building    string `json:"building" form:"building" validate:"max=100"`
	RoomName    string `json:"room_name" form:"room_name" validate:"max=100"`
}

// UpdateTicketRequest carries a partial update. Owners send the descriptive
// fields, staff send status and priority.
type UpdateTicketRequest struct {
	Title       *string              `json:"title" form:"title"`
	Description *string              `json:"description" form:"description"`
	CategoryID  *int64               `json:"category_id" form:"category_id" validate:"omitempty,gt=0"`
	Building    *string              `json:"building" form:"building"`
	RoomName    *string              `json:"room_name" form:"room_name"`
	Status      *domain.TicketStatus `json:"status" form:"status" validate:"omitempty,oneof=pending in_progress resolved closed"`
	PriorityID  *int64               `json:"priority_id" form:"priority_id" validate:"omitempty,gt=0"`
}

// TicketListQuery captures query filters for list endpoints.
type TicketListQuery struct {
	Statuses   []domain.TicketStatus
	CategoryID *int64
	PriorityID *int64
	Search     *string
	Page       int
	PageSize   int
}

// ListMeta describes a page of results.
type ListMeta struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// TicketSummary response.
type TicketSummary struct {
	ID           int64               `json:"id"`
	TicketNumber string              `json:"ticket_number"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Status       domain.TicketStatus `json:"status"`
	StatusLabel  string              `json:"status_label"`
	Category     *CategoryResponse   `json:"category"`
	Priority     *PriorityResponse   `json:"priority"`
	Building     string              `json:"building"`
	RoomName     string              `json:"room_name"`
	OwnerID      int64               `json:"owner_id"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Attachments []AttachmentResponse    `json:"attachments"`
	Comments    []CommentResponse       `json:"comments"`
	Feedback    *FeedbackResponse       `json:"feedback"`
	History     []StatusHistoryResponse `json:"history"`
}

// StatusHistoryResponse is one recorded status transition.
type StatusHistoryResponse struct {
	ID        int64               `json:"id"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	ChangedBy int64               `json:"changed_by"`
	ChangedAt time.Time           `json:"changed_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID         int64  `json:"id"`
	FilePath   string `json:"file_path"`
	FileType   string `json:"file_type"`
	SizeBytes  int64  `json:"size_bytes"`
	UploadedBy int64  `json:"uploaded_by"`
	URL        string `json:"url,omitempty"`
}

package domain

import "time"

// Comment is a message posted on a ticket thread.
type Comment struct {
	ID            int64
	TicketID      int64
	AuthorID      int64
	AuthorIsStaff bool
	Message       string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Attachments []Attachment
}

// Feedback is the owner's rating of a resolved ticket. At most one exists per ticket.
type Feedback struct {
	ID        int64
	TicketID  int64
	AuthorID  int64
	Rating    int
	Comments  string
	CreatedAt time.Time
	UpdatedAt time.Time

	Attachments []Attachment
}

// FeedbackEditWindow bounds how long feedback stays editable after creation.
const FeedbackEditWindow = 24 * time.Hour

// Editable reports whether the feedback may still be changed at now.
func (f *Feedback) Editable(now time.Time) bool {
	return now.Sub(f.CreatedAt) <= FeedbackEditWindow
}

// ValidRating reports whether rating is within 1..5.
func ValidRating(rating int) bool {
	return rating >= 1 && rating <= 5
}

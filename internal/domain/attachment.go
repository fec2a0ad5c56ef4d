package domain

import (
	"errors"
	"time"
)

// AttachmentParent names the kind of entity an attachment hangs off.
type AttachmentParent string

const (
	AttachmentParentTicket   AttachmentParent = "ticket"
	AttachmentParentComment  AttachmentParent = "comment"
	AttachmentParentFeedback AttachmentParent = "feedback"
)

// ErrInvalidAttachmentParent is returned when an attachment has no single valid parent.
var ErrInvalidAttachmentParent = errors.New("attachment must reference exactly one ticket, comment or feedback")

// Attachment is a stored file bound to exactly one parent.
type Attachment struct {
	ID         int64
	ParentKind AttachmentParent
	ParentID   int64
	UploadedBy int64
	FilePath   string
	FileType   string
	SizeBytes  int64
	CreatedAt  time.Time
}

// NewAttachment builds an attachment bound to a single parent.
func NewAttachment(kind AttachmentParent, parentID, uploadedBy int64, path, fileType string, size int64) (*Attachment, error) {
	switch kind {
	case AttachmentParentTicket, AttachmentParentComment, AttachmentParentFeedback:
	default:
		return nil, ErrInvalidAttachmentParent
	}
	if parentID <= 0 {
		return nil, ErrInvalidAttachmentParent
	}
	return &Attachment{
		ParentKind: kind,
		ParentID:   parentID,
		UploadedBy: uploadedBy,
		FilePath:   path,
		FileType:   fileType,
		SizeBytes:  size,
	}, nil
}

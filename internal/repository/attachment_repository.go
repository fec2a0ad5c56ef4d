package repository

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	ListByParent(ctx context.Context, kind domain.AttachmentParent, parentID int64) ([]domain.Attachment, error)
	// DeleteByParent removes and returns the parent's attachments so their blobs can be released.
	DeleteByParent(ctx context.Context, kind domain.AttachmentParent, parentID int64) ([]domain.Attachment, error)
}

type attachmentRepository struct {
	db DBTX
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO ticket_attachments (parent_kind, parent_id, uploaded_by, file_path, file_type, size_bytes, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		attachment.ParentKind,
		attachment.ParentID,
		attachment.UploadedBy,
		attachment.FilePath,
		attachment.FileType,
		attachment.SizeBytes,
		attachment.CreatedAt,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *attachmentRepository) ListByParent(ctx context.Context, kind domain.AttachmentParent, parentID int64) ([]domain.Attachment, error) {
	const query = `
        SELECT id, parent_kind, parent_id, uploaded_by, file_path, file_type, size_bytes, created_at
        FROM ticket_attachments WHERE parent_kind=$1 AND parent_id=$2 ORDER BY id`
	return r.collect(ctx, query, kind, parentID)
}

func (r *attachmentRepository) DeleteByParent(ctx context.Context, kind domain.AttachmentParent, parentID int64) ([]domain.Attachment, error) {
	const query = `
        DELETE FROM ticket_attachments WHERE parent_kind=$1 AND parent_id=$2
        RETURNING id, parent_kind, parent_id, uploaded_by, file_path, file_type, size_bytes, created_at`
	return r.collect(ctx, query, kind, parentID)
}

func (r *attachmentRepository) collect(ctx context.Context, query string, args ...any) ([]domain.Attachment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var attachment domain.Attachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.ParentKind,
			&attachment.ParentID,
			&attachment.UploadedBy,
			&attachment.FilePath,
			&attachment.FileType,
			&attachment.SizeBytes,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}

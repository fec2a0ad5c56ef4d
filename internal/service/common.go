package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/storage"
	"github.com/spec-kit/helpdesk/internal/upload"
	"github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func notFoundAs(err error, resource string, id any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errorutil.NewNotFound(resource, map[string]any{"id": id})
	}
	return err
}

// canView reports whether actor may read the ticket.
func canView(actor domain.Actor, ticket *domain.Ticket) bool {
	return actor.IsStaff() || ticket.OwnedBy(actor.UserID)
}

// loadVisibleTicket resolves a ticket reference (numeric id or ticket number).
// Tickets the actor may not see are reported as missing.
func loadVisibleTicket(ctx context.Context, store repository.Store, actor domain.Actor, ref string) (*domain.Ticket, error) {
	ref = strings.TrimSpace(ref)
	var (
		ticket *domain.Ticket
		err    error
	)
	if id, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
		ticket, err = store.Tickets().GetByID(ctx, id)
	} else {
		ticket, err = store.Tickets().GetByNumber(ctx, strings.ToUpper(ref))
	}
	if err != nil {
		return nil, notFoundAs(err, "ticket", ref)
	}
	if !canView(actor, ticket) {
		return nil, errorutil.NewNotFound("ticket", map[string]any{"id": ref})
	}
	return ticket, nil
}

// lockTicket row-locks an active ticket for the rest of the transaction and
// orders the batch's pushes for it. Students may only mutate their own tickets.
func lockTicket(ctx context.Context, tx repository.Store, b *Batch, actor domain.Actor, id int64) (*domain.Ticket, error) {
	ticket, err := tx.Tickets().GetForUpdate(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "ticket", id)
	}
	if !canView(actor, ticket) {
		return nil, errorutil.NewForbidden("you do not have access to this ticket")
	}
	b.sequence(ticket.ID)
	return ticket, nil
}

// AttachmentStager validates uploads up front and stores them inside a mutation.
type AttachmentStager struct {
	guard  *upload.Guard
	blobs  storage.BlobStore
	logger *zap.Logger
}

// NewAttachmentStager builds a stager.
func NewAttachmentStager(guard *upload.Guard, blobs storage.BlobStore, logger *zap.Logger) *AttachmentStager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentStager{guard: guard, blobs: blobs, logger: logger}
}

// stagedFile is an upload that passed validation.
type stagedFile struct {
	file upload.File
	size int64
}

// Check validates f. A nil f yields a nil staged file.
func (s *AttachmentStager) Check(f *upload.File) (*stagedFile, error) {
	if f == nil {
		return nil, nil
	}
	if s == nil {
		return nil, errorutil.NewValidationError("attachments are not accepted", nil)
	}
	size, err := s.guard.Validate(*f)
	if err != nil {
		return nil, err
	}
	return &stagedFile{file: *f, size: size}, nil
}

// Store writes the blob and its row. The blob is removed again if the transaction fails.
func (s *AttachmentStager) Store(ctx context.Context, tx repository.Store, b *Batch, kind domain.AttachmentParent, parentID, uploader int64, f *stagedFile) (*domain.Attachment, error) {
	if f == nil {
		return nil, nil
	}
	att, err := domain.NewAttachment(kind, parentID, uploader, "", upload.NormalizeContentType(f.file.ContentType), f.size)
	if err != nil {
		return nil, err
	}
	key, err := s.blobs.Put(ctx, att.FileType, f.file.Reader)
	if err != nil {
		return nil, err
	}
	b.OnRollback(func(ctx context.Context) { s.remove(ctx, key) })
	att.FilePath = key
	if err := tx.Attachments().Create(ctx, att); err != nil {
		return nil, err
	}
	return att, nil
}

// Drop deletes the parent's attachment rows; their blobs go after commit.
func (s *AttachmentStager) Drop(ctx context.Context, tx repository.Store, b *Batch, kind domain.AttachmentParent, parentID int64) error {
	removed, err := tx.Attachments().DeleteByParent(ctx, kind, parentID)
	if err != nil {
		return err
	}
	if s == nil || len(removed) == 0 {
		return nil
	}
	b.AfterCommit(func(ctx context.Context) {
		for _, att := range removed {
			s.remove(ctx, att.FilePath)
		}
	})
	return nil
}

func (s *AttachmentStager) remove(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete attachment blob", zap.String("path", key), zap.Error(err))
	}
}

func requireStaff(actor domain.Actor, action string) error {
	if !actor.IsStaff() {
		return errorutil.NewForbidden("only staff may " + action)
	}
	return nil
}

func validateText(field, value string, required bool, max int) error {
	trimmed := strings.TrimSpace(value)
	if required && trimmed == "" {
		return errorutil.NewValidationError(field+" is required", map[string]any{"field": field})
	}
	if len([]rune(trimmed)) > max {
		return errorutil.NewValidationError(field+" is too long", map[string]any{"field": field, "max": max})
	}
	return nil
}

package handlers

import (
	"path"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/storage"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// MediaHandler streams stored attachments. Keys are random, so links are not guessable.
type MediaHandler struct {
	blobs storage.BlobStore
}

// NewMediaHandler constructs handler.
func NewMediaHandler(blobs storage.BlobStore) *MediaHandler {
	return &MediaHandler{blobs: blobs}
}

// Serve GET /media/*.
func (h *MediaHandler) Serve(c *fiber.Ctx) error {
	key := c.Params("*")
	rc, err := h.blobs.Open(c.UserContext(), key)
	if err != nil {
		return apperrors.NewNotFound("attachment", map[string]any{"key": key})
	}
	c.Type(path.Ext(key))
	c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
	// fasthttp closes the stream once the body is written.
	return c.SendStream(rc)
}

// Package upload validates user supplied attachments before anything is stored.
package upload

import (
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// DefaultMaxBytes is the attachment size limit.
const DefaultMaxBytes int64 = 5 * 1024 * 1024

// Rejection reasons reported in error details.
const (
	ReasonUnsupportedType   = "unsupported_type"
	ReasonTooLarge          = "too_large"
	ReasonSignatureMismatch = "signature_mismatch"
	ReasonUnreadable        = "unreadable"
)

// sniffLen is how much of the file is handed to content detection.
const sniffLen = 3072

// File is an uploaded attachment awaiting validation.
type File struct {
	Name        string
	ContentType string
	Reader      io.ReadSeeker
}

var allowed = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
	"application/pdf": {},
}

// Guard checks declared type, size and leading bytes of attachments.
type Guard struct {
	maxBytes int64
}

// NewGuard constructs a guard; a non-positive limit falls back to DefaultMaxBytes.
func NewGuard(maxBytes int64) *Guard {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Guard{maxBytes: maxBytes}
}

// MaxBytes returns the configured size limit.
func (g *Guard) MaxBytes() int64 {
	return g.maxBytes
}

// AllowedTypes lists accepted content types.
func AllowedTypes() []string {
	return []string{"image/jpeg", "image/png", "image/webp", "application/pdf"}
}

// Validate returns the file size when the attachment is acceptable. The reader's
// position is the same on return as on entry.
func (g *Guard) Validate(f File) (int64, error) {
	contentType := NormalizeContentType(f.ContentType)
	if _, ok := allowed[contentType]; !ok {
		return 0, reject(ReasonUnsupportedType,
			fmt.Sprintf("file type %q is not allowed; use JPEG, PNG, WebP or PDF", f.ContentType), f.Name)
	}
	if f.Reader == nil {
		return 0, reject(ReasonUnreadable, "file content missing", f.Name)
	}

	start, err := f.Reader.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, reject(ReasonUnreadable, "file could not be read", f.Name)
	}
	size, detected, err := inspect(f.Reader)
	if _, seekErr := f.Reader.Seek(start, io.SeekStart); seekErr != nil && err == nil {
		err = seekErr
	}
	if err != nil {
		return 0, reject(ReasonUnreadable, "file could not be read", f.Name)
	}

	if size > g.maxBytes {
		return 0, reject(ReasonTooLarge,
			fmt.Sprintf("file is %d bytes; the limit is %d MiB", size, g.maxBytes/(1024*1024)), f.Name)
	}
	if !matchesDeclared(detected, contentType) {
		return 0, reject(ReasonSignatureMismatch,
			fmt.Sprintf("file content does not match declared type %s", contentType), f.Name)
	}
	return size, nil
}

func inspect(r io.ReadSeeker) (int64, *mimetype.MIME, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, nil, err
	}
	detected, err := mimetype.DetectReader(io.LimitReader(r, sniffLen))
	if err != nil {
		return 0, nil, err
	}
	return size, detected, nil
}

// matchesDeclared accepts the declared type or any format detected as a more
// specific variant of it.
func matchesDeclared(detected *mimetype.MIME, contentType string) bool {
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(contentType) {
			return true
		}
	}
	return false
}

// NormalizeContentType strips parameters and lowercases a MIME type.
func NormalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

func reject(reason, message, name string) error {
	details := map[string]any{"reason": reason}
	if name != "" {
		details["file"] = name
	}
	return errorutil.NewValidationError(message, details)
}

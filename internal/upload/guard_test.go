package upload

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

var (
	pngHeader  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n', 0, 0, 0, 0x0D}
	jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F', 0, 1}
	webpHeader = []byte{'R', 'I', 'F', 'F', 0x24, 0, 0, 0, 'W', 'E', 'B', 'P'}
)

func reason(t *testing.T, err error) string {
	t.Helper()
	de := errorutil.ToDomainError(err)
	require.NotNil(t, de)
	require.Equal(t, errorutil.CodeValidation, de.Code)
	return de.Details["reason"].(string)
}

func TestValidateAccepts(t *testing.T) {
	guard := NewGuard(0)
	tests := []struct {
		name        string
		contentType string
		body        []byte
	}{
		{"png", "image/png", pngHeader},
		{"jpeg", "image/jpeg", jpegHeader},
		{"webp", "image/webp", webpHeader},
		{"pdf", "application/pdf", []byte("%PDF-1.7\n%âãÏÓ")},
		{"content type params", "image/PNG; charset=binary", pngHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, err := guard.Validate(File{Name: tt.name, ContentType: tt.contentType, Reader: bytes.NewReader(tt.body)})
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.body)), size)
		})
	}
}

func TestValidateRejectsJPEGDeclaredAsPNG(t *testing.T) {
	_, err := NewGuard(0).Validate(File{Name: "photo.png", ContentType: "image/png", Reader: bytes.NewReader(jpegHeader)})
	require.Error(t, err)
	assert.Equal(t, ReasonSignatureMismatch, reason(t, err))
}

func TestValidateRejectsUnsupportedType(t *testing.T) {
	_, err := NewGuard(0).Validate(File{Name: "a.gif", ContentType: "image/gif", Reader: bytes.NewReader([]byte("GIF89a"))})
	assert.Equal(t, ReasonUnsupportedType, reason(t, err))
}

func TestValidateRejectsOversizedFile(t *testing.T) {
	body := make([]byte, 6*1024*1024)
	copy(body, pngHeader)
	_, err := NewGuard(0).Validate(File{Name: "big.png", ContentType: "image/png", Reader: bytes.NewReader(body)})
	assert.Equal(t, ReasonTooLarge, reason(t, err))
}

func TestValidateRejectsTruncatedWebP(t *testing.T) {
	_, err := NewGuard(0).Validate(File{ContentType: "image/webp", Reader: bytes.NewReader([]byte("RIFF"))})
	assert.Equal(t, ReasonSignatureMismatch, reason(t, err))
}

func TestValidateRestoresReadPosition(t *testing.T) {
	r := bytes.NewReader(append(append([]byte{}, pngHeader...), []byte("payload")...))
	_, err := r.Seek(3, io.SeekStart)
	require.NoError(t, err)

	_, err = NewGuard(0).Validate(File{ContentType: "image/png", Reader: r})
	require.NoError(t, err)

	pos, err := r.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pos)

	// Also restored after a rejection.
	_, err = NewGuard(0).Validate(File{ContentType: "image/jpeg", Reader: r})
	require.Error(t, err)
	pos, _ = r.Seek(0, io.SeekCurrent)
	assert.Equal(t, int64(3), pos)
}

func TestValidateAcceptsAnimatedPNGAsPNG(t *testing.T) {
	body := append([]byte{}, pngHeader[:8]...)
	body = append(body, 0, 0, 0, 13)
	body = append(body, "IHDR"...)
	body = append(body, make([]byte, 13+4)...)
	body = append(body, 0, 0, 0, 8)
	body = append(body, "acTL"...)
	body = append(body, make([]byte, 12)...)

	_, err := NewGuard(0).Validate(File{Name: "spinner.png", ContentType: "image/png", Reader: bytes.NewReader(body)})
	assert.NoError(t, err)
}

func TestValidateRejectsTextDeclaredAsPDF(t *testing.T) {
	_, err := NewGuard(0).Validate(File{Name: "notes.pdf", ContentType: "application/pdf", Reader: bytes.NewReader([]byte("just some notes\n"))})
	assert.Equal(t, ReasonSignatureMismatch, reason(t, err))
}

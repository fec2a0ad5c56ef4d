package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/upload"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// AttachmentField is the multipart field carrying an uploaded file.
const AttachmentField = "attachment"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report json names so details match the payload.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindBody parses the JSON or form body into req and checks its validate tags.
func bindBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = fieldMessage(fe)
	}
	return apperrors.NewValidationError("validation failed", details)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters long", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "hexcolor":
		return "must be a hex color such as #1d4ed8"
	}
	return "is invalid"
}

func currentActor(c *fiber.Ctx) (domain.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Actor, nil
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{name: c.Params(name)})
	}
	return id, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseOptionalID(val string) (*int64, error) {
	if val == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperrors.NewValidationError("invalid id filter", map[string]any{"value": val})
	}
	return &id, nil
}

func page(c *fiber.Ctx) (pageNum, pageSize int) {
	pageNum = parseInt(c.Query("page"), 1)
	pageSize = parseInt(c.Query("page_size"), defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return pageNum, pageSize
}

// formAttachment returns the optional uploaded file and a func releasing it.
func formAttachment(c *fiber.Ctx) (*upload.File, func(), error) {
	release := func() {}
	if !strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm) {
		return nil, release, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, release, apperrors.NewValidationError("invalid multipart form", nil)
	}
	files := form.File[AttachmentField]
	if len(files) == 0 {
		return nil, release, nil
	}
	header := files[0]
	f, err := header.Open()
	if err != nil {
		return nil, release, apperrors.NewValidationError("attachment could not be read", map[string]any{"file": header.Filename})
	}
	file := &upload.File{
		Name:        header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Reader:      f,
	}
	return file, func() { _ = f.Close() }, nil
}

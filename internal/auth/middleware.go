package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Actor       domain.Actor
	DisplayName string
	Email       string
}

// AuthMiddleware validates bearer tokens and keeps the user directory current.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserRepository
	logger *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, users: users, logger: logger}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	principal, err := m.Authenticate(c.UserContext(), parts[1])
	if err != nil {
		return err
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// Authenticate verifies a raw token and records the caller in the user directory.
func (m *AuthMiddleware) Authenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := m.tokens.ParseToken(strings.TrimSpace(token))
	if err != nil {
		m.logger.Debug("rejected token", zap.Error(err))
		return nil, apperrors.NewUnauthorized("invalid token")
	}

	principal := &Principal{
		Actor:       domain.Actor{UserID: claims.UserID, Role: claims.Role},
		DisplayName: claims.Name,
		Email:       claims.Email,
	}
	if m.users != nil {
		user := &domain.User{
			ID:          claims.UserID,
			Email:       claims.Email,
			DisplayName: claims.Name,
			IsStaff:     claims.Role == domain.RoleStaff,
		}
		if err := m.users.Upsert(ctx, user); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	return principal, nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

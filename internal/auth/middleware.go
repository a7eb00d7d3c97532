package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/servisdesk/servisdesk/internal/domain"
	"github.com/servisdesk/servisdesk/internal/repository"
	apperrors "github.com/servisdesk/servisdesk/pkg/errorutil"
)

const (
	principalKey = "auth_principal"
	claimsKey    = "auth_claims"
)

// AuthMiddleware validates bearer tokens and loads the acting identity.
type AuthMiddleware struct {
	tokens     *TokenManager
	revoked    RevocationStore
	identities repository.IdentityRepository
	logger     *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, revoked RevocationStore, identities repository.IdentityRepository, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, revoked: revoked, identities: identities, logger: logger}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	ctx := c.UserContext()
	revoked, err := m.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		m.logger.Error("revocation lookup failed", zap.Error(err))
		return apperrors.NewInternalError(err)
	}
	if revoked {
		return apperrors.NewUnauthorized("token revoked")
	}

	identity, err := m.identities.GetByID(ctx, claims.IdentityID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return apperrors.NewUnauthorized("identity not found")
		}
		return apperrors.MapError(err)
	}
	if !identity.IsActive {
		return apperrors.NewUnauthorized("identity is inactive")
	}

	c.Locals(principalKey, identity)
	c.Locals(claimsKey, claims)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated identity.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Identity, bool) {
	identity, ok := c.Locals(principalKey).(*domain.Identity)
	return identity, ok && identity != nil
}

// ClaimsFromContext retrieves the claims of the presented token.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

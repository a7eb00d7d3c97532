package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/servisdesk/servisdesk/internal/auth"
	"github.com/servisdesk/servisdesk/internal/domain"
	"github.com/servisdesk/servisdesk/internal/repository/repotest"
	apperrors "github.com/servisdesk/servisdesk/pkg/errorutil"
)

var _ = Describe("AuthMiddleware", func() {
	var (
		store   *repotest.Store
		tokens  *auth.TokenManager
		revoked *auth.MemoryRevocationStore
		app     *fiber.App
		member  *domain.Identity
		admin   *domain.Identity
	)

	BeforeEach(func() {
		ctx := context.Background()
		store = repotest.NewStore()
		tokens = auth.NewTokenManager("secret", time.Hour)
		revoked = auth.NewMemoryRevocationStore()

		member = &domain.Identity{Username: "alice", IsActive: true}
		admin = &domain.Identity{Username: "admin", IsActive: true, IsStaff: true}
		Expect(store.Identities().Create(ctx, member)).To(Succeed())
		Expect(store.Identities().Create(ctx, admin)).To(Succeed())

		middleware := auth.NewAuthMiddleware(tokens, revoked, store.Identities(), zap.NewNop())
		app = fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
		}})
		app.Get("/me", middleware.Handle, func(c *fiber.Ctx) error {
			identity, _ := auth.PrincipalFromContext(c)
			return c.SendString(identity.Username)
		})
		app.Get("/admin", middleware.Handle, auth.RequireAdmin(), func(c *fiber.Ctx) error {
			return c.SendStatus(http.StatusNoContent)
		})
	})

	request := func(path, token string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		return resp.StatusCode
	}

	tokenFor := func(identity *domain.Identity) string {
		signed, _, err := tokens.GenerateToken(identity)
		Expect(err).NotTo(HaveOccurred())
		return signed
	}

	It("rejects requests without a bearer token", func() {
		Expect(request("/me", "")).To(Equal(http.StatusUnauthorized))
	})

	It("resolves the identity from a valid token", func() {
		Expect(request("/me", tokenFor(member))).To(Equal(http.StatusOK))
	})

	It("rejects revoked tokens", func() {
		signed := tokenFor(member)
		claims, err := tokens.ParseToken(signed)
		Expect(err).NotTo(HaveOccurred())
		Expect(revoked.Revoke(context.Background(), claims.ID, claims.ExpiresAtTime())).To(Succeed())

		Expect(request("/me", signed)).To(Equal(http.StatusUnauthorized))
	})

	It("rejects identities deactivated after the token was issued", func() {
		signed := tokenFor(member)
		member.IsActive = false
		Expect(store.Identities().Update(context.Background(), member)).To(Succeed())

		Expect(request("/me", signed)).To(Equal(http.StatusUnauthorized))
	})

	It("rejects identities that no longer exist", func() {
		signed := tokenFor(member)
		Expect(store.Identities().Delete(context.Background(), member.ID)).To(Succeed())

		Expect(request("/me", signed)).To(Equal(http.StatusUnauthorized))
	})

	It("gates admin routes on the administrator predicate", func() {
		Expect(request("/admin", tokenFor(member))).To(Equal(http.StatusForbidden))
		Expect(request("/admin", tokenFor(admin))).To(Equal(http.StatusNoContent))
	})

	It("surfaces revocation store failures as internal errors", func() {
		failing := auth.NewAuthMiddleware(tokens, failingRevocations{}, store.Identities(), zap.NewNop())
		app.Get("/fragile", failing.Handle, func(c *fiber.Ctx) error { return nil })
		Expect(request("/fragile", tokenFor(member))).To(Equal(http.StatusInternalServerError))
	})
})

type failingRevocations struct{}

func (failingRevocations) Revoke(context.Context, string, time.Time) error { return nil }

func (failingRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

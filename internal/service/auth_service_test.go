package service_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/servisdesk/servisdesk/internal/auth"
	"github.com/servisdesk/servisdesk/internal/domain"
	apperrors "github.com/servisdesk/servisdesk/pkg/errorutil"
)

var _ = Describe("AuthService", func() {
	var (
		ctx   context.Context
		f     *fixture
		alice *domain.Identity
	)

	BeforeEach(func() {
		ctx = context.Background()
		f = newFixture()
		alice = f.identityWithPassword("alice", "correct-horse", false)
	})

	It("issues a token and records the login time", func() {
		result, err := f.auth.Login(ctx, "alice", "correct-horse")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Token).NotTo(BeEmpty())

		claims, err := f.tokens.ParseToken(result.Token)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.IdentityID).To(Equal(alice.ID))

		stored, err := f.store.Identities().GetByID(ctx, alice.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.LastLogin).NotTo(BeNil())
	})

	It("refreshes the profile together with the login time", func() {
		before, err := f.store.Profiles().GetByIdentity(ctx, alice.ID)
		Expect(err).NotTo(HaveOccurred())

		_, err = f.auth.Login(ctx, "alice", "correct-horse")
		Expect(err).NotTo(HaveOccurred())

		after, err := f.store.Profiles().GetByIdentity(ctx, alice.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(after.UpdatedAt).To(BeTemporally(">", before.UpdatedAt))
		Expect(f.store.ProfileCount(alice.ID)).To(Equal(1))
	})

	It("gives the same answer for unknown users, wrong passwords and inactive accounts", func() {
		_, err := f.auth.Login(ctx, "nobody", "correct-horse")
		Expect(err).To(MatchError("invalid credentials"))

		_, err = f.auth.Login(ctx, "alice", "wrong-horse")
		Expect(err).To(MatchError("invalid credentials"))

		alice.IsActive = false
		Expect(f.store.Identities().Update(ctx, alice)).To(Succeed())
		_, err = f.auth.Login(ctx, "alice", "correct-horse")
		Expect(err).To(haveCode(apperrors.CodeUnauthorized))
	})

	It("revokes the token on logout", func() {
		result, err := f.auth.Login(ctx, "alice", "correct-horse")
		Expect(err).NotTo(HaveOccurred())
		claims, err := f.tokens.ParseToken(result.Token)
		Expect(err).NotTo(HaveOccurred())

		Expect(f.auth.Logout(ctx, claims)).To(Succeed())
		revoked, err := f.revoked.IsRevoked(ctx, claims.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(revoked).To(BeTrue())
	})

	Describe("ChangePassword", func() {
		It("requires the current password", func() {
			err := f.auth.ChangePassword(ctx, alice, "wrong", "new-password", "new-password")
			Expect(err).To(haveCode(apperrors.CodeValidation))
			Expect(apperrors.ToDomainError(err).Details).To(HaveKey("old_password"))
		})

		It("rejects a new password beyond the bcrypt byte limit", func() {
			long := strings.Repeat("пароль", 7)
			err := f.auth.ChangePassword(ctx, alice, "correct-horse", long, long)
			Expect(err).To(haveCode(apperrors.CodeValidation))
			Expect(apperrors.ToDomainError(err).Details).To(HaveKeyWithValue("new_password2", "password must be at most 72 bytes"))

			Expect(f.auth.ChangePassword(ctx, alice, "correct-horse", "battery-staple", "battery-staple")).To(Succeed())
		})

		It("replaces the hash", func() {
			Expect(f.auth.ChangePassword(ctx, alice, "correct-horse", "battery-staple", "battery-staple")).To(Succeed())

			stored, err := f.store.Identities().GetByID(ctx, alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(auth.ComparePassword(stored.PasswordHash, "battery-staple")).To(Succeed())

			_, err = f.auth.Login(ctx, "alice", "correct-horse")
			Expect(err).To(haveCode(apperrors.CodeUnauthorized))
		})
	})
})

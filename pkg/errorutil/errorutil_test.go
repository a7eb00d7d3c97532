package errorutil_test

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/servisdesk/servisdesk/pkg/errorutil"
)

var _ = Describe("ToDomainError", func() {
	It("passes domain errors through, even when wrapped", func() {
		original := errorutil.NewForbidden("admin role required")
		wrapped := fmt.Errorf("assign: %w", original)

		de := errorutil.ToDomainError(wrapped)
		Expect(de.Code).To(Equal(errorutil.CodeForbidden))
		Expect(de.HTTPStatus).To(Equal(http.StatusForbidden))
	})

	It("maps missing rows to not found", func() {
		de := errorutil.ToDomainError(fmt.Errorf("get ticket: %w", pgx.ErrNoRows))
		Expect(de.Code).To(Equal(errorutil.CodeNotFound))
		Expect(de.HTTPStatus).To(Equal(http.StatusNotFound))
	})

	It("maps unique violations to conflict", func() {
		de := errorutil.ToDomainError(&pgconn.PgError{Code: "23505"})
		Expect(de.Code).To(Equal(errorutil.CodeConflict))
	})

	It("wraps everything else as internal", func() {
		cause := errors.New("connection reset")
		de := errorutil.ToDomainError(cause)
		Expect(de.Code).To(Equal(errorutil.CodeInternal))
		Expect(errors.Is(de, cause)).To(BeTrue())
	})

	It("maps framework errors by status", func() {
		Expect(errorutil.ToDomainError(fiber.ErrNotFound).HTTPStatus).To(Equal(http.StatusNotFound))
		Expect(errorutil.ToDomainError(fiber.ErrNotFound).Code).To(Equal(errorutil.CodeNotFound))
		Expect(errorutil.ToDomainError(fiber.ErrBadRequest).Code).To(Equal(errorutil.CodeValidation))
		Expect(errorutil.ToDomainError(fiber.ErrBadGateway).Code).To(Equal(errorutil.CodeInternal))
	})

	It("keeps nil as nil", func() {
		Expect(errorutil.MapError(nil)).To(BeNil())
	})
})

var _ = Describe("FieldErrors", func() {
	It("returns nil when nothing was recorded", func() {
		Expect(errorutil.FieldErrors{}.Err()).To(BeNil())
	})

	It("keeps the first message per field", func() {
		fields := errorutil.FieldErrors{}
		fields.Add("title", "too short")
		fields.Add("title", "other")
		fields.Add("description", "too short")

		err := fields.Err()
		Expect(errorutil.HasCode(err, errorutil.CodeValidation)).To(BeTrue())
		de := errorutil.ToDomainError(err)
		Expect(de.Details).To(HaveKeyWithValue("title", "too short"))
		Expect(de.Details).To(HaveKey("description"))
	})
})

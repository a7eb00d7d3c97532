package persistence

import (
	"io/fs"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

var _ = Describe("migrations", func() {
	It("rewrites postgres DSNs for the pgx driver", func() {
		Expect(migrationURL("postgres://u:p@db:5432/servisdesk?sslmode=disable")).
			To(Equal("pgx5://u:p@db:5432/servisdesk?sslmode=disable"))
		Expect(migrationURL("postgresql://db/servisdesk")).To(Equal("pgx5://db/servisdesk"))
		Expect(migrationURL("pgx5://db/servisdesk")).To(Equal("pgx5://db/servisdesk"))
	})

	It("embeds matching up and down files", func() {
		ups, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
		Expect(err).NotTo(HaveOccurred())
		downs, err := fs.Glob(migrationsFS, "migrations/*.down.sql")
		Expect(err).NotTo(HaveOccurred())
		Expect(ups).NotTo(BeEmpty())
		Expect(ups).To(HaveLen(len(downs)))
	})

	It("refuses to run without a DSN", func() {
		Expect(RunMigrations("", zap.NewNop())).To(MatchError(ContainSubstring("POSTGRES_DSN")))
	})
})

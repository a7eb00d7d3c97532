package persistence

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/servisdesk/servisdesk/internal/config"
)

var _ = Describe("postgres", func() {
	It("requires a DSN", func() {
		_, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
		Expect(err).To(MatchError(ContainSubstring("POSTGRES_DSN")))
	})

	It("applies configured pool limits", func() {
		poolCfg, err := pgxpool.ParseConfig("postgres://u:p@localhost:5432/servisdesk")
		Expect(err).NotTo(HaveOccurred())

		applyPoolLimits(poolCfg, config.PostgresConfig{MaxConns: 8, MinConns: 2, ConnMaxIdleSec: 30, ConnMaxLifeSec: 300})
		Expect(poolCfg.MaxConns).To(Equal(int32(8)))
		Expect(poolCfg.MinConns).To(Equal(int32(2)))
		Expect(poolCfg.MaxConnIdleTime).To(Equal(30 * time.Second))
		Expect(poolCfg.MaxConnLifetime).To(Equal(5 * time.Minute))
	})

	It("ignores a minimum above the maximum", func() {
		poolCfg, err := pgxpool.ParseConfig("postgres://u:p@localhost:5432/servisdesk")
		Expect(err).NotTo(HaveOccurred())

		applyPoolLimits(poolCfg, config.PostgresConfig{MaxConns: 2, MinConns: 5})
		Expect(poolCfg.MinConns).To(BeZero())
	})

	It("reports a missing pool as unavailable", func() {
		var pg *Postgres
		Expect(pg.Ping(context.Background())).To(HaveOccurred())
		Expect(pg.PoolHandle()).To(BeNil())
	})
})

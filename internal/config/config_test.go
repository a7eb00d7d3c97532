package config_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/servisdesk/servisdesk/internal/config"
)

var _ = Describe("Load", func() {
	setEnv := func(key, value string) {
		prev, had := os.LookupEnv(key)
		Expect(os.Setenv(key, value)).To(Succeed())
		DeferCleanup(func() {
			if had {
				_ = os.Setenv(key, prev)
				return
			}
			_ = os.Unsetenv(key)
		})
	}

	It("applies defaults", func() {
		setEnv("APP_PORT", "")
		setEnv("RATE_LIMIT_LOGIN_BURST", "")

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.App.Port).To(Equal("8080"))
		Expect(cfg.RateLimit.LoginBurst).To(Equal(5))
		Expect(cfg.Auth.AccessTokenTTL()).To(BeNumerically(">", 0))
	})

	It("reads overrides from the environment", func() {
		setEnv("APP_PORT", "9090")
		setEnv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "15")
		setEnv("POSTGRES_RUN_MIGRATIONS", "false")

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.App.Addr()).To(HaveSuffix(":9090"))
		Expect(cfg.Auth.AccessTokenTTL()).To(Equal(15 * time.Minute))
		Expect(cfg.Postgres.RunMigrations).To(BeFalse())
	})

	It("falls back when numbers are malformed", func() {
		setEnv("HTTP_REQUEST_TIMEOUT_SECONDS", "soon")

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.App.RequestTimeout()).To(Equal(30 * time.Second))
	})

	It("rejects unknown time zones", func() {
		setEnv("APP_TIME_ZONE", "Mars/Olympus")

		_, err := config.Load()
		Expect(err).To(HaveOccurred())
	})

	It("rejects a malformed redis db index", func() {
		setEnv("REDIS_DB", "primary")

		_, err := config.Load()
		Expect(err).To(HaveOccurred())
	})
})

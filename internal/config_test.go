package internal_test

import (
	"os"
	"time"

	"github.com/frahmantamala/access-control/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func validConfig() *internal.Config {
	return &internal.Config{
		Env: "development",
		Server: internal.ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			RateLimit:         100,
			RateWindow:        time.Minute,
		},
		Database: internal.DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			Source:          "postgres://localhost/access_control",
		},
		Security: internal.SecurityConfig{
			JWTSecret:           "0123456789abcdef0123456789abcdef",
			AccessTokenDuration: time.Hour,
		},
		Authz: internal.AuthzConfig{
			CacheTTL:        5 * time.Minute,
			SuperAdminEmail: "root@example.com",
		},
		Revocation: internal.RevocationConfig{Backend: "database"},
		Observability: internal.ObservabilityConfig{
			Metrics: internal.MetricsConfig{Enabled: true, Path: "/metrics"},
			Logging: internal.LoggingConfig{Level: "info", Format: "json"},
		},
	}
}

func setEnv(key, value string) {
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(os.Unsetenv, key)
}

var _ = Describe("Config", func() {
	Describe("Validate", func() {
		It("accepts a complete config", func() {
			Expect(validConfig().Validate()).To(Succeed())
		})

		It("rejects a short jwt secret", func() {
			cfg := validConfig()
			cfg.Security.JWTSecret = "short"
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("JWTSecret")))
		})

		It("requires a super admin email", func() {
			cfg := validConfig()
			cfg.Authz.SuperAdminEmail = ""
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("SuperAdminEmail")))
		})

		It("rejects an unknown revocation backend", func() {
			cfg := validConfig()
			cfg.Revocation.Backend = "memcached"
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("Backend")))
		})

		It("needs a redis address for the redis backend", func() {
			cfg := validConfig()
			cfg.Revocation.Backend = "redis"
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("redis.addr")))
		})

		It("rejects more idle than open connections", func() {
			cfg := validConfig()
			cfg.Database.MaxIdleConns = 20
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("max_idle_conns")))
		})

		It("requires a rate window when rate limiting", func() {
			cfg := validConfig()
			cfg.Server.RateWindow = 0
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("rate_window")))
		})

		It("collects every failure in one error", func() {
			cfg := validConfig()
			cfg.Security.JWTSecret = ""
			cfg.Database.MaxIdleConns = 20
			err := cfg.Validate()
			Expect(err).To(MatchError(ContainSubstring("JWTSecret")))
			Expect(err).To(MatchError(ContainSubstring("max_idle_conns")))
		})
	})

	Describe("LoadConfigFromEnv", func() {
		It("reads ACCESS_ variables and fills defaults", func() {
			setEnv("ACCESS_DATABASE_SOURCE", "postgres://db/access")
			setEnv("ACCESS_SECURITY_JWT_SECRET", "0123456789abcdef0123456789abcdef")
			setEnv("ACCESS_AUTHZ_SUPER_ADMIN_EMAIL", "root@example.com")
			setEnv("ACCESS_AUTHZ_CACHE_TTL", "30s")
			setEnv("ACCESS_REVOCATION_BACKEND", "redis")

			cfg, err := internal.LoadConfigFromEnv()
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.Database.Source).To(Equal("postgres://db/access"))
			Expect(cfg.Authz.CacheTTL).To(Equal(30 * time.Second))
			Expect(cfg.Authz.SeedOnStartup).To(BeTrue())
			Expect(cfg.Revocation.Backend).To(Equal("redis"))
			Expect(cfg.Revocation.Redis.KeyPrefix).To(Equal("revoked:"))
			Expect(cfg.Server.Port).To(Equal(8080))
			Expect(cfg.Observability.Metrics.Path).To(Equal("/metrics"))
			Expect(cfg.Validate()).To(Succeed())
		})

		It("fails on a malformed duration", func() {
			setEnv("ACCESS_AUTHZ_CACHE_TTL", "soon")

			_, err := internal.LoadConfigFromEnv()
			Expect(err).To(HaveOccurred())
		})
	})

	It("reports production only for env production", func() {
		cfg := validConfig()
		Expect(cfg.IsProduction()).To(BeFalse())
		cfg.Env = "production"
		Expect(cfg.IsProduction()).To(BeTrue())

		var nilCfg *internal.Config
		Expect(nilCfg.IsProduction()).To(BeFalse())
	})
})

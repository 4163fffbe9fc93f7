package internal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "ACCESS"

type Config struct {
	Env           string              `mapstructure:"env" split_words:"true" default:"development" validate:"oneof=development production test"`
	Server        ServerConfig        `mapstructure:"http_server" envconfig:"SERVER"`
	Database      DatabaseConfig      `mapstructure:"database" envconfig:"DATABASE"`
	Security      SecurityConfig      `mapstructure:"security" envconfig:"SECURITY"`
	Authz         AuthzConfig         `mapstructure:"authz" envconfig:"AUTHZ"`
	Revocation    RevocationConfig    `mapstructure:"revocation" envconfig:"REVOCATION"`
	Observability ObservabilityConfig `mapstructure:"observability" envconfig:"OBSERVABILITY"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" split_words:"true" default:"8080" validate:"min=1,max=65535"`
	AllowedOrigins    string        `mapstructure:"allowed_origins" split_words:"true"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" split_words:"true" default:"5s"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" split_words:"true" default:"15s"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" split_words:"true" default:"60s"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" split_words:"true" default:"15s"`
	RateLimit         int           `mapstructure:"rate_limit" split_words:"true" default:"120" validate:"min=0"`
	RateWindow        time.Duration `mapstructure:"rate_window" split_words:"true" default:"1m"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" split_words:"true" default:"10" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" split_words:"true" default:"5" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" split_words:"true" default:"30m" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" split_words:"true" default:"5m" validate:"required,min=1m"`
	Source          string        `mapstructure:"source" split_words:"true" validate:"required"`
}

type SecurityConfig struct {
	JWTSecret           string        `mapstructure:"jwt_secret" split_words:"true" validate:"required,min=32"`
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration" split_words:"true" default:"6h" validate:"required,min=1m"`
}

type AuthzConfig struct {
	// CacheTTL bounds how long a role's resolved permission set is served from memory.
	CacheTTL        time.Duration `mapstructure:"cache_ttl" split_words:"true" default:"5m" validate:"required,min=1s"`
	SuperAdminEmail string        `mapstructure:"super_admin_email" split_words:"true" validate:"required,email"`
	SeedOnStartup   bool          `mapstructure:"seed_on_startup" split_words:"true" default:"true"`
}

type RevocationConfig struct {
	Backend string      `mapstructure:"backend" split_words:"true" default:"database" validate:"oneof=database redis"`
	Redis   RedisConfig `mapstructure:"redis" envconfig:"REDIS"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr" split_words:"true" default:"127.0.0.1:6379"`
	Password  string `mapstructure:"password" split_words:"true"`
	DB        int    `mapstructure:"db" split_words:"true" default:"0" validate:"min=0"`
	KeyPrefix string `mapstructure:"key_prefix" split_words:"true" default:"revoked:"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics" envconfig:"METRICS"`
	Logging LoggingConfig `mapstructure:"logging" envconfig:"LOGGING"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" split_words:"true" default:"true"`
	Path    string `mapstructure:"path" split_words:"true" default:"/metrics" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" split_words:"true" default:"info" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" split_words:"true" default:"json" validate:"required,oneof=json text"`
}

// LoadConfigFromEnv reads the configuration from environment variables named
// ACCESS_<SECTION>_<FIELD>, e.g. ACCESS_DATABASE_SOURCE.
func LoadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Revocation.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("revocation config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	if c.RateLimit > 0 && c.RateWindow <= 0 {
		return errors.New("rate_window must be positive when rate_limit is set")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *RevocationConfig) Validate() error {
	if c.Backend == "redis" && c.Redis.Addr == "" {
		return errors.New("redis.addr is required for the redis backend")
	}
	return nil
}

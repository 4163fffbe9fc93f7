package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/access-control/internal"
	"github.com/frahmantamala/access-control/internal/auth"
	authPostgres "github.com/frahmantamala/access-control/internal/auth/postgres"
	authRedis "github.com/frahmantamala/access-control/internal/auth/redis"
	"github.com/frahmantamala/access-control/internal/core/events"
	"github.com/frahmantamala/access-control/internal/core/metrics"
	"github.com/frahmantamala/access-control/internal/permission"
	permissionPostgres "github.com/frahmantamala/access-control/internal/permission/postgres"
	"github.com/frahmantamala/access-control/internal/user"
	userPostgres "github.com/frahmantamala/access-control/internal/user/postgres"
	"github.com/frahmantamala/access-control/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// application holds the wired services shared by the commands.
type application struct {
	Config      *internal.Config
	Logger      *slog.Logger
	DB          *gorm.DB
	SQL         *sqlx.DB
	Redis       *redis.Client
	Metrics     *metrics.Metrics
	Events      *events.EventBus
	Permissions *permission.Service
	Users       *user.Service
	Revocation  *auth.RevocationService
	Tokens      *auth.JWTTokenGenerator
}

func newApplication(ctx context.Context, cfg *internal.Config) (*application, error) {
	lg := logger.LoggerWrapper()

	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	app := &application{
		Config: cfg,
		Logger: lg,
		DB:     db,
		SQL:    sqlx.NewDb(sqlDB, "pgx"),
		Events: events.NewEventBus(lg),
		Tokens: auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.AccessTokenDuration),
	}
	if cfg.Observability.Metrics.Enabled {
		app.Metrics = metrics.NewDefault()
	}
	app.Events.SubscribeMany(events.AllAuthzEventTypes, events.AuditLogger(lg))

	cache := permission.NewResolutionCache(cfg.Authz.CacheTTL, permission.WithCacheMetrics(app.Metrics))
	app.Permissions = permission.NewService(
		permissionPostgres.NewPermissionRepository(db),
		permissionPostgres.NewRoleRepository(db),
		permissionPostgres.NewLinkRepository(db),
		cache,
		app.Events,
		lg,
	)
	app.Users = user.NewService(userPostgres.NewUserRepository(db), app.Permissions, lg)

	store, err := app.revocationStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Revocation = auth.NewRevocationService(store, app.Events, app.Metrics, lg)

	return app, nil
}

func (a *application) revocationStore(ctx context.Context) (auth.RevocationStore, error) {
	if a.Config.Revocation.Backend != "redis" {
		return authPostgres.NewRevocationStore(a.SQL), nil
	}

	rc := a.Config.Revocation.Redis
	a.Redis = redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return authRedis.NewRevocationStore(a.Redis, rc.KeyPrefix), nil
}

// Seed installs the baseline roles and permissions and the reserved account.
func (a *application) Seed(ctx context.Context) error {
	if err := a.Permissions.Seed(ctx); err != nil {
		return fmt.Errorf("seed permissions: %w", err)
	}
	if err := a.Users.EnsureSuperAdmin(ctx, a.Config.Authz.SuperAdminEmail); err != nil {
		return fmt.Errorf("seed super admin: %w", err)
	}
	return nil
}

func (a *application) Close() {
	a.Events.Wait()
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("redis close error", "error", err)
		}
	}
	if err := a.SQL.Close(); err != nil {
		a.Logger.Error("database close error", "error", err)
	}
}

// initDB opens the gorm connection over pgx and applies the pool settings.
func initDB(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

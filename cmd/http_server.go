package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/access-control/internal/auth"
	"github.com/frahmantamala/access-control/internal/permission"
	"github.com/frahmantamala/access-control/internal/transport"
	"github.com/frahmantamala/access-control/internal/transport/rest"
	"github.com/frahmantamala/access-control/internal/transport/swagger"
	"github.com/frahmantamala/access-control/internal/user"
	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	cfg, err := loadConfig(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	app, err := newApplication(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if cfg.Authz.SeedOnStartup {
		if err := app.Seed(ctx); err != nil {
			app.Logger.Error("seeding failed", "error", err)
			app.Close()
			os.Exit(1)
		}
	}

	router, err := buildRouter(ctx, app)
	if err != nil {
		app.Logger.Error("failed to build router", "error", err)
		app.Close()
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	app.Logger.Info("Starting HTTP server", "address", addr, "revocation_backend", cfg.Revocation.Backend)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		app.Logger.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			app.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("Server failed to start", "error", err)
			app.Close()
			os.Exit(1)
		}
	}

	app.Close()
	app.Logger.Info("Server stopped")
}

func buildRouter(ctx context.Context, app *application) (*chi.Mux, error) {
	doc, err := swagger.Load(ctx)
	if err != nil {
		return nil, err
	}
	openAPI, err := swagger.DocumentHandler(doc)
	if err != nil {
		return nil, err
	}

	checks := map[string]rest.CheckFunc{
		"database": app.SQL.PingContext,
	}
	if app.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}
	}

	base := transport.NewBaseHandler(app.Logger)
	cfg := app.Config

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.RouterConfig{
		Production:     cfg.IsProduction(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.Server.RateLimit,
		RateWindow:     cfg.Server.RateWindow,
		MetricsPath:    cfg.Observability.Metrics.Path,
	}, rest.Handlers{
		Health:      rest.NewHealthHandler(checks),
		Auth:        auth.NewHandler(base, app.Tokens, app.Revocation, app.Users, app.Permissions),
		Guard:       auth.NewGuard(app.Users, app.Permissions, app.Metrics, app.Logger),
		Permissions: permission.NewHandler(base, app.Permissions),
		Users:       user.NewHandler(base, app.Users),
		OpenAPI:     openAPI,
		Metrics:     app.Metrics,
	})
	return router, nil
}

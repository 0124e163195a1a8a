package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/whatif-lab/internal/application"
	"github.com/bryanwahyu/whatif-lab/internal/application/analysis"
	"github.com/bryanwahyu/whatif-lab/internal/config"
	"github.com/bryanwahyu/whatif-lab/internal/domain/scenario"
	"github.com/bryanwahyu/whatif-lab/internal/infra/ai/openai"
	"github.com/bryanwahyu/whatif-lab/internal/infra/ai/prompt"
	"github.com/bryanwahyu/whatif-lab/internal/infra/db/memory"
	"github.com/bryanwahyu/whatif-lab/internal/infra/db/migrations"
	mysqlp "github.com/bryanwahyu/whatif-lab/internal/infra/db/mysql"
	"github.com/bryanwahyu/whatif-lab/internal/infra/db/postgres"
	"github.com/bryanwahyu/whatif-lab/internal/infra/httpserver"
	"github.com/bryanwahyu/whatif-lab/internal/infra/research"
	minioStore "github.com/bryanwahyu/whatif-lab/internal/infra/storage"
	"github.com/bryanwahyu/whatif-lab/internal/infra/video/minimax"
	"github.com/bryanwahyu/whatif-lab/internal/logging"
	"github.com/bryanwahyu/whatif-lab/internal/middleware"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "whatif",
		Short:        "What-if scenario analysis API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	}

	// path config.yaml
	defaultPath := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultPath, "path to config.yaml (env CONFIG_PATH)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	})

	var down bool
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply (or roll back with --down) the scenarios schema",
		RunE: func(_ *cobra.Command, _ []string) error {
			dir := migrations.Up
			if down {
				dir = migrations.Down
			}
			return migrate(configPath, dir)
		},
	}
	migrateCmd.Flags().BoolVar(&down, "down", false, "roll back every migration")
	root.AddCommand(migrateCmd)

	return root
}

func setup(configPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config load error: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Mode)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func migrate(configPath string, dir migrations.Direction) error {
	cfg, logger, err := setup(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Database.Driver == "memory" {
		return errors.New("memory driver has no schema to migrate")
	}
	return migrations.Run(cfg.Database.Driver, cfg.MigrationURL(), dir, logger)
}

// store is what the service and the readiness check need from a scenario store.
type store interface {
	scenario.Repository
	middleware.Pinger
}

// openStore connects the configured driver. The returned close func is never nil.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store, func(), error) {
	if cfg.Database.Driver == "memory" {
		logger.Warn("using in-memory store; records are lost on restart")
		return memory.NewScenarioRepository(), func() {}, nil
	}

	if cfg.Database.AutoMigrate {
		if err := migrations.Run(cfg.Database.Driver, cfg.MigrationURL(), migrations.Up, logger); err != nil {
			return nil, nil, err
		}
	}

	var (
		db  *sql.DB
		err error
	)
	switch cfg.Database.Driver {
	case "mysql":
		db, err = mysqlp.Connect(ctx, cfg.DSN())
	default:
		db, err = postgres.Connect(ctx, cfg.DSN())
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s connect error: %w", cfg.Database.Driver, err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	closeDB := func() { _ = db.Close() }

	if cfg.Database.Driver == "mysql" {
		return mysqlp.NewScenarioRepository(db), closeDB, nil
	}
	return postgres.NewScenarioRepository(db), closeDB, nil
}

func serve(ctx context.Context, configPath string) error {
	cfg, logger, err := setup(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	repo, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	templates, err := prompt.Load()
	if err != nil {
		return err
	}
	catalog, err := prompt.LoadCatalog()
	if err != nil {
		return err
	}

	checks := map[string]middleware.HealthChecker{
		"store": &middleware.StoreHealthChecker{Store: repo},
	}

	httpClient := &http.Client{Timeout: cfg.Completion.Timeout}
	svc := &analysis.Service{
		Gateway:      openai.NewGateway(cfg.Completion.BaseURL, httpClient, templates, logger),
		Instructions: templates,
		Renderer:     minimax.NewClient(cfg.Video.BaseURL, httpClient, templates, logger),
		Research:     research.NewStatic(),
		Repo:         repo,
		Clock:        application.SystemClock{},
		Logger:       logger.Named("analysis"),
		Timeout:      cfg.Completion.Timeout,
	}

	// init minio
	if cfg.Minio.Enabled {
		archive, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return fmt.Errorf("minio init error: %w", err)
		}
		svc.Archive = archive
		checks["archive"] = archive
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillRate)
	defer limiter.Stop()

	handler := httpserver.NewRouter(svc, catalog, httpserver.Options{
		Logger:      logger,
		CORSOrigins: cfg.Server.CORSOrigins,
		Limiter:     limiter,
		Checks:      checks,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", addr), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	logger.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", zap.Error(err))
		return err
	}
	return nil
}

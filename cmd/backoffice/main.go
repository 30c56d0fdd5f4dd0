package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/adsuite/backoffice/internal/app"
	"github.com/adsuite/backoffice/internal/audit"
	audithttp "github.com/adsuite/backoffice/internal/audit/http"
	"github.com/adsuite/backoffice/internal/auth"
	"github.com/adsuite/backoffice/internal/campaigns"
	"github.com/adsuite/backoffice/internal/clients"
	"github.com/adsuite/backoffice/internal/menu"
	"github.com/adsuite/backoffice/internal/observability"
	"github.com/adsuite/backoffice/internal/platform/cache"
	"github.com/adsuite/backoffice/internal/platform/db"
	"github.com/adsuite/backoffice/internal/platform/migration"
	"github.com/adsuite/backoffice/internal/rbac"
	"github.com/adsuite/backoffice/internal/roles"
	"github.com/adsuite/backoffice/internal/shared"
	"github.com/adsuite/backoffice/internal/tags"
	"github.com/adsuite/backoffice/internal/users"
	"github.com/adsuite/backoffice/internal/workreports"
	"github.com/adsuite/backoffice/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("backoffice exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	if cfg.MigrateOnStart {
		if err := migration.RunUp(cfg.PGDSN, logger); err != nil {
			return err
		}
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{})
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)

	rbacRepo := rbac.NewRepository(pool)
	rbacService := rbac.NewService(rbacRepo,
		rbac.WithViewCascade(cfg.RBACViewCascade),
		rbac.WithAuditor(auditLogger),
		rbac.WithLogger(logger),
	)
	if cfg.RBACSeedOnStart {
		summary, err := rbacService.SeedDefaults(ctx)
		if err != nil {
			return err
		}
		logger.Info("permission catalog seeded",
			slog.Int("pages_created", summary.PagesCreated),
			slog.Int("permissions_created", summary.PermissionsCreated))
	}
	evaluator := rbac.NewEvaluator(rbacRepo)
	gate := rbac.Middleware{Evaluator: evaluator, Logger: logger, Metrics: metrics}

	sessions := shared.NewSessionStore(redisClient, cfg.SessionPrefix, cfg.SessionTTL)
	authService := auth.NewService(auth.NewRepository(pool), sessions, logger)

	menuService := menu.NewService(menu.NewRepository(pool))
	usersService := users.NewService(users.NewRepository(pool), menuService, auditLogger, logger)
	if cfg.BootstrapAdminPassword != "" {
		created, err := usersService.EnsureBootstrapAdmin(ctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword)
		if err != nil {
			return err
		}
		if created {
			logger.Info("bootstrap super admin created", slog.String("username", cfg.BootstrapAdminUsername))
		}
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Metrics:            metrics,
		Authenticator:      auth.Middleware{Service: authService, Logger: logger},
		AuthHandler:        auth.NewHandler(logger, authService, cfg.LoginRateLimit),
		RBACHandler:        rbac.NewHandler(logger, rbacService, evaluator, gate),
		MenuHandler:        menu.NewHandler(logger, menuService),
		RolesHandler:       roles.NewHandler(logger, roles.NewService(roles.NewRepository(pool))),
		UsersHandler:       users.NewHandler(logger, usersService),
		ClientsHandler:     clients.NewHandler(logger, clients.NewService(clients.NewRepository(pool), usersService), gate),
		CampaignsHandler:   campaigns.NewHandler(logger, campaigns.NewService(campaigns.NewRepository(pool), usersService), gate),
		WorkReportsHandler: workreports.NewHandler(logger, workreports.NewService(workreports.NewRepository(pool)), gate),
		TagsHandler:        tags.NewHandler(logger, tags.NewService(tags.NewRepository(pool), auditLogger)),
		AuditHandler:       audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(pool))),
		JobHandler:         jobs.NewHandler(inspector, jobClient, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

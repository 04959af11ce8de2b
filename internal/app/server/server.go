package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/jackc/pgx/v5/pgxpool"

	"kiwipay/internal/domain/leave"
	"kiwipay/internal/domain/payroll"
	"kiwipay/internal/platform/config"
	"kiwipay/internal/platform/crypto"
	"kiwipay/internal/platform/db"
	"kiwipay/internal/platform/jobs"
	"kiwipay/internal/platform/metrics"
	"kiwipay/internal/platform/policy"
	"kiwipay/internal/transport/http/api"
	leavehandler "kiwipay/internal/transport/http/handlers/leave"
	payrollhandler "kiwipay/internal/transport/http/handlers/payroll"
	"kiwipay/internal/transport/http/middleware"
)

// Deps is everything the router needs. Pool, Runs and Directory are nil when
// no database is configured.
type Deps struct {
	Config    config.Config
	Logger    *slog.Logger
	Policies  *policy.Registry
	Metrics   *metrics.Collector
	Pool      *pgxpool.Pool
	Runs      payrollhandler.RunQueue
	Directory payrollhandler.Directory
}

// NewLogger builds the JSON logger used for application and request logs.
func NewLogger(w io.Writer, cfg config.Config) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(false)
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       cfg.LogLevel,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "kiwipay"),
		slog.String("env", cfg.Environment),
	)
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.HeaderRequestID},
		ExposedHeaders: []string{middleware.HeaderRequestID, "Location", "Retry-After"},
		MaxAge:         300,
	}))
	router.Use(httplog.RequestLogger(deps.Logger, &httplog.Options{
		Level:  cfg.LogLevel,
		Schema: httplog.SchemaECS,
	}))
	router.Use(middleware.RequestID)
	router.Use(middleware.Metrics(deps.Metrics))
	router.Use(chimw.CleanPath)
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Pool != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Pool.Ping(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, deps.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))

		payrollHandler := payrollhandler.NewHandler(deps.Policies, deps.Runs, deps.Directory, deps.Metrics)
		payrollHandler.RegisterRoutes(r)

		leaveHandler := leavehandler.NewHandler(deps.Policies, leave.NewCalendar(deps.Policies))
		leaveHandler.RegisterRoutes(r)

		r.Get("/policies", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, deps.Policies.Tables(), middleware.GetRequestID(r.Context()))
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.Fail(w, http.StatusNotFound, "not_found", "route not found", middleware.GetRequestID(r.Context()))
	})
	return router
}

func loadPolicies(cfg config.Config) (*policy.Registry, error) {
	if cfg.PolicyFile != "" {
		return policy.LoadFile(cfg.PolicyFile)
	}
	return policy.Default()
}

// Run starts the service and blocks until SIGINT or SIGTERM.
func Run() error {
	cfg := config.Load()
	logger := NewLogger(os.Stdout, cfg)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policies, err := loadPolicies(cfg)
	if err != nil {
		return fmt.Errorf("policy tables: %w", err)
	}
	collector := metrics.New()
	deps := Deps{Config: cfg, Logger: logger, Policies: policies, Metrics: collector}

	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL, int32(cfg.DBMaxConns))
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()

		if cfg.RunMigrations {
			if err := db.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
		}

		cipher, err := crypto.New(cfg.DataEncryptionKey)
		if err != nil {
			return fmt.Errorf("encryption key: %w", err)
		}
		if !cipher.Configured() {
			logger.Warn("DATA_ENCRYPTION_KEY not set, IRD numbers are stored unencrypted")
		}
		store := payroll.NewStore(pool, cipher)
		runner := payroll.NewRunner(store, policies, cfg.PayrollWorkers, collector, logger)
		jobsSvc := jobs.New(runner, cfg.JobQueueSize, logger)
		jobsSvc.Start(ctx)

		deps.Pool = pool
		deps.Runs = jobsSvc
		deps.Directory = store
	} else {
		logger.Warn("DATABASE_URL not set, payroll runs and employee storage are disabled")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("kiwipay listening", "addr", cfg.Addr, "policyTables", len(policies.Tables()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/dahlia/config"
	"github.com/Ramsey-B/dahlia/pkg/database"
	"github.com/Ramsey-B/dahlia/pkg/events"
	"github.com/Ramsey-B/dahlia/pkg/geometry"
	"github.com/Ramsey-B/dahlia/pkg/middleware"
	"github.com/Ramsey-B/dahlia/pkg/reconcile"
	"github.com/Ramsey-B/dahlia/pkg/redis"
	"github.com/Ramsey-B/dahlia/pkg/repositories"
	"github.com/Ramsey-B/dahlia/pkg/routes/fields"
	"github.com/Ramsey-B/dahlia/pkg/routes/health"
	"github.com/Ramsey-B/dahlia/pkg/routes/partners"
	"github.com/Ramsey-B/dahlia/pkg/routes/sessions"
	"github.com/Ramsey-B/dahlia/pkg/session"
	"github.com/Ramsey-B/dahlia/pkg/startup"
	"github.com/Ramsey-B/dahlia/pkg/templateapi"
	"github.com/Ramsey-B/dahlia/pkg/tracing"
)

const version = "1.0.0"

func main() {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	cfg := &config.Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))

	var (
		db          *database.DatabaseInstance
		redisClient *redis.Client
		producer    *events.Producer
	)

	boot := startup.New(logger, cfg.StartupMaxAttempts)
	boot.Add(startup.Func{
		DependencyName: "postgres",
		StartFunc: func(_ context.Context) error {
			var err error
			if db, err = connectDatabase(cfg, logger); err != nil {
				return err
			}
			return runMigrations(cfg, logger, db)
		},
		StopFunc: func(_ context.Context) error { return db.Close() },
	})
	boot.Add(startup.Func{
		DependencyName: "redis",
		StartFunc: func(_ context.Context) error {
			var err error
			redisClient, err = redis.NewClient(redis.Config{
				Host:     cfg.RedisHost,
				Port:     cfg.RedisPort,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}, logger)
			return err
		},
		StopFunc: func(_ context.Context) error { return redisClient.Close() },
	})
	if cfg.KafkaEnabled {
		boot.Add(startup.Func{
			DependencyName: "kafka",
			StartFunc: func(_ context.Context) error {
				producer = events.NewProducer(events.ProducerConfig{
					Brokers:      cfg.KafkaBrokers,
					Topic:        cfg.KafkaOutputTopic,
					BatchSize:    cfg.KafkaBatchSize,
					BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
					RequiredAcks: cfg.KafkaRequiredAcks,
					Compression:  cfg.KafkaCompression,
				}, logger)
				return nil
			},
			StopFunc: func(_ context.Context) error { return producer.Close() },
		})
	}

	if err := boot.Start(context.Background()); err != nil {
		logger.WithError(err).Error("Failed to start dependencies")
		os.Exit(1)
	}

	templates := templateapi.NewClient(templateapi.Config{
		BaseURL:    cfg.TemplateAPIBaseURL,
		Timeout:    cfg.TemplateAPITimeout,
		AuthHeader: cfg.TemplateAPIAuthToken,
	}, logger)

	saver := reconcile.NewSaver(templates, reconcile.OrderedCorrelator{}, logger)
	drafts := repositories.NewDraftRepository(db, logger)
	locker := redis.NewLocker(redisClient, "")

	manager := session.NewManager(templates, locker, saver, drafts, producer, logger, session.ManagerConfig{
		IdleTTL:       cfg.SessionIdleTTL,
		SweepEvery:    cfg.SessionSweepEvery,
		AutosaveEvery: cfg.DraftAutosaveEvery,
		EditLockTTL:   cfg.EditLockTTL,
		DefaultPage:   geometry.PageSize{Width: cfg.DefaultPageWidthPx, Height: cfg.DefaultPageHeightPx},
	})

	runCtx, stopManager := context.WithCancel(context.Background())
	go manager.Run(runCtx)

	if err := registerDependencies(logger, manager); err != nil {
		logger.WithError(err).Error("Failed to register dependencies")
		os.Exit(1)
	}

	checker := health.NewChecker(dbPinger{db: db}, redisClient, version)

	e := newServer(cfg, logger)
	checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	sessions.Register(api.Group("/sessions"))
	fields.Register(api.Group("/sessions/:id/fields"))
	partners.Register(api.Group("/sessions/:id/partners"))

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:    time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:   time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:    time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("%s listening on port %d", cfg.AppName, cfg.Port)
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server failed")
			os.Exit(1)
		}
	}()

	checker.SetReady(true)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	checker.SetReady(false)
	stopManager()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}

	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Dependency shutdown failed")
	}
}

func newLogger(cfg *config.Config) ectologger.Logger {
	marshal := json.Marshal
	if cfg.PrettyLogs {
		marshal = func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }
	}

	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		b, err := marshal(msg)
		if err != nil {
			fmt.Fprintln(os.Stderr, msg.Message)
			return
		}
		fmt.Fprintln(os.Stdout, string(b))
	})
}

func connectDatabase(cfg *config.Config, logger ectologger.Logger) (*database.DatabaseInstance, error) {
	port, err := strconv.Atoi(cfg.DatabasePort)
	if err != nil {
		return nil, fmt.Errorf("invalid database port %q: %w", cfg.DatabasePort, err)
	}

	return database.Connect(database.Config{
		Driver:          cfg.DatabaseDriver,
		Host:            cfg.DatabaseHost,
		Port:            port,
		User:            cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}, logger)
}

func runMigrations(cfg *config.Config, logger ectologger.Logger, db *database.DatabaseInstance) error {
	driver, err := migratepg.WithInstance(db.DB.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	return migrations.Migrate(cfg.DatabaseName, driver)
}

func registerDependencies(logger ectologger.Logger, manager *session.Manager) error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}

	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return err
	}
	return ectoinject.RegisterInstance[*session.Manager](container, manager)
}

func newServer(cfg *config.Config, logger ectologger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	return e
}

// dbPinger adapts the database pool to the health checker's probe.
type dbPinger struct {
	db database.DB
}

func (p dbPinger) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

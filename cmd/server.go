package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"academic-scheduler/internal/api/handlers"
	"academic-scheduler/internal/api/router"
	"academic-scheduler/internal/auth"
	"academic-scheduler/internal/config"
	domain "academic-scheduler/internal/domain/scheduling"
	"academic-scheduler/internal/infrastructure/cache"
	"academic-scheduler/internal/infrastructure/database"
	"academic-scheduler/internal/infrastructure/repository"
	interfaces "academic-scheduler/internal/interfaces/infrastructure"
	"academic-scheduler/internal/service"
	"academic-scheduler/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	port          string
	skipMigration bool
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server",
	Long: `Start the makeup scheduling API.
With database.driver=postgres the server applies pending migrations and serves
from PostgreSQL; with database.driver=memory it serves from an empty in-process store.`,
	Run: func(cmd *cobra.Command, args []string) {
		startServer()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVarP(&port, "port", "p", "8080", "Port for the server to listen on")
	serverCmd.Flags().BoolVar(&skipMigration, "skip-migrations", false, "Do not apply pending migrations on start")
}

// repositories is the storage side of the services, backed by postgres or memory.
type repositories struct {
	students    interfaces.StudentRepository
	professors  interfaces.ProfessorRepository
	absences    interfaces.AbsenceRepository
	timetable   interfaces.TimetableRepository
	debts       interfaces.DebtRepository
	titles      interfaces.TitleRepository
	store       interfaces.SchedulingStore
	idempotency interfaces.IdempotencyRepository
	health      handlers.HealthCheckFunc
	close       func() error
}

func openPostgres(cfg *config.Config) (*repositories, error) {
	db, err := database.NewConnection(databaseConfig(cfg))
	if err != nil {
		return nil, err
	}

	if !skipMigration {
		if err := database.RunMigrations(db, cfg.Database.MigrationsDir); err != nil {
			return nil, err
		}
	}

	reader, err := database.NewReader(db)
	if err != nil {
		return nil, err
	}

	return &repositories{
		students:    repository.NewStudentRepository(db),
		professors:  repository.NewProfessorRepository(db),
		absences:    repository.NewAbsenceRepository(reader),
		timetable:   repository.NewTimetableRepository(db, reader),
		debts:       repository.NewDebtRepository(reader),
		titles:      repository.NewTitleRepository(db),
		store:       repository.NewSchedulingStore(db, cfg.Database.TxRetries),
		idempotency: repository.NewIdempotencyRepository(db),
		health: func(ctx context.Context) error {
			return database.HealthCheck(ctx, db)
		},
		close: reader.Close,
	}, nil
}

func openMemory() *repositories {
	store := repository.NewMemoryStore()
	return &repositories{
		students:    store.Students(),
		professors:  store.Professors(),
		absences:    store,
		timetable:   store,
		debts:       store,
		titles:      store,
		store:       store,
		idempotency: store.Idempotency(),
		health:      func(ctx context.Context) error { return nil },
		close:       func() error { return nil },
	}
}

func buildServices(cfg *config.Config) (router.Services, func(), error) {
	var repos *repositories
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("Using the in-memory store, data is lost on exit")
		repos = openMemory()
	case "postgres", "":
		var err error
		repos, err = openPostgres(cfg)
		if err != nil {
			return router.Services{}, nil, err
		}
	default:
		return router.Services{}, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	var cacheService interfaces.CacheService
	idempotencyRepo := repos.idempotency
	if cfg.Cache.Type == "redis" {
		redisCache := cache.NewRedisCacheWithConfig(&cfg.Cache)
		cacheService = redisCache
		idempotencyRepo = repository.NewRedisIdempotencyRepository(redisCache.GetClient())
	} else {
		cacheService = cache.NewMemoryCache()
	}

	policy := domain.NewPolicy(cfg.Makeup.CapacityExemptTypes, cfg.Makeup.BoundToNextSession)
	busyTime := service.NewBusyTimeAggregator(repos.timetable)
	progress := service.NewProgressService(repos.titles, repos.timetable, cacheService, cfg.Cache.ProgressTTLDuration())

	services := router.Services{
		Makeup:       service.NewMakeupService(repos.students, repos.absences, repos.timetable, repos.store, busyTime, progress, policy),
		Attendance:   service.NewAttendanceService(repos.students, repos.absences, progress),
		Schedule:     service.NewScheduleService(repos.students, busyTime),
		Debt:         service.NewDebtService(repos.students, repos.debts, repos.timetable, repos.store, policy),
		Compensation: service.NewCompensationService(repos.store),
		Progress:     progress,
		Auth:         service.NewAuthService(repos.students, repos.professors, auth.BcryptVerifier{}, cfg.Auth),
		Idempotency:  service.NewIdempotencyService(idempotencyRepo),
		HealthChecks: map[string]handlers.HealthCheckFunc{
			"database": repos.health,
			"cache":    cacheService.Health,
		},
	}

	cleanup := func() {
		if err := cacheService.Close(); err != nil {
			logger.Warn("Failed to close cache: %v", err)
		}
		if err := repos.close(); err != nil {
			logger.Warn("Failed to close database: %v", err)
		}
	}
	return services, cleanup, nil
}

func startServer() {
	cfg := config.Get()

	// Override port if flag is provided
	if port != "8080" {
		cfg.Server.Port = port
	}
	if cfg.Auth.Enabled && cfg.Auth.JWTSecret == "change-me" {
		logger.Warn("Authentication is enabled with the default JWT secret")
	}

	services, cleanup, err := buildServices(cfg)
	if err != nil {
		logger.Error("Failed to initialize storage: %v", err)
		os.Exit(1)
	}
	defer cleanup()

	// Redis expires idempotency keys itself; the SQL and memory stores need a sweep.
	purgeCtx, stopPurger := context.WithCancel(context.Background())
	defer stopPurger()
	if cfg.Cache.Type != "redis" {
		go services.Idempotency.RunPurger(purgeCtx, time.Hour)
	}

	srv := &http.Server{
		Addr:           ":" + cfg.Server.Port,
		Handler:        router.NewRouter(cfg, services),
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Info("Starting server on port %s (driver=%s, cache=%s, auth=%t)",
			cfg.Server.Port, cfg.Database.Driver, cfg.Cache.Type, cfg.Auth.Enabled)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Give in-flight enrollments time to commit
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

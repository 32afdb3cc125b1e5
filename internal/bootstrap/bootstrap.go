package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	appControllers "github.com/schoolguidance/tracker/internal/app/controllers"
	appMigrations "github.com/schoolguidance/tracker/internal/app/migrations"
	appRepos "github.com/schoolguidance/tracker/internal/app/repositories"
	appRoutes "github.com/schoolguidance/tracker/internal/app/routes"
	appServices "github.com/schoolguidance/tracker/internal/app/services"
	"github.com/schoolguidance/tracker/internal/config"
	"github.com/schoolguidance/tracker/internal/db"
	appMiddleware "github.com/schoolguidance/tracker/internal/middleware"
	pkgAuth "github.com/schoolguidance/tracker/internal/pkg/auth"
	"github.com/schoolguidance/tracker/internal/pkg/email"
	"github.com/schoolguidance/tracker/internal/pkg/helpers"
	"github.com/schoolguidance/tracker/internal/pkg/logger"
	"github.com/schoolguidance/tracker/internal/pkg/throttle"
	"github.com/schoolguidance/tracker/internal/pkg/websocket"
	"github.com/schoolguidance/tracker/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Services       *appServices.Services
	Controllers    appRoutes.Controllers
	AuthMiddleware *appMiddleware.AuthMiddleware
	JWTService     *pkgAuth.JWTService
	Hub            *websocket.Hub
	Redis          *redis.Client // nil when no Redis address is configured
	Logger         zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"
	host, _ := os.Hostname()

	logger.Configure(logger.Config{
		Level:        logLevel,
		Pretty:       prettyLog,
		RollbarToken: cfg.Logging.RollbarToken,
		Environment:  cfg.Logging.Environment,
		ServerHost:   host,
	})

	lgr := logger.Get()
	lgr.Info().
		Str("logLevel", string(logLevel)).
		Str("logFormat", cfg.Logging.Format).
		Bool("rollbar", cfg.Logging.RollbarToken != "").
		Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection, runs migrations and
// seeds the default data.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbPool.Ping(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		dbPool.Close()
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	if err := RunMigrations(context.Background(), dbPool, cfg.Database.MigrationsDir, lgr); err != nil {
		dbPool.Close()
		return nil, err
	}

	if err := seed.CreateDefaultData(context.Background(), appRepos.NewRepositories(dbPool), SeedOptions(cfg), lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	return dbPool, nil
}

// RunMigrations applies every pending migration file in dir
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, dir string, lgr zerolog.Logger) error {
	lgr.Info().Str("path", dir).Msg("Running database migrations...")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		lgr.Error().Str("path", dir).Msg("Migrations directory not found")
		return fmt.Errorf("migrations directory not found at %s: %w", dir, err)
	}

	if err := appMigrations.NewMigrator(pool).MigrateFromDirectory(ctx, dir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return fmt.Errorf("database migrations failed: %w", err)
	}

	lgr.Info().Msg("Database migrations successfully applied.")
	return nil
}

// SeedOptions maps the security config onto the seed options
func SeedOptions(cfg *config.Config) seed.Options {
	return seed.Options{AdminPassword: cfg.Security.DefaultAdminPasswd}
}

// NewRedisClient returns nil when no address is configured
func NewRedisClient(cfg *config.Config, lgr zerolog.Logger) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		lgr.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, using in-memory login throttle")
		_ = client.Close()
		return nil
	}
	lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connected")
	return client
}

// NewLimiter picks the Redis limiter when a client is available
func NewLimiter(cfg *config.Config, client *redis.Client) throttle.Limiter {
	window := helpers.ParseDuration(cfg.Security.LoginWindow, 15*time.Minute)
	if client != nil {
		return throttle.NewRedisLimiter(client, cfg.Security.LoginMaxAttempts, window)
	}
	return throttle.NewMemoryLimiter(cfg.Security.LoginMaxAttempts, window)
}

// NewJWTService builds the token service from config
func NewJWTService(cfg *config.Config) *pkgAuth.JWTService {
	return pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 1*time.Hour),
		RefreshTokenExp: helpers.ParseDuration(cfg.JWT.RefreshTokenExpiration, 720*time.Hour),
		TokenIssuer:     cfg.JWT.Issuer,
	})
}

// NewMailer builds the email service from config
func NewMailer(cfg *config.Config, lgr zerolog.Logger) email.EmailService {
	return email.NewEmailService(email.Config{
		SMTP: email.SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			UseTLS:   cfg.Email.SMTPPort == 465,
		},
		SendGridAPIKey: cfg.Email.SendGridAPIKey,
		FromName:       cfg.Email.FromName,
		FromEmail:      cfg.Email.FromAddress,
		BaseURL:        cfg.Email.BaseURL,
	}, lgr)
}

// BuildDependencies initializes services, the websocket hub and controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.JWTService = NewJWTService(cfg)
	deps.Redis = NewRedisClient(cfg, lgr)

	deps.Hub = websocket.NewHub(lgr)
	go deps.Hub.Run()

	deps.Services = appServices.NewServices(appServices.Dependencies{
		Store:    appServices.NewStore(dbPool),
		JWT:      deps.JWTService,
		Limiter:  NewLimiter(cfg, deps.Redis),
		Mailer:   NewMailer(cfg, lgr),
		Pusher:   deps.Hub,
		Logger:   lgr,
		Settings: appServices.SettingsOptions{CacheTTL: helpers.ParseDuration(cfg.Security.SettingsCacheTTL, 30*time.Second)},
		Security: appServices.SecurityOptions{PasswordResetTTL: helpers.ParseDuration(cfg.Security.PasswordResetTTL, time.Hour)},
	})

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	inbound := websocket.NewMessageHandler(deps.Services.Notifications, deps.Hub, lgr)
	wsHandler := websocket.NewHandler(deps.Hub, deps.JWTService, inbound, lgr)

	s := deps.Services
	deps.Controllers = appRoutes.Controllers{
		Auth:          appControllers.NewAuthController(s.Auth, lgr),
		Students:      appControllers.NewStudentController(s.Students, lgr),
		Teachers:      appControllers.NewTeacherController(s.Teachers, lgr),
		Reports:       appControllers.NewReportController(s.Reports, lgr),
		Violations:    appControllers.NewViolationController(s.Violations, lgr),
		Notifications: appControllers.NewNotificationController(s.Notifications, lgr),
		SchoolYears:   appControllers.NewSchoolYearController(s.SchoolYears, lgr),
		Counselor:     appControllers.NewCounselorController(s.Dashboard, s.Counseling, lgr),
		System:        appControllers.NewSystemController(s.Settings, lgr),
		WebSocket:     wsHandler.HandleConnection,
	}

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	if err := appMiddleware.RegisterValidators(); err != nil {
		lgr.Error().Err(err).Msg("Failed to register custom validators")
	}

	router := gin.New()
	router.Use(
		appMiddleware.Recovery(),
		appMiddleware.RequestLogger(lgr),
		appMiddleware.SystemStatus(deps.Services.Settings, deps.JWTService, lgr),
	)

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware)

	return router
}

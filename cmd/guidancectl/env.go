package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	appServices "github.com/schoolguidance/tracker/internal/app/services"
	"github.com/schoolguidance/tracker/internal/config"
	"github.com/schoolguidance/tracker/internal/db"
	"github.com/schoolguidance/tracker/internal/pkg/helpers"
	"github.com/schoolguidance/tracker/internal/pkg/logger"
)

// globalOptions are the flags shared by every subcommand
type globalOptions struct {
	ConfigPath string
	LogLevel   string
	Timeout    time.Duration
}

func (o *globalOptions) bind(flags *pflag.FlagSet) {
	flags.StringVarP(&o.ConfigPath, "config", "c", "configs/config.yaml", "path to the YAML config file")
	flags.StringVar(&o.LogLevel, "log-level", "", "override the configured log level")
	flags.DurationVar(&o.Timeout, "timeout", 10*time.Minute, "abort the command after this long")
}

// env is an open database plus the loaded config
type env struct {
	cfg  *config.Config
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// open loads config, configures console logging and connects to Postgres
func (o *globalOptions) open(ctx context.Context) (*env, error) {
	cfg, err := config.LoadConfig(o.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level := cfg.Logging.Level
	if o.LogLevel != "" {
		level = o.LogLevel
	}
	logger.Configure(logger.Config{
		Level:        logger.LogLevel(strings.ToLower(level)),
		Pretty:       true,
		RollbarToken: cfg.Logging.RollbarToken,
		Environment:  cfg.Logging.Environment,
		ServerHost:   "guidancectl",
	})
	lgr := logger.Get()

	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := database.Pool.Ping(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &env{cfg: cfg, pool: database.Pool, log: lgr}, nil
}

func (e *env) close() {
	e.pool.Close()
}

// services builds the service layer without push or mail delivery
func (e *env) services() *appServices.Services {
	return appServices.NewServices(appServices.Dependencies{
		Store:    appServices.NewStore(e.pool),
		Logger:   e.log,
		Settings: appServices.SettingsOptions{CacheTTL: helpers.ParseDuration(e.cfg.Security.SettingsCacheTTL, 30*time.Second)},
		Security: appServices.SecurityOptions{PasswordResetTTL: helpers.ParseDuration(e.cfg.Security.PasswordResetTTL, time.Hour)},
	})
}

// withEnv wraps a command body with timeout, connection setup and teardown
func withEnv(opts *globalOptions, fn func(ctx context.Context, e *env) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
		defer cancel()

		e, err := opts.open(ctx)
		if err != nil {
			return err
		}
		defer e.close()
		return fn(ctx, e)
	}
}

package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jinzhu/copier"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"
	"github.com/tendant/simple-signup/pkg/account"
	"github.com/tendant/simple-signup/pkg/config"
	"github.com/tendant/simple-signup/pkg/credentials"
	"github.com/tendant/simple-signup/pkg/notification"
	"github.com/tendant/simple-signup/pkg/ratelimit"
	"github.com/tendant/simple-signup/pkg/recovery"
	recoveryapi "github.com/tendant/simple-signup/pkg/recovery/api"
	"github.com/tendant/simple-signup/pkg/tokengen"
	"github.com/tendant/simple-signup/pkg/verification"
	verificationapi "github.com/tendant/simple-signup/pkg/verification/api"
	"golang.org/x/time/rate"
)

type PasswordConfig struct {
	MinLength int `env:"PASSWORD_MIN_LENGTH" env-default:"6"`
}

type Config struct {
	BaseURL         string `env:"BASE_URL" env-default:"http://localhost:4000"`
	FrontendURL     string `env:"FRONTEND_URL" env-default:"http://localhost:3000"`
	TokenTTL        string `env:"TOKEN_TTL" env-default:"15m"`
	DatabaseConfig  config.DatabaseConfig
	EmailConfig     config.EmailConfig
	RateLimitConfig config.RateLimitConfig
	PasswordConfig  PasswordConfig
	AppConfig       app.AppConfig
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	loadEnvFile()

	cfg := Config{}
	cleanenv.ReadEnv(&cfg)

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	dbConfig := cfg.DatabaseConfig.ToDbConfig()
	pool, err := dbutils.NewDbPool(context.Background(), dbConfig)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
		os.Exit(-1)
	}

	accountRepo, err := account.NewAccountRepository("postgres", account.RepositoryConfig{Pool: pool})
	if err != nil {
		slog.Error("Failed creating account repository", "error", err)
		os.Exit(-1)
	}

	notificationManager, err := notification.NewManagerWithOptions(
		notification.WithSMTP(cfg.EmailConfig.ToSMTPConfig()),
		notification.WithDefaultTemplates(),
	)
	if err != nil {
		slog.Error("Failed creating notification manager", "error", err)
		os.Exit(-1)
	}

	tokenTTL, err := time.ParseDuration(cfg.TokenTTL)
	if err != nil {
		slog.Warn("Invalid TOKEN_TTL, using default", "value", cfg.TokenTTL)
		tokenTTL = tokengen.DefaultTTL
	}
	generator := tokengen.NewGenerator(tokengen.WithTTL(tokenTTL))

	limiter := ratelimit.NewLimiter(
		ratelimit.NewPostgresAttemptStore(pool),
		ratelimit.WithWindow(cfg.RateLimitConfig.CooldownWindow),
	)

	var policy credentials.Policy
	copier.Copy(&policy, &cfg.PasswordConfig)
	credentialManager := credentials.NewManager(
		credentials.NewPostgresStore(pool),
		credentials.WithPolicy(&policy),
	)

	verificationService := verification.NewService(accountRepo, limiter, generator,
		verification.WithNotificationManager(notificationManager),
		verification.WithBaseURL(cfg.BaseURL),
	)

	recoveryService := recovery.NewService(accountRepo, credentialManager, limiter, generator,
		recovery.WithNotificationManager(notificationManager),
		recovery.WithBaseURL(cfg.BaseURL),
	)

	corsMiddleware := cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	var perIP *ratelimit.Middleware
	if cfg.RateLimitConfig.PerIPEnabled {
		perIP = ratelimit.NewMiddleware(
			rate.Limit(cfg.RateLimitConfig.PerIPRefillRate),
			cfg.RateLimitConfig.PerIPBurst,
		)
	}

	mountFlow := func(pattern string, register func(chi.Router)) {
		server.R.Route(pattern, func(r chi.Router) {
			r.Use(corsMiddleware)
			r.Use(middleware.Timeout(10 * time.Second))
			if perIP != nil {
				r.Use(perIP.Handler)
			}
			register(r)
		})
	}

	mountFlow("/verification", verificationapi.NewHandle(verificationService).Routes)
	mountFlow("/recovery", recoveryapi.NewHandle(recoveryService).Routes)

	slog.Info("Signup service ready", "base_url", cfg.BaseURL)
	server.Run()
}

// loadEnvFile loads environment variables from a .env file if one exists
// next to the binary or in the working directory.
func loadEnvFile() {
	execPath, err := os.Executable()
	if err != nil {
		return
	}

	envFile := filepath.Join(filepath.Dir(execPath), ".env")
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		cwd, _ := os.Getwd()
		envFile = filepath.Join(cwd, ".env")
	}

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		slog.Debug("No .env file found (using environment variables or defaults)")
		return
	}

	slog.Info("Loading configuration from .env file", "path", envFile)
	if err := godotenv.Load(envFile); err != nil {
		slog.Warn("Failed to load .env file", "error", err)
	}
}

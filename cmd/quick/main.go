package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/chi-demo/app"
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
)

// Quick-start service backed by file storage. No database required; state
// lives in JSON files under the data directory. The issuance cooldown store
// is process local here, so run a single instance.
type Config struct {
	BaseURL     string `env:"BASE_URL" env-default:"http://localhost:4000"`
	FrontendURL string `env:"FRONTEND_URL" env-default:"http://localhost:3000"`
	DataDir     string `env:"DATA_DIR" env-default:"./data"`
	DemoEmail   string `env:"DEMO_EMAIL" env-default:"demo@example.com"`
	AppConfig   app.AppConfig
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))
	slog.SetDefault(logger)

	cfg := Config{}
	cleanenv.ReadEnv(&cfg)

	accountRepo, err := account.NewAccountRepository("file", account.RepositoryConfig{DataDir: cfg.DataDir})
	if err != nil {
		slog.Error("Failed creating account repository", "error", err)
		os.Exit(-1)
	}

	credentialStore, err := credentials.NewFileStore(cfg.DataDir)
	if err != nil {
		slog.Error("Failed creating credential store", "error", err)
		os.Exit(-1)
	}

	// SMTP is optional for the quick start; without it issuance succeeds
	// and links are visible in the data files.
	var managerOpts []notification.ManagerOption
	if config.GetEnv("EMAIL_HOST") != "" {
		emailConfig := config.NewEmailConfigFromEnv()
		managerOpts = append(managerOpts,
			notification.WithSMTP(emailConfig.ToSMTPConfig()),
			notification.WithDefaultTemplates(),
		)
	}
	notificationManager, err := notification.NewManagerWithOptions(managerOpts...)
	if err != nil {
		slog.Error("Failed creating notification manager", "error", err)
		os.Exit(-1)
	}

	generator := tokengen.NewGenerator()
	limiter := ratelimit.NewLimiter(ratelimit.NewInMemAttemptStore())
	credentialManager := credentials.NewManager(credentialStore)

	verificationService := verification.NewService(accountRepo, limiter, generator,
		verification.WithNotificationManager(notificationManager),
		verification.WithBaseURL(cfg.BaseURL),
	)

	recoveryService := recovery.NewService(accountRepo, credentialManager, limiter, generator,
		recovery.WithNotificationManager(notificationManager),
		recovery.WithBaseURL(cfg.BaseURL),
	)

	demoAccount := seedDemoAccount(accountRepo, cfg.DemoEmail)

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)

	corsMiddleware := cors.Handler(cors.Options{
		AllowedOrigins: []string{cfg.FrontendURL},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})

	mountFlow := func(pattern string, register func(chi.Router)) {
		server.R.Route(pattern, func(r chi.Router) {
			r.Use(corsMiddleware)
			r.Use(middleware.Timeout(10 * time.Second))
			register(r)
		})
	}

	mountFlow("/verification", verificationapi.NewHandle(verificationService).Routes)
	mountFlow("/recovery", recoveryapi.NewHandle(recoveryService).Routes)

	slog.Info(strings.Repeat("=", 60))
	slog.Info("Quick Signup Service Ready")
	slog.Info("Base URL: " + cfg.BaseURL)
	if demoAccount != nil {
		slog.Info("Demo account", "user_id", demoAccount.ID, "email", demoAccount.Email)
	}
	slog.Info("")
	slog.Info("API Endpoints:")
	slog.Info("  POST /verification/start     - Issue a verification token")
	slog.Info("  POST /verification/resend    - Re-issue under cooldown")
	slog.Info("  GET  /verification/validate  - Validate a token")
	slog.Info("  POST /recovery/start         - Request a password reset")
	slog.Info("  POST /recovery/apply         - Apply a password reset")
	slog.Info(strings.Repeat("=", 60))

	server.Run()
}

// seedDemoAccount makes sure a demo account exists so the endpoints can be
// exercised right away.
func seedDemoAccount(repo account.Repository, email string) *account.Account {
	ctx := context.Background()

	acct, err := repo.GetByEmail(ctx, email)
	if err == nil {
		return acct
	}

	acct, err = repo.Create(ctx, email)
	if err != nil {
		slog.Warn("Failed to seed demo account", "email", email, "error", err)
		return nil
	}
	return acct
}

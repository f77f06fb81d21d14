// Package main runs the portal without PostgreSQL or Redis, backed by
// in-memory repositories and a local SSO provider that verifies real TOTP
// codes. Useful for development, demos and integration testing. All state is
// lost on shutdown; production deployments use cmd/portal.
package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/chi-demo/app"

	"github.com/learnpath/cert-portal/pkg/checkout"
	"github.com/learnpath/cert-portal/pkg/client"
	"github.com/learnpath/cert-portal/pkg/config"
	"github.com/learnpath/cert-portal/pkg/loginflow"
	"github.com/learnpath/cert-portal/pkg/notification"
	"github.com/learnpath/cert-portal/pkg/sessionbridge"
	"github.com/learnpath/cert-portal/pkg/sessions"
	"github.com/learnpath/cert-portal/pkg/sessionstore"
	"github.com/learnpath/cert-portal/pkg/ssoprovider"
	"github.com/learnpath/cert-portal/pkg/ssosession"
)

type EmailConfig struct {
	Host     string `env:"EMAIL_HOST" env-default:"localhost"`
	Port     uint16 `env:"EMAIL_PORT" env-default:"1025"`
	Username string `env:"EMAIL_USERNAME" env-default:"noreply@example.com"`
	Password string `env:"EMAIL_PASSWORD" env-default:"pwd"`
	From     string `env:"EMAIL_FROM" env-default:"noreply@example.com"`
	TLS      bool   `env:"EMAIL_TLS" env-default:"false"`
}

type Config struct {
	EmailConfig EmailConfig
	// SeedEmail creates a ready-to-use verified account on startup
	SeedEmail    string `env:"SEED_EMAIL" env-default:"dev@example.com"`
	SeedName     string `env:"SEED_NAME" env-default:"Dev User"`
	SeedPassword string `env:"SEED_PASSWORD" env-default:"devpass1!"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting in-memory portal (no database required)")

	cfg := Config{}
	cleanenv.ReadEnv(&cfg)

	channelCfg := config.NewChannelConfigFromEnv()
	ssoCfg := config.NewSSOConfigFromEnv()
	cookieCfg := config.DefaultCookieConfig()
	cookieCfg.Domain = ""
	cookieCfg.Secure = false
	flowCfg := config.NewFlowConfigFromEnv()
	checkoutCfg := config.NewCheckoutConfigFromEnv()
	policy := config.DefaultMerchantPolicy()

	notificationManager, err := notification.NewNotificationManagerWithOptions(
		notification.WithSMTP(notification.SMTPConfig{
			Host:     cfg.EmailConfig.Host,
			Port:     int(cfg.EmailConfig.Port),
			Username: cfg.EmailConfig.Username,
			Password: cfg.EmailConfig.Password,
			From:     cfg.EmailConfig.From,
			TLS:      cfg.EmailConfig.TLS,
		}),
		notification.WithDefaultTemplates(),
	)
	if err != nil {
		slog.Error("Failed to initialize notification manager", "err", err)
		os.Exit(-1)
	}

	provider := ssoprovider.NewDevProvider(notificationManager)
	if cfg.SeedEmail != "" {
		if err := provider.SeedUser(cfg.SeedEmail, cfg.SeedName, cfg.SeedPassword); err != nil {
			slog.Error("Failed to seed dev user", "err", err)
		} else {
			slog.Info("Seeded dev user", "email", cfg.SeedEmail, "password", cfg.SeedPassword)
		}
	}

	manager := sessionstore.NewManager()
	go func() {
		for range time.Tick(10 * time.Minute) {
			manager.PurgeIdle(time.Hour)
		}
	}()

	codec := sessionbridge.NewCookieCodec(cookieCfg)
	registry := client.NewVisitorRegistry(manager, codec)

	bridge := sessionbridge.NewBridge(sessionbridge.NewInMemRepository())
	records := sessions.NewService(sessions.NewInMemRepository())

	sessionSvc := ssosession.NewService(provider, bridge, channelCfg, ssoCfg, policy,
		ssosession.WithSessionRecords(records))
	flowSvc := loginflow.NewService(provider, sessionSvc, flowCfg)
	checkoutSvc := checkout.NewService(bridge, channelCfg, ssoCfg, checkoutCfg, policy)

	sessionHandle := ssosession.NewHandle(sessionSvc, registry)
	flowHandle := loginflow.NewHandle(flowSvc, registry)
	checkoutHandle := checkout.NewHandle(checkoutSvc, registry)

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	server.R.Route("/api", func(r chi.Router) {
		r.Route("/session", sessionHandle.Routes)
		r.Route("/flow", flowHandle.Routes)
		r.Route("/checkout", checkoutHandle.Routes)
	})

	server.Run()
}

package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"

	"github.com/learnpath/cert-portal/pkg/checkout"
	"github.com/learnpath/cert-portal/pkg/client"
	"github.com/learnpath/cert-portal/pkg/config"
	"github.com/learnpath/cert-portal/pkg/loginflow"
	"github.com/learnpath/cert-portal/pkg/ratelimit"
	"github.com/learnpath/cert-portal/pkg/sessionbridge"
	"github.com/learnpath/cert-portal/pkg/sessions"
	"github.com/learnpath/cert-portal/pkg/sessionstore"
	"github.com/learnpath/cert-portal/pkg/ssoprovider"
	"github.com/learnpath/cert-portal/pkg/ssosession"
)

type PortalDbConfig struct {
	Host     string `env:"PORTAL_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"PORTAL_PG_PORT" env-default:"5432"`
	Database string `env:"PORTAL_PG_DATABASE" env-default:"portal_db"`
	User     string `env:"PORTAL_PG_USER" env-default:"portal"`
	Password string `env:"PORTAL_PG_PASSWORD" env-default:"pwd"`
}

func (d PortalDbConfig) toDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" env-default:""`
	DB       int    `env:"REDIS_DB" env-default:"0"`
	// BridgeTTL expires a visitor's bridge records after inactivity
	BridgeTTL string `env:"BRIDGE_TTL" env-default:"2h"`
}

type AdminConfig struct {
	JwtSecret string `env:"ADMIN_JWT_SECRET" env-default:"change-me-in-production"`
}

type Config struct {
	PortalDbConfig PortalDbConfig
	RedisConfig    RedisConfig
	AdminConfig    AdminConfig
}

func loadEnvFile() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return
	}
	if err := godotenv.Load(envFile); err != nil {
		slog.Error("Failed to load .env file", "err", err, "path", envFile)
		return
	}
	slog.Info("Configuration loaded from .env file", "path", envFile)
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	loadEnvFile()

	cfg := Config{}
	cleanenv.ReadEnv(&cfg)

	channelCfg := config.NewChannelConfigFromEnv()
	ssoCfg := config.NewSSOConfigFromEnv()
	cookieCfg := config.NewCookieConfigFromEnv()
	flowCfg := config.NewFlowConfigFromEnv()
	checkoutCfg := config.NewCheckoutConfigFromEnv()
	policy := config.DefaultMerchantPolicy()

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	rateLimiter := ratelimit.NewMiddleware(rateLimitConfig())
	server.R.Use(rateLimiter.Handler)

	pool, err := dbutils.NewDbPool(context.Background(), cfg.PortalDbConfig.toDbConfig())
	if err != nil {
		slog.Error("Failed creating dbpool", "db", cfg.PortalDbConfig.Database,
			"host", cfg.PortalDbConfig.Host, "port", cfg.PortalDbConfig.Port)
		os.Exit(-1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisConfig.Addr,
		Password: cfg.RedisConfig.Password,
		DB:       cfg.RedisConfig.DB,
	})
	bridgeTTL, err := time.ParseDuration(cfg.RedisConfig.BridgeTTL)
	if err != nil {
		slog.Warn("Invalid bridge TTL, using 2h", "value", cfg.RedisConfig.BridgeTTL)
		bridgeTTL = 2 * time.Hour
	}

	// OTP and receipt delivery is on the provider side in this deployment,
	// cmd/inmem wires the notification manager for local development.
	provider := ssoprovider.NewHTTPClient(channelCfg.Merchant, channelCfg.Platform, ssoCfg)

	manager := sessionstore.NewManager()
	go func() {
		for range time.Tick(10 * time.Minute) {
			purged := manager.PurgeIdle(time.Hour)
			if purged > 0 {
				slog.Debug("Purged idle visitor stores", "count", purged)
			}
		}
	}()

	codec := sessionbridge.NewCookieCodec(cookieCfg)
	registry := client.NewVisitorRegistry(manager, codec)

	bridge := sessionbridge.NewBridge(sessionbridge.NewRedisRepository(redisClient, bridgeTTL))
	records := sessions.NewService(sessions.NewPostgresRepository(pool))

	sessionSvc := ssosession.NewService(provider, bridge, channelCfg, ssoCfg, policy,
		ssosession.WithSessionRecords(records))
	flowSvc := loginflow.NewService(provider, sessionSvc, flowCfg)
	checkoutSvc := checkout.NewService(bridge, channelCfg, ssoCfg, checkoutCfg, policy)

	sessionHandle := ssosession.NewHandle(sessionSvc, registry)
	flowHandle := loginflow.NewHandle(flowSvc, registry)
	checkoutHandle := checkout.NewHandle(checkoutSvc, registry)
	adminSessionsHandle := sessions.NewHandle(records)

	server.R.Route("/api", func(r chi.Router) {
		r.Route("/session", sessionHandle.Routes)
		r.Route("/flow", flowHandle.Routes)
		r.Route("/checkout", checkoutHandle.Routes)
	})

	adminAuth := client.NewAdminAuth(cfg.AdminConfig.JwtSecret)
	server.R.Route("/api/admin/sessions", func(r chi.Router) {
		r.Use(jwtauth.Verifier(adminAuth))
		r.Use(jwtauth.Authenticator(adminAuth))
		r.Use(client.RequireAdmin)
		adminSessionsHandle.Routes(r)
	})

	go func() {
		for range time.Tick(24 * time.Hour) {
			if err := records.CleanupRevoked(context.Background(), 30*24*time.Hour); err != nil {
				slog.Warn("Session cleanup failed", "err", err)
			}
		}
	}()

	slog.Info("Starting portal", "merchant", channelCfg.Merchant, "platform", channelCfg.Platform)
	server.Run()
}

// rateLimitConfig tightens the OTP-sending and credential routes beyond the
// blanket per-IP and per-visitor limits.
func rateLimitConfig() *ratelimit.Config {
	cfg := ratelimit.DefaultConfig()
	cfg.SIDCookie = client.SIDCookieName
	cfg.EndpointLimits = map[string]ratelimit.EndpointLimit{
		"POST /api/flow/otp/request":     {Capacity: 5, RefillRate: 5.0 / 60.0},
		"POST /api/flow/otp/resend":      {Capacity: 5, RefillRate: 5.0 / 60.0},
		"POST /api/flow/password/forgot": {Capacity: 5, RefillRate: 5.0 / 60.0},
		"POST /api/flow/login":           {Capacity: 10, RefillRate: 10.0 / 60.0},
		"POST /api/flow/register":        {Capacity: 10, RefillRate: 10.0 / 60.0},
	}
	return cfg
}

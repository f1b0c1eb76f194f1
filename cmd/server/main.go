// Command server runs the drawing room WebSocket broker.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ericfitz/drawroom/api"
	"github.com/ericfitz/drawroom/api/models"
	"github.com/ericfitz/drawroom/auth"
	"github.com/ericfitz/drawroom/internal/config"
	"github.com/ericfitz/drawroom/internal/db"
	"github.com/ericfitz/drawroom/internal/slogging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	configFile, generateConfig, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}
	if generateConfig {
		if err := config.GenerateExampleConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating config: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := slogging.Initialize(slogging.Config{
		Level:            cfg.GetLogLevel(),
		IsDev:            cfg.Logging.IsDev,
		LogDir:           cfg.Logging.LogDir,
		MaxAgeDays:       cfg.Logging.MaxAgeDays,
		MaxSizeMB:        cfg.Logging.MaxSizeMB,
		MaxBackups:       cfg.Logging.MaxBackups,
		AlsoLogToConsole: cfg.Logging.AlsoLogToConsole,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	logger := slogging.Get()

	if err := run(cfg); err != nil {
		logger.Error("Server stopped: %v", err)
		_ = logger.Close()
		os.Exit(1)
	}
	logger.Info("Server stopped")
	_ = logger.Close()
}

func run(cfg *config.Config) error {
	logger := slogging.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.NewGormDB(gormConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = database.Close() }()

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(models.AllModels()...); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	var (
		revocations auth.RevocationChecker
		limiter     api.InboundLimiter
	)
	if cfg.RedisEnabled() {
		redisDB, err := db.NewRedisDB(db.RedisConfig{
			Host:     cfg.Database.Redis.Host,
			Port:     cfg.Database.Redis.Port,
			Password: cfg.Database.Redis.Password,
			DB:       cfg.Database.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer func() { _ = redisDB.Close() }()

		revocations = auth.NewTokenRevocationList(redisDB.GetClient(), cfg.GetJWTDuration())
		if cfg.WebSocket.RateLimitMessages > 0 {
			limiter = api.NewMessageRateLimiter(redisDB.GetClient(), cfg.WebSocket.RateLimitMessages, cfg.WebSocket.RateLimitWindowSecs)
		}
	} else {
		logger.Warn("Redis not configured: token revocation and message rate limiting are disabled")
	}

	tokens := auth.NewService(auth.Config{
		Secret:     cfg.Auth.JWT.Secret,
		Issuer:     cfg.Auth.JWT.Issuer,
		Expiration: cfg.GetJWTDuration(),
	}, revocations)

	memberships := api.NewGormMembershipStore(database.DB())
	contents := api.NewGormContentStore(database.DB())

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	broker := api.NewBroker(brokerConfig(cfg), api.BrokerDeps{
		Verifier:    tokens,
		Memberships: memberships,
		Contents:    contents,
		Limiter:     limiter,
		Registerer:  registry,
	})

	if !cfg.Logging.IsDev {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.RouterConfig{
		Broker:      broker,
		Contents:    contents,
		Memberships: memberships,
		Auth:        auth.NewMiddleware(tokens),
		Database:    database,
		Gatherer:    registry,
	})

	srv := &http.Server{
		Addr:              cfg.GetListenAddress(),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		broker.Shutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func gormConfig(cfg *config.Config) db.GormConfig {
	d := cfg.Database
	return db.GormConfig{
		Type:              db.DatabaseType(d.Type),
		PostgresHost:      d.Postgres.Host,
		PostgresPort:      d.Postgres.Port,
		PostgresUser:      d.Postgres.User,
		PostgresPassword:  d.Postgres.Password,
		PostgresDatabase:  d.Postgres.Database,
		PostgresSSLMode:   d.Postgres.SSLMode,
		MySQLHost:         d.MySQL.Host,
		MySQLPort:         d.MySQL.Port,
		MySQLUser:         d.MySQL.User,
		MySQLPassword:     d.MySQL.Password,
		MySQLDatabase:     d.MySQL.Database,
		SQLServerHost:     d.SQLServer.Host,
		SQLServerPort:     d.SQLServer.Port,
		SQLServerUser:     d.SQLServer.User,
		SQLServerPassword: d.SQLServer.Password,
		SQLServerDatabase: d.SQLServer.Database,
		SQLitePath:        d.SQLite.Path,
	}
}

// brokerConfig applies the websocket section over the broker defaults
func brokerConfig(cfg *config.Config) api.BrokerConfig {
	ws := cfg.WebSocket
	bc := api.DefaultBrokerConfig()
	if ws.ReadLimitBytes > 0 {
		bc.ReadLimit = ws.ReadLimitBytes
	}
	if ws.SendBufferSize > 0 {
		bc.SendBufferSize = ws.SendBufferSize
	}
	if ws.PongWait > 0 {
		bc.PongWait = ws.PongWait
		bc.PingPeriod = cfg.GetPingPeriod()
	}
	if ws.WriteWait > 0 {
		bc.WriteWait = ws.WriteWait
	}
	if ws.StoreTimeout > 0 {
		bc.StoreTimeout = ws.StoreTimeout
	}
	bc.AllowedOrigins = cfg.Server.AllowedOrigins
	bc.Logging = slogging.WebSocketLoggingConfig{
		Enabled:        ws.LogMessages,
		MaxMessageSize: 4 * 1024,
	}
	return bc
}

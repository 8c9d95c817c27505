package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/exotic-fruits/auth-service/config"
	"github.com/exotic-fruits/auth-service/internal/application"
	"github.com/exotic-fruits/auth-service/internal/container"
	"github.com/exotic-fruits/auth-service/internal/domain/repository"
	esinfra "github.com/exotic-fruits/auth-service/internal/infrastructure/elasticsearch"
	gcsinfra "github.com/exotic-fruits/auth-service/internal/infrastructure/gcs"
	"github.com/exotic-fruits/auth-service/internal/infrastructure/memory"
	pginfra "github.com/exotic-fruits/auth-service/internal/infrastructure/postgres"
	redisinfra "github.com/exotic-fruits/auth-service/internal/infrastructure/redis"
	"github.com/exotic-fruits/auth-service/internal/interface/middleware"
	"github.com/exotic-fruits/auth-service/internal/router"
	"github.com/exotic-fruits/auth-service/internal/security"
	"github.com/exotic-fruits/auth-service/pkg/helpers"
	"github.com/exotic-fruits/auth-service/pkg/mailer"
	"github.com/exotic-fruits/auth-service/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()
	var cleanup []func()
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	// Credential store
	var users repository.UserRepository
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("STORE_DRIVER=memory; accounts are lost on restart")
		users = memory.NewUserRepository(nil)
	default:
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		cleanup = append(cleanup, pool.Close)
		// Run migrations using database/sql with pgx stdlib
		if err := runMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		users = pginfra.NewUserRepository(pool)
	}

	// Rate limit, lockout and blacklist stores
	var (
		rateStore      repository.RateLimitStore
		lockoutStore   repository.LockoutStore
		blacklistStore repository.BlacklistStore
	)
	switch cfg.SecurityStore {
	case "redis":
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cleanup = append(cleanup, func() { _ = rdb.Close() })
		if err := helpers.PingRedis(ctx, rdb); err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		rateStore = redisinfra.NewRateLimitStore(rdb)
		lockoutStore = redisinfra.NewLockoutStore(rdb)
		blacklistStore = redisinfra.NewBlacklistStore(rdb, nil)
	default:
		rateStore = memory.NewRateLimitStore(nil)
		lockoutStore = memory.NewLockoutStore()
		blacklistStore = memory.NewBlacklistStore(memory.DefaultBlacklistMax, memory.DefaultBlacklistEvict, nil)
	}

	// Audit sinks
	var sinks []repository.AuditSink
	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(helpers.ESOptions{
			Addrs:    addrs,
			Username: cfg.ElasticsearchUser,
			Password: cfg.ElasticsearchPass,
		})
		if err != nil {
			log.Fatalf("failed to init elasticsearch client: %v", err)
		}
		// Sink writes fail soft, so an unreachable cluster only warrants a warning.
		if err := helpers.PingES(ctx, es); err != nil {
			logger.WithError(err).Warn("elasticsearch not reachable; audit sink writes will fail until it recovers")
		}
		sink := esinfra.NewAuditSink(es, cfg.ESAuditIndex, logger)
		sinks = append(sinks, sink)
		container.SetAuditSearch(sink)
	}
	if cfg.GCSBucket != "" {
		gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			log.Fatalf("failed to init GCS client: %v", err)
		}
		cleanup = append(cleanup, func() { _ = gcsClient.Close() })
		container.SetAuditArchiver(gcsinfra.NewAuditArchiver(gcsClient, cfg.GCSBucket))
	}

	mail, closeMail, err := newMailSender(cfg, logger)
	if err != nil {
		log.Fatalf("failed to init mail delivery: %v", err)
	}
	cleanup = append(cleanup, closeMail)

	secret := cfg.JWTSecret
	if secret == "" {
		secret = randomSecret()
		logger.Warn("JWT_SECRET not set; using a per-process secret, sessions end on restart")
	}

	limiter := security.NewRateLimiter(rateStore, logger)
	blacklist := security.NewTokenBlacklist(blacklistStore, logger)
	audit := security.NewAuditLogger(cfg.AuditRetention, logger, nil, sinks...)
	svc := application.NewAuthService(application.AuthDeps{
		Users:     users,
		Hasher:    helpers.NewPasswordHasher(cfg.BcryptCost),
		Tokens:    helpers.NewJWTManager(secret, cfg.TokenTTL),
		Limiter:   limiter,
		Lockout:   security.NewLockoutTracker(lockoutStore, logger, nil),
		Blacklist: blacklist,
		Audit:     audit,
		Mail:      mail,
		Logger:    logger,
	})

	// Provide singletons to container for registry auto-wiring
	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetAuthService(svc)
	container.SetRateLimiter(limiter)
	container.SetBlacklist(blacklist)
	container.SetAudit(audit)

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RealIP())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.SecurityHeaders())
	// CORS
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) == 0 {
		corsCfg.AllowOrigins = []string{"http://localhost:3000"}
	}
	r.Use(cors.New(corsCfg))
	if cfg.HTTPLogEnabled {
		r.Use(gin.Logger())
	}

	// Registry: auto-register modules using container
	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Errorf("server forced to shutdown: %v", err)
		return
	}
	logger.Info("server exited properly")
}

// newMailSender picks the delivery path from MAIL_DELIVERY. The returned
// func releases whatever connection the sender holds.
func newMailSender(cfg *config.Config, logger *logrus.Logger) (mailer.Sender, func(), error) {
	noop := func() {}
	if !cfg.MailSendEnabled {
		logger.Warn("MAIL_SEND_ENABLED=false; emails are logged, not sent")
		return mailer.NewLogSender(logger), noop, nil
	}
	switch cfg.MailDelivery {
	case "log":
		return mailer.NewLogSender(logger), noop, nil
	case "direct":
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
			return nil, noop, errors.New("mailgun not configured")
		}
		mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
		return mailer.NewDirectSender(cfg, mg), noop, nil
	default:
		q, err := helpers.NewRabbitQueue(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			return nil, noop, err
		}
		return mailer.NewQueueSender(cfg, q), q.Close, nil
	}
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("secret generation failed: %v", err)
	}
	return hex.EncodeToString(b)
}

func runMigrations(dsn string, migrationsDir string, logger *logrus.Logger) error {
	// Open sql DB via pgx stdlib
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "postgres", driver)
	if err != nil {
		return err
	}
	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}

// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/fittogether/internal/accounts"
	"github.com/jason-s-yu/fittogether/internal/auth"
	"github.com/jason-s-yu/fittogether/internal/config"
	"github.com/jason-s-yu/fittogether/internal/database"
	"github.com/jason-s-yu/fittogether/internal/database/memory"
	"github.com/jason-s-yu/fittogether/internal/events"
	"github.com/jason-s-yu/fittogether/internal/handlers"
	"github.com/jason-s-yu/fittogether/internal/metrics"
	"github.com/jason-s-yu/fittogether/internal/partner"
	"github.com/jason-s-yu/fittogether/internal/posts"
	"github.com/jason-s-yu/fittogether/internal/storage"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

// store is satisfied by both the Postgres and the in-memory backends.
type store interface {
	partner.Store
	accounts.Store
	posts.Store
}

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st store
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory store, data is lost on restart")
		st = memory.New()
	default:
		pool, err := database.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatalf("database: %v", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Fatalf("migrations: %v", err)
		}
		st = database.NewStore(pool)
	}

	var issuer *auth.Issuer
	if cfg.JWTPrivateKeyPath != "" && cfg.JWTPublicKeyPath != "" {
		issuer, err = auth.IssuerFromFiles(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.TokenExpire)
	} else {
		logger.Warn("no JWT key files configured, generating an ephemeral key pair")
		issuer, err = auth.GenerateIssuer(cfg.TokenExpire)
	}
	if err != nil {
		logger.Fatalf("token issuer: %v", err)
	}

	var images storage.Storage
	staticDir := ""
	switch cfg.StorageDriver {
	case "s3":
		images, err = storage.NewS3Storage(ctx, storage.S3Options{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			logger.Fatalf("s3 storage: %v", err)
		}
	default:
		staticDir = cfg.LocalStorageDir
		images = &storage.LocalStorage{Dir: staticDir, BaseURL: cfg.PublicBaseURL}
	}

	hub := events.NewHub(logger)
	notifiers := events.Multi{hub, metrics.EventRecorder{}}
	if cfg.RedisAddr != "" {
		rdb, err := events.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		notifiers = append(notifiers, events.NewRedisQueue(rdb, cfg.EventsQueue))
		logger.Infof("publishing partner events to redis list %s", cfg.EventsQueue)
	}

	engine := partner.NewEngine(st, logger, partner.WithNotifier(notifiers))
	postSvc := posts.NewService(st, images, logger)
	accountSvc := accounts.NewService(st, postSvc, engine, issuer, images, logger)

	router := handlers.NewRouter(handlers.Deps{
		Logger:            logger,
		Engine:            engine,
		Accounts:          accountSvc,
		Posts:             postSvc,
		Hub:               hub,
		Auth:              issuer,
		TokenTTL:          cfg.TokenExpire,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		CORSOrigins:       cfg.CORSAllowedOrigins,
		StaticDir:         staticDir,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("shutdown: %v", err)
		}
	}()

	logger.Infof("Running on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
	logger.Info("server stopped")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/AnshRaj112/clipstream-backend/internal/config"
	"github.com/AnshRaj112/clipstream-backend/internal/database"
	"github.com/AnshRaj112/clipstream-backend/internal/handlers"
	"github.com/AnshRaj112/clipstream-backend/internal/middleware"
	"github.com/AnshRaj112/clipstream-backend/internal/routes"
	"github.com/AnshRaj112/clipstream-backend/internal/services"
	"github.com/AnshRaj112/clipstream-backend/internal/store"
	"github.com/AnshRaj112/clipstream-backend/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open user store")
	}
	defer closeStore()

	var rdb *redis.Client
	if cfg.RedisURI != "" {
		rdb, err = database.ConnectRedis(ctx, cfg.RedisURI, log)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, auth rate limiting disabled")
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	objects, err := services.NewCloudinaryStore(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize Cloudinary")
	}

	media := services.NewMediaService(objects, log)
	tokens := services.NewTokenService(services.TokenConfig{
		AccessSecret:  cfg.AccessTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshSecret: cfg.RefreshTokenSecret,
		RefreshTTL:    cfg.RefreshTokenTTL,
	}, users)
	registration := services.NewRegistrationService(users, media, log)
	accounts := services.NewAccountService(users, tokens, media, log)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	if cfg.IsProduction() {
		limiter := middleware.NewIPRateLimiter(cfg.GlobalRateLimitRPS, cfg.GlobalRateBurst, cfg.TrustProxy, log)
		go limiter.Run(5*time.Minute, ctx.Done())
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost, limiter) {
			r.Use(mw)
		}
		log.WithField("allowed_host", cfg.AllowedHost).Info("production security enabled")
	}

	routes.SetupRoutes(r, routes.Deps{
		User: handlers.NewUserHandler(registration, accounts,
			handlers.Uploads{Dir: cfg.UploadDir, MaxBytes: cfg.MaxUploadBytes},
			handlers.Cookies{Secure: cfg.CookieSecure},
			log),
		Auth:        middleware.NewAuthenticator(tokens, users, log),
		AuthLimiter: middleware.NewAuthRateLimiter(rdb, cfg.AuthRateLimitMax, cfg.AuthRateLimitWindow, cfg.TrustProxy, log),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.Environment, "store": cfg.StoreDriver}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

// openStore connects the configured backend and prepares its schema.
func openStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (store.UserStore, func(), error) {
	switch cfg.StoreDriver {
	case "postgres":
		db, err := database.ConnectPostgres(ctx, cfg.PostgresURI, log)
		if err != nil {
			return nil, nil, err
		}
		s := store.NewPostgresStore(db)
		if err := s.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return s, closer(log, "postgres", db.Close), nil
	default:
		client, db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
		if err != nil {
			return nil, nil, err
		}
		s := store.NewMongoStore(db)
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = database.DisconnectMongo(client)
			return nil, nil, err
		}
		return s, closer(log, "mongo", func() error { return database.DisconnectMongo(client) }), nil
	}
}

func closer(log logrus.FieldLogger, name string, fn func() error) func() {
	return func() {
		if err := fn(); err != nil {
			log.WithError(err).WithField("store", name).Warn("close failed")
		}
	}
}


package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"postwall/internal/app"
	"postwall/internal/authtoken"
	"postwall/internal/cache"
	"postwall/internal/config"
	"postwall/internal/server"
	"postwall/internal/storage"
	"postwall/internal/store"
	"postwall/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	st, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}

	objects, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("failed to init object storage: %v", err)
	}

	var calendar *cache.CalendarCache
	if cfg.RedisAddr != "" {
		calendar = cache.NewCalendarCache(cfg.RedisAddr, cfg.RedisPassword, time.Duration(cfg.CalendarCacheTTLSeconds)*time.Second)
	}

	verifier, err := authtoken.NewVerifier(authtoken.Config{
		Secret:   cfg.AuthSecret,
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		Leeway:   time.Duration(cfg.AuthLeewaySeconds) * time.Second,
	})
	if err != nil {
		log.Fatalf("failed to init token verifier: %v", err)
	}

	appCore := app.New(st, objects, app.Options{
		Bucket:       cfg.MinioBucket,
		SignedURLTTL: time.Duration(cfg.SignedURLTTLSeconds) * time.Second,
		Calendar:     calendar,
	})

	httpServer := server.New(server.Config{
		App:            appCore,
		Verifier:       verifier,
		CookieName:     cfg.AuthCookieName,
		MaxUploadBytes: cfg.MaxUploadBytes,
		CORSOrigin:     cfg.CORSOrigin,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

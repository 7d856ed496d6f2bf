package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"

	redisx "github.com/Skotchmaster/forum_auth/pkg/cache/redis"
	"github.com/Skotchmaster/forum_auth/pkg/db"
	"github.com/Skotchmaster/forum_auth/pkg/hash"
	"github.com/Skotchmaster/forum_auth/pkg/httpx"
	"github.com/Skotchmaster/forum_auth/pkg/logging"
	authmw "github.com/Skotchmaster/forum_auth/pkg/middleware/auth"
	loggingmw "github.com/Skotchmaster/forum_auth/pkg/middleware/logging"
	"github.com/Skotchmaster/forum_auth/pkg/revocation"
	"github.com/Skotchmaster/forum_auth/pkg/tokens"
	"github.com/Skotchmaster/forum_auth/services/auth/internal/config"
	"github.com/Skotchmaster/forum_auth/services/auth/internal/httpserver"
	"github.com/Skotchmaster/forum_auth/services/auth/internal/models"
	"github.com/Skotchmaster/forum_auth/services/auth/internal/repo"
	"github.com/Skotchmaster/forum_auth/services/auth/internal/service"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	logger.Info("starting", "config", cfg.String())

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		cancel()
		log.Fatalf("db init error: %v", err)
	}
	if err := models.AutoMigrate(gdb); err != nil {
		cancel()
		log.Fatalf("migrate: %v", err)
	}

	rp := repo.New(gdb)
	if cfg.SeedRoles {
		if err := rp.SeedRoles(initCtx, models.AllRoles...); err != nil {
			cancel()
			log.Fatalf("seed roles: %v", err)
		}
	}
	cancel()

	cache := redisx.New(redisx.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	defer cache.Close()

	codec, err := tokens.NewCodec([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.AccessTokenTTL)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}
	registry := revocation.NewRegistry(cache, cfg.BlacklistPrefix, cfg.BlacklistTimeout)

	hasher, err := hash.New(cfg.PasswordHash)
	if err != nil {
		log.Fatalf("hasher: %v", err)
	}

	publisher, closeEvents := buildPublisher(cfg, logger)
	defer closeEvents()

	svc := &service.AuthService{
		Users: rp,
		RefreshTokens: &service.RefreshTokenService{
			Store: rp,
			Users: rp,
			TTL:   cfg.RefreshTokenTTL,
		},
		Codec:    codec,
		Registry: registry,
		Hasher:   hasher,
		Events:   publisher,
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.HTTPErrorHandler = httpx.ErrorHandler(logger)

	e.Use(ecM.Recover())
	e.Use(ecM.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: svc},
		Verifier:    authmw.NewVerifier(codec, registry),
		Ready: map[string]httpx.Check{
			"database": func(ctx context.Context) error { return db.Ping(ctx, gdb) },
			"redis":    cache.Ping,
		},
	})

	go func() {
		if err := e.Start(cfg.Addr()); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo shutdown", "error", err.Error())
	}
}

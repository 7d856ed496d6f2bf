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

	"github.com/Skotchmaster/forum_auth/gateway/internal/config"
	"github.com/Skotchmaster/forum_auth/gateway/internal/httpserver"
	redisx "github.com/Skotchmaster/forum_auth/pkg/cache/redis"
	"github.com/Skotchmaster/forum_auth/pkg/httpx"
	"github.com/Skotchmaster/forum_auth/pkg/logging"
	authmw "github.com/Skotchmaster/forum_auth/pkg/middleware/auth"
	"github.com/Skotchmaster/forum_auth/pkg/revocation"
	"github.com/Skotchmaster/forum_auth/pkg/tokens"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	logger.Info("starting", "config", cfg.String())

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

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.HTTPErrorHandler = httpx.ErrorHandler(logger)

	if err := httpserver.Register(e, &httpserver.Deps{
		AuthURL:  cfg.AuthURL,
		ForumURL: cfg.ForumURL,
		Verifier: authmw.NewVerifier(codec, registry),
		Ready: map[string]httpx.Check{
			"redis": cache.Ping,
		},
		Logger: logger,
	}); err != nil {
		log.Fatal(err)
	}

	go func() {
		if err := e.Start(cfg.Addr()); err != nil && err != http.ErrServerClosed {
			log.Fatalf("start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "error", err.Error())
	}
}

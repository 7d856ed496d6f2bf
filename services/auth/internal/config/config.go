package config

import (
	"log"

	pkgconfig "github.com/Skotchmaster/forum_auth/pkg/config"
	"github.com/Skotchmaster/forum_auth/pkg/hash"
)

type Config struct {
	pkgconfig.Config
}

func Load() *Config {
	base, err := pkgconfig.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if base.ServiceName == "" {
		base.ServiceName = "auth"
	}

	pkgconfig.MustNonEmpty(base.DatabaseURL, "DATABASE_URL")
	pkgconfig.MustNonEmpty(base.JWTSecret, "JWT_SECRET")
	pkgconfig.MustNonEmpty(base.RedisAddr, "REDIS_ADDR")
	pkgconfig.MustPositive(base.AccessTokenTTL, "ACCESS_TOKEN_TTL")
	pkgconfig.MustPositive(base.RefreshTokenTTL, "REFRESH_TOKEN_TTL")
	if _, err := hash.New(base.PasswordHash); err != nil {
		log.Fatalf("config: PASSWORD_HASH: %v", err)
	}

	return &Config{Config: base}
}

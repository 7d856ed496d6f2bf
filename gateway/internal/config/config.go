package config

import (
	"log"

	pkgconfig "github.com/Skotchmaster/forum_auth/pkg/config"
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
		base.ServiceName = "gateway"
	}

	pkgconfig.MustNonEmpty(base.AuthURL, "AUTH_URL")
	pkgconfig.MustNonEmpty(base.ForumURL, "FORUM_URL")
	pkgconfig.MustNonEmpty(base.JWTSecret, "JWT_SECRET")
	pkgconfig.MustNonEmpty(base.RedisAddr, "REDIS_ADDR")

	return &Config{Config: base}
}

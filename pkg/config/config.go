package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the settings shared by the auth service and the gateway.
// Each binary wraps it and checks the keys it actually needs.
type Config struct {
	ServiceName string `mapstructure:"SERVICE_NAME"`
	ServerPort  int    `mapstructure:"SERVER_PORT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	DBDriver    string `mapstructure:"DB_DRIVER"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	JWTSecret       string        `mapstructure:"JWT_SECRET"`
	JWTIssuer       string        `mapstructure:"JWT_ISSUER"`
	AccessTokenTTL  time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`

	RedisAddr        string        `mapstructure:"REDIS_ADDR"`
	RedisPassword    string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB          int           `mapstructure:"REDIS_DB"`
	BlacklistPrefix  string        `mapstructure:"BLACKLIST_PREFIX"`
	BlacklistTimeout time.Duration `mapstructure:"BLACKLIST_TIMEOUT"`

	PasswordHash string `mapstructure:"PASSWORD_HASH"`
	SeedRoles    bool   `mapstructure:"SEED_ROLES"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`

	ESURL      string `mapstructure:"ES_URL"`
	ESUser     string `mapstructure:"ES_USER"`
	ESPassword string `mapstructure:"ES_PASSWORD"`
	ESIndex    string `mapstructure:"ES_INDEX"`

	AuthURL  string `mapstructure:"AUTH_URL"`
	ForumURL string `mapstructure:"FORUM_URL"`
}

var defaults = map[string]any{
	"SERVER_PORT":       8080,
	"LOG_LEVEL":         "info",
	"DB_DRIVER":         "postgres",
	"JWT_ISSUER":        "forum-auth",
	"ACCESS_TOKEN_TTL":  "15m",
	"REFRESH_TOKEN_TTL": "720h",
	"REDIS_DB":          0,
	"BLACKLIST_PREFIX":  "blacklist:",
	"BLACKLIST_TIMEOUT": "250ms",
	"PASSWORD_HASH":     "bcrypt",
	"SEED_ROLES":        true,
	"KAFKA_TOPIC":       "auth_events",
	"ES_INDEX":          "auth-audit",
}

var keys = []string{
	"SERVICE_NAME", "DATABASE_URL", "JWT_SECRET",
	"REDIS_ADDR", "REDIS_PASSWORD",
	"KAFKA_BROKERS",
	"ES_URL", "ES_USER", "ES_PASSWORD",
	"AUTH_URL", "FORUM_URL",
}

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("warning: could not load .env: %v", err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	for k, def := range defaults {
		v.SetDefault(k, def)
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	return cfg, nil
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

func (c Config) Brokers() []string {
	return CSV(c.KafkaBrokers)
}

// String masks secrets.
func (c Config) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "service=%s port=%d db_driver=%s redis=%s issuer=%s access_ttl=%s refresh_ttl=%s",
		c.ServiceName, c.ServerPort, c.DBDriver, c.RedisAddr, c.JWTIssuer, c.AccessTokenTTL, c.RefreshTokenTTL)
	if c.JWTSecret != "" {
		sb.WriteString(" jwt_secret=********")
	}
	return sb.String()
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

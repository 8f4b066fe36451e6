package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMongo    = "mongo"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Postgres  PostgresConfig
	Auth      AuthConfig
	Store     StoreConfig
	Redis     RedisConfig
	Mongo     MongoConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Env             string
	Port            string
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type AuthConfig struct {
	JWTSecret     string
	CookieSecure  bool
	CookieDomain  string
	CookiePath    string
	RotateRefresh bool
	SweepInterval time.Duration
	BcryptCost    int
}

type StoreConfig struct {
	Backend string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// Load reads an optional .env file and then the process environment.
// Environment variables win over values from the file.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	env := strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV")))
	v.SetDefault("AUTH_COOKIE_SECURE", env == EnvProduction)

	cfg := Config{
		Server: ServerConfig{
			Env:             env,
			Port:            v.GetString("PORT"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: v.GetString("DATABASE_URL"),
			Host:        v.GetString("PGHOST"),
			Port:        v.GetString("PGPORT"),
			User:        v.GetString("PGUSER"),
			Password:    v.GetString("PGPASSWORD"),
			Database:    v.GetString("PGDATABASE"),
			SSLMode:     v.GetString("PGSSLMODE"),
		},
		Auth: AuthConfig{
			JWTSecret:     v.GetString("JWT_SECRET"),
			CookieSecure:  v.GetBool("AUTH_COOKIE_SECURE"),
			CookieDomain:  v.GetString("AUTH_COOKIE_DOMAIN"),
			CookiePath:    v.GetString("AUTH_COOKIE_PATH"),
			RotateRefresh: v.GetBool("AUTH_ROTATE_REFRESH"),
			SweepInterval: v.GetDuration("AUTH_SWEEP_INTERVAL"),
			BcryptCost:    v.GetInt("AUTH_BCRYPT_COST"),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString("SESSION_STORE"))),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Mongo: MongoConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  v.GetDuration("MONGODB_TIMEOUT"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		RateLimit: RateLimitConfig{
			Enabled: v.GetBool("RATE_LIMIT_ENABLED"),
			RPS:     v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:   v.GetInt("RATE_LIMIT_BURST"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("PORT", "8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PGHOST", "localhost")
	v.SetDefault("PGPORT", "5432")
	v.SetDefault("PGSSLMODE", "disable")
	v.SetDefault("AUTH_COOKIE_PATH", "/")
	v.SetDefault("AUTH_ROTATE_REFRESH", false)
	v.SetDefault("AUTH_SWEEP_INTERVAL", "0s")
	v.SetDefault("AUTH_BCRYPT_COST", 0)
	v.SetDefault("SESSION_STORE", StorePostgres)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("MONGODB_DATABASE", "healthtrack")
	v.SetDefault("MONGODB_TIMEOUT", "10s")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
}

func (c Config) Validate() error {
	switch c.Server.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("%w: APP_ENV must be %q or %q", ErrInvalid, EnvDevelopment, EnvProduction)
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("%w: JWT_SECRET is required", ErrInvalid)
	}
	switch c.Store.Backend {
	case StorePostgres, StoreRedis:
	case StoreMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("%w: MONGODB_URI is required when SESSION_STORE=mongo", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown SESSION_STORE %q", ErrInvalid, c.Store.Backend)
	}
	if c.Auth.SweepInterval < 0 {
		return fmt.Errorf("%w: AUTH_SWEEP_INTERVAL must not be negative", ErrInvalid)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("%w: RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive", ErrInvalid)
	}
	return nil
}

// Diagnostic reports whether internal error details may be returned to clients.
func (c Config) Diagnostic() bool {
	return c.Server.Env == EnvDevelopment
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

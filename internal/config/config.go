package config

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the API and its jobs.
type Config struct {
	Env      string `env:"APP_ENV,default=development"`
	Addr     string `env:"ADDR,default=:8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
	LogJSON  bool   `env:"LOG_JSON,default=false"`

	Database Database
	JWT      JWT
	Recovery Recovery
	Cookie   Cookie
	SMTP     SMTP
	Argon2   Argon2

	FrontendURL     string   `env:"FRONTEND_URL,default=http://localhost:3000"`
	AllowedOrigins  []string `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:3000"`
	AuthRateLimit   int      `env:"RATE_LIMIT_AUTH,default=20"`
	GoogleClientID  string   `env:"GOOGLE_CLIENT_ID"`
	OTLPEndpoint    string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	CleanupSchedule string   `env:"CLEANUP_SCHEDULE,default=@hourly"`
}

type Database struct {
	DSN      string `env:"DB_DSN"`
	Host     string `env:"POSTGRES_HOST,default=localhost"`
	Port     string `env:"POSTGRES_PORT,default=5432"`
	User     string `env:"POSTGRES_USER,default=postgres"`
	Password string `env:"POSTGRES_PASSWORD"`
	Name     string `env:"POSTGRES_DB,default=taskboard"`
	SSLMode  string `env:"POSTGRES_SSLMODE,default=disable"`
}

// ConnString prefers DB_DSN and otherwise assembles a URL from the POSTGRES_* variables.
func (d Database) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

type JWT struct {
	AccessSecret  string        `env:"JWT_ACCESS_SECRET,required"`
	RefreshSecret string        `env:"JWT_REFRESH_SECRET,required"`
	AccessTTL     time.Duration `env:"ACCESS_TOKEN_TTL,default=15m"`
	RefreshTTL    time.Duration `env:"REFRESH_TOKEN_TTL,default=168h"`
}

type Recovery struct {
	VerificationTTL  time.Duration `env:"VERIFICATION_TOKEN_TTL,default=24h"`
	PasswordResetTTL time.Duration `env:"PASSWORD_RESET_TTL,default=15m"`
}

type Cookie struct {
	Domain string `env:"COOKIE_DOMAIN"`
	Secure bool   `env:"COOKIE_SECURE,default=false"`
}

type SMTP struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT,default=587"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASS"`
	From     string `env:"SMTP_FROM,default=Taskboard <no-reply@taskboard.local>"`
}

type Argon2 struct {
	MemoryKiB   uint32 `env:"ARGON2_MEMORY_KIB,default=65536"`
	Iterations  uint32 `env:"ARGON2_ITERATIONS,default=3"`
	Parallelism uint8  `env:"ARGON2_PARALLELISM,default=2"`
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return Config{}, err
	}
	if cfg.JWT.AccessSecret == cfg.JWT.RefreshSecret {
		return Config{}, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	return cfg, nil
}

// LoadDatabase reads only the database settings, for jobs that never sign tokens.
func LoadDatabase(ctx context.Context) (Database, error) {
	return loadDatabase(ctx, envconfig.OsLookuper())
}

func loadDatabase(ctx context.Context, lookuper envconfig.Lookuper) (Database, error) {
	var db Database
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &db, Lookuper: lookuper}); err != nil {
		return Database{}, err
	}
	return db, nil
}

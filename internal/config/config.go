package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env      string `yaml:"env" env:"APP_ENV" env-default:"local"`
	Mode     Mode   `yaml:"mode" env:"MODE" env-default:"offline"`
	HTTPAddr string `yaml:"http_addr" env:"HTTP_ADDR" env-default:":8080"`
	SiteID   string `yaml:"site_id" env:"SITE_ID" env-default:"local"`

	DBDriver string `yaml:"db_driver" env:"DB_DRIVER" env-default:"sqlite"`
	DBDSN    string `yaml:"db_dsn" env:"DB_DSN"`

	AuthHMACSecret  string        `yaml:"auth_hmac_secret" env:"AUTH_HMAC_SECRET" env-default:"supersecret-dev-key"`
	TokenTTL        time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"24h"`
	EnableLocalAuth bool          `yaml:"enable_local_auth" env:"ENABLE_LOCAL_AUTH" env-default:"true"`

	AdminUser     string `yaml:"admin_user" env:"ADMIN_USER" env-default:"admin"`
	AdminEmail    string `yaml:"admin_email" env:"ADMIN_EMAIL" env-default:"admin@localhost"`
	AdminPassHash string `yaml:"admin_pass_hash" env:"ADMIN_PASS_HASH"` // bcrypt; empty skips bootstrap

	CORSOriginsOnline  []string `yaml:"cors_origins_online" env:"CORS_ORIGINS_ONLINE" env-separator:"," env-default:"https://quiz.mindengage.ai"`
	CORSOriginsOffline []string `yaml:"cors_origins_offline" env:"CORS_ORIGINS_OFFLINE" env-separator:"," env-default:"http://localhost:3000,http://127.0.0.1:5500"`

	SessionTick      time.Duration `yaml:"session_tick" env:"SESSION_TICK" env-default:"1s"`
	SessionRetention time.Duration `yaml:"session_retention" env:"SESSION_RETENTION" env-default:"10m"`

	RequestTimeout  time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// CORSOrigins picks the allow-list for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

// Load reads CONFIG_PATH (YAML) when set, otherwise the environment alone.
// Environment variables override file values.
func Load() (Config, error) {
	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		return cfg, cfg.validate()
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	return cfg, cfg.validate()
}

// MustLoad is Load for main packages.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c Config) validate() error {
	switch c.Mode {
	case ModeOffline, ModeOnline:
	default:
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}
	if c.SessionTick <= 0 {
		return fmt.Errorf("config: SESSION_TICK must be positive")
	}
	if c.Mode == ModeOnline && c.AuthHMACSecret == "supersecret-dev-key" {
		return fmt.Errorf("config: AUTH_HMAC_SECRET must be set in online mode")
	}
	return nil
}

// Package config loads server settings from an optional YAML file and
// VULNTRACKER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix префикс переменных окружения: auth.jwt_secret -> VULNTRACKER_AUTH_JWT_SECRET
const EnvPrefix = "VULNTRACKER"

// MinJWTSecretLen минимальная длина секрета HS256
const MinJWTSecretLen = 32

// Поддерживаемые хранилища
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
)

// Config корневая конфигурация сервера
type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Server      ServerConfig      `mapstructure:"server"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Gate        GateConfig        `mapstructure:"gate"`
	CORS        CORSConfig        `mapstructure:"cors"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig настройки HTTP сервера
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig уровень и формат логов
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | text
}

// StorageConfig выбор хранилища
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	// DSN путь к файлу для sqlite/bolt или строка подключения postgres
	DSN string `mapstructure:"dsn"`
}

// AuthConfig настройки токенов и паролей
type AuthConfig struct {
	JWTSecret           string        `mapstructure:"jwt_secret"`
	Issuer              string        `mapstructure:"issuer"`
	DigestKey           string        `mapstructure:"digest_key"`
	AccessTTL           time.Duration `mapstructure:"access_ttl"`
	RefreshTTL          time.Duration `mapstructure:"refresh_ttl"`
	BcryptCost          int           `mapstructure:"bcrypt_cost"`
	RotateRefreshTokens bool          `mapstructure:"rotate_refresh_tokens"`
	CookieSecure        bool          `mapstructure:"cookie_secure"`
}

// RuleConfig квота limit запросов за window
type RuleConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// OverrideConfig квота для конкретного endpoint
type OverrideConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Limit    int           `mapstructure:"limit"`
	Window   time.Duration `mapstructure:"window"`
}

// RateLimitConfig настройки лимитера
type RateLimitConfig struct {
	Overrides      []OverrideConfig `mapstructure:"overrides"`
	Default        RuleConfig       `mapstructure:"default"`
	SweepThreshold int              `mapstructure:"sweep_threshold"`
}

// GateConfig настройки admission gate
type GateConfig struct {
	LoginPath   string   `mapstructure:"login_path"`
	PublicPaths []string `mapstructure:"public_paths"`
}

// CORSConfig разрешенные источники; пустой список отключает CORS
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MaintenanceConfig фоновые задачи
type MaintenanceConfig struct {
	PurgeInterval time.Duration `mapstructure:"purge_interval"`
}

// setDefaults задает значения по умолчанию. Каждый ключ должен иметь default,
// иначе viper не свяжет его с переменной окружения при Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.dsn", "vulntracker.db")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "vulntracker")
	v.SetDefault("auth.digest_key", "")
	v.SetDefault("auth.access_ttl", time.Hour)
	v.SetDefault("auth.refresh_ttl", 30*24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.rotate_refresh_tokens", true)
	v.SetDefault("auth.cookie_secure", false)

	v.SetDefault("ratelimit.default.limit", 100)
	v.SetDefault("ratelimit.default.window", 15*time.Minute)
	v.SetDefault("ratelimit.sweep_threshold", 1000)
	v.SetDefault("ratelimit.overrides", []map[string]any{
		{"endpoint": "/api/auth/login", "limit": 10, "window": "15m"},
		{"endpoint": "/api/auth/register", "limit": 5, "window": "15m"},
	})

	v.SetDefault("gate.login_path", "/login")
	v.SetDefault("gate.public_paths", []string{})

	v.SetDefault("maintenance.purge_interval", time.Hour)

	v.SetDefault("cors.allowed_origins", []string{})
}

// Load читает конфигурацию. path может быть пустым: тогда используются
// только значения по умолчанию и переменные окружения.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, nil
}

// Validate проверяет конфигурацию и возвращает все найденные ошибки разом
func (c *Config) Validate() error {
	var errs []error

	if len(c.Auth.JWTSecret) < MinJWTSecretLen {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least %d bytes", MinJWTSecretLen))
	}
	if c.Auth.AccessTTL <= 0 {
		errs = append(errs, errors.New("auth.access_ttl must be positive"))
	}
	if c.Auth.RefreshTTL <= 0 {
		errs = append(errs, errors.New("auth.refresh_ttl must be positive"))
	}
	if c.Auth.BcryptCost != 0 && (c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31) {
		errs = append(errs, errors.New("auth.bcrypt_cost must be between 4 and 31"))
	}

	switch c.Storage.Driver {
	case DriverSQLite, DriverBolt, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of sqlite, postgres, bolt", c.Storage.Driver))
	}
	if c.Storage.DSN == "" {
		errs = append(errs, errors.New("storage.dsn is required"))
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of json, text", c.Log.Format))
	}

	if c.RateLimit.Default.Limit <= 0 || c.RateLimit.Default.Window <= 0 {
		errs = append(errs, errors.New("ratelimit.default limit and window must be positive"))
	}
	for i, o := range c.RateLimit.Overrides {
		if o.Endpoint == "" {
			errs = append(errs, fmt.Errorf("ratelimit.overrides[%d].endpoint is required", i))
		}
		if o.Limit <= 0 || o.Window <= 0 {
			errs = append(errs, fmt.Errorf("ratelimit.overrides[%d] limit and window must be positive", i))
		}
	}

	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	if c.Maintenance.PurgeInterval < 0 {
		errs = append(errs, errors.New("maintenance.purge_interval must not be negative"))
	}

	return errors.Join(errs...)
}

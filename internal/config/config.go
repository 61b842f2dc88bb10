package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "WEATHER"

// Backend names accepted by Store.Backend.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

// Backend names accepted by Session.Backend.
const (
	SessionRedis    = "redis"
	SessionMemory   = "memory"
	SessionBigcache = "bigcache"
)

// Hash algorithms accepted by Hash.Algorithm.
const (
	HashBcrypt   = "bcrypt"
	HashArgon2id = "argon2id"
)

type Config struct {
	App struct {
		Port     string `mapstructure:"port"`
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"app"`

	Store struct {
		Backend string        `mapstructure:"backend"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"store"`

	Database struct {
		DSN        string `mapstructure:"dsn"`
		SQLitePath string `mapstructure:"sqlite_path"`
	} `mapstructure:"database"`

	Session struct {
		Backend        string        `mapstructure:"backend"`
		TTL            time.Duration `mapstructure:"ttl"`
		SweepInterval  time.Duration `mapstructure:"sweep_interval"`
		RevokeOnLogout bool          `mapstructure:"revoke_on_logout"`
	} `mapstructure:"session"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Hash struct {
		Algorithm  string `mapstructure:"algorithm"`
		BcryptCost int    `mapstructure:"bcrypt_cost"`
		Workers    int    `mapstructure:"workers"`
	} `mapstructure:"hash"`

	Cookie struct {
		Secure bool `mapstructure:"secure"`
	} `mapstructure:"cookie"`

	Weather struct {
		APIKey      string        `mapstructure:"api_key"`
		BaseURL     string        `mapstructure:"base_url"`
		Timeout     time.Duration `mapstructure:"timeout"`
		DefaultCity string        `mapstructure:"default_city"`
	} `mapstructure:"weather"`
}

// Load reads configuration from an optional .env file, WEATHER_* environment
// variables and an optional config.yaml in the working directory.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8000")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("store.backend", StoreSQLite)
	v.SetDefault("store.timeout", 2*time.Second)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.sqlite_path", "data/users.sqlite")

	v.SetDefault("session.backend", SessionMemory)
	v.SetDefault("session.ttl", time.Hour)
	v.SetDefault("session.sweep_interval", time.Minute)
	v.SetDefault("session.revoke_on_logout", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("hash.algorithm", HashBcrypt)
	v.SetDefault("hash.bcrypt_cost", 10)
	v.SetDefault("hash.workers", runtime.NumCPU())

	v.SetDefault("cookie.secure", false)

	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.base_url", "https://api.openweathermap.org")
	v.SetDefault("weather.timeout", 5*time.Second)
	v.SetDefault("weather.default_city", "Poznań")
}

// Validate rejects unknown backends and non-positive durations.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case StorePostgres:
		if c.Database.DSN == "" {
			return errors.New("config: database dsn is required for the postgres store")
		}
	case StoreSQLite:
		if c.Database.SQLitePath == "" {
			return errors.New("config: sqlite path is required for the sqlite store")
		}
	case StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}

	switch c.Session.Backend {
	case SessionRedis, SessionMemory, SessionBigcache:
	default:
		return fmt.Errorf("config: unknown session backend %q", c.Session.Backend)
	}

	switch c.Hash.Algorithm {
	case HashBcrypt, HashArgon2id:
	default:
		return fmt.Errorf("config: unknown hash algorithm %q", c.Hash.Algorithm)
	}

	if c.Session.TTL <= 0 {
		return errors.New("config: session ttl must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return errors.New("config: session sweep interval must be positive")
	}
	if c.Store.Timeout <= 0 {
		return errors.New("config: store timeout must be positive")
	}
	if c.Hash.Workers <= 0 {
		return errors.New("config: hash workers must be positive")
	}

	return nil
}

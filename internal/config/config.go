package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		ReadTimeout    string   `yaml:"read_timeout"`
		WriteTimeout   string   `yaml:"write_timeout"`
		CookieSecure   bool     `yaml:"cookie_secure"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Auth struct {
		Provider    string `yaml:"provider"` // supabase | memory
		URL         string `yaml:"url"`
		Key         string `yaml:"key"`
		JWTSecret   string `yaml:"jwt_secret"`
		RedirectURL string `yaml:"redirect_url"`
		AutoConfirm bool   `yaml:"auto_confirm"`
	} `yaml:"auth"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Session struct {
		TTL string `yaml:"ttl"`
	} `yaml:"session"`
	Quiz struct {
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"quiz"`
	OMDb struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"omdb"`
	Unsplash struct {
		BaseURL   string `yaml:"base_url"`
		AccessKey string `yaml:"access_key"`
		UTMSource string `yaml:"utm_source"`
	} `yaml:"unsplash"`
	AMQP struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"amqp"`
}

// Load reads an optional .env file, then YAML config from path, then applies
// environment overrides and defaults. A missing YAML file is not an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	override(&cfg.Auth.URL, "SUPABASE_URL")
	override(&cfg.Auth.Key, "SUPABASE_KEY")
	override(&cfg.Auth.JWTSecret, "SUPABASE_JWT_SECRET")
	override(&cfg.Auth.Provider, "AUTH_PROVIDER")
	override(&cfg.Postgres.URL, "DATABASE_URL")
	override(&cfg.Redis.Addr, "REDIS_ADDR")
	override(&cfg.Redis.Password, "REDIS_PASSWORD")
	override(&cfg.OMDb.APIKey, "OMDB_API_KEY")
	override(&cfg.Unsplash.AccessKey, "UNSPLASH_ACCESS_KEY")
	override(&cfg.AMQP.URL, "AMQP_URL")
	override(&cfg.Log.Level, "LOG_LEVEL")
	if raw := os.Getenv("AUTH_AUTO_CONFIRM"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.Auth.AutoConfirm = v
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Auth.Provider == "" {
		if cfg.Auth.URL != "" {
			cfg.Auth.Provider = "supabase"
		} else {
			cfg.Auth.Provider = "memory"
		}
	}
	if cfg.OMDb.BaseURL == "" {
		cfg.OMDb.BaseURL = "https://www.omdbapi.com/"
	}
	if cfg.Unsplash.BaseURL == "" {
		cfg.Unsplash.BaseURL = "https://api.unsplash.com"
	}
	if cfg.Unsplash.UTMSource == "" {
		cfg.Unsplash.UTMSource = "quiz_portal"
	}
	if cfg.AMQP.Exchange == "" {
		cfg.AMQP.Exchange = "quiz.events"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func override(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

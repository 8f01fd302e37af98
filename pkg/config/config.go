// Package config loads the service configuration: an optional .env file, an optional YAML file and
// SCRAPER_ prefixed environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/amankumarsingh77/go-scraper-api/db"
	"github.com/amankumarsingh77/go-scraper-api/pkg/logger"
	"github.com/amankumarsingh77/go-scraper-api/pkg/tmdb"
	"github.com/amankumarsingh77/go-scraper-api/scraper/febox"
	"github.com/amankumarsingh77/go-scraper-api/scraper/fetch"
	"github.com/amankumarsingh77/go-scraper-api/scraper/showbox"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix       = "SCRAPER_"
	DefaultDatabase = "scraper"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Auth      AuthConfig      `koanf:"auth"`
	Mongo     db.Config       `koanf:"mongo"`
	Redis     RedisConfig     `koanf:"redis"`
	Log       logger.Config   `koanf:"log"`
	Fetch     fetch.Config    `koanf:"fetch"`
	Providers ProvidersConfig `koanf:"providers"`
	Search    SearchConfig    `koanf:"search"`
	Febbox    febox.Config    `koanf:"febbox"`
	Showbox   showbox.Config  `koanf:"showbox"`
	TMDB      tmdb.Config     `koanf:"tmdb"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	Mode            string        `koanf:"mode" validate:"oneof=debug release test"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type AuthConfig struct {
	// Disabled skips API key checks. Meant for local development only.
	Disabled     bool   `koanf:"disabled"`
	AdminToken   string `koanf:"admin_token"`
	DefaultLimit int64  `koanf:"default_limit" validate:"gte=1"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"gte=0"`
	Prefix   string `koanf:"prefix"`
}

type ProvidersConfig struct {
	// DescriptorsFile replaces the embedded provider descriptors when set.
	DescriptorsFile string            `koanf:"descriptors_file"`
	BaseURLs        map[string]string `koanf:"base_urls" validate:"dive,keys,required,endkeys,url"`
	BaseURLTTL      time.Duration     `koanf:"base_url_ttl"`
}

type SearchConfig struct {
	CacheTTL        time.Duration `koanf:"cache_ttl"`
	CacheSize       int           `koanf:"cache_size" validate:"gte=0"`
	ProviderTimeout time.Duration `koanf:"provider_timeout"`
	MaxConcurrency  int           `koanf:"max_concurrency" validate:"gte=0"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			Mode:            "release",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Auth:  AuthConfig{DefaultLimit: 1000},
		Redis: RedisConfig{Prefix: "scraper:"},
		Log:   logger.Config{Level: "info", Format: "json"},
		Fetch: fetch.DefaultConfig(),
		Providers: ProvidersConfig{
			BaseURLs:   map[string]string{},
			BaseURLTTL: 5 * time.Minute,
		},
		Search: SearchConfig{
			CacheTTL:  time.Hour,
			CacheSize: 512,
		},
		Febbox:  febox.Config{ShowboxBase: febox.DefaultShowboxBase, FebboxBase: febox.DefaultFebboxBase},
		Showbox: showbox.DefaultConfig(),
	}
}

// Load builds the configuration. path may be empty, in which case only the environment is read.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	applyLegacyEnv(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// envKey maps SCRAPER_FEBBOX__COOKIE to febbox.cookie.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// applyLegacyEnv honours the variable names older deployments were configured with.
func applyLegacyEnv(cfg *Config) {
	legacy := []struct {
		name string
		dst  *string
	}{
		{"MONGO_URI", &cfg.Mongo.URI},
		{"DB_NAME", &cfg.Mongo.Database},
		{"TMDB_API_KEY", &cfg.TMDB.APIKey},
		{"FEBBOX_COOKIE", &cfg.Febbox.Cookie},
		{"PROXY_URL", &cfg.Fetch.ProxyURL},
	}
	for _, l := range legacy {
		if *l.dst == "" {
			*l.dst = os.Getenv(l.name)
		}
	}
	if cfg.Mongo.URI != "" && cfg.Mongo.Database == "" {
		cfg.Mongo.Database = DefaultDatabase
	}
}

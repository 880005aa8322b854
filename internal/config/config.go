package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	DatabaseURL string `yaml:"databaseURL"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	RedisAddr               string `yaml:"redisAddr"`
	RedisPassword           string `yaml:"redisPassword"`
	CalendarCacheTTLSeconds int    `yaml:"calendarCacheTTLSeconds"`

	AuthSecret        string `yaml:"authSecret"`
	AuthIssuer        string `yaml:"authIssuer"`
	AuthAudience      string `yaml:"authAudience"`
	AuthLeewaySeconds int    `yaml:"authLeewaySeconds"`
	AuthCookieName    string `yaml:"authCookieName"`

	CORSOrigin          string `yaml:"corsOrigin"`
	MaxUploadBytes      int64  `yaml:"maxUploadBytes"`
	SignedURLTTLSeconds int    `yaml:"signedUrlTtlSeconds"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if useSSL, err := strconv.ParseBool(v); err == nil {
			cfg.MinioUseSSL = useSSL
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("POSTWALL_CALENDAR_CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CalendarCacheTTLSeconds = n
		}
	}
	if v := os.Getenv("POSTWALL_AUTH_SECRET"); v != "" {
		cfg.AuthSecret = v
	}
	if v := os.Getenv("POSTWALL_AUTH_ISSUER"); v != "" {
		cfg.AuthIssuer = v
	}
	if v := os.Getenv("POSTWALL_AUTH_AUDIENCE"); v != "" {
		cfg.AuthAudience = v
	}
	if v := os.Getenv("POSTWALL_AUTH_LEEWAY_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AuthLeewaySeconds = n
		}
	}
	if v := os.Getenv("POSTWALL_AUTH_COOKIE_NAME"); v != "" {
		cfg.AuthCookieName = v
	}
	if v := os.Getenv("POSTWALL_CORS_ORIGIN"); v != "" {
		cfg.CORSOrigin = v
	}
	if v := os.Getenv("POSTWALL_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("POSTWALL_SIGNED_URL_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SignedURLTTLSeconds = n
		}
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AuthCookieName == "" {
		cfg.AuthCookieName = "auth_token"
	}
	if cfg.MinioBucket == "" {
		cfg.MinioBucket = "post-files"
	}
	if cfg.CalendarCacheTTLSeconds <= 0 {
		cfg.CalendarCacheTTLSeconds = 60
	}
	if cfg.SignedURLTTLSeconds <= 0 {
		cfg.SignedURLTTLSeconds = 3600
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or PORT)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.MinioEndpoint == "" {
		return errors.New("config: minioEndpoint is required (set in config.yaml or MINIO_ENDPOINT)")
	}
	if cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" {
		return errors.New("config: minio credentials are required (MINIO_ACCESS_KEY + MINIO_SECRET_KEY)")
	}
	if cfg.AuthSecret == "" {
		return errors.New("config: authSecret is required (set in config.yaml or POSTWALL_AUTH_SECRET)")
	}
	if cfg.AuthLeewaySeconds < 0 {
		return errors.New("config: authLeewaySeconds must be >= 0")
	}
	return nil
}

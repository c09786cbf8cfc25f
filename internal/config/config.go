package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPPort           string        `yaml:"http_port"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBodySize int64         `yaml:"max_request_body_size"`
	MaxUploadSize      int64         `yaml:"max_upload_size"`

	DatabasePath string `yaml:"database_path"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`

	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	CloudinaryURL    string `yaml:"cloudinary_url"`
	CloudinaryFolder string `yaml:"cloudinary_folder"`

	AdminPasswordHash string        `yaml:"admin_password_hash"`
	AdminSessionTTL   time.Duration `yaml:"admin_session_ttl"`

	UploadRatePerMinute int `yaml:"upload_rate_per_minute"`
	UploadBurst         int `yaml:"upload_burst"`

	WhatsAppNumber string `yaml:"whatsapp_number"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func defaults() *Config {
	return &Config{
		HTTPPort:            "8080",
		RequestTimeout:      30 * time.Second,
		ShutdownTimeout:     10 * time.Second,
		MaxRequestBodySize:  1 << 20,  // 1MB
		MaxUploadSize:       20 << 20, // 20MB
		DatabasePath:        "storefront.db",
		KafkaTopic:          "storefront-orders",
		CloudinaryFolder:    "teetotprint",
		AdminSessionTTL:     12 * time.Hour,
		UploadRatePerMinute: 30,
		UploadBurst:         5,
		WhatsAppNumber:      "233242645533",
		LogLevel:            "info",
		LogFormat:           "json",
	}
}

// Load reads the optional YAML file named by STOREFRONT_CONFIG and then
// applies environment overrides.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("STOREFRONT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.DatabasePath = getEnv("DATABASE_PATH", cfg.DatabasePath)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.CloudinaryURL = getEnv("CLOUDINARY_URL", cfg.CloudinaryURL)
	cfg.CloudinaryFolder = getEnv("CLOUDINARY_FOLDER", cfg.CloudinaryFolder)
	cfg.AdminPasswordHash = getEnv("ADMIN_PASSWORD_HASH", cfg.AdminPasswordHash)
	cfg.WhatsAppNumber = getEnv("WHATSAPP_NUMBER", cfg.WhatsAppNumber)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = splitList(brokers)
	}

	var err error
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return nil, err
	}
	if cfg.AdminSessionTTL, err = getDuration("ADMIN_SESSION_TTL", cfg.AdminSessionTTL); err != nil {
		return nil, err
	}
	if cfg.MaxUploadSize, err = getInt64("MAX_UPLOAD_SIZE", cfg.MaxUploadSize); err != nil {
		return nil, err
	}
	rate, err := getInt64("UPLOAD_RATE_PER_MINUTE", int64(cfg.UploadRatePerMinute))
	if err != nil {
		return nil, err
	}
	cfg.UploadRatePerMinute = int(rate)
	burst, err := getInt64("UPLOAD_BURST", int64(cfg.UploadBurst))
	if err != nil {
		return nil, err
	}
	cfg.UploadBurst = int(burst)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("http port is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is required")
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d", c.MaxUploadSize)
	}
	if c.UploadRatePerMinute <= 0 || c.UploadBurst <= 0 {
		return fmt.Errorf("upload rate and burst must be positive")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt64(key string, defaultValue int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/terraincognita07/paindiary/internal/models"
	"github.com/terraincognita07/paindiary/internal/storage"
	"gopkg.in/yaml.v3"
)

const (
	ConfigPathEnv   = "PAINDIARY_CONFIG"
	DefaultPort     = "8080"
	MinSecretLength = 32
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingSecret = errors.New("SECRET_KEY is required")
	ErrWeakSecret    = errors.New("SECRET_KEY is too weak")
)

var insecureSecretPlaceholders = map[string]struct{}{
	"change_me_in_production":                    {},
	"replace_with_at_least_32_random_characters": {},
}

// Config is read from an optional YAML file and then overridden by the
// environment.
type Config struct {
	DBPath            string        `yaml:"db_path"`
	Port              string        `yaml:"port"`
	Timezone          string        `yaml:"timezone"`
	SecretKey         string        `yaml:"secret_key"`
	PassphraseHash    string        `yaml:"passphrase_hash"`
	QuotaBytes        int64         `yaml:"quota_bytes"`
	QuotaCeilingRatio float64       `yaml:"quota_ceiling_ratio"`
	MinRecordDate     string        `yaml:"min_record_date"`
	BackupRetention   time.Duration `yaml:"backup_retention"`
	LogMode           string        `yaml:"log_mode"`
	MetricsEnabled    bool          `yaml:"metrics_enabled"`
	TokenTTL          time.Duration `yaml:"token_ttl"`
}

func Default() Config {
	return Config{
		DBPath:            filepath.Join("data", "paindiary.db"),
		Port:              DefaultPort,
		Timezone:          "UTC",
		QuotaBytes:        storage.DefaultQuotaBytes,
		QuotaCeilingRatio: storage.DefaultCeilingRatio,
		MinRecordDate:     "2000-01-01",
		BackupRetention:   storage.DefaultBackupRetention,
		LogMode:           "development",
		MetricsEnabled:    true,
		TokenTTL:          12 * time.Hour,
	}
}

// Load reads the file named by PAINDIARY_CONFIG, when set, and applies
// environment overrides on top.
func Load() (Config, error) {
	return LoadFile(os.Getenv(ConfigPathEnv))
}

func LoadFile(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) applyEnv() error {
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Timezone = getEnv("TZ", cfg.Timezone)
	cfg.SecretKey = getEnv("SECRET_KEY", cfg.SecretKey)
	cfg.PassphraseHash = getEnv("PASSPHRASE_HASH", cfg.PassphraseHash)
	cfg.MinRecordDate = getEnv("MIN_RECORD_DATE", cfg.MinRecordDate)
	cfg.LogMode = getEnv("LOG_MODE", cfg.LogMode)

	var err error
	if cfg.QuotaBytes, err = getEnvInt64("QUOTA_BYTES", cfg.QuotaBytes); err != nil {
		return err
	}
	if cfg.QuotaCeilingRatio, err = getEnvFloat("QUOTA_CEILING_RATIO", cfg.QuotaCeilingRatio); err != nil {
		return err
	}
	if cfg.BackupRetention, err = getEnvDuration("BACKUP_RETENTION", cfg.BackupRetention); err != nil {
		return err
	}
	if cfg.TokenTTL, err = getEnvDuration("TOKEN_TTL", cfg.TokenTTL); err != nil {
		return err
	}
	if cfg.MetricsEnabled, err = getEnvBool("METRICS_ENABLED", cfg.MetricsEnabled); err != nil {
		return err
	}
	return nil
}

func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return fmt.Errorf("%w: db path is empty", ErrInvalidConfig)
	}
	if _, err := ResolvePort(cfg.Port); err != nil {
		return err
	}
	if cfg.QuotaBytes <= 0 {
		return fmt.Errorf("%w: quota bytes must be positive, got %d", ErrInvalidConfig, cfg.QuotaBytes)
	}
	if cfg.QuotaCeilingRatio <= 0 || cfg.QuotaCeilingRatio > 1 {
		return fmt.Errorf("%w: quota ceiling ratio must lie in (0, 1], got %v", ErrInvalidConfig, cfg.QuotaCeilingRatio)
	}
	if _, err := time.Parse(models.DateLayout, cfg.MinRecordDate); err != nil {
		return fmt.Errorf("%w: min record date must use YYYY-MM-DD, got %q", ErrInvalidConfig, cfg.MinRecordDate)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalidConfig, cfg.Timezone)
	}
	if cfg.BackupRetention < 0 {
		return fmt.Errorf("%w: backup retention must not be negative", ErrInvalidConfig)
	}
	if cfg.TokenTTL <= 0 {
		return fmt.Errorf("%w: token ttl must be positive", ErrInvalidConfig)
	}
	return nil
}

func (cfg Config) Location() *time.Location {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return time.UTC
	}
	return location
}

func (cfg Config) MinDate() time.Time {
	day, err := time.ParseInLocation(models.DateLayout, cfg.MinRecordDate, cfg.Location())
	if err != nil {
		return time.Time{}
	}
	return day
}

func (cfg Config) StorageOptions() storage.Options {
	return storage.Options{
		QuotaBytes:      cfg.QuotaBytes,
		CeilingRatio:    cfg.QuotaCeilingRatio,
		BackupRetention: cfg.BackupRetention,
	}
}

// ResolveSecretKey returns the signing secret the API requires. Empty,
// short and documented placeholder values are rejected.
func (cfg Config) ResolveSecretKey() (string, error) {
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return "", ErrMissingSecret
	}
	if _, insecure := insecureSecretPlaceholders[strings.ToLower(secret)]; insecure {
		return "", fmt.Errorf("%w: placeholder value", ErrWeakSecret)
	}
	if len(secret) < MinSecretLength {
		return "", fmt.Errorf("%w: use at least %d characters", ErrWeakSecret, MinSecretLength)
	}
	return secret, nil
}

func ResolvePort(raw string) (string, error) {
	port := strings.TrimSpace(raw)
	if port == "" {
		return DefaultPort, nil
	}
	value, err := strconv.Atoi(port)
	if err != nil || value < 1 || value > 65535 {
		return "", fmt.Errorf("%w: port must be between 1 and 65535, got %q", ErrInvalidConfig, raw)
	}
	return port, nil
}

func getEnv(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidConfig, key, raw)
	}
	return value, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", ErrInvalidConfig, key, raw)
	}
	return value, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a duration, got %q", ErrInvalidConfig, key, raw)
	}
	return value, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean, got %q", ErrInvalidConfig, key, raw)
	}
	return value, nil
}

package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageCSV      = "csv"
	StoragePostgres = "postgres"

	OCREngineCommand     = "command"
	OCREngineRekognition = "rekognition"
)

type HTTPConfig struct {
	Host          string
	Port          int
	SessionSecret string
	MaxUploadMB   int64
}

type PathsConfig struct {
	BaseDir   string
	DataDir   string
	UploadDir string
	ScanDir   string
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	AccessSecret string
}

type OCRConfig struct {
	Engine        string
	Command       string
	CommandArgs   []string
	Timeout       time.Duration
	MinConfidence float64
	MinTextLength int
	AWSRegion     string
}

type R2Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	Prefix        string
	PublicBaseURL string
}

type Config struct {
	Environment string
	Storage     string
	HTTP        HTTPConfig
	Paths       PathsConfig
	DB          DBConfig
	Auth        AuthConfig
	OCR         OCRConfig
	R2          R2Config
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 5000)
	v.SetDefault("HTTP_MAX_UPLOAD_MB", 16)
	v.SetDefault("BASE_DIR", ".")
	v.SetDefault("STORAGE_BACKEND", StorageCSV)
	v.SetDefault("OCR_ENGINE", OCREngineCommand)
	v.SetDefault("OCR_TIMEOUT", "60s")
	v.SetDefault("OCR_MIN_CONFIDENCE", 0.40)
	v.SetDefault("OCR_MIN_TEXT_LENGTH", 3)

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		Storage:     strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_BACKEND"))),
		HTTP: HTTPConfig{
			Host:          v.GetString("HTTP_HOST"),
			Port:          v.GetInt("HTTP_PORT"),
			SessionSecret: v.GetString("SESSION_SECRET"),
			MaxUploadMB:   v.GetInt64("HTTP_MAX_UPLOAD_MB"),
		},
		Paths: PathsConfig{
			BaseDir:   v.GetString("BASE_DIR"),
			DataDir:   v.GetString("DATA_DIR"),
			UploadDir: v.GetString("UPLOAD_DIR"),
			ScanDir:   v.GetString("SCAN_DIR"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		OCR: OCRConfig{
			Engine:        strings.ToLower(strings.TrimSpace(v.GetString("OCR_ENGINE"))),
			Command:       v.GetString("OCR_COMMAND"),
			CommandArgs:   strings.Fields(v.GetString("OCR_COMMAND_ARGS")),
			Timeout:       v.GetDuration("OCR_TIMEOUT"),
			MinConfidence: v.GetFloat64("OCR_MIN_CONFIDENCE"),
			MinTextLength: v.GetInt("OCR_MIN_TEXT_LENGTH"),
			AWSRegion:     v.GetString("AWS_REGION"),
		},
		R2: R2Config{
			Endpoint:      v.GetString("R2_ENDPOINT"),
			AccessKey:     v.GetString("R2_ACCESS_KEY_ID"),
			SecretKey:     v.GetString("R2_SECRET_ACCESS_KEY"),
			Bucket:        v.GetString("R2_BUCKET"),
			Region:        v.GetString("R2_REGION"),
			Prefix:        v.GetString("R2_PREFIX"),
			PublicBaseURL: v.GetString("R2_PUBLIC_BASE_URL"),
		},
	}

	applyPathDefaults(&cfg.Paths)
	if cfg.HTTP.SessionSecret == "" {
		cfg.HTTP.SessionSecret = "secret-key-change-me"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyPathDefaults places data/, uploads/ and scans/ under BaseDir unless
// they are set explicitly.
func applyPathDefaults(p *PathsConfig) {
	if p.BaseDir == "" {
		p.BaseDir = "."
	}
	if abs, err := filepath.Abs(p.BaseDir); err == nil {
		p.BaseDir = abs
	}
	if p.DataDir == "" {
		p.DataDir = filepath.Join(p.BaseDir, "data")
	}
	if p.UploadDir == "" {
		p.UploadDir = filepath.Join(p.BaseDir, "uploads")
	}
	if p.ScanDir == "" {
		p.ScanDir = filepath.Join(p.BaseDir, "scans")
	}
}

func validate(cfg *Config) error {
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT %d is out of range", cfg.HTTP.Port)
	}
	switch cfg.Storage {
	case StorageCSV:
	case StoragePostgres:
		if cfg.DB.DSN == "" {
			return fmt.Errorf("DB_DSN is required when STORAGE_BACKEND=%s", StoragePostgres)
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Storage)
	}
	if cfg.OCR.MinConfidence < 0 || cfg.OCR.MinConfidence > 1 {
		return fmt.Errorf("OCR_MIN_CONFIDENCE must be between 0 and 1")
	}
	if cfg.OCR.MinTextLength < 0 {
		return fmt.Errorf("OCR_MIN_TEXT_LENGTH must not be negative")
	}
	return nil
}

// ValidateOCR checks the engine settings. Only the server needs an engine, so
// Load leaves this to the serve command.
func (c *Config) ValidateOCR() error {
	switch c.OCR.Engine {
	case OCREngineCommand:
		if c.OCR.Command == "" {
			return fmt.Errorf("OCR_COMMAND is required when OCR_ENGINE=%s", OCREngineCommand)
		}
	case OCREngineRekognition:
	default:
		return fmt.Errorf("unknown OCR_ENGINE %q", c.OCR.Engine)
	}
	return nil
}

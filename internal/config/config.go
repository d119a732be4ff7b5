package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	JWT      JWTConfig
	S3       S3Config
	Log      LogConfig
	Extract  ExtractorConfig
	Reasoner ReasonerConfig
	Pipeline PipelineConfig
	Queue    QueueConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// JWTConfig holds service-token verification settings.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// S3Config holds object storage settings for uploaded documents.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ExtractorConfig holds visual-document extraction model settings.
type ExtractorConfig struct {
	Provider    string `mapstructure:"provider"`
	Endpoint    string `mapstructure:"endpoint"`
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// ReasonerProviderConfig holds settings for a single reasoning backend.
type ReasonerProviderConfig struct {
	Provider    string `mapstructure:"provider"`
	Endpoint    string `mapstructure:"endpoint"`
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// ReasonerConfig holds reasoning backend settings with an optional
// secondary fallback provider.
type ReasonerConfig struct {
	Primary   ReasonerProviderConfig `mapstructure:"primary"`
	Secondary ReasonerProviderConfig `mapstructure:"secondary"`
}

// SecondaryConfig returns the secondary reasoner config, or nil if not
// configured.
func (r *ReasonerConfig) SecondaryConfig() *ReasonerProviderConfig {
	if r.Secondary.Provider != "" {
		return &r.Secondary
	}
	return nil
}

// PipelineConfig holds per-request pipeline settings.
type PipelineConfig struct {
	RequestTimeoutSecs int `mapstructure:"request_timeout_secs"`
}

// QueueConfig holds verification queue worker settings.
type QueueConfig struct {
	PollIntervalSecs int `mapstructure:"poll_interval_secs"`
	MaxRetries       int `mapstructure:"max_retries"`
	Concurrency      int `mapstructure:"concurrency"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the
// PROPVERIS_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PROPVERIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "propveris")
	v.SetDefault("db.password", "propveris_secret")
	v.SetDefault("db.name", "propveris_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.issuer", "propveris")

	// S3 defaults
	v.SetDefault("s3.region", "ap-south-1")
	v.SetDefault("s3.bucket", "propveris-uploads")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.max_file_size_mb", 25)
	v.SetDefault("s3.presign_expiry", 3600)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Extractor defaults
	v.SetDefault("extract.provider", "layoutlm")
	v.SetDefault("extract.endpoint", "http://localhost:9090")
	v.SetDefault("extract.api_key", "")
	v.SetDefault("extract.model", "layoutlmv3-base")
	v.SetDefault("extract.timeout_secs", 60)

	// Reasoner defaults
	v.SetDefault("reasoner.primary.provider", "ollama")
	v.SetDefault("reasoner.primary.endpoint", "http://localhost:11434")
	v.SetDefault("reasoner.primary.api_key", "")
	v.SetDefault("reasoner.primary.model", "llama3.2:3b")
	v.SetDefault("reasoner.primary.timeout_secs", 120)
	v.SetDefault("reasoner.secondary.provider", "")
	v.SetDefault("reasoner.secondary.endpoint", "")
	v.SetDefault("reasoner.secondary.api_key", "")
	v.SetDefault("reasoner.secondary.model", "")
	v.SetDefault("reasoner.secondary.timeout_secs", 120)

	// Pipeline defaults
	v.SetDefault("pipeline.request_timeout_secs", 300)

	// Queue defaults
	v.SetDefault("queue.poll_interval_secs", 10)
	v.SetDefault("queue.max_retries", 3)
	v.SetDefault("queue.concurrency", 4)

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                    "PROPVERIS_SERVER_PORT",
		"server.read_timeout":            "PROPVERIS_SERVER_READ_TIMEOUT",
		"server.write_timeout":           "PROPVERIS_SERVER_WRITE_TIMEOUT",
		"server.environment":             "PROPVERIS_SERVER_ENVIRONMENT",
		"db.host":                        "PROPVERIS_DB_HOST",
		"db.port":                        "PROPVERIS_DB_PORT",
		"db.user":                        "PROPVERIS_DB_USER",
		"db.password":                    "PROPVERIS_DB_PASSWORD",
		"db.name":                        "PROPVERIS_DB_NAME",
		"db.sslmode":                     "PROPVERIS_DB_SSLMODE",
		"db.max_open":                    "PROPVERIS_DB_MAX_OPEN",
		"db.max_idle":                    "PROPVERIS_DB_MAX_IDLE",
		"jwt.secret":                     "PROPVERIS_JWT_SECRET",
		"jwt.issuer":                     "PROPVERIS_JWT_ISSUER",
		"s3.region":                      "PROPVERIS_S3_REGION",
		"s3.bucket":                      "PROPVERIS_S3_BUCKET",
		"s3.endpoint":                    "PROPVERIS_S3_ENDPOINT",
		"s3.access_key":                  "PROPVERIS_S3_ACCESS_KEY",
		"s3.secret_key":                  "PROPVERIS_S3_SECRET_KEY",
		"s3.max_file_size_mb":            "PROPVERIS_S3_MAX_FILE_SIZE_MB",
		"s3.presign_expiry":              "PROPVERIS_S3_PRESIGN_EXPIRY",
		"log.level":                      "PROPVERIS_LOG_LEVEL",
		"log.format":                     "PROPVERIS_LOG_FORMAT",
		"extract.provider":               "PROPVERIS_EXTRACT_PROVIDER",
		"extract.endpoint":               "PROPVERIS_EXTRACT_ENDPOINT",
		"extract.api_key":                "PROPVERIS_EXTRACT_API_KEY",
		"extract.model":                  "PROPVERIS_EXTRACT_MODEL",
		"extract.timeout_secs":           "PROPVERIS_EXTRACT_TIMEOUT_SECS",
		"reasoner.primary.provider":      "PROPVERIS_REASONER_PRIMARY_PROVIDER",
		"reasoner.primary.endpoint":      "PROPVERIS_REASONER_PRIMARY_ENDPOINT",
		"reasoner.primary.api_key":       "PROPVERIS_REASONER_PRIMARY_API_KEY",
		"reasoner.primary.model":         "PROPVERIS_REASONER_PRIMARY_MODEL",
		"reasoner.primary.timeout_secs":  "PROPVERIS_REASONER_PRIMARY_TIMEOUT_SECS",
		"reasoner.secondary.provider":    "PROPVERIS_REASONER_SECONDARY_PROVIDER",
		"reasoner.secondary.endpoint":    "PROPVERIS_REASONER_SECONDARY_ENDPOINT",
		"reasoner.secondary.api_key":     "PROPVERIS_REASONER_SECONDARY_API_KEY",
		"reasoner.secondary.model":       "PROPVERIS_REASONER_SECONDARY_MODEL",
		"reasoner.secondary.timeout_secs": "PROPVERIS_REASONER_SECONDARY_TIMEOUT_SECS",
		"pipeline.request_timeout_secs":  "PROPVERIS_PIPELINE_REQUEST_TIMEOUT_SECS",
		"queue.poll_interval_secs":       "PROPVERIS_QUEUE_POLL_INTERVAL_SECS",
		"queue.max_retries":              "PROPVERIS_QUEUE_MAX_RETRIES",
		"queue.concurrency":              "PROPVERIS_QUEUE_CONCURRENCY",
		"cors.allowed_origins":           "PROPVERIS_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if
	// PROPVERIS_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("PROPVERIS_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.JWT = JWTConfig{
		Secret: v.GetString("jwt.secret"),
		Issuer: v.GetString("jwt.issuer"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		MaxFileSizeMB: v.GetInt64("s3.max_file_size_mb"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Extract = ExtractorConfig{
		Provider:    v.GetString("extract.provider"),
		Endpoint:    v.GetString("extract.endpoint"),
		APIKey:      v.GetString("extract.api_key"),
		Model:       v.GetString("extract.model"),
		TimeoutSecs: v.GetInt("extract.timeout_secs"),
	}
	cfg.Reasoner = ReasonerConfig{
		Primary: ReasonerProviderConfig{
			Provider:    v.GetString("reasoner.primary.provider"),
			Endpoint:    v.GetString("reasoner.primary.endpoint"),
			APIKey:      v.GetString("reasoner.primary.api_key"),
			Model:       v.GetString("reasoner.primary.model"),
			TimeoutSecs: v.GetInt("reasoner.primary.timeout_secs"),
		},
		Secondary: ReasonerProviderConfig{
			Provider:    v.GetString("reasoner.secondary.provider"),
			Endpoint:    v.GetString("reasoner.secondary.endpoint"),
			APIKey:      v.GetString("reasoner.secondary.api_key"),
			Model:       v.GetString("reasoner.secondary.model"),
			TimeoutSecs: v.GetInt("reasoner.secondary.timeout_secs"),
		},
	}
	cfg.Pipeline = PipelineConfig{
		RequestTimeoutSecs: v.GetInt("pipeline.request_timeout_secs"),
	}
	cfg.Queue = QueueConfig{
		PollIntervalSecs: v.GetInt("queue.poll_interval_secs"),
		MaxRetries:       v.GetInt("queue.max_retries"),
		Concurrency:      v.GetInt("queue.concurrency"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	return cfg, nil
}

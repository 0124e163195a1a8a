package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is read from config.yaml; environment variables override file values.
// Secrets (database password, MinIO secret key) should come from the environment.
type Config struct {
	Server struct {
		Port            int           `yaml:"port" env:"PORT" env-default:"8080"`
		ReadTimeout     time.Duration `yaml:"readTimeout" env:"SERVER_READ_TIMEOUT" env-default:"15s"`
		WriteTimeout    time.Duration `yaml:"writeTimeout" env:"SERVER_WRITE_TIMEOUT" env-default:"120s"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"30s"`
		CORSOrigins     []string      `yaml:"corsOrigins" env:"CORS_ORIGINS" env-separator:"," env-default:"*"`
		// RateLimit applies to POST /api/analyze, per client IP.
		RateLimit struct {
			Capacity   int `yaml:"capacity" env:"RATE_LIMIT_CAPACITY" env-default:"10"`
			RefillRate int `yaml:"refillRate" env:"RATE_LIMIT_REFILL" env-default:"1"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Database struct {
		// Driver is postgres, mysql or memory.
		Driver       string `yaml:"driver" env:"DB_DRIVER" env-default:"memory"`
		Host         string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
		Port         int    `yaml:"port" env:"DB_PORT"` // unset: 5432 postgres, 3306 mysql
		User         string `yaml:"user" env:"DB_USER" env-default:"whatif"`
		Password     string `yaml:"password" env:"DB_PASSWORD"`
		Name         string `yaml:"name" env:"DB_NAME" env-default:"whatif"`
		SSLMode      string `yaml:"sslMode" env:"DB_SSLMODE" env-default:"disable"`
		MaxOpenConns int    `yaml:"maxOpenConns" env:"DB_MAX_OPEN_CONNS" env-default:"25"`
		MaxIdleConns int    `yaml:"maxIdleConns" env:"DB_MAX_IDLE_CONNS" env-default:"10"`
		AutoMigrate  bool   `yaml:"autoMigrate" env:"DB_AUTO_MIGRATE" env-default:"false"`
	} `yaml:"database"`

	Completion struct {
		BaseURL string        `yaml:"baseURL" env:"COMPLETION_BASE_URL" env-default:"https://api.groq.com/openai/v1"`
		Timeout time.Duration `yaml:"timeout" env:"COMPLETION_TIMEOUT" env-default:"30s"`
	} `yaml:"completion"`

	Video struct {
		BaseURL string `yaml:"baseURL" env:"VIDEO_BASE_URL" env-default:"https://api.minimax.chat"`
	} `yaml:"video"`

	Minio struct {
		Enabled    bool   `yaml:"enabled" env:"MINIO_ENABLED" env-default:"false"`
		Endpoint   string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
		AccessKey  string `yaml:"accessKey" env:"MINIO_ACCESS_KEY"`
		SecretKey  string `yaml:"secretKey" env:"MINIO_SECRET_KEY"`
		BucketName string `yaml:"bucketName" env:"MINIO_BUCKET" env-default:"whatif-scenarios"`
		Region     string `yaml:"region" env:"MINIO_REGION" env-default:"us-east-1"`
		UseSSL     bool   `yaml:"useSSL" env:"MINIO_USE_SSL" env-default:"false"`
	} `yaml:"minio"`

	Logging struct {
		Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
		// Mode is development or production.
		Mode string `yaml:"mode" env:"LOG_MODE" env-default:"production"`
	} `yaml:"logging"`
}

// Load baca file config; kalau file tidak ada, pakai env + default saja.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
			return &cfg, cfg.validate()
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
	case "mysql":
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be postgres, mysql or memory, got %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Completion.Timeout <= 0 {
		return fmt.Errorf("completion.timeout must be positive")
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN is a postgres:// URL accepted by both lib/pq and golang-migrate.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     c.Database.Host + ":" + strconv.Itoa(c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: url.Values{"sslmode": {c.Database.SSLMode}}.Encode(),
	}
	return u.String()
}

// DSN returns the driver connection string for the configured database.
func (c *Config) DSN() string {
	if c.Database.Driver == "mysql" {
		return c.MySQLDSN()
	}
	return c.PostgresDSN()
}

// MigrationURL returns the golang-migrate database URL for the configured driver.
func (c *Config) MigrationURL() string {
	if c.Database.Driver == "mysql" {
		return fmt.Sprintf("mysql://%s:%s@tcp(%s:%d)/%s?multiStatements=true",
			url.QueryEscape(c.Database.User),
			url.QueryEscape(c.Database.Password),
			c.Database.Host,
			c.Database.Port,
			c.Database.Name,
		)
	}
	return c.PostgresDSN()
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the API server and supporting services.
type Config struct {
	DBDriver               string
	DatabaseDSN            string
	JWTSecret              string
	HTTPListenAddr         string
	RequestTimeout         time.Duration
	FreeCartoonGenerations int
	CORSAllowedOrigins     []string
	LogLevel               string
	S3Endpoint             string
	S3Region               string
	S3AccessKey            string
	S3SecretKey            string
	S3Bucket               string
	S3UsePathStyle         bool
	S3Prefix               string
	TelegramBotToken       string
	TelegramAdminChatID    int64
	SeedAdminEmail         string
	SeedAdminPassword      string
}

// StorageEnabled reports whether the S3 blob store is configured.
func (c Config) StorageEnabled() bool {
	return c.S3Bucket != ""
}

// NotifierEnabled reports whether admin notifications can be delivered.
func (c Config) NotifierEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramAdminChatID != 0
}

// Load reads configuration from environment variables, applying sane defaults.
// A .env file is loaded first when one can be found; its absence is not an error.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBDriver:               strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		HTTPListenAddr:         getEnv("HTTP_LISTEN_ADDR", ":8080"),
		RequestTimeout:         time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 15)),
		FreeCartoonGenerations: getInt("FREE_CARTOON_GENERATIONS", 2),
		CORSAllowedOrigins:     splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		LogLevel:               strings.ToLower(getEnv("LOG_LEVEL", "info")),
		S3Endpoint:             os.Getenv("S3_ENDPOINT"),
		S3Region:               os.Getenv("S3_REGION"),
		S3AccessKey:            os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:            os.Getenv("S3_SECRET_KEY"),
		S3Bucket:               os.Getenv("S3_BUCKET"),
		S3UsePathStyle:         getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:               getEnv("S3_PREFIX", "downloads"),
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramAdminChatID:    getInt64("TELEGRAM_ADMIN_CHAT_ID", 0),
		SeedAdminEmail:         getEnv("SEED_ADMIN_EMAIL", "admin@vidcrafter.com"),
		SeedAdminPassword:      os.Getenv("SEED_ADMIN_PASSWORD"),
	}

	cfg.DatabaseDSN = os.Getenv("DATABASE_DSN")
	cfg.JWTSecret = os.Getenv("JWT_SECRET")

	var missing []string
	if cfg.DatabaseDSN == "" {
		missing = append(missing, "DATABASE_DSN")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.StorageEnabled() {
		if cfg.S3Region == "" {
			missing = append(missing, "S3_REGION")
		}
		if cfg.S3AccessKey == "" {
			missing = append(missing, "S3_ACCESS_KEY")
		}
		if cfg.S3SecretKey == "" {
			missing = append(missing, "S3_SECRET_KEY")
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	switch cfg.DBDriver {
	case "mysql", "postgres", "sqlite3":
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.FreeCartoonGenerations < 0 {
		return Config{}, fmt.Errorf("FREE_CARTOON_GENERATIONS must not be negative")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		// Variables already set in the process environment win over the file.
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	return nil
}

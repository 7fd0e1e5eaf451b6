package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// DefaultAPIBase is the production DAB API root.
	DefaultAPIBase = "https://dab.yeet.su/api"
	// DefaultUploadURL is the GoFile anonymous upload endpoint.
	DefaultUploadURL = "https://upload.gofile.io/uploadfile"
)

// Config holds everything read from the environment at startup.
type Config struct {
	TelegramToken string
	DabEmail      string
	DabPassword   string
	DabBaseURL    string
	UploadURL     string
	TempDir       string
	SessionDBPath string
}

// Load reads a .env file when present, then the process environment.
// It fails with a single error naming every missing required variable
// so a misconfigured deployment is diagnosable in one pass.
func Load() (*Config, error) {
	// Best effort: a missing .env just means real env vars are in use.
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DabEmail:      os.Getenv("DAB_EMAIL"),
		DabPassword:   os.Getenv("DAB_PASSWORD"),
		DabBaseURL:    os.Getenv("DAB_API_BASE"),
		UploadURL:     os.Getenv("GOFILE_UPLOAD_URL"),
		TempDir:       os.Getenv("BOT_TEMP_DIR"),
		SessionDBPath: os.Getenv("SESSION_DB_PATH"),
	}

	var missing []string
	if cfg.TelegramToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if cfg.DabEmail == "" {
		missing = append(missing, "DAB_EMAIL")
	}
	if cfg.DabPassword == "" {
		missing = append(missing, "DAB_PASSWORD")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if cfg.DabBaseURL == "" {
		cfg.DabBaseURL = DefaultAPIBase
	}
	if cfg.UploadURL == "" {
		cfg.UploadURL = DefaultUploadURL
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.SessionDBPath == "" {
		cfg.SessionDBPath = "./data/sessions.db"
	}

	return cfg, nil
}

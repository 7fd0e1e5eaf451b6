package config

import (
	"strings"
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("DAB_EMAIL", "a@b.c")
	t.Setenv("DAB_PASSWORD", "pw")
}

func TestLoadNamesEveryMissingVariable(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("DAB_EMAIL", "")
	t.Setenv("DAB_PASSWORD", "pw")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, name := range []string{"TELEGRAM_BOT_TOKEN", "DAB_EMAIL"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q should name %s", err, name)
		}
	}
	if strings.Contains(err.Error(), "DAB_PASSWORD") {
		t.Error("a set variable must not be reported missing")
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("DAB_API_BASE", "")
	t.Setenv("GOFILE_UPLOAD_URL", "")
	t.Setenv("BOT_TEMP_DIR", "")
	t.Setenv("SESSION_DB_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DabBaseURL != DefaultAPIBase {
		t.Errorf("DabBaseURL = %q", cfg.DabBaseURL)
	}
	if cfg.UploadURL != DefaultUploadURL {
		t.Errorf("UploadURL = %q", cfg.UploadURL)
	}
	if cfg.TempDir == "" || cfg.SessionDBPath == "" {
		t.Error("temp dir and session db path must default")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DAB_API_BASE", "http://127.0.0.1:9999/api")
	t.Setenv("GOFILE_UPLOAD_URL", "http://127.0.0.1:9999/upload")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DabBaseURL != "http://127.0.0.1:9999/api" {
		t.Errorf("DabBaseURL = %q", cfg.DabBaseURL)
	}
	if cfg.UploadURL != "http://127.0.0.1:9999/upload" {
		t.Errorf("UploadURL = %q", cfg.UploadURL)
	}
}

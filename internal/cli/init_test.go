package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"finsight/internal/config"
)

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"error", false, false},
		{"nonsense", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := SetupLogger(&config.Config{LogLevel: tt.level, LogFormat: "json"})
			ctx := context.Background()
			if got := logger.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := logger.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("info enabled = %v, want %v", got, tt.wantInfo)
			}
			if slog.Default() != logger.Logger {
				t.Error("logger not installed as slog default")
			}
		})
	}
}

func TestLoadAndValidateConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("PORT", "")
		os.Unsetenv("PORT")
		t.Setenv("FINSIGHT_API_URL", "http://api.local/")

		cfg, err := LoadAndValidateConfig()
		if err != nil {
			t.Fatalf("LoadAndValidateConfig() error = %v", err)
		}
		if cfg.Port != "8080" {
			t.Errorf("Port = %q, want 8080", cfg.Port)
		}
		if cfg.APIURL != "http://api.local" {
			t.Errorf("APIURL = %q", cfg.APIURL)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		t.Setenv("PORT", "99999")
		if _, err := LoadAndValidateConfig(); err == nil || !strings.Contains(err.Error(), "invalid port") {
			t.Errorf("LoadAndValidateConfig() error = %v, want invalid port", err)
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		t.Chdir(t.TempDir())
		if err := LoadEnvFile(); err != nil {
			t.Errorf("LoadEnvFile() error = %v", err)
		}
	})

	t.Run("loads values", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("FINSIGHT_TEST_VALUE=from-file\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Chdir(dir)
		t.Setenv("FINSIGHT_TEST_VALUE", "")
		os.Unsetenv("FINSIGHT_TEST_VALUE")

		if err := LoadEnvFile(); err != nil {
			t.Fatalf("LoadEnvFile() error = %v", err)
		}
		if got := os.Getenv("FINSIGHT_TEST_VALUE"); got != "from-file" {
			t.Errorf("FINSIGHT_TEST_VALUE = %q, want from-file", got)
		}
	})
}

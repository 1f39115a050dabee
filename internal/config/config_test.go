package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Port:            "8080",
		ShutdownTimeout: 10 * time.Second,
		APIURL:          "http://localhost:8081",
		SessionCookie:   "appSession",
		LogLevel:        "info",
		LogFormat:       "text",
		RateLimitRPS:    2,
		RateLimitBurst:  20,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errorString string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:   "same origin backend",
			mutate: func(c *Config) { c.APIURL = ""; c.PublicOrigin = "https://finsight.example.com" },
		},
		{
			name:        "no backend origin",
			mutate:      func(c *Config) { c.APIURL = "" },
			wantErr:     true,
			errorString: "backend origin missing: set FINSIGHT_API_URL or PUBLIC_ORIGIN",
		},
		{
			name:        "public origin with path",
			mutate:      func(c *Config) { c.APIURL = ""; c.PublicOrigin = "https://finsight.example.com/app" },
			wantErr:     true,
			errorString: "invalid public origin 'https://finsight.example.com/app': must be scheme://host[:port]",
		},
		{
			name:        "public origin without scheme",
			mutate:      func(c *Config) { c.PublicOrigin = "finsight.example.com" },
			wantErr:     true,
			errorString: "invalid public origin 'finsight.example.com': must be scheme://host[:port]",
		},
		{
			name:   "trusted proxies",
			mutate: func(c *Config) { c.TrustedProxies = []string{"10.0.0.1", "172.16.0.0/12"} },
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range low",
			mutate:      func(c *Config) { c.Port = "0" },
			wantErr:     true,
			errorString: "invalid port 0: must be between 1 and 65535",
		},
		{
			name:        "invalid port - out of range high",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "invalid API URL",
			mutate:      func(c *Config) { c.APIURL = "://invalid-url" },
			wantErr:     true,
			errorString: "invalid API URL",
		},
		{
			name:        "invalid API URL scheme",
			mutate:      func(c *Config) { c.APIURL = "ftp://example.com" },
			wantErr:     true,
			errorString: "invalid API URL scheme 'ftp': must be 'http' or 'https'",
		},
		{
			name:        "API URL without host",
			mutate:      func(c *Config) { c.APIURL = "http://" },
			wantErr:     true,
			errorString: "missing host",
		},
		{
			name:        "negative API timeout",
			mutate:      func(c *Config) { c.APITimeout = -time.Second },
			wantErr:     true,
			errorString: "invalid API timeout -1s: must not be negative",
		},
		{
			name:        "shutdown timeout too short",
			mutate:      func(c *Config) { c.ShutdownTimeout = 100 * time.Millisecond },
			wantErr:     true,
			errorString: "invalid shutdown timeout 100ms: must be at least 1 second",
		},
		{
			name:        "empty session cookie",
			mutate:      func(c *Config) { c.SessionCookie = " " },
			wantErr:     true,
			errorString: "session cookie name cannot be empty",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.LogLevel = "verbose" },
			wantErr:     true,
			errorString: "invalid log level 'verbose': must be one of [debug info warn error]",
		},
		{
			name:        "invalid log format",
			mutate:      func(c *Config) { c.LogFormat = "xml" },
			wantErr:     true,
			errorString: "invalid log format 'xml'",
		},
		{
			name:        "zero rate limit",
			mutate:      func(c *Config) { c.RateLimitRPS = 0 },
			wantErr:     true,
			errorString: "invalid rate limit 0: must be positive",
		},
		{
			name:        "zero burst",
			mutate:      func(c *Config) { c.RateLimitBurst = 0 },
			wantErr:     true,
			errorString: "invalid rate limit burst 0: must be at least 1",
		},
		{
			name:        "bad trusted proxy",
			mutate:      func(c *Config) { c.TrustedProxies = []string{"not-an-ip"} },
			wantErr:     true,
			errorString: "invalid trusted proxy 'not-an-ip'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Config.Validate() error = nil, wantErr %v", tt.wantErr)
					return
				}
				if tt.errorString != "" && !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("Config.Validate() error = %v, want error containing %v", err.Error(), tt.errorString)
				}
			} else if err != nil {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "abc"
	cfg.LogLevel = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "configuration validation failed:") {
		t.Errorf("unexpected prefix: %q", msg)
	}
	if strings.Count(msg, "\n- ") != 2 {
		t.Errorf("want two problems listed, got %q", msg)
	}
}

func TestLoadFrom(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		cfg, err := LoadFrom(map[string]string{})
		if err != nil {
			t.Fatalf("LoadFrom() error = %v", err)
		}
		if cfg.Port != "8080" {
			t.Errorf("Port = %v, want 8080", cfg.Port)
		}
		if cfg.APIURL != "" {
			t.Errorf("APIURL = %q, want same origin", cfg.APIURL)
		}
		if cfg.SessionCookie != "appSession" {
			t.Errorf("SessionCookie = %v", cfg.SessionCookie)
		}
		if cfg.APITimeout != 0 {
			t.Errorf("APITimeout = %v, want 0", cfg.APITimeout)
		}
		if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
			t.Errorf("log = %s/%s", cfg.LogLevel, cfg.LogFormat)
		}
		if cfg.RateLimitRPS != 2 || cfg.RateLimitBurst != 20 {
			t.Errorf("rate limit = %v/%v", cfg.RateLimitRPS, cfg.RateLimitBurst)
		}
		if cfg.ShutdownTimeout != 10*time.Second {
			t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
		}
		if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "backend origin missing") {
			t.Errorf("defaults without a backend origin should fail validation, got %v", err)
		}
	})

	t.Run("public origin", func(t *testing.T) {
		cfg, err := LoadFrom(map[string]string{"PUBLIC_ORIGIN": " https://finsight.example.com/ "})
		if err != nil {
			t.Fatal(err)
		}
		if cfg.PublicOrigin != "https://finsight.example.com" {
			t.Errorf("PublicOrigin = %q", cfg.PublicOrigin)
		}
		if got := cfg.BackendURL(); got != "https://finsight.example.com" {
			t.Errorf("BackendURL() = %q", got)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		cfg, err := LoadFrom(map[string]string{
			"PORT":             "9090",
			"FINSIGHT_API_URL": "https://api.example.com/",
			"API_TIMEOUT":      "5s",
			"LOG_LEVEL":        "debug",
			"LOG_FORMAT":       "json",
			"RATE_LIMIT_RPS":   "0.5",
			"TRUSTED_PROXIES":  "10.0.0.1,192.168.0.0/16",
		})
		if err != nil {
			t.Fatalf("LoadFrom() error = %v", err)
		}
		if cfg.Port != "9090" {
			t.Errorf("Port = %v", cfg.Port)
		}
		if cfg.APIURL != "https://api.example.com" {
			t.Errorf("APIURL = %q", cfg.APIURL)
		}
		if cfg.BackendURL() != cfg.APIURL {
			t.Errorf("BackendURL() = %q, want the explicit API URL", cfg.BackendURL())
		}
		if cfg.APITimeout != 5*time.Second {
			t.Errorf("APITimeout = %v", cfg.APITimeout)
		}
		if cfg.RateLimitRPS != 0.5 {
			t.Errorf("RateLimitRPS = %v", cfg.RateLimitRPS)
		}
		if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[1] != "192.168.0.0/16" {
			t.Errorf("TrustedProxies = %v", cfg.TrustedProxies)
		}
	})

	t.Run("legacy API URL fallback", func(t *testing.T) {
		cfg, err := LoadFrom(map[string]string{"NEXT_PUBLIC_API_URL": "http://legacy:8080"})
		if err != nil {
			t.Fatal(err)
		}
		if cfg.APIURL != "http://legacy:8080" {
			t.Errorf("APIURL = %q", cfg.APIURL)
		}
	})

	t.Run("explicit URL wins over legacy", func(t *testing.T) {
		cfg, err := LoadFrom(map[string]string{
			"NEXT_PUBLIC_API_URL": "http://legacy:8080",
			"FINSIGHT_API_URL":    "http://new:8080",
		})
		if err != nil {
			t.Fatal(err)
		}
		if cfg.APIURL != "http://new:8080" {
			t.Errorf("APIURL = %q", cfg.APIURL)
		}
	})

	t.Run("unparsable duration", func(t *testing.T) {
		if _, err := LoadFrom(map[string]string{"API_TIMEOUT": "soon"}); err == nil {
			t.Error("LoadFrom() error = nil, want parse error")
		}
	})
}

func TestConfig_Addr(t *testing.T) {
	cfg := validConfig()
	if got := cfg.Addr(); got != ":8080" {
		t.Errorf("Addr() = %q", got)
	}
}

package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		APIURL:      "http://localhost:8080",
		HTTPTimeout: 30 * time.Second,
		Workers:     4,
		PageSize:    50,
		MaxRetries:  5,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing url", func(c *Config) { c.APIURL = "" }, true},
		{"bad scheme", func(c *Config) { c.APIURL = "ftp://host" }, true},
		{"zero workers", func(c *Config) { c.Workers = 0 }, true},
		{"page size too small", func(c *Config) { c.PageSize = 0 }, true},
		{"page size too large", func(c *Config) { c.PageSize = 101 }, true},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, true},
		{"zero timeout", func(c *Config) { c.HTTPTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_TrimsTrailingSlash(t *testing.T) {
	cfg := validConfig()
	cfg.APIURL = "https://api.example.com/"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.APIURL != "https://api.example.com" {
		t.Errorf("Expected trailing slash removed, got %q", cfg.APIURL)
	}
}

func TestGetBackoffConfig(t *testing.T) {
	cfg := validConfig()
	cfg.BackoffInitial = 2 * time.Second
	cfg.BackoffMax = 30 * time.Second

	bc := cfg.GetBackoffConfig()
	if bc.InitialInterval != 2*time.Second {
		t.Errorf("InitialInterval: got %v", bc.InitialInterval)
	}
	if bc.MaxInterval != 30*time.Second {
		t.Errorf("MaxInterval: got %v", bc.MaxInterval)
	}

	// Zero values fall back to defaults
	defaults := DefaultBackoffConfig()
	bc = validConfig().GetBackoffConfig()
	if bc.InitialInterval != defaults.InitialInterval || bc.MaxInterval != defaults.MaxInterval {
		t.Errorf("Expected defaults, got %+v", bc)
	}
}

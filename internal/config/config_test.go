package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "postgres", TxRetries: 3},
		Cache:    CacheConfig{Type: "redis"},
		Auth:     AuthConfig{Enabled: true, JWTSecret: "secret", TokenTTL: 60},
		Makeup:   MakeupConfig{CapacityExemptTypes: []string{"pw"}},
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Expected a valid config, got %v", err)
	}

	cfg := validConfig()
	cfg.Database.Driver = "mysql"
	cfg.Cache.Type = "memcached"
	cfg.Auth.JWTSecret = ""
	cfg.Makeup.CapacityExemptTypes = []string{"pw", "lab"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation errors")
	}
	for _, want := range []string{"database.driver", "cache.type", "auth.jwt_secret", `"lab"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected error to mention %s, got %v", want, err)
		}
	}
}

func TestValidateIgnoresSecretWhenAuthDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.Auth = AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected no error with auth disabled, got %v", err)
	}
}

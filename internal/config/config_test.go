package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "secret")

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddress != "0.0.0.0:8080" {
		t.Fatalf("http address = %q", cfg.HTTPAddress)
	}
	if cfg.DatabasePath != "aulaboard.db" {
		t.Fatalf("database path = %q", cfg.DatabasePath)
	}
	if cfg.TokenTTL != 720*time.Minute {
		t.Fatalf("token ttl = %s", cfg.TokenTTL)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
	if cfg.VAPIDSubscriber == "" {
		t.Fatal("subscriber default missing")
	}
}

func TestLoadRequiresSigningSecret(t *testing.T) {
	configViper := NewViper()
	if _, err := Load(configViper); err == nil {
		t.Fatal("expected error without signing secret")
	}
}

func TestLoadRejectsNonPositiveTokenTTL(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "secret")
	configViper.Set("token.ttl_minutes", 0)
	if _, err := Load(configViper); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}

func TestLoadRequiresVAPIDKeysTogether(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "secret")
	configViper.Set("vapid.public_key", "only-half")
	if _, err := Load(configViper); err == nil {
		t.Fatal("expected error when only one vapid key is set")
	}

	configViper.Set("vapid.private_key", "other-half")
	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("load with both keys: %v", err)
	}
	if cfg.VAPIDPublicKey != "only-half" || cfg.VAPIDPrivateKey != "other-half" {
		t.Fatalf("vapid keys = %q, %q", cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	}
}

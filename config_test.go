package main

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	cfg := &Config{port: 8080}
	if err := cfg.validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cfg = &Config{port: 0}
	if err := cfg.validate(); err == nil {
		t.Error("invalid port accepted")
	}

	cfg = &Config{port: 8080, tlsCert: "cert.pem"}
	if err := cfg.validate(); err == nil {
		t.Error("tls cert without key accepted")
	}

	cfg = &Config{port: 8080, turnTimer: -time.Second}
	if err := cfg.validate(); err == nil {
		t.Error("negative turn timer accepted")
	}
}

func TestConfigScheme(t *testing.T) {
	cfg := &Config{}
	if cfg.scheme() != "http" {
		t.Errorf("expected http, got %s", cfg.scheme())
	}

	cfg = &Config{tlsCert: "cert.pem", tlsKey: "key.pem"}
	if cfg.scheme() != "https" {
		t.Errorf("expected https, got %s", cfg.scheme())
	}
}

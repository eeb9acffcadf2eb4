package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.ClaimWindow != 14*24*time.Hour {
		t.Errorf("Expected 14 day claim window, got %s", cfg.Engine.ClaimWindow)
	}
	if cfg.Engine.SweepSchedule != "@hourly" {
		t.Errorf("Expected @hourly sweep, got %q", cfg.Engine.SweepSchedule)
	}
	if cfg.Lock.Driver != "mongo" || cfg.SMS.Gateway != "mock" {
		t.Errorf("Unexpected drivers: lock=%q sms=%q", cfg.Lock.Driver, cfg.SMS.Gateway)
	}
	if cfg.Server.Port != "4000" {
		t.Errorf("Expected port 4000, got %q", cfg.Server.Port)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ENGINE_CLAIMWINDOW", "72h")
	t.Setenv("LOCK_DRIVER", "redis")
	t.Setenv("REDIS_ADDR", "cache:6380")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.ClaimWindow != 72*time.Hour {
		t.Errorf("Expected 72h claim window, got %s", cfg.Engine.ClaimWindow)
	}
	if cfg.Lock.Driver != "redis" || cfg.Redis.Addr != "cache:6380" {
		t.Errorf("Expected redis lock at cache:6380, got %q at %q", cfg.Lock.Driver, cfg.Redis.Addr)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":  {"JWT_SECRET": ""},
		"bad lock":        {"JWT_SECRET": "s", "LOCK_DRIVER": "etcd"},
		"http sms no url": {"JWT_SECRET": "s", "SMS_GATEWAY": "http"},
		"bad timezone":    {"JWT_SECRET": "s", "ENGINE_TIMEZONE": "Mars/Olympus"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("Expected validation error")
			}
		})
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("MEETING_PROVIDER", "")
	t.Setenv("MEETING_CLIENT_ID", "")
	t.Setenv("MEETING_CLIENT_SECRET", "")
	t.Setenv("TOKEN_SAFETY_MARGIN", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.MeetingProvider != MeetingProviderZoom {
		t.Fatalf("expected zoom provider by default, got %s", cfg.MeetingProvider)
	}
	if cfg.TokenSafetyMargin != 5*time.Minute {
		t.Fatalf("expected 5m safety margin, got %s", cfg.TokenSafetyMargin)
	}
	if cfg.MeetingDefaultDurationMins != 30 {
		t.Fatalf("expected 30 minute meetings, got %d", cfg.MeetingDefaultDurationMins)
	}
	if !cfg.UseSimulatedMeetings() {
		t.Fatalf("expected simulated meetings without credentials")
	}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %s", cfg.Location())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("APPOINTMENT_TIMEZONE", "America/New_York")
	t.Setenv("MEETING_PROVIDER", " Zoom ")
	t.Setenv("MEETING_CLIENT_ID", "client")
	t.Setenv("MEETING_CLIENT_SECRET", "secret")
	t.Setenv("MEETING_HTTP_TIMEOUT", "3s")
	t.Setenv("MEETING_RATE_LIMIT_RPS", "2.5")
	t.Setenv("SIMULATED_TOKEN_TTL", "90s")
	t.Setenv("REDIS_TLS", "true")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.MeetingProvider != MeetingProviderZoom {
		t.Fatalf("expected normalized provider, got %q", cfg.MeetingProvider)
	}
	if cfg.UseSimulatedMeetings() {
		t.Fatalf("expected real meetings with credentials")
	}
	if cfg.MeetingHTTPTimeout != 3*time.Second {
		t.Fatalf("expected timeout override, got %s", cfg.MeetingHTTPTimeout)
	}
	if cfg.MeetingRateLimitRPS != 2.5 {
		t.Fatalf("expected rps override, got %v", cfg.MeetingRateLimitRPS)
	}
	if cfg.SimulatedTokenTTL != 90*time.Second {
		t.Fatalf("expected simulated ttl override, got %s", cfg.SimulatedTokenTTL)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
	if cfg.Location().String() != "America/New_York" {
		t.Fatalf("expected New York location, got %s", cfg.Location())
	}
}

func TestSimulatedProviderMode(t *testing.T) {
	t.Setenv("MEETING_PROVIDER", "simulated")
	t.Setenv("MEETING_CLIENT_ID", "client")
	t.Setenv("MEETING_CLIENT_SECRET", "secret")
	cfg := Load()
	if !cfg.UseSimulatedMeetings() {
		t.Fatalf("expected simulated mode to win over credentials")
	}
}

func TestLocationFallsBackOnUnknownZone(t *testing.T) {
	cfg := &Config{AppointmentTimezone: "Mars/Olympus"}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC fallback")
	}
}

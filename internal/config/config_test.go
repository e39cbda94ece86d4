package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"APP_LISTEN_ADDR", "APP_RETENTION_DAYS", "APP_EVENTS_PRIMARY_URL",
		"APP_EVENTS_FALLBACK_URL", "APP_KNOWN_FILES", "APP_ALERT_SMTP_HOST", "APP_ALERT_TO", "APP_ENV"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.RetentionDays != 180 {
		t.Errorf("RetentionDays = %d, want 180", cfg.RetentionDays)
	}
	if cfg.Sources.CacheTTL != 5*time.Minute || cfg.Sources.FetchTimeout != 10*time.Second {
		t.Errorf("timings = %v/%v, want 5m/10s", cfg.Sources.CacheTTL, cfg.Sources.FetchTimeout)
	}
	if len(cfg.Report.KnownFiles) != len(DefaultKnownFiles) {
		t.Errorf("len(KnownFiles) = %d, want %d", len(cfg.Report.KnownFiles), len(DefaultKnownFiles))
	}
	if cfg.Alert.Enabled() {
		t.Error("Alert.Enabled() = true without SMTP host")
	}
	if cfg.Development() {
		t.Error("Development() = true, want false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_RETENTION_DAYS", "7")
	t.Setenv("APP_EVENTS_PRIMARY_URL", "https://example.org/analytics.json")
	t.Setenv("APP_EVENTS_FALLBACK_URL", "")
	t.Setenv("APP_KNOWN_FILES", " cv.pdf , ,photo.jpg")
	t.Setenv("APP_CITY_COUNTRY", "Geneva=CH, bad, Basel = CH")
	t.Setenv("APP_ALERT_SMTP_HOST", "smtp.example.org")
	t.Setenv("APP_ALERT_SMTP_USER", "bot@example.org")
	t.Setenv("APP_ALERT_TO", "me@example.org")
	t.Setenv("APP_ALERT_COOLDOWN", "5s")
	t.Setenv("APP_ALERT_WINDOW_HOURS", "100")
	t.Setenv("APP_FETCH_TIMEOUT", "soon")

	cfg := Load()

	if !cfg.Development() {
		t.Error("Development() = false, want true")
	}
	if cfg.RetentionDays != 7 {
		t.Errorf("RetentionDays = %d, want 7", cfg.RetentionDays)
	}
	if want := "http://example.org/analytics.json"; cfg.Sources.FallbackURL != want {
		t.Errorf("FallbackURL = %q, want %q", cfg.Sources.FallbackURL, want)
	}
	if got := cfg.Report.KnownFiles; len(got) != 2 || got[0] != "cv.pdf" || got[1] != "photo.jpg" {
		t.Errorf("KnownFiles = %v", got)
	}
	if got := cfg.Report.CityCountry; len(got) != 2 || got["Geneva"] != "CH" || got["Basel"] != "CH" {
		t.Errorf("CityCountry = %v", got)
	}
	if !cfg.Alert.Enabled() || cfg.Alert.From != "bot@example.org" {
		t.Errorf("alert = %+v, want enabled from bot@example.org", cfg.Alert)
	}
	if cfg.Alert.Cooldown != time.Minute {
		t.Errorf("Cooldown = %v, want 1m", cfg.Alert.Cooldown)
	}
	if cfg.Alert.Window != 48*time.Hour {
		t.Errorf("Window = %v, want 48h", cfg.Alert.Window)
	}
	if cfg.Sources.FetchTimeout != 10*time.Second {
		t.Errorf("FetchTimeout = %v, want default", cfg.Sources.FetchTimeout)
	}
}

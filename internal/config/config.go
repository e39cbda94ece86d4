package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the core runtime configuration for the service.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate. See .env.example.
type Config struct {
	Env string

	// DatabaseURL is optional. Without it the service still serves reports
	// from the remote feeds and cache file, but cannot accept tracked events.
	DatabaseURL string

	// RetentionDays is how long stored events are kept.
	RetentionDays int

	ListenAddr string

	// AllowedOrigins is the CORS allow-list for the browser tracker. Empty
	// means any origin.
	AllowedOrigins []string

	Sources SourceConfig
	Report  ReportConfig
	Alert   AlertConfig
}

// SourceConfig describes where the raw event list is fetched from, in
// fallback order.
type SourceConfig struct {
	PrimaryURL  string
	FallbackURL string
	MirrorURL   string
	CacheFile   string

	FetchTimeout time.Duration
	CacheTTL     time.Duration

	// RedisURL enables the shared event-list cache; empty keeps it in memory.
	RedisURL string
}

// ReportConfig tunes the annotations applied to reconciled sessions.
type ReportConfig struct {
	OwnerIP     string
	OwnerLabel  string
	CityCountry map[string]string
	KnownFiles  []string
}

// AlertConfig configures new-visitor email alerts.
type AlertConfig struct {
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	From     string
	To       []string

	Interval time.Duration
	Cooldown time.Duration
	Window   time.Duration
}

// Enabled reports whether enough is configured to send mail.
func (a AlertConfig) Enabled() bool {
	return a.SMTPHost != "" && len(a.To) > 0
}

// DefaultKnownFiles is the catalog of files published on the site.
var DefaultKnownFiles = []string{
	"BD_criterium.jpg", "books_stack_cp.jpg", "crazy_love_cp_clean.jpg",
	"dense_cp.JPG", "finger_noze_2.jpg", "flying_to_the_moon.png",
	"funny_games.png", "joke_maths_cp.jpg", "lenny_cp.jpg",
	"massue_tot_cp.jpg", "mystic.jpg", "navier_stokes_green_tv_cp.jpg",
	"paperPhys_cp.jpg", "pastel.png", "pop_art.png", "run_run.JPG",
	"school_cp.jpg", "sparkling.jpg", "sport_training.jpg", "wake_up.jpg",
	"abstract_lusso.pdf", "canum.pdf", "controle1.pdf", "controle2.pdf",
	"controle3.pdf", "devoir.pdf", "documentation_pres.pdf", "efrei_2025.pdf",
	"gdt.pdf", "indus_pres.pdf", "poster_ihp.pdf", "poster_roscoff.pdf",
	"presentation_christelle.pdf", "presentation_ljll.pdf",
	"S4SM_algebre_TD1_2012.pdf", "S4SM-algebre-TD2-2012.pdf",
	"S4SM-algebre-TD3.pdf", "S4SM-algebre-TD4-2012.pdf", "S4SM-exam-2012.pdf",
	"td1_algebre.pdf", "td1.pdf", "td2_algebre.pdf", "td2.pdf",
	"td3_algebre_copie.pdf", "td3_algebre.pdf", "td3.pdf", "td4_algebre.pdf",
	"td4.pdf", "td5_algebre.pdf", "td6_algebre.pdf", "td7_algebre.pdf",
	"thesis.pdf",
}

// Load reads configuration from environment variables and applies
// defaults. Invalid numeric or duration values fall back to the default.
func Load() *Config {
	cfg := &Config{
		Env:            getenv("APP_ENV", "production"),
		DatabaseURL:    os.Getenv("APP_DATABASE_URL"),
		ListenAddr:     getenv("APP_LISTEN_ADDR", ":8080"),
		RetentionDays:  getint("APP_RETENTION_DAYS", 180),
		AllowedOrigins: getlist("APP_ALLOWED_ORIGINS", nil),
		Sources: SourceConfig{
			PrimaryURL:   os.Getenv("APP_EVENTS_PRIMARY_URL"),
			FallbackURL:  os.Getenv("APP_EVENTS_FALLBACK_URL"),
			MirrorURL:    os.Getenv("APP_EVENTS_MIRROR_URL"),
			CacheFile:    getenv("APP_EVENTS_CACHE_FILE", "analytics_cache.json"),
			FetchTimeout: getduration("APP_FETCH_TIMEOUT", 10*time.Second),
			CacheTTL:     getduration("APP_CACHE_TTL", 5*time.Minute),
			RedisURL:     os.Getenv("APP_REDIS_URL"),
		},
		Report: ReportConfig{
			OwnerIP:     os.Getenv("APP_OWNER_IP"),
			OwnerLabel:  getenv("APP_OWNER_LABEL", "Owner"),
			CityCountry: getpairs("APP_CITY_COUNTRY"),
			KnownFiles:  getlist("APP_KNOWN_FILES", DefaultKnownFiles),
		},
		Alert: AlertConfig{
			SMTPHost: os.Getenv("APP_ALERT_SMTP_HOST"),
			SMTPPort: getint("APP_ALERT_SMTP_PORT", 587),
			SMTPUser: os.Getenv("APP_ALERT_SMTP_USER"),
			SMTPPass: os.Getenv("APP_ALERT_SMTP_PASS"),
			From:     os.Getenv("APP_ALERT_FROM"),
			To:       getlist("APP_ALERT_TO", nil),
			Interval: getduration("APP_ALERT_INTERVAL", 5*time.Minute),
			Cooldown: clamp(getduration("APP_ALERT_COOLDOWN", 10*time.Minute), time.Minute, time.Hour),
			Window:   clamp(time.Duration(getint("APP_ALERT_WINDOW_HOURS", 24))*time.Hour, time.Hour, 48*time.Hour),
		},
	}

	if cfg.Sources.FallbackURL == "" && strings.HasPrefix(cfg.Sources.PrimaryURL, "https://") {
		cfg.Sources.FallbackURL = "http://" + strings.TrimPrefix(cfg.Sources.PrimaryURL, "https://")
	}
	if cfg.Alert.From == "" {
		cfg.Alert.From = cfg.Alert.SMTPUser
	}

	return cfg
}

// Development reports whether APP_ENV selects development mode.
func (c *Config) Development() bool {
	return c.Env == "development"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getduration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func getlist(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getpairs parses "city=country,city=country".
func getpairs(key string) map[string]string {
	out := make(map[string]string)
	for _, pair := range getlist(key, nil) {
		k, v, ok := strings.Cut(pair, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if ok && k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

func clamp(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

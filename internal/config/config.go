package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ListenAddr string

	LichessBaseURL   string
	LichessUserAgent string
	LichessTimeout   time.Duration
	LichessRetries   int
	LichessBackoff   time.Duration
	LichessRatePerS  float64

	RedisURL    string
	DatabaseURL string

	CacheTTLTop        time.Duration
	CacheTTLList       time.Duration
	CacheTTLBroadcast  time.Duration
	CacheTTLRound      time.Duration
	ListSize           int
	GamesPerPage       int
	LivePollInterval   time.Duration
	WSAllowedOrigins   []string
	MessagesDir        string
	ShutdownGrace      time.Duration
	ArchiveFinished    bool
	ArchiveRecentLimit int
}

func defaults() *AppConfig {
	return &AppConfig{
		ListenAddr:         ":8080",
		LichessBaseURL:     "https://lichess.org/api",
		LichessUserAgent:   "ChessWatch/1.0 (+https://github.com/park285/chesswatch)",
		LichessTimeout:     10 * time.Second,
		LichessRetries:     3,
		LichessBackoff:     time.Second,
		LichessRatePerS:    4,
		CacheTTLTop:        30 * time.Second,
		CacheTTLList:       5 * time.Minute,
		CacheTTLBroadcast:  30 * time.Second,
		CacheTTLRound:      10 * time.Second,
		ListSize:           20,
		GamesPerPage:       10,
		LivePollInterval:   15 * time.Second,
		ShutdownGrace:      10 * time.Second,
		ArchiveFinished:    true,
		ArchiveRecentLimit: 50,
	}
}

// Load reads the environment. Unparseable numbers keep their defaults;
// unusable URLs are errors.
func Load() (*AppConfig, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*AppConfig, error) {
	cfg := defaults()
	get := func(k string) string { return strings.TrimSpace(getenv(k)) }

	if v := get("CHESSWATCH_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := get("LICHESS_BASE_URL"); v != "" {
		cfg.LichessBaseURL = strings.TrimRight(v, "/")
	}
	if v := get("LICHESS_USER_AGENT"); v != "" {
		cfg.LichessUserAgent = v
	}
	if n, ok := positiveInt(get("LICHESS_TIMEOUT_SEC")); ok {
		cfg.LichessTimeout = time.Duration(n) * time.Second
	}
	if v := get("LICHESS_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.LichessRetries = n
		}
	}
	if n, ok := positiveInt(get("LICHESS_RETRY_BACKOFF_MS")); ok {
		cfg.LichessBackoff = time.Duration(n) * time.Millisecond
	}
	if v := get("LICHESS_RATE_PER_SEC"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.LichessRatePerS = f
		}
	}

	cfg.RedisURL = get("REDIS_URL")
	cfg.DatabaseURL = get("DATABASE_URL")

	if n, ok := positiveInt(get("CACHE_TTL_TOP_SEC")); ok {
		cfg.CacheTTLTop = time.Duration(n) * time.Second
	}
	if n, ok := positiveInt(get("CACHE_TTL_LIST_SEC")); ok {
		cfg.CacheTTLList = time.Duration(n) * time.Second
	}
	if n, ok := positiveInt(get("CACHE_TTL_BROADCAST_SEC")); ok {
		cfg.CacheTTLBroadcast = time.Duration(n) * time.Second
	}
	if n, ok := positiveInt(get("CACHE_TTL_ROUND_SEC")); ok {
		cfg.CacheTTLRound = time.Duration(n) * time.Second
	}
	if n, ok := positiveInt(get("BROADCAST_LIST_SIZE")); ok {
		cfg.ListSize = n
	}
	if n, ok := positiveInt(get("GAMES_PER_PAGE")); ok {
		cfg.GamesPerPage = n
	}
	if n, ok := positiveInt(get("LIVE_POLL_INTERVAL_SEC")); ok {
		cfg.LivePollInterval = time.Duration(n) * time.Second
	}
	if n, ok := positiveInt(get("SHUTDOWN_GRACE_SEC")); ok {
		cfg.ShutdownGrace = time.Duration(n) * time.Second
	}
	if v := get("ARCHIVE_FINISHED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ArchiveFinished = b
		}
	}
	if n, ok := positiveInt(get("ARCHIVE_RECENT_LIMIT")); ok {
		cfg.ArchiveRecentLimit = n
	}
	cfg.WSAllowedOrigins = splitList(get("WS_ALLOWED_ORIGINS"))
	cfg.MessagesDir = get("MESSAGES_DIR")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	u, err := url.Parse(c.LichessBaseURL)
	if err != nil {
		return fmt.Errorf("LICHESS_BASE_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("LICHESS_BASE_URL: unsupported scheme %q", u.Scheme)
	}
	if c.RedisURL != "" {
		ru, err := url.Parse(c.RedisURL)
		if err != nil {
			return fmt.Errorf("REDIS_URL: %w", err)
		}
		if ru.Scheme != "redis" && ru.Scheme != "rediss" {
			return fmt.Errorf("REDIS_URL: unsupported scheme %q", ru.Scheme)
		}
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("CHESSWATCH_ADDR is empty")
	}
	return nil
}

func positiveInt(v string) (int, bool) {
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

package config

import (
	"math/rand"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the alert crawler.
type Config struct {
	DefinitionsPath string
	StatePath       string
	ReportPath      string
	DefaultPages    int
	UserAgent       string
	Headless        bool

	// Timing
	HTTPTimeout   time.Duration
	PoliteMin     time.Duration
	PoliteMax     time.Duration
	ClickTimeout  time.Duration
	QuietWait     time.Duration
	GlobalTimeout time.Duration

	// Pagination / scroll bounds
	PageSizes     []int // page-size ladder tried per cursor step
	SortMode      int   // canonical "newest first" sort parameter
	StableCycles  int   // consecutive no-progress cycles before terminal
	ScrollRetries int   // bottom-scroll passes per cycle
	SweepPasses   int   // final-sweep passes after the stability threshold

	// Email
	SendEmail    bool
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	FromEmail    string

	// PostgreSQL listing archive (optional)
	DBEnabled  bool
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
}

// Default returns a Config populated with sensible defaults,
// overridable through environment variables.
func Default() Config {
	return Config{
		DefinitionsPath: getEnv("ALERTS_FILE", "alerts.jsonl"),
		StatePath:       getEnv("STATE_PATH", "data/state.json"),
		ReportPath:      getEnv("REPORT_PATH", "data/last_run.json"),
		DefaultPages:    getEnvInt("DEFAULT_PAGES", 2),
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
		Headless: getEnv("HEADLESS", "1") != "0",

		HTTPTimeout:   25 * time.Second,
		PoliteMin:     600 * time.Millisecond,
		PoliteMax:     1500 * time.Millisecond,
		ClickTimeout:  8 * time.Second,
		QuietWait:     600 * time.Millisecond,
		GlobalTimeout: 45 * time.Minute,

		PageSizes:     []int{12, 48},
		SortMode:      5, // newest first
		StableCycles:  3,
		ScrollRetries: 3,
		SweepPasses:   2,

		SendEmail:    getEnv("SEND_EMAIL", "0") == "1",
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASS", ""),
		FromEmail:    getEnv("FROM_EMAIL", ""),

		DBEnabled:  getEnv("DB_ENABLE", "0") == "1",
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "alertme"),
		DBPassword: getEnv("DB_PASSWORD", "alertme"),
		DBName:     getEnv("DB_NAME", "alertme"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

// RandomDelay returns a jittered politeness delay in [PoliteMin, PoliteMax].
func (c Config) RandomDelay() time.Duration {
	if c.PoliteMax <= c.PoliteMin {
		return c.PoliteMin
	}
	span := c.PoliteMax - c.PoliteMin
	return c.PoliteMin + time.Duration(rand.Int63n(int64(span)))
}

func getEnv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

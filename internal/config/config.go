package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr    string
	SiteURL string

	// Content
	ContentBackend      string
	ContentRepoDir      string
	ContentFreshFor     time.Duration
	SanityProjectID     string
	SanityDataset       string
	SanityAPIVersion    string
	SanityUseCDN        bool
	SanityToken         string
	SanityTimeout       time.Duration
	RedisURL            string
	RedisContentTTL     time.Duration
	MeiliURL            string
	MeiliMasterKey      string
	ChromeExecPath      string
	PandocPath          string
	ExportRenderTimeout time.Duration

	// Contact intake
	DatabaseURL        string
	MigrationsDir      string
	Web3FormsAccessKey string
	Web3FormsURL       string
	ContactToEmail     string
	ContactFromName    string
	ContactRateRPS     float64
	ContactRateBurst   int
	// Comma-separated CIDRs or addresses allowed to set X-Forwarded-For.
	TrustedProxies string
	// SMTP - empty by default, email relay disabled if not configured
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// Admin
	AdminEmail        string
	AdminPasswordHash string
	AdminTokenSecret  string
	AdminTokenTTL     time.Duration

	CORSOrigin     string
	LogLevel       string
	LogDevelopment bool
}

// Load reads .env.local and .env when present, then the process environment.
// Variables already set in the environment win over the files.
func Load() Config {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	return Config{
		Addr:    getenv("API_ADDR", ":8787"),
		SiteURL: strings.TrimRight(getenv("SITE_URL", "https://blkboxlogic.com"), "/"),

		ContentBackend:      getenv("CONTENT_BACKEND", "sanity"),
		ContentRepoDir:      getenv("CONTENT_REPO_DIR", "./data/content"),
		ContentFreshFor:     time.Duration(getenvInt("CONTENT_FRESH_SECONDS", 300)) * time.Second,
		SanityProjectID:     getenv("SANITY_PROJECT_ID", ""),
		SanityDataset:       getenv("SANITY_DATASET", "production"),
		SanityAPIVersion:    getenv("SANITY_API_VERSION", "2024-01-01"),
		SanityUseCDN:        getenvBool("SANITY_USE_CDN", true),
		SanityToken:         getenv("SANITY_TOKEN", ""),
		SanityTimeout:       time.Duration(getenvInt("SANITY_TIMEOUT_SECONDS", 15)) * time.Second,
		RedisURL:            getenv("REDIS_URL", ""),
		RedisContentTTL:     time.Duration(getenvInt("REDIS_CONTENT_TTL_SECONDS", 600)) * time.Second,
		MeiliURL:            getenv("MEILI_URL", ""),
		MeiliMasterKey:      getenv("MEILI_MASTER_KEY", ""),
		ChromeExecPath:      getenv("CHROME_PATH", ""),
		PandocPath:          getenv("PANDOC_PATH", "pandoc"),
		ExportRenderTimeout: time.Duration(getenvInt("EXPORT_TIMEOUT_SECONDS", 30)) * time.Second,

		DatabaseURL:        getenv("DATABASE_URL", ""),
		MigrationsDir:      getenv("MIGRATIONS_DIR", "./db/migrations"),
		Web3FormsAccessKey: getenv("WEB3FORMS_ACCESS_KEY", ""),
		Web3FormsURL:       getenv("WEB3FORMS_URL", "https://api.web3forms.com/submit"),
		ContactToEmail:     getenv("CONTACT_TO_EMAIL", ""),
		ContactFromName:    getenv("CONTACT_FROM_NAME", "Blackbox Logic Website"),
		ContactRateRPS:     getenvFloat("CONTACT_RATE_LIMIT_RPS", 0.2),
		ContactRateBurst:   getenvInt("CONTACT_RATE_LIMIT_BURST", 5),
		TrustedProxies:     getenv("TRUSTED_PROXIES", ""),
		SMTPHost:           getenv("SMTP_HOST", ""),
		SMTPPort:           getenv("SMTP_PORT", "587"),
		SMTPUsername:       getenv("SMTP_USERNAME", ""),
		SMTPPassword:       getenv("SMTP_PASSWORD", ""),
		SMTPFrom:           getenv("SMTP_FROM", ""),
		SMTPFromName:       getenv("SMTP_FROM_NAME", "Blackbox Logic"),

		AdminEmail:        getenv("ADMIN_EMAIL", ""),
		AdminPasswordHash: getenv("ADMIN_PASSWORD_HASH", ""),
		AdminTokenSecret:  getenv("ADMIN_TOKEN_SECRET", "blackbox-dev-secret"),
		AdminTokenTTL:     time.Duration(getenvInt("ADMIN_TOKEN_TTL_SECONDS", 43200)) * time.Second,

		CORSOrigin:     getenv("CORS_ORIGIN", "*"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogDevelopment: getenvBool("LOG_DEVELOPMENT", false),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Storage struct {
	Driver string // r2 | gcs | memory

	R2Endpoint      string
	R2AccessKey     string
	R2SecretKey     string
	R2Bucket        string
	R2PublicBaseURL string

	GCSBucket          string
	GCSCredentialsFile string
}

type Stripe struct {
	SecretKey     string
	WebhookSecret string
	// PriceIDs is keyed by plan, then "monthly" or "yearly".
	PriceIDs map[string]map[string]string
}

type Config struct {
	Port        string
	Env         string
	AppURL      string
	CORSOrigins []string
	JWTSecret   string
	DatabaseURL string

	DefaultCurrency string
	DefaultLocale   string

	OCRLanguages      []string
	OCRTimeout        time.Duration
	OCRMaxUploadBytes int64
	GeminiAPIKey      string
	GeminiModel       string

	Storage Storage
	Stripe  Stripe
}

var plans = []string{"STARTER", "PROFESSIONAL", "ENTERPRISE"}

// Load reads .env outside production, then the process environment.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8000"),
		Env:         getEnv("APP_ENV", "development"),
		AppURL:      getEnv("APP_URL", "http://localhost:3000"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "EUR"),
		DefaultLocale:   getEnv("DEFAULT_LOCALE", "de-DE"),

		OCRLanguages: splitList(getEnv("OCR_LANGUAGES", "deu,eng")),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		Storage: Storage{
			Driver:             strings.ToLower(getEnv("STORAGE_DRIVER", "memory")),
			R2Endpoint:         os.Getenv("R2_ENDPOINT"),
			R2AccessKey:        os.Getenv("R2_ACCESS_KEY"),
			R2SecretKey:        os.Getenv("R2_SECRET_KEY"),
			R2Bucket:           os.Getenv("R2_BUCKET_NAME"),
			R2PublicBaseURL:    os.Getenv("R2_PUBLIC_BASE_URL"),
			GCSBucket:          os.Getenv("GCS_BUCKET"),
			GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
		},

		Stripe: Stripe{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			PriceIDs:      make(map[string]map[string]string),
		},
	}

	var err error
	if cfg.JWTSecret, err = requireEnv("JWT_SECRET"); err != nil {
		return nil, err
	}
	if cfg.OCRTimeout, err = getDuration("OCR_TIMEOUT", 90*time.Second); err != nil {
		return nil, err
	}
	mb, err := getInt("OCR_MAX_UPLOAD_MB", 10)
	if err != nil {
		return nil, err
	}
	cfg.OCRMaxUploadBytes = int64(mb) << 20

	for _, p := range plans {
		cfg.Stripe.PriceIDs[p] = map[string]string{
			"monthly": os.Getenv("STRIPE_" + p + "_PRICE_ID"),
			"yearly":  os.Getenv("STRIPE_" + p + "_YEARLY_PRICE_ID"),
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "r2":
		if c.Storage.R2Endpoint == "" || c.Storage.R2Bucket == "" ||
			c.Storage.R2AccessKey == "" || c.Storage.R2SecretKey == "" {
			return fmt.Errorf("STORAGE_DRIVER=r2 needs R2_ENDPOINT, R2_BUCKET_NAME, R2_ACCESS_KEY and R2_SECRET_KEY")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("STORAGE_DRIVER=gcs needs GCS_BUCKET")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.IsProduction() && c.DatabaseURL == "" {
		return fmt.Errorf("missing required env DATABASE_URL")
	}
	return nil
}

func requireEnv(k string) (string, error) {
	v := os.Getenv(k)
	if v == "" {
		return "", fmt.Errorf("missing required env %s", k)
	}
	return v, nil
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", k, v)
	}
	return n, nil
}

// getDuration accepts Go durations ("90s") or plain seconds ("90").
func getDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", k, v)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the pipeline and report server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for the report server
	Addr string
	// Port is the binding port for the report server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where openhours stores its results
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version
	Version string

	// LLM configuration
	LLMBaseURL    string        // OPENHOURS_LLM_BASE_URL (default: https://api.openai.com/v1)
	LLMAPIKey     string        // OPENHOURS_LLM_API_KEY
	LLMModel      string        // OPENHOURS_LLM_MODEL (default: gpt-4o-mini)
	LLMMaxRetries int           // OPENHOURS_LLM_MAX_RETRIES (default: 3)
	LLMTimeout    time.Duration // OPENHOURS_LLM_TIMEOUT (default: 60s)

	// Fetcher configuration
	FetchUserAgent string  // OPENHOURS_FETCH_USER_AGENT
	FetchRPS       float64 // OPENHOURS_FETCH_RPS per-host request budget (default: 1)

	// Reference calendar endpoints
	HolidaysBaseURL  string // OPENHOURS_HOLIDAYS_BASE_URL (default: https://calendrier.api.gouv.fr)
	VacationsBaseURL string // OPENHOURS_VACATIONS_BASE_URL (default: https://data.education.gouv.fr)

	// Pipeline configuration
	Workers int    // OPENHOURS_WORKERS (default: 4)
	Filter  string // OPENHOURS_FILTER optional CEL record filter

	// Mail notification configuration
	MailEnabled bool   // OPENHOURS_MAIL_ENABLED
	MailHost    string // OPENHOURS_MAIL_HOST
	MailPort    int    // OPENHOURS_MAIL_PORT (default: 587)
	MailUser    string // OPENHOURS_MAIL_USER
	MailPass    string // OPENHOURS_MAIL_PASS
	MailFrom    string // OPENHOURS_MAIL_FROM
	MailTo      string // OPENHOURS_MAIL_TO comma-separated recipients
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsLLMEnabled returns true if an LLM endpoint is usable.
func (p *Profile) IsLLMEnabled() bool {
	return p.LLMAPIKey != ""
}

// MailRecipients splits the comma-separated recipient list.
func (p *Profile) MailRecipients() []string {
	var out []string
	for _, to := range strings.Split(p.MailTo, ",") {
		if to = strings.TrimSpace(to); to != "" {
			out = append(out, to)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// FromEnv loads configuration from OPENHOURS_* environment variables.
func (p *Profile) FromEnv() {
	p.LLMBaseURL = getEnvOrDefault("OPENHOURS_LLM_BASE_URL", "https://api.openai.com/v1")
	p.LLMAPIKey = os.Getenv("OPENHOURS_LLM_API_KEY")
	p.LLMModel = getEnvOrDefault("OPENHOURS_LLM_MODEL", "gpt-4o-mini")
	p.LLMMaxRetries = getIntEnv("OPENHOURS_LLM_MAX_RETRIES", 3)
	if d, err := time.ParseDuration(getEnvOrDefault("OPENHOURS_LLM_TIMEOUT", "60s")); err == nil {
		p.LLMTimeout = d
	}

	p.FetchUserAgent = getEnvOrDefault("OPENHOURS_FETCH_USER_AGENT",
		"openhours/"+p.Version+" (opening hours verification)")
	p.FetchRPS = getFloatEnv("OPENHOURS_FETCH_RPS", 1)

	p.HolidaysBaseURL = getEnvOrDefault("OPENHOURS_HOLIDAYS_BASE_URL", "https://calendrier.api.gouv.fr")
	p.VacationsBaseURL = getEnvOrDefault("OPENHOURS_VACATIONS_BASE_URL", "https://data.education.gouv.fr")

	p.Workers = getIntEnv("OPENHOURS_WORKERS", 4)
	p.Filter = os.Getenv("OPENHOURS_FILTER")

	p.MailEnabled = os.Getenv("OPENHOURS_MAIL_ENABLED") == "true"
	p.MailHost = os.Getenv("OPENHOURS_MAIL_HOST")
	p.MailPort = getIntEnv("OPENHOURS_MAIL_PORT", 587)
	p.MailUser = os.Getenv("OPENHOURS_MAIL_USER")
	p.MailPass = os.Getenv("OPENHOURS_MAIL_PASS")
	p.MailFrom = os.Getenv("OPENHOURS_MAIL_FROM")
	p.MailTo = os.Getenv("OPENHOURS_MAIL_TO")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Workers < 1 {
		p.Workers = 1
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("openhours_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}

	if p.MailEnabled && (p.MailHost == "" || p.MailFrom == "" || len(p.MailRecipients()) == 0) {
		return errors.New("mail notification requires host, sender and at least one recipient")
	}
	return nil
}

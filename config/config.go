package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Fastmail endpoints, the most common JMAP + DAV deployment.
const (
	DefaultCalDAVURL  = "https://caldav.fastmail.com"
	DefaultCardDAVURL = "https://carddav.fastmail.com"
)

// Config holds the application configuration
type Config struct {
	JMAPSessionURL string
	JMAPToken      string
	DAVUsername    string
	DAVPassword    string
	CalDAVURL      string
	CardDAVURL     string
	AccountEmail   string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		JMAPSessionURL: os.Getenv("JMAP_SESSION_URL"),
		JMAPToken:      os.Getenv("JMAP_TOKEN"),
		DAVUsername:    os.Getenv("DAV_USERNAME"),
		DAVPassword:    os.Getenv("DAV_PASSWORD"),
		CalDAVURL:      os.Getenv("CALDAV_URL"),
		CardDAVURL:     os.Getenv("CARDDAV_URL"),
		AccountEmail:   os.Getenv("ACCOUNT_EMAIL"),
	}

	// Validate required fields
	if cfg.JMAPSessionURL == "" {
		return nil, fmt.Errorf("JMAP_SESSION_URL environment variable is required")
	}
	if cfg.JMAPToken == "" {
		return nil, fmt.Errorf("JMAP_TOKEN environment variable is required (use an API token with mail scope)")
	}
	if cfg.DAVUsername == "" {
		return nil, fmt.Errorf("DAV_USERNAME environment variable is required")
	}
	if cfg.DAVPassword == "" {
		return nil, fmt.Errorf("DAV_PASSWORD environment variable is required (use an app password with calendar and contacts scope)")
	}

	if cfg.CalDAVURL == "" {
		cfg.CalDAVURL = DefaultCalDAVURL
	}
	if cfg.CardDAVURL == "" {
		cfg.CardDAVURL = DefaultCardDAVURL
	}

	return cfg, nil
}

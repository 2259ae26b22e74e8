package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the collector
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// PullPush API configuration
	BaseURL      string
	PageSize     int
	RequestDelay time.Duration
	MaxRetries   int

	// Sampling configuration
	Subreddits           []string
	StartYear            int
	EndYear              int
	TargetUniqueAuthors  int
	MaxDiscoveryAttempts int

	// Per-author backfill configuration
	MinPostsPerAuthor int
	MaxPostsPerAuthor int
	MaxAuthorAttempts int

	// Output configuration
	OutputCSV string

	// Schedule configuration ("" means run once and exit)
	CollectionSchedule string

	// Azure Storage configuration (optional dataset archiving)
	StorageAccount   string
	StorageContainer string

	// Notification configuration (optional run reports)
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		BaseURL:      getEnv("PULLPUSH_BASE_URL", "https://api.pullpush.io/reddit/search/submission/"),
		PageSize:     getIntEnv("PAGE_SIZE", 100),
		RequestDelay: time.Duration(getIntEnv("REQUEST_DELAY_MS", 1000)) * time.Millisecond,
		MaxRetries:   getIntEnv("MAX_RETRIES", 5),

		Subreddits: getSliceEnv("SUBREDDITS", []string{
			"politics", "worldpolitics", "PoliticalDiscussion", "Conservative",
			"Liberal", "dsa", "socialism", "Anarchism",
			"collegerepublicans", "Ask_Politics",
		}),
		StartYear:            getIntEnv("START_YEAR", 2016),
		EndYear:              getIntEnv("END_YEAR", 2021),
		TargetUniqueAuthors:  getIntEnv("TARGET_UNIQUE_AUTHORS", 5000),
		MaxDiscoveryAttempts: getIntEnv("MAX_DISCOVERY_ATTEMPTS", 5000),

		MinPostsPerAuthor: getIntEnv("MIN_POSTS_PER_AUTHOR", 20),
		MaxPostsPerAuthor: getIntEnv("MAX_POSTS_PER_AUTHOR", 100),
		MaxAuthorAttempts: getIntEnv("MAX_AUTHOR_ATTEMPTS", 200),

		OutputCSV: getEnv("OUTPUT_CSV", "reddit_authors_posts.csv"),

		CollectionSchedule: getEnv("COLLECTION_SCHEDULE", ""),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "datasets"),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Subreddits) == 0 {
		return fmt.Errorf("SUBREDDITS must list at least one subreddit")
	}

	if c.StartYear > c.EndYear {
		return fmt.Errorf("START_YEAR (%d) must not be after END_YEAR (%d)", c.StartYear, c.EndYear)
	}

	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("PAGE_SIZE must be between 1 and 100 (PullPush caps pages at 100)")
	}

	if c.MinPostsPerAuthor < 1 || c.MinPostsPerAuthor > c.MaxPostsPerAuthor {
		return fmt.Errorf("MIN_POSTS_PER_AUTHOR must be between 1 and MAX_POSTS_PER_AUTHOR")
	}

	if c.TargetUniqueAuthors < 0 {
		return fmt.Errorf("TARGET_UNIQUE_AUTHORS must not be negative")
	}

	if c.OutputCSV == "" {
		return fmt.Errorf("OUTPUT_CSV must not be empty")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Years returns the inclusive sampling year range as a slice.
func (c *Config) Years() []int {
	years := make([]int, 0, c.EndYear-c.StartYear+1)
	for y := c.StartYear; y <= c.EndYear; y++ {
		years = append(years, y)
	}
	return years
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

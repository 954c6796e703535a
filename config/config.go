// Package config loads runtime configuration from the environment.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the service reads from its environment.
type Config struct {
	Addr        string
	Environment string
	Region      string

	ItemsTable     string
	LikesTable     string
	DownloadsTable string
	PurchasesTable string
	HandlesTable   string
	ProfilesTable  string

	MediaBucket string

	CognitoUserPoolID string

	// AdminSubjects are credential subjects allowed to delete any item.
	AdminSubjects []string
}

// Load reads configuration from the environment. A .env file, if present,
// is loaded first for local development.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:              envOr("ADDR", ":8080"),
		Environment:       envOr("ENVIRONMENT", "development"),
		Region:            envOr("REGION", "us-east-1"),
		ItemsTable:        envOr("ITEMS_TABLE", "memestall-items"),
		LikesTable:        envOr("LIKES_TABLE", "memestall-likes"),
		DownloadsTable:    envOr("DOWNLOADS_TABLE", "memestall-downloads"),
		PurchasesTable:    envOr("PURCHASES_TABLE", "memestall-purchases"),
		HandlesTable:      envOr("HANDLES_TABLE", "memestall-handles"),
		ProfilesTable:     envOr("PROFILES_TABLE", "memestall-profiles"),
		MediaBucket:       envOr("MEDIA_BUCKET", "memestall-media"),
		CognitoUserPoolID: os.Getenv("COGNITO_USER_POOL_ID"),
	}

	if subs := os.Getenv("ADMIN_SUBJECTS"); subs != "" {
		for _, s := range strings.Split(subs, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.AdminSubjects = append(cfg.AdminSubjects, s)
			}
		}
	}
	return cfg
}

// IsAdmin reports whether the subject is a configured admin.
func (c *Config) IsAdmin(subject string) bool {
	for _, s := range c.AdminSubjects {
		if s == subject {
			return true
		}
	}
	return false
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

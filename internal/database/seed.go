package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"smeinsights/internal/models"
)

// SeedOptions controls the first admin account created by Seed.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
}

// Seed creates the first admin user if none exists and writes any missing
// generation settings with their defaults. Existing settings are never
// overwritten, so Seed is safe to run on every start.
func Seed(db *sql.DB, opts SeedOptions) error {
	if opts.AdminEmail == "" {
		opts.AdminEmail = "admin@smeinsights.local"
	}
	if opts.AdminPassword == "" {
		opts.AdminPassword = "admin"
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte(opts.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("seed bcrypt: %w", err)
		}

		_, err = db.Exec(`
			INSERT INTO users (email, password_hash, display_name, role, totp_enabled)
			VALUES ($1, $2, $3, $4, $5)
		`, opts.AdminEmail, string(hash), "Admin", models.RoleAdmin, false)
		if err != nil {
			return fmt.Errorf("seed insert admin: %w", err)
		}
		slog.Info("database seeded with default admin user", "email", opts.AdminEmail)
	}

	now := time.Now()
	for key, value := range models.DefaultGenerationSettings() {
		_, err := db.Exec(`
			INSERT INTO site_settings (key, value, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (key) DO NOTHING`, key, value, now)
		if err != nil {
			return fmt.Errorf("seed setting %s: %w", key, err)
		}
	}

	return nil
}

// seed-admin creates a demo company with its owner login, or resets the
// owner's password when the login already exists.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
//
// SEED_EMAIL and SEED_PASSWORD override the defaults below.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mmdatafocus/invoice_backend/config"
	"github.com/mmdatafocus/invoice_backend/models"
	"github.com/mmdatafocus/invoice_backend/utils"
	"gorm.io/gorm"
)

const (
	defaultEmail    = "owner@demo.local"
	defaultPassword = "Demo12345"
	companyName     = "Demo Trading"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	email := envOr("SEED_EMAIL", defaultEmail)
	password := envOr("SEED_PASSWORD", defaultPassword)
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	var existing models.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		info, err := models.Signup(ctx, &models.NewSignup{
			FirstName:      "Demo",
			LastName:       "Owner",
			Email:          email,
			Password:       password,
			CompanyName:    companyName,
			CurrencySymbol: "Ks",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create company: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created company %d with owner %q\n", info.Company.CompanyID, email)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
		os.Exit(1)
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}
	if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", existing.ID).Updates(map[string]any{
		"password":  hashed,
		"is_active": true,
	}).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to update user: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Reset password of %q (company %d)\n", email, existing.CompanyId)
}

package seed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	appModels "github.com/yigit/applytrack/internal/app/models"
	appRepos "github.com/yigit/applytrack/internal/app/repositories"
	"github.com/yigit/applytrack/internal/pkg/auth"
)

// Admin describes the administrator account created on an empty store.
type Admin struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// DefaultAdmin returns the stock administrator credentials.
func DefaultAdmin() Admin {
	return Admin{
		Email:     "admin@example.com",
		Password:  "admin123",
		FirstName: "Admin",
		LastName:  "User",
	}
}

// EnsureDefaultAdmin creates the administrator account when no account
// exists at all. Any existing account, admin or not, suppresses the seed.
// It reports whether an account was created.
func EnsureDefaultAdmin(ctx context.Context, accounts appRepos.IAccountRepository, hasher auth.PasswordHasher, admin Admin, lgr zerolog.Logger) (bool, error) {
	count, err := accounts.Count(ctx)
	if err != nil {
		lgr.Error().Err(err).Msg("Error counting accounts")
		return false, fmt.Errorf("error checking for existing accounts: %w", err)
	}
	if count > 0 {
		lgr.Debug().Int64("accounts", count).Msg("Accounts already exist, skipping admin seed")
		return false, nil
	}

	lgr.Info().Msg("Creating default admin user...")
	account := appModels.NewAccount()
	account.Email = admin.Email
	account.IsAdmin = true
	account.FirstName = admin.FirstName
	account.LastName = admin.LastName
	if err := account.SetPassword(hasher, admin.Password); err != nil {
		lgr.Error().Err(err).Msg("Error hashing admin password")
		return false, fmt.Errorf("error hashing admin password: %w", err)
	}

	if _, err := accounts.Save(ctx, account); err != nil {
		lgr.Error().Err(err).Msg("Error creating admin user")
		return false, fmt.Errorf("error creating admin user: %w", err)
	}

	lgr.Warn().
		Str("email", admin.Email).
		Str("password", admin.Password).
		Str("accountID", account.ID).
		Msg("Default admin user created; change the seeded password")
	return true, nil
}

package models

import (
	"errors"
	"time"

	"github.com/yigit/applytrack/internal/pkg/auth"
)

// Account defines a user account stored in the 'users' collection
type Account struct {
	ID            string    `json:"id"`             // Store-assigned identifier, empty until first save
	Email         string    `json:"email"`          // Unique across accounts
	Password      string    `json:"-"`              // Password hash, never the plain secret
	IsAdmin       bool      `json:"is_admin"`       // Administrator flag
	FirstName     string    `json:"first_name"`     // Account holder's first name
	LastName      string    `json:"last_name"`      // Account holder's last name
	ContactNumber string    `json:"contact_number"` // Free-form phone number
	CreatedAt     time.Time `json:"created_at"`     // Set on construction, kept on update
}

// NewAccount returns an empty account stamped with the current time.
func NewAccount() *Account {
	return &Account{CreatedAt: now()}
}

// NewAccountFromMap builds an Account from raw stored fields. Absent fields
// take their defaults; it never fails.
func NewAccountFromMap(m map[string]any) *Account {
	if m == nil {
		return NewAccount()
	}
	return &Account{
		ID:            asString(m[IDKey]),
		Email:         asString(m["email"]),
		Password:      asString(m["password"]),
		IsAdmin:       asBool(m["is_admin"]),
		FirstName:     asString(m["first_name"]),
		LastName:      asString(m["last_name"]),
		ContactNumber: asString(m["contact_number"]),
		CreatedAt:     timeOr(m, "created_at"),
	}
}

// SetPassword hashes plain and stores the hash.
func (a *Account) SetPassword(hasher auth.PasswordHasher, plain string) error {
	if plain == "" {
		return errors.New("password must not be empty")
	}
	hash, err := hasher.Hash(plain)
	if err != nil {
		return err
	}
	a.Password = hash
	return nil
}

// CheckPassword reports whether plain matches the stored hash.
func (a *Account) CheckPassword(hasher auth.PasswordHasher, plain string) bool {
	return hasher.Verify(a.Password, plain)
}

// Document returns the stored form of the account, without the identifier.
func (a *Account) Document() map[string]any {
	return map[string]any{
		"email":          a.Email,
		"password":       a.Password,
		"is_admin":       a.IsAdmin,
		"first_name":     a.FirstName,
		"last_name":      a.LastName,
		"contact_number": a.ContactNumber,
		"created_at":     a.CreatedAt,
	}
}

// ToMap returns the outward representation. The password hash is omitted.
func (a *Account) ToMap() map[string]any {
	return map[string]any{
		"id":             idValue(a.ID),
		"email":          a.Email,
		"is_admin":       a.IsAdmin,
		"first_name":     a.FirstName,
		"last_name":      a.LastName,
		"contact_number": a.ContactNumber,
		"created_at":     formatTimestamp(a.CreatedAt),
	}
}

func idValue(id string) any {
	if id == "" {
		return nil
	}
	return id
}

package repositories

import (
	"context"
	"fmt"

	"github.com/yigit/applytrack/internal/app/models"
	"github.com/yigit/applytrack/internal/db"
	"github.com/yigit/applytrack/internal/pkg/apperrors"
)

// IAccountRepository defines the account operations used by bootstrap and the CLI
type IAccountRepository interface {
	Save(ctx context.Context, account *models.Account) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAll(ctx context.Context) ([]*models.Account, error)
	Delete(ctx context.Context, account *models.Account) (bool, error)
	Count(ctx context.Context) (int64, error)
}

var _ IAccountRepository = (*AccountRepository)(nil)

// AccountRepository handles store operations for accounts
type AccountRepository struct {
	users        db.Collection
	applications db.Collection
	files        db.Collection
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(conn *db.Connector) *AccountRepository {
	return &AccountRepository{
		users:        conn.Users(),
		applications: conn.Applications(),
		files:        conn.Files(),
	}
}

// Save inserts the account when it has no id yet, otherwise overwrites its
// stored fields. The creation timestamp is only written on insert.
func (r *AccountRepository) Save(ctx context.Context, account *models.Account) (*models.Account, error) {
	doc := db.Document(account.Document())

	if account.ID == "" {
		if account.CreatedAt.IsZero() {
			account.CreatedAt = timeNow()
			doc["created_at"] = account.CreatedAt
		}
		id, err := r.users.InsertOne(ctx, doc)
		if err != nil {
			return nil, accountWriteError("creating", account.Email, err)
		}
		account.ID = id
		return account, nil
	}

	delete(doc, "created_at")
	if err := r.users.UpdateByID(ctx, account.ID, doc); err != nil {
		return nil, accountWriteError("updating", account.Email, err)
	}
	return account, nil
}

func accountWriteError(action, email string, err error) error {
	if apperrors.Is(err, apperrors.ErrConstraintViolation) {
		return fmt.Errorf("error %s account %q: %w: %w", action, email, apperrors.ErrEmailAlreadyExists, err)
	}
	return fmt.Errorf("error %s account: %w", action, err)
}

// FindByID retrieves an account by id. It returns nil, nil for unknown or
// malformed ids.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	doc, err := r.users.FindByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting account: %w", err)
	}
	return models.NewAccountFromMap(doc), nil
}

// FindByEmail retrieves an account by its exact email
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	doc, err := r.users.FindOne(ctx, db.Where("email", email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting account by email: %w", err)
	}
	return models.NewAccountFromMap(doc), nil
}

// GetAll retrieves every account
func (r *AccountRepository) GetAll(ctx context.Context) ([]*models.Account, error) {
	docs, err := r.users.Find(ctx, db.All)
	if err != nil {
		return nil, fmt.Errorf("error listing accounts: %w", err)
	}
	accounts := make([]*models.Account, 0, len(docs))
	for _, doc := range docs {
		accounts = append(accounts, models.NewAccountFromMap(doc))
	}
	return accounts, nil
}

// Delete removes the account together with its applications and file
// records. The three deletes are independent writes: a failure part way
// leaves the earlier ones applied.
func (r *AccountRepository) Delete(ctx context.Context, account *models.Account) (bool, error) {
	if account == nil || account.ID == "" {
		return false, nil
	}

	owned := db.Where("user_id", account.ID)
	if _, err := r.applications.DeleteMany(ctx, owned); err != nil {
		return false, fmt.Errorf("error deleting applications of account %s: %w", account.ID, err)
	}
	if _, err := r.files.DeleteMany(ctx, owned); err != nil {
		return false, fmt.Errorf("error deleting files of account %s: %w", account.ID, err)
	}
	if _, err := r.users.DeleteByID(ctx, account.ID); err != nil {
		if apperrors.Is(err, apperrors.ErrMalformedID) {
			return true, nil
		}
		return false, fmt.Errorf("error deleting account %s: %w", account.ID, err)
	}
	return true, nil
}

// Count returns the number of stored accounts
func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.users.Count(ctx, db.All)
	if err != nil {
		return 0, fmt.Errorf("error counting accounts: %w", err)
	}
	return n, nil
}

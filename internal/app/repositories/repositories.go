package repositories

import (
	"time"

	"github.com/yigit/applytrack/internal/db"
)

// timeNow stamps created/updated fields; tests replace it.
var timeNow = func() time.Time { return time.Now().UTC() }

// Repositories holds all the repository instances
type Repositories struct {
	AccountRepository     *AccountRepository
	ApplicationRepository *ApplicationRepository
	FileRepository        *FileRepository
}

// NewRepositories initializes all repositories on a shared connector
func NewRepositories(conn *db.Connector) *Repositories {
	return &Repositories{
		AccountRepository:     NewAccountRepository(conn),
		ApplicationRepository: NewApplicationRepository(conn),
		FileRepository:        NewFileRepository(conn),
	}
}

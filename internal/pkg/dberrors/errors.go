package dberrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn" // Import pgconn for PgError
	"go.mongodb.org/mongo-driver/mongo"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// IsDuplicateKeyError reports whether err is a unique-index violation raised
// by either the PostgreSQL or the MongoDB driver.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	return mongo.IsDuplicateKeyError(err)
}

// IsConnectivityError reports whether err looks like the store could not be
// reached, as opposed to a rejected statement.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return true
	}
	return mongo.IsNetworkError(err) || mongo.IsTimeout(err)
}

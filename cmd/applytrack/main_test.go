package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/applytrack/internal/pkg/apperrors"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("BCRYPT_COST", "4")

	var stdout, stderr bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", "", "--env-file", ""}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "applytrack version "+Version)
}

func TestInit(t *testing.T) {
	out, err := execute(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "store initialized (driver: memory)")
}

func TestStats_JSONOnEmptyStore(t *testing.T) {
	out, err := execute(t, "stats", "-o", "json")
	require.NoError(t, err)

	var report statsReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Zero(t, report.Count)
	assert.Empty(t, report.Status)
	assert.Empty(t, report.Enrollment)
	assert.Empty(t, report.Universities)
	assert.NotContains(t, out, `"status"`)
}

func TestStats_StatusFilterIsLabelled(t *testing.T) {
	out, err := execute(t, "stats", "-o", "json", "--status", "enrolled")
	require.NoError(t, err)

	var report statsReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "enrolled", report.Status)
	assert.Zero(t, report.Count)
}

func TestStats_UnknownFormat(t *testing.T) {
	_, err := execute(t, "stats", "-o", "xml")
	assert.Error(t, err)
}

func TestAccountsList_HidesPassword(t *testing.T) {
	out, err := execute(t, "accounts", "list", "-o", "json")
	require.NoError(t, err)

	var accounts []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &accounts))
	require.Len(t, accounts, 1)
	assert.Equal(t, "admin@example.com", accounts[0]["email"])
	assert.Equal(t, true, accounts[0]["is_admin"])
	assert.NotContains(t, accounts[0], "password")
	assert.NotContains(t, out, "$2a$")
}

func TestAccountsList_YAML(t *testing.T) {
	out, err := execute(t, "accounts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "email: admin@example.com")
}

func TestAccountsVerify(t *testing.T) {
	out, err := execute(t, "accounts", "verify", "--email", "admin@example.com", "--password", "admin123")
	require.NoError(t, err)
	assert.Contains(t, out, "credentials valid for admin@example.com (admin: true)")

	_, err = execute(t, "accounts", "verify", "--email", "admin@example.com", "--password", "nope")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))

	_, err = execute(t, "accounts", "verify", "--email", "ghost@example.com", "--password", "admin123")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))
}

func TestAccountsDelete(t *testing.T) {
	out, err := execute(t, "accounts", "delete", "--email", "admin@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted admin@example.com")

	_, err = execute(t, "accounts", "delete", "--email", "ghost@example.com")
	assert.True(t, errors.Is(err, apperrors.ErrResourceNotFound))
}

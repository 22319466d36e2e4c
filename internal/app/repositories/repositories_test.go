package repositories

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/applytrack/internal/app/models"
	"github.com/yigit/applytrack/internal/db"
	"github.com/yigit/applytrack/internal/pkg/apperrors"
)

// faultyBackend makes DeleteMany fail on one collection.
type faultyBackend struct {
	db.Backend
	failOn string
}

func (b *faultyBackend) Collection(name string) db.Collection {
	c := b.Backend.Collection(name)
	if name == b.failOn {
		return &failingDeletes{Collection: c}
	}
	return c
}

type failingDeletes struct {
	db.Collection
}

func (c *failingDeletes) DeleteMany(context.Context, db.Filter) (int64, error) {
	return 0, apperrors.NewUnavailableError("delete_many", errors.New("connection reset"))
}

func newTestRepositories(t *testing.T) (*Repositories, *db.Connector) {
	t.Helper()
	conn := db.NewConnector(db.NewMemoryBackend(), nil, zerolog.Nop())
	require.NoError(t, conn.Users().EnsureIndex(context.Background(), "email", true))
	t.Cleanup(func() { _ = conn.Close(context.Background()) })
	return NewRepositories(conn), conn
}

func freezeTime(t *testing.T, ts time.Time) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return ts }
	t.Cleanup(func() { timeNow = prev })
}

func saveAccount(t *testing.T, repo *AccountRepository, email string) *models.Account {
	t.Helper()
	a := models.NewAccount()
	a.Email = email
	a.Password = "hash"
	saved, err := repo.Save(context.Background(), a)
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	return saved
}

func TestAccountRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repos, _ := newTestRepositories(t)
	repo := repos.AccountRepository

	a := saveAccount(t, repo, "ada@example.com")

	byID, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "ada@example.com", byID.Email)
	assert.Equal(t, "hash", byID.Password)

	byEmail, err := repo.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, a.ID, byEmail.ID)

	missing, err := repo.FindByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAccountRepository_FindByIDMalformedOrUnknown(t *testing.T) {
	ctx := context.Background()
	repos, _ := newTestRepositories(t)

	for _, id := range []string{"", "not-an-id", "6a0c1c64-8d4b-4f69-9b4d-1f7d3c1f8a11"} {
		t.Run(fmt.Sprintf("id=%q", id), func(t *testing.T) {
			got, err := repos.AccountRepository.FindByID(ctx, id)
			assert.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestAccountRepository_UpdateKeepsIDAndCreatedAt(t *testing.T) {
	ctx := context.Background()
	repos, _ := newTestRepositories(t)
	repo := repos.AccountRepository

	a := saveAccount(t, repo, "ada@example.com")
	id, created := a.ID, a.CreatedAt

	a.FirstName = "Ada"
	a.CreatedAt = created.Add(48 * time.Hour)
	_, err := repo.Save(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, id, a.ID)

	got, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.FirstName)
	assert.True(t, created.Equal(got.CreatedAt), "created_at is written only on insert")

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAccountRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repos, _ := newTestRepositories(t)
	repo := repos.AccountRepository

	saveAccount(t, repo, "dup@example.com")

	dup := models.NewAccount()
	dup.Email = "dup@example.com"
	_, err := repo.Save(ctx, dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrEmailAlreadyExists))
	assert.True(t, errors.Is(err, apperrors.ErrConstraintViolation))
	assert.Empty(t, dup.ID)

	other := saveAccount(t, repo, "other@example.com")
	other.Email = "dup@example.com"
	_, err = repo.Save(ctx, other)
	assert.True(t, errors.Is(err, apperrors.ErrEmailAlreadyExists))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	found, err := repo.FindByEmail(ctx, "other@example.com")
	require.NoError(t, err)
	require.NotNil(t, found, "rejected update leaves the stored email untouched")
}

func TestAccountRepository_GetAll(t *testing.T) {
	ctx := context.Background()
	repos, _ := newTestRepositories(t)

	saveAccount(t, repos.AccountRepository, "a@example.com")
	saveAccount(t, repos.AccountRepository, "b@example.com")

	all, err := repos.AccountRepository.GetAll(ctx)
	require.NoError(t, err)
	emails := []string{all[0].Email, all[1].Email}
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, emails)
}

func TestAccountRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	repos, conn := newTestRepositories(t)

	owner := saveAccount(t, repos.AccountRepository, "owner@example.com")
	bystander := saveAccount(t, repos.AccountRepository, "other@example.com")

	_, err := repos.ApplicationRepository.Save(ctx, models.NewApplication(owner.ID))
	require.NoError(t, err)
	_, err = repos.ApplicationRepository.Save(ctx, models.NewApplication(bystander.ID))
	require.NoError(t, err)
	for _, name := range []string{"cv.pdf", "transcript.pdf"} {
		_, err = repos.FileRepository.Save(ctx, &models.UploadedFile{UserID: owner.ID, OriginalName: name})
		require.NoError(t, err)
	}

	ok, err := repos.AccountRepository.Delete(ctx, owner)
	require.NoError(t, err)
	assert.True(t, ok)

	gone, err := repos.AccountRepository.FindByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	n, err := conn.Applications().Count(ctx, db.Where("user_id", owner.ID))
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = conn.Files().Count(ctx, db.Where("user_id", owner.ID))
	require.NoError(t, err)
	assert.Zero(t, n)

	kept, err := repos.ApplicationRepository.FindByUserID(ctx, bystander.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept, "other accounts' applications survive")
}

func TestAccountRepository_DeleteWithoutID(t *testing.T) {
	repos, _ := newTestRepositories(t)

	ok, err := repos.AccountRepository.Delete(context.Background(), models.NewAccount())
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestAccountRepository_DeleteIsNotAtomic(t *testing.T) {
	ctx := context.Background()
	conn := db.NewConnector(&faultyBackend{Backend: db.NewMemoryBackend(), failOn: db.FilesCollection}, nil, zerolog.Nop())
	repos := NewRepositories(conn)

	owner := saveAccount(t, repos.AccountRepository, "owner@example.com")
	_, err := repos.ApplicationRepository.Save(ctx, models.NewApplication(owner.ID))
	require.NoError(t, err)

	ok, err := repos.AccountRepository.Delete(ctx, owner)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, apperrors.ErrStoreUnavailable))

	// Applications are already gone while the account remains.
	app, err := repos.ApplicationRepository.FindByUserID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Nil(t, app)

	still, err := repos.AccountRepository.FindByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.NotNil(t, still)
}

func TestApplicationRepository_SaveStampsTimes(t *testing.T) {
	ctx := context.Background()
	repos, _ := newTestRepositories(t)
	repo := repos.ApplicationRepository

	t0 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	freezeTime(t, t0)

	app := models.NewApplicationFromMap(map[string]any{
		"user_id":    "u1",
		"created_at": "2020-01-01 00:00:00",
	})
	_, err := repo.Save(ctx, app)
	require.NoError(t, err)
	id := app.ID

	t1 := t0.Add(time.Hour)
	freezeTime(t, t1)
	app.EnrollmentStatus = models.EnrollmentApplied
	_, err = repo.Save(ctx, app)
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, models.EnrollmentApplied, got.EnrollmentStatus)
	assert.True(t, t0.Equal(got.CreatedAt), "insert time replaces a preset created_at")
	assert.True(t, t1.Equal(got.UpdatedAt))
}

func TestApplicationRepository_FindByUserIDAndMalformedID(t *testing.T) {
	ctx := context.Background()
	repos, _ := newTestRepositories(t)
	repo := repos.ApplicationRepository

	app := models.NewApplication("u1")
	app.EnrolledUniversity = "ETH Zurich"
	_, err := repo.Save(ctx, app)
	require.NoError(t, err)

	got, err := repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ETH Zurich", got.EnrolledUniversity)

	none, err := repo.FindByUserID(ctx, "u2")
	require.NoError(t, err)
	assert.Nil(t, none)

	bad, err := repo.FindByID(ctx, "%%%")
	require.NoError(t, err)
	assert.Nil(t, bad)
}

func TestApplicationRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repos, _ := newTestRepositories(t)
	repo := repos.ApplicationRepository

	ok, err := repo.Delete(ctx, models.NewApplication("u1"))
	require.NoError(t, err)
	assert.False(t, ok, "unsaved application")

	app, err := repo.Save(ctx, models.NewApplication("u1"))
	require.NoError(t, err)
	ok, err = repo.Delete(ctx, app)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := repo.CountByEnrollmentStatus(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

// seedStatuses stores one application per entry; nil means no status key.
func seedStatuses(t *testing.T, conn *db.Connector, entries []db.Document) {
	t.Helper()
	for _, doc := range entries {
		_, err := conn.Applications().InsertOne(context.Background(), doc)
		require.NoError(t, err)
	}
}

func TestApplicationRepository_Reporting(t *testing.T) {
	ctx := context.Background()
	repos, conn := newTestRepositories(t)
	repo := repos.ApplicationRepository

	seedStatuses(t, conn, []db.Document{
		{"user_id": "u1", "enrollment_status": "planning"},
		{"user_id": "u2", "enrollment_status": "planning"},
		{"user_id": "u3", "enrollment_status": "applied"},
		{"user_id": "u4", "enrollment_status": "enrolled", "enrolled_university": "MIT"},
		{"user_id": "u5"},
	})

	stats, err := repo.EnrollmentStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"planning": 2, "applied": 1, "enrolled": 1, "none": 1}, stats)

	tests := []struct {
		status models.EnrollmentStatus
		want   int64
	}{
		{status: "", want: 5},
		{status: models.EnrollmentPlanning, want: 2},
		{status: models.EnrollmentApplied, want: 1},
		{status: models.EnrollmentRejected, want: 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("count %q", tt.status), func(t *testing.T) {
			n, err := repo.CountByEnrollmentStatus(ctx, tt.status)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}

	planning, err := repo.GetByEnrollmentStatus(ctx, models.EnrollmentPlanning)
	require.NoError(t, err)
	assert.Len(t, planning, 2)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestApplicationRepository_EmptyAndNullStatusAreNone(t *testing.T) {
	ctx := context.Background()
	repos, conn := newTestRepositories(t)

	seedStatuses(t, conn, []db.Document{
		{"enrollment_status": nil},
		{"enrollment_status": ""},
		{},
	})

	stats, err := repos.ApplicationRepository.EnrollmentStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"none": 3}, stats)
}

func TestApplicationRepository_UniversityStatistics(t *testing.T) {
	ctx := context.Background()
	repos, conn := newTestRepositories(t)

	seedStatuses(t, conn, []db.Document{
		{"enrollment_status": "enrolled", "enrolled_university": "MIT"},
		{"enrollment_status": "enrolled", "enrolled_university": "MIT"},
		{"enrollment_status": "enrolled", "enrolled_university": "ETH Zurich"},
		{"enrollment_status": "enrolled", "enrolled_university": "Delft"},
		{"enrollment_status": "enrolled", "enrolled_university": ""},
		{"enrollment_status": "enrolled", "enrolled_university": nil},
		{"enrollment_status": "enrolled"},
		{"enrollment_status": "accepted", "enrolled_university": "MIT"},
	})

	stats, err := repos.ApplicationRepository.UniversityStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, []UniversityCount{
		{University: "MIT", StudentCount: 2},
		{University: "Delft", StudentCount: 1},
		{University: "ETH Zurich", StudentCount: 1},
	}, stats)
}

func TestApplicationRepository_UniversityStatisticsEmpty(t *testing.T) {
	repos, _ := newTestRepositories(t)

	stats, err := repos.ApplicationRepository.UniversityStatistics(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestFileRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repos, _ := newTestRepositories(t)
	repo := repos.FileRepository

	f := &models.UploadedFile{
		UserID:       "u1",
		OriginalName: "cv.pdf",
		FilePath:     "uploads/u1/cv.pdf",
		FileType:     "cv",
		MimeType:     "application/pdf",
		FileSize:     1024,
	}
	_, err := repo.Save(ctx, f)
	require.NoError(t, err)
	require.NotEmpty(t, f.ID)
	assert.False(t, f.UploadDate.IsZero())

	got, err := repo.FindByID(ctx, f.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1024), got.FileSize)
	assert.Equal(t, "uploads/u1/cv.pdf", got.FilePath)

	f.FileSize = 2048
	_, err = repo.Save(ctx, f)
	require.NoError(t, err)

	list, err := repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2048), list[0].FileSize)

	ok, err := repo.Delete(ctx, f)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = repo.FindByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	ok, err = repo.Delete(ctx, &models.UploadedFile{})
	require.NoError(t, err)
	assert.False(t, ok)
}

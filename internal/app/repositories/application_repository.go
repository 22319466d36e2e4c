package repositories

import (
	"context"
	"fmt"
	"sort"

	"github.com/yigit/applytrack/internal/app/models"
	"github.com/yigit/applytrack/internal/db"
	"github.com/yigit/applytrack/internal/pkg/apperrors"
)

// NoStatusKey groups applications without an enrollment status in EnrollmentStatistics.
const NoStatusKey = "none"

// UniversityCount is one row of UniversityStatistics
type UniversityCount struct {
	University   string `json:"university" yaml:"university"`
	StudentCount int64  `json:"student_count" yaml:"student_count"`
}

// IApplicationRepository defines application storage and reporting operations
type IApplicationRepository interface {
	Save(ctx context.Context, app *models.Application) (*models.Application, error)
	FindByID(ctx context.Context, id string) (*models.Application, error)
	FindByUserID(ctx context.Context, userID string) (*models.Application, error)
	GetAll(ctx context.Context) ([]*models.Application, error)
	GetByEnrollmentStatus(ctx context.Context, status models.EnrollmentStatus) ([]*models.Application, error)
	Delete(ctx context.Context, app *models.Application) (bool, error)

	// Reporting
	CountByEnrollmentStatus(ctx context.Context, status models.EnrollmentStatus) (int64, error)
	EnrollmentStatistics(ctx context.Context) (map[string]int64, error)
	UniversityStatistics(ctx context.Context) ([]UniversityCount, error)
}

var _ IApplicationRepository = (*ApplicationRepository)(nil)

// ApplicationRepository handles store operations for applications
type ApplicationRepository struct {
	applications db.Collection
}

// NewApplicationRepository creates a new ApplicationRepository
func NewApplicationRepository(conn *db.Connector) *ApplicationRepository {
	return &ApplicationRepository{applications: conn.Applications()}
}

// Save inserts the application when it has no id, otherwise overwrites its
// fields. updated_at is refreshed on every save. created_at is set to the
// insert time and never rewritten.
func (r *ApplicationRepository) Save(ctx context.Context, app *models.Application) (*models.Application, error) {
	ts := timeNow()
	app.UpdatedAt = ts

	if app.ID == "" {
		app.CreatedAt = ts
		id, err := r.applications.InsertOne(ctx, db.Document(app.Document()))
		if err != nil {
			return nil, fmt.Errorf("error creating application: %w", err)
		}
		app.ID = id
		return app, nil
	}

	doc := db.Document(app.Document())
	delete(doc, "created_at")
	if err := r.applications.UpdateByID(ctx, app.ID, doc); err != nil {
		return nil, fmt.Errorf("error updating application: %w", err)
	}
	return app, nil
}

// FindByID retrieves an application by id; unknown or malformed ids yield nil, nil.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.Application, error) {
	return r.findOne(func() (db.Document, error) { return r.applications.FindByID(ctx, id) })
}

// FindByUserID retrieves the application owned by userID. When several
// exist, whichever the store returns first wins.
func (r *ApplicationRepository) FindByUserID(ctx context.Context, userID string) (*models.Application, error) {
	return r.findOne(func() (db.Document, error) {
		return r.applications.FindOne(ctx, db.Where("user_id", userID))
	})
}

func (r *ApplicationRepository) findOne(find func() (db.Document, error)) (*models.Application, error) {
	doc, err := find()
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting application: %w", err)
	}
	return models.NewApplicationFromMap(doc), nil
}

// GetAll retrieves every application
func (r *ApplicationRepository) GetAll(ctx context.Context) ([]*models.Application, error) {
	return r.find(ctx, db.All)
}

// GetByEnrollmentStatus retrieves applications with exactly the given status
func (r *ApplicationRepository) GetByEnrollmentStatus(ctx context.Context, status models.EnrollmentStatus) ([]*models.Application, error) {
	return r.find(ctx, db.Where("enrollment_status", string(status)))
}

func (r *ApplicationRepository) find(ctx context.Context, filter db.Filter) ([]*models.Application, error) {
	docs, err := r.applications.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing applications: %w", err)
	}
	apps := make([]*models.Application, 0, len(docs))
	for _, doc := range docs {
		apps = append(apps, models.NewApplicationFromMap(doc))
	}
	return apps, nil
}

// Delete removes the application. It reports false without touching the
// store when the application was never saved.
func (r *ApplicationRepository) Delete(ctx context.Context, app *models.Application) (bool, error) {
	if app == nil || app.ID == "" {
		return false, nil
	}
	if _, err := r.applications.DeleteByID(ctx, app.ID); err != nil && !apperrors.Is(err, apperrors.ErrMalformedID) {
		return false, fmt.Errorf("error deleting application: %w", err)
	}
	return true, nil
}

// CountByEnrollmentStatus counts applications with the given status, or all
// applications when status is empty.
func (r *ApplicationRepository) CountByEnrollmentStatus(ctx context.Context, status models.EnrollmentStatus) (int64, error) {
	filter := db.All
	if status != "" {
		filter = db.Where("enrollment_status", string(status))
	}
	n, err := r.applications.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("error counting applications: %w", err)
	}
	return n, nil
}

// EnrollmentStatistics maps each enrollment status to its application
// count. Missing, null and empty statuses are reported under NoStatusKey.
func (r *ApplicationRepository) EnrollmentStatistics(ctx context.Context) (map[string]int64, error) {
	groups, err := r.applications.GroupCount(ctx, "enrollment_status", db.All)
	if err != nil {
		return nil, fmt.Errorf("error grouping applications by status: %w", err)
	}

	stats := make(map[string]int64, len(groups))
	for _, g := range groups {
		key := NoStatusKey
		if g.Key != nil && *g.Key != "" {
			key = *g.Key
		}
		stats[key] += g.Count
	}
	return stats, nil
}

// UniversityStatistics counts enrolled students per enrolled university,
// ordered by count descending and then by university name.
func (r *ApplicationRepository) UniversityStatistics(ctx context.Context) ([]UniversityCount, error) {
	filter := db.Where("enrollment_status", string(models.EnrollmentEnrolled)).AndNonEmpty("enrolled_university")
	groups, err := r.applications.GroupCount(ctx, "enrolled_university", filter)
	if err != nil {
		return nil, fmt.Errorf("error grouping applications by university: %w", err)
	}

	stats := make([]UniversityCount, 0, len(groups))
	for _, g := range groups {
		if g.Key == nil || *g.Key == "" {
			continue
		}
		stats = append(stats, UniversityCount{University: *g.Key, StudentCount: g.Count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].StudentCount != stats[j].StudentCount {
			return stats[i].StudentCount > stats[j].StudentCount
		}
		return stats[i].University < stats[j].University
	})
	return stats, nil
}

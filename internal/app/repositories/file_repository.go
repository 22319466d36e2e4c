package repositories

import (
	"context"
	"fmt"

	"github.com/yigit/applytrack/internal/app/models"
	"github.com/yigit/applytrack/internal/db"
	"github.com/yigit/applytrack/internal/pkg/apperrors"
)

// FileRepository handles store operations for uploaded file metadata
type FileRepository struct {
	files db.Collection
}

// NewFileRepository creates a new FileRepository
func NewFileRepository(conn *db.Connector) *FileRepository {
	return &FileRepository{files: conn.Files()}
}

// Save inserts or updates the file record
func (r *FileRepository) Save(ctx context.Context, file *models.UploadedFile) (*models.UploadedFile, error) {
	if file.UploadDate.IsZero() {
		file.UploadDate = timeNow()
	}
	doc := db.Document(file.Document())

	if file.ID == "" {
		id, err := r.files.InsertOne(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("error creating file: %w", err)
		}
		file.ID = id
		return file, nil
	}

	if err := r.files.UpdateByID(ctx, file.ID, doc); err != nil {
		return nil, fmt.Errorf("error updating file: %w", err)
	}
	return file, nil
}

// FindByID retrieves a file by id
func (r *FileRepository) FindByID(ctx context.Context, id string) (*models.UploadedFile, error) {
	doc, err := r.files.FindByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting file: %w", err)
	}
	return models.NewUploadedFileFromMap(doc), nil
}

// FindByUserID retrieves all files uploaded by userID
func (r *FileRepository) FindByUserID(ctx context.Context, userID string) ([]*models.UploadedFile, error) {
	docs, err := r.files.Find(ctx, db.Where("user_id", userID))
	if err != nil {
		return nil, fmt.Errorf("error listing files: %w", err)
	}
	files := make([]*models.UploadedFile, 0, len(docs))
	for _, doc := range docs {
		files = append(files, models.NewUploadedFileFromMap(doc))
	}
	return files, nil
}

// Delete deletes a file record; unsaved records are left alone and report false
func (r *FileRepository) Delete(ctx context.Context, file *models.UploadedFile) (bool, error) {
	if file == nil || file.ID == "" {
		return false, nil
	}
	if _, err := r.files.DeleteByID(ctx, file.ID); err != nil && !apperrors.Is(err, apperrors.ErrMalformedID) {
		return false, fmt.Errorf("error deleting file: %w", err)
	}
	return true, nil
}

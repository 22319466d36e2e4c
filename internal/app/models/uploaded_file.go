package models

import "time"

// UploadedFile is the metadata of a stored upload, kept in the 'files' collection.
type UploadedFile struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	OriginalName string    `json:"original_name"`
	FilePath     string    `json:"file_path"`
	FileType     string    `json:"file_type"` // Logical kind, e.g. transcript or cv
	MimeType     string    `json:"mime_type"`
	FileSize     int64     `json:"file_size"` // Bytes
	UploadDate   time.Time `json:"upload_date"`
}

// NewUploadedFileFromMap builds file metadata from a raw document. A nil
// map or a missing upload_date yields the current time as UploadDate.
func NewUploadedFileFromMap(m map[string]any) *UploadedFile {
	if m == nil {
		return &UploadedFile{UploadDate: now()}
	}
	return &UploadedFile{
		ID:           asString(m[IDKey]),
		UserID:       asString(m["user_id"]),
		OriginalName: asString(m["original_name"]),
		FilePath:     asString(m["file_path"]),
		FileType:     asString(m["file_type"]),
		MimeType:     asString(m["mime_type"]),
		FileSize:     asInt64(m["file_size"]),
		UploadDate:   timeOr(m, "upload_date"),
	}
}

// Document returns the stored fields, without the id.
func (f *UploadedFile) Document() map[string]any {
	return map[string]any{
		"user_id":       f.UserID,
		"original_name": f.OriginalName,
		"file_path":     f.FilePath,
		"file_type":     f.FileType,
		"mime_type":     f.MimeType,
		"file_size":     f.FileSize,
		"upload_date":   f.UploadDate,
	}
}

// ToMap returns the outward representation of the file metadata.
func (f *UploadedFile) ToMap() map[string]any {
	return map[string]any{
		"id":            idValue(f.ID),
		"user_id":       f.UserID,
		"original_name": f.OriginalName,
		"file_path":     f.FilePath,
		"file_type":     f.FileType,
		"mime_type":     f.MimeType,
		"file_size":     f.FileSize,
		"upload_date":   formatTimestamp(f.UploadDate),
	}
}

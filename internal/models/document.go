package models

import "time"

// Document is metadata for a stored file. Versions of the same document share
// ParentID, which points at the first version.
type Document struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TenantID    uint      `gorm:"index;not null" json:"tenant_id"`
	ClientID    *uint     `gorm:"index" json:"client_id,omitempty"`
	MatterID    *uint     `gorm:"index" json:"matter_id,omitempty"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	FileName    string    `gorm:"size:255;not null" json:"file_name"`
	MimeType    string    `gorm:"size:128" json:"mime_type"`
	Size        int64     `json:"size"`
	StorageKey  string    `gorm:"size:512;not null" json:"-"`
	StoragePath string    `gorm:"size:1024;not null" json:"storage_path"`
	Version     int       `gorm:"not null" json:"version"`
	ParentID    *uint     `gorm:"index" json:"parent_id,omitempty"`
	UploadedBy  uint      `gorm:"not null" json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

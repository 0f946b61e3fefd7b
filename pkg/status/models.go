// Package status keeps the durable online/offline record for every tracked
// file and exposes the operations external triggers call: status creation
// after verification, stored-status reads, and the dataset/experiment
// roll-ups.
package status

import (
	"errors"
	"time"

	"github.com/marmos91/hsmwatch/pkg/checker"
)

// Schema namespaces for the persisted status attribute. These are
// versioned URIs and must stay stable across reconciliation runs for a
// deployment; bump the trailing version only with a migration.
const (
	DatafileNamespace = "https://hsmwatch.dev/schemas/hsm/datafile/1"
	DatasetNamespace  = "https://hsmwatch.dev/schemas/hsm/dataset/1"
)

// Status record values. The stored representation is a string-encoded
// boolean.
const (
	ValueOnline  = "True"
	ValueOffline = "False"
)

var (
	// ErrRecordNotFound indicates no status record exists for the
	// (namespace, file) pair.
	ErrRecordNotFound = errors.New("status record not found")

	// ErrDuplicateRecord indicates a status record already exists for the
	// (namespace, file) pair.
	ErrDuplicateRecord = errors.New("status record already exists")

	// ErrFileNotFound indicates the tracked file does not exist.
	ErrFileNotFound = errors.New("tracked file not found")

	// ErrNoStorageLocation indicates the tracked file has no resolved
	// storage path.
	ErrNoStorageLocation = errors.New("tracked file has no storage location")
)

// EncodeBool renders a classification as the stored string value.
func EncodeBool(online bool) string {
	if online {
		return ValueOnline
	}
	return ValueOffline
}

// TrackedFile mirrors the record-keeping system's view of one stored file.
// hsmwatch reads these rows and writes status records; it never mutates the
// file fields themselves.
type TrackedFile struct {
	ID           string `gorm:"primaryKey;size:255"`
	DatasetID    string `gorm:"index;size:255"`
	ExperimentID string `gorm:"index;size:255"`
	Verified     bool
	BackendClass string `gorm:"size:255"`
	Path         string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntityID implements checker.Entity.
func (f *TrackedFile) EntityID() string {
	return f.ID
}

// IsVerified implements checker.Entity.
func (f *TrackedFile) IsVerified() bool {
	return f.Verified
}

// PreferredStorageObject implements checker.Entity.
func (f *TrackedFile) PreferredStorageObject() (checker.StorageObject, error) {
	if f.Path == "" {
		return checker.StorageObject{}, ErrNoStorageLocation
	}
	return checker.StorageObject{BackendClass: f.BackendClass, Path: f.Path}, nil
}

// Record is the persisted online/offline fact for one tracked file under
// one schema namespace. At most one Record exists per (namespace, file)
// pair; the unique index enforces it.
type Record struct {
	ID        uint   `gorm:"primaryKey"`
	Namespace string `gorm:"uniqueIndex:idx_status_namespace_file;size:255"`
	FileID    string `gorm:"uniqueIndex:idx_status_namespace_file;size:255"`
	Value     string `gorm:"size:8"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Online reports whether the record marks its file online.
func (r *Record) Online() bool {
	return r.Value == ValueOnline
}

// AllModels returns every model for schema auto-migration.
func AllModels() []any {
	return []any{
		&TrackedFile{},
		&Record{},
	}
}

var _ checker.Entity = (*TrackedFile)(nil)

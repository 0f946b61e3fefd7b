package status

import (
	"context"
	"fmt"
)

// CreateFile inserts a tracked file. Returns ErrDuplicateRecord if a file
// with the same ID already exists.
func (s *Store) CreateFile(ctx context.Context, file *TrackedFile) error {
	if err := s.db.WithContext(ctx).Create(file).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateRecord
		}
		return fmt.Errorf("failed to create tracked file: %w", err)
	}
	return nil
}

// SaveFile updates an existing tracked file.
func (s *Store) SaveFile(ctx context.Context, file *TrackedFile) error {
	if err := s.db.WithContext(ctx).Save(file).Error; err != nil {
		return fmt.Errorf("failed to save tracked file: %w", err)
	}
	return nil
}

// GetFile fetches a tracked file by ID. Returns ErrFileNotFound if no file
// exists.
func (s *Store) GetFile(ctx context.Context, fileID string) (*TrackedFile, error) {
	var file TrackedFile
	err := s.db.WithContext(ctx).Where("id = ?", fileID).First(&file).Error
	if err != nil {
		return nil, convertNotFoundError(err, ErrFileNotFound)
	}
	return &file, nil
}

// ListFilesByDataset returns all tracked files belonging to a dataset.
func (s *Store) ListFilesByDataset(ctx context.Context, datasetID string) ([]TrackedFile, error) {
	var files []TrackedFile
	err := s.db.WithContext(ctx).
		Where("dataset_id = ?", datasetID).
		Order("id").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list files by dataset: %w", err)
	}
	return files, nil
}

// ListFilesByExperiment returns all tracked files belonging to an
// experiment.
func (s *Store) ListFilesByExperiment(ctx context.Context, experimentID string) ([]TrackedFile, error) {
	var files []TrackedFile
	err := s.db.WithContext(ctx).
		Where("experiment_id = ?", experimentID).
		Order("id").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list files by experiment: %w", err)
	}
	return files, nil
}

// ListVerifiedFilesWithoutStatus returns verified tracked files that have no
// status record under namespace yet. These are picked up by the watcher loop
// once verification completes after ingest.
func (s *Store) ListVerifiedFilesWithoutStatus(ctx context.Context, namespace string) ([]TrackedFile, error) {
	var files []TrackedFile
	subquery := s.db.
		Model(&Record{}).
		Select("file_id").
		Where("namespace = ?", namespace)
	err := s.db.WithContext(ctx).
		Where("verified = ?", true).
		Where("id NOT IN (?)", subquery).
		Order("id").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list verified files without status: %w", err)
	}
	return files, nil
}

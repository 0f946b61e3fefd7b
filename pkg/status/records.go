package status

import (
	"context"
	"errors"
	"fmt"
)

// CreateRecord inserts a status record for (namespace, fileID). Returns
// ErrDuplicateRecord if a record already exists for that pair.
func (s *Store) CreateRecord(ctx context.Context, namespace, fileID, value string) (*Record, error) {
	record := &Record{
		Namespace: namespace,
		FileID:    fileID,
		Value:     value,
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrDuplicateRecord
		}
		return nil, fmt.Errorf("failed to create status record: %w", err)
	}

	return record, nil
}

// GetRecord fetches the status record for (namespace, fileID). Returns
// ErrRecordNotFound if no record exists.
func (s *Store) GetRecord(ctx context.Context, namespace, fileID string) (*Record, error) {
	var record Record
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND file_id = ?", namespace, fileID).
		First(&record).Error
	if err != nil {
		return nil, convertNotFoundError(err, ErrRecordNotFound)
	}
	return &record, nil
}

// UpdateRecordValue sets the value of the status record for
// (namespace, fileID). Returns ErrRecordNotFound if no record exists.
func (s *Store) UpdateRecordValue(ctx context.Context, namespace, fileID, value string) error {
	result := s.db.WithContext(ctx).
		Model(&Record{}).
		Where("namespace = ? AND file_id = ?", namespace, fileID).
		Update("value", value)
	if result.Error != nil {
		return fmt.Errorf("failed to update status record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ListOnlineRecords returns all records under namespace whose value marks
// the file as online. These are the candidates for a reconciliation sweep.
func (s *Store) ListOnlineRecords(ctx context.Context, namespace string) ([]Record, error) {
	var records []Record
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND value = ?", namespace, ValueOnline).
		Order("file_id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list online records: %w", err)
	}
	return records, nil
}

// CountRecords returns the number of records under namespace grouped by
// value. Missing values report zero.
func (s *Store) CountRecords(ctx context.Context, namespace string) (online int64, offline int64, err error) {
	type row struct {
		Value string
		Count int64
	}
	var rows []row
	err = s.db.WithContext(ctx).
		Model(&Record{}).
		Select("value, count(*) as count").
		Where("namespace = ?", namespace).
		Group("value").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count status records: %w", err)
	}
	for _, r := range rows {
		switch r.Value {
		case ValueOnline:
			online = r.Count
		case ValueOffline:
			offline = r.Count
		}
	}
	return online, offline, nil
}

// recordValueOrDefault returns the stored value for (namespace, fileID), or
// fallback when no record exists.
func (s *Store) recordValueOrDefault(ctx context.Context, namespace, fileID, fallback string) (string, error) {
	record, err := s.GetRecord(ctx, namespace, fileID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return fallback, nil
		}
		return "", err
	}
	return record.Value, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"translation-backend/pkg/models"
)

type JobRow struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Status    string    `gorm:"size:20;not null"`
	Result    sql.NullString
	ExpiresAt time.Time `gorm:"index"`
}

type TranslationRow struct {
	Fingerprint string `gorm:"size:64;primaryKey"`
	Text        string
	ExpiresAt   time.Time `gorm:"index"`
}

// GormStore backs the result store with a relational database for
// single-process deployments. The database has no native TTL, so every row
// carries an expiry timestamp that is checked on read; expired rows are
// deleted lazily.
type GormStore struct {
	db          *gorm.DB
	resultTTL   time.Duration
	terminalTTL time.Duration

	now func() time.Time
}

func NewGormStore(db *gorm.DB, resultTTL, terminalTTL time.Duration) (*GormStore, error) {
	if err := db.AutoMigrate(&JobRow{}, &TranslationRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate result store schema: %w", err)
	}

	return &GormStore{
		db:          db,
		resultTTL:   resultTTL,
		terminalTTL: terminalTTL,
		now:         time.Now,
	}, nil
}

func (s *GormStore) jobRow(id uuid.UUID, record models.JobRecord, ttl time.Duration) JobRow {
	row := JobRow{
		Id:        id,
		Status:    string(record.Status),
		ExpiresAt: s.now().Add(ttl),
	}
	if record.Result != nil {
		row.Result = sql.NullString{String: *record.Result, Valid: true}
	}
	return row
}

func (s *GormStore) PutInitial(ctx context.Context, id uuid.UUID) error {
	row := s.jobRow(id, models.QueuedRecord(), s.resultTTL)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to store initial job record %s: %w", id, err)
	}
	return nil
}

func (s *GormStore) GetStatus(ctx context.Context, id uuid.UUID) (models.JobRecord, error) {
	var row JobRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.JobRecord{}, ErrNotFound
		}
		return models.JobRecord{}, fmt.Errorf("failed to read job record %s: %w", id, err)
	}

	if s.now().After(row.ExpiresAt) {
		s.db.WithContext(ctx).Delete(&JobRow{}, "id = ?", id)
		return models.JobRecord{}, ErrNotFound
	}

	record := models.JobRecord{Status: models.JobStatus(row.Status)}
	if row.Result.Valid {
		result := row.Result.String
		record.Result = &result
	}
	return record, nil
}

func (s *GormStore) PutTerminal(ctx context.Context, id uuid.UUID, record models.JobRecord) error {
	row := s.jobRow(id, record, s.resultTTL)
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to store job record %s: %w", id, err)
	}
	return nil
}

func (s *GormStore) DeleteIfTerminal(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).
		Where("id = ? AND status IN ?", id, []string{string(models.JobCompleted), string(models.JobFailed)}).
		Delete(&JobRow{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete job record %s: %w", id, err)
	}
	return nil
}

func (s *GormStore) ExpireIfTerminal(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).
		Model(&JobRow{}).
		Where("id = ? AND status IN ?", id, []string{string(models.JobCompleted), string(models.JobFailed)}).
		Update("expires_at", s.now().Add(s.terminalTTL)).Error
	if err != nil {
		return fmt.Errorf("failed to expire job record %s: %w", id, err)
	}
	return nil
}

func (s *GormStore) WriteBatch(ctx context.Context, records map[uuid.UUID]models.JobRecord, entries []CacheEntry) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, record := range records {
			row := s.jobRow(id, record, s.resultTTL)
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}
		for _, entry := range entries {
			row := TranslationRow{
				Fingerprint: entry.Fingerprint,
				Text:        entry.Text,
				ExpiresAt:   s.now().Add(entry.TTL),
			}
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write batch of %d records: %w", len(records), err)
	}
	return nil
}

func (s *GormStore) GetCached(ctx context.Context, fingerprint string) (string, bool, error) {
	var row TranslationRow
	if err := s.db.WithContext(ctx).First(&row, "fingerprint = ?", fingerprint).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read translation cache: %w", err)
	}

	if s.now().After(row.ExpiresAt) {
		s.db.WithContext(ctx).Delete(&TranslationRow{}, "fingerprint = ?", fingerprint)
		return "", false, nil
	}

	return row.Text, true, nil
}

func (s *GormStore) PutCached(ctx context.Context, fingerprint, text string, ttl time.Duration) error {
	row := TranslationRow{
		Fingerprint: fingerprint,
		Text:        text,
		ExpiresAt:   s.now().Add(ttl),
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to write translation cache: %w", err)
	}
	return nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

package repository

import (
	"context"
	"time"

	"github.com/GoPolymarket/lottogate/internal/middleware"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type idempotencyKey struct {
	Key          string `gorm:"primaryKey;size:255"`
	Fingerprint  string `gorm:"size:64;not null;default:''"`
	StatusCode   int    `gorm:"not null;default:0"`
	ContentType  string `gorm:"size:128"`
	ResponseBody []byte
	Processing   bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time `gorm:"not null;index"`
}

func (idempotencyKey) TableName() string { return "idempotency_keys" }

// DBIdempotencyStore keeps idempotency records in the ledger database when Redis is not configured.
type DBIdempotencyStore struct {
	db *gorm.DB
}

func NewDBIdempotencyStore(db *gorm.DB) (*DBIdempotencyStore, error) {
	if err := db.AutoMigrate(&idempotencyKey{}); err != nil {
		return nil, err
	}
	return &DBIdempotencyStore{db: db}, nil
}

func (s *DBIdempotencyStore) Acquire(ctx context.Context, key string, rec middleware.IdempotencyRecord) (*middleware.IdempotencyRecord, bool, error) {
	row := idempotencyKey{
		Key:         key,
		Fingerprint: rec.Fingerprint,
		Processing:  true,
		CreatedAt:   rec.CreatedAt,
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return nil, false, nil
	}

	var existing idempotencyKey
	if err := s.db.WithContext(ctx).Where("key = ?", key).First(&existing).Error; err != nil {
		return nil, false, err
	}
	return &middleware.IdempotencyRecord{
		Fingerprint: existing.Fingerprint,
		Status:      existing.StatusCode,
		ContentType: existing.ContentType,
		Body:        existing.ResponseBody,
		CreatedAt:   existing.CreatedAt,
		Processing:  existing.Processing,
	}, true, nil
}

func (s *DBIdempotencyStore) Complete(ctx context.Context, key string, rec middleware.IdempotencyRecord) error {
	return s.db.WithContext(ctx).Model(&idempotencyKey{}).
		Where("key = ?", key).
		Updates(map[string]any{
			"status_code":   rec.Status,
			"content_type":  rec.ContentType,
			"response_body": rec.Body,
			"processing":    false,
		}).Error
}

func (s *DBIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("key = ?", key).Delete(&idempotencyKey{}).Error
}

// Cleanup drops records older than the retention window.
func (s *DBIdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&idempotencyKey{})
	return res.RowsAffected, res.Error
}

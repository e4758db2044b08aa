package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/terraincognita07/paindiary/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type KeyValueRepository struct {
	database *gorm.DB
	now      func() time.Time
}

func NewKeyValueRepository(database *gorm.DB) *KeyValueRepository {
	return &KeyValueRepository{database: database, now: time.Now}
}

func (repo *KeyValueRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry := models.KeyValueEntry{}
	result := repo.database.WithContext(ctx).
		Where("entry_key = ?", key).
		Limit(1).
		Find(&entry)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, false, nil
	}
	return entry.Payload, true, nil
}

func (repo *KeyValueRepository) Put(ctx context.Context, key string, value []byte) error {
	return repo.PutMany(ctx, map[string][]byte{key: value})
}

// PutMany upserts every entry in one transaction.
func (repo *KeyValueRepository) PutMany(ctx context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}
	now := repo.now().UTC()
	entries := make([]models.KeyValueEntry, 0, len(values))
	for key, value := range values {
		if strings.TrimSpace(key) == "" {
			return errors.New("empty storage key")
		}
		entries = append(entries, models.KeyValueEntry{
			Key:       key,
			Payload:   value,
			SizeBytes: EntrySize(key, value),
			UpdatedAt: now,
		})
	}

	return repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "size_bytes", "updated_at"}),
		}).Create(&entries).Error
	})
}

func (repo *KeyValueRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return repo.database.WithContext(ctx).Where("entry_key IN ?", keys).Delete(&models.KeyValueEntry{}).Error
}

func (repo *KeyValueRepository) Exists(ctx context.Context, key string) (bool, error) {
	var count int64
	if err := repo.database.WithContext(ctx).Model(&models.KeyValueEntry{}).
		Where("entry_key = ?", key).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Keys lists keys starting with prefix in ascending order. An empty prefix lists every key.
func (repo *KeyValueRepository) Keys(ctx context.Context, prefix string) ([]string, error) {
	query := repo.database.WithContext(ctx).Model(&models.KeyValueEntry{})
	if prefix != "" {
		query = query.Where("substr(entry_key, 1, ?) = ?", len(prefix), prefix)
	}
	keys := make([]string, 0)
	if err := query.Order("entry_key ASC").Pluck("entry_key", &keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

func (repo *KeyValueRepository) EntrySize(ctx context.Context, key string) (int64, error) {
	var size int64
	if err := repo.database.WithContext(ctx).Model(&models.KeyValueEntry{}).
		Select("COALESCE(SUM(size_bytes), 0)").
		Where("entry_key = ?", key).
		Scan(&size).Error; err != nil {
		return 0, err
	}
	return size, nil
}

func (repo *KeyValueRepository) TotalSize(ctx context.Context) (int64, error) {
	var size int64
	if err := repo.database.WithContext(ctx).Model(&models.KeyValueEntry{}).
		Select("COALESCE(SUM(size_bytes), 0)").
		Scan(&size).Error; err != nil {
		return 0, err
	}
	return size, nil
}

// EntrySize is the quota cost of one entry.
func EntrySize(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}

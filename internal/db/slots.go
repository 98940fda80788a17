package db

import (
	"context"
	"errors"

	"github.com/arencloud/stackdeck/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SlotStore keeps string values under fixed keys in the settings table.
type SlotStore struct {
	db *gorm.DB
}

func NewSlotStore(gdb *gorm.DB) *SlotStore { return &SlotStore{db: gdb} }

// Get returns the value stored under key; ok is false when the slot is empty.
func (s *SlotStore) Get(ctx context.Context, key string) (string, bool, error) {
	var row models.Setting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Value, true, nil
}

// Put writes value under key, replacing any previous value.
func (s *SlotStore) Put(ctx context.Context, key, value string) error {
	row := models.Setting{Key: key, Value: value}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}

// Delete empties the slot. Deleting an empty slot is not an error.
func (s *SlotStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("key = ?", key).Delete(&models.Setting{}).Error
}

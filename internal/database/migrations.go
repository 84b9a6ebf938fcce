package database

import (
	"fmt"

	"gorm.io/gorm"

	"groundmatch/server/internal/models"
)

// MigrateSchema creates or updates every table used by the matcher.
func MigrateSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Company{},
		&models.Client{},
		&models.Preferences{},
		&models.Ground{},
		&models.ProviderGrant{},
		&models.Match{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// NormalizeStatuses rewrites legacy match statuses: accepted becomes
// approved and every other unknown value, rejected included, becomes
// pending. It returns the number of rows changed.
func NormalizeStatuses(db *gorm.DB) (int64, error) {
	var changed int64
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Match{}).
			Where("status = ?", "accepted").
			Update("status", models.MatchStatusApproved)
		if res.Error != nil {
			return fmt.Errorf("failed to normalize accepted matches: %w", res.Error)
		}
		changed += res.RowsAffected

		res = tx.Model(&models.Match{}).
			Where("status NOT IN ?", []models.MatchStatus{models.MatchStatusApproved, models.MatchStatusPending}).
			Update("status", models.MatchStatusPending)
		if res.Error != nil {
			return fmt.Errorf("failed to normalize legacy matches: %w", res.Error)
		}
		changed += res.RowsAffected
		return nil
	})
	return changed, err
}

func (d *Database) RunMigrations() error {
	if err := MigrateSchema(d.db); err != nil {
		return err
	}

	changed, err := NormalizeStatuses(d.db)
	if err != nil {
		return err
	}
	if changed > 0 {
		d.logger.WithField("rows", changed).Info("Normalized legacy match statuses")
	}
	return nil
}

package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"groundmatch/server/internal/models"
)

func (d *Database) CreateGround(ctx context.Context, ground *models.Ground) error {
	if err := d.db.WithContext(ctx).Create(ground).Error; err != nil {
		return fmt.Errorf("failed to create ground: %w", err)
	}
	return nil
}

// InsertGrounds stores a batch of grounds in a single transaction.
func (d *Database) InsertGrounds(ctx context.Context, grounds []*models.Ground) error {
	if len(grounds) == 0 {
		return nil
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(grounds, 100).Error; err != nil {
			return fmt.Errorf("failed to insert %d grounds: %w", len(grounds), err)
		}
		return nil
	})
}

func (d *Database) DeleteGround(ctx context.Context, id uint) error {
	if err := d.db.WithContext(ctx).Delete(&models.Ground{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete ground %d: %w", id, err)
	}
	return nil
}

// GrantProvider makes the provider's grounds visible to the company.
// Granting twice is a no-op.
func (d *Database) GrantProvider(ctx context.Context, companyID uint, provider string) error {
	err := d.db.WithContext(ctx).Create(&models.ProviderGrant{CompanyID: companyID, Provider: provider}).Error
	if err != nil && !IsUniqueViolation(err) {
		return fmt.Errorf("failed to grant provider %q: %w", provider, err)
	}
	return nil
}

// VisiblePlots returns the grounds the company may match against. A
// company without provider grants sees every ground.
func (d *Database) VisiblePlots(ctx context.Context, companyID uint) ([]models.Ground, error) {
	var providers []string
	err := d.db.WithContext(ctx).
		Model(&models.ProviderGrant{}).
		Where("company_id = ?", companyID).
		Pluck("provider", &providers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load provider grants: %w", err)
	}

	query := d.db.WithContext(ctx).Order("id")
	if len(providers) > 0 {
		query = query.Where("provider IN ?", providers)
	}

	var grounds []models.Ground
	if err := query.Find(&grounds).Error; err != nil {
		return nil, fmt.Errorf("failed to load grounds: %w", err)
	}
	return grounds, nil
}

package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"groundmatch/server/internal/models"
)

func (d *Database) CreateCompany(ctx context.Context, company *models.Company) error {
	if err := d.db.WithContext(ctx).Create(company).Error; err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

// CompanyIDs lists every company, used by the regeneration scheduler.
func (d *Database) CompanyIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := d.db.WithContext(ctx).Model(&models.Company{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return ids, nil
}

func (d *Database) CompanyExists(ctx context.Context, companyID uint) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&models.Company{}).Where("id = ?", companyID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up company: %w", err)
	}
	return count > 0, nil
}

func (d *Database) CreateClient(ctx context.Context, client *models.Client) error {
	if err := d.db.WithContext(ctx).Omit("Preferences").Create(client).Error; err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// SetPreferences creates or replaces the preferences of a client.
func (d *Database) SetPreferences(ctx context.Context, prefs *models.Preferences) error {
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "client_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"location", "subdivision_type", "min_m2", "max_m2", "min_budget", "max_budget",
		}),
	}).Create(prefs).Error
	if err != nil {
		return fmt.Errorf("failed to save preferences for client %d: %w", prefs.ClientID, err)
	}
	return nil
}

// ClientsWithPreferences returns the company's clients that have
// preferences, with the preferences loaded. Clients without preferences
// are left out.
func (d *Database) ClientsWithPreferences(ctx context.Context, companyID uint) ([]models.Client, error) {
	var clients []models.Client
	err := d.db.WithContext(ctx).
		InnerJoins("Preferences").
		Where("clients.company_id = ?", companyID).
		Order("clients.id").
		Find(&clients).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load clients for company %d: %w", companyID, err)
	}
	return clients, nil
}

func (d *Database) GetClient(ctx context.Context, id uint) (*models.Client, error) {
	var client models.Client
	err := d.db.WithContext(ctx).Preload("Preferences").First(&client, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load client %d: %w", id, err)
	}
	return &client, nil
}

func (d *Database) DeleteClient(ctx context.Context, id uint) error {
	if err := d.db.WithContext(ctx).Delete(&models.Client{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete client %d: %w", id, err)
	}
	return nil
}

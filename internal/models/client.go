package models

import "time"

type Company struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:200;not null;uniqueIndex" json:"name"`
	Email     string    `gorm:"size:320;not null" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type Client struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	CompanyID   uint         `gorm:"not null;index" json:"company_id"`
	Company     *Company     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Name        string       `gorm:"size:200;not null" json:"name"`
	Email       string       `gorm:"size:320" json:"email"`
	Preferences *Preferences `gorm:"constraint:OnDelete:CASCADE" json:"preferences,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Preferences holds what a client is looking for. A nil field means the
// client has no constraint on that dimension.
type Preferences struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	ClientID        uint             `gorm:"not null;uniqueIndex" json:"client_id"`
	Location        *string          `gorm:"size:200" json:"location,omitempty"`
	SubdivisionType *SubdivisionType `gorm:"size:120" json:"subdivision_type,omitempty"`
	MinM2           *int             `gorm:"column:min_m2" json:"min_m2,omitempty"`
	MaxM2           *int             `gorm:"column:max_m2" json:"max_m2,omitempty"`
	MinBudget       *float64         `json:"min_budget,omitempty"`
	MaxBudget       *float64         `json:"max_budget,omitempty"`
}

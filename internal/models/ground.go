package models

import "time"

// SubdivisionType is one of the closed set of plot categories.
type SubdivisionType string

const (
	SubdivisionDetached        SubdivisionType = "detached"
	SubdivisionSemiDetached    SubdivisionType = "semi_detached"
	SubdivisionTerraced        SubdivisionType = "terraced"
	SubdivisionApartment       SubdivisionType = "apartment"
	SubdivisionDevelopmentPlot SubdivisionType = "development_plot"
)

// SubdivisionTypes lists every valid category code in display order.
var SubdivisionTypes = []SubdivisionType{
	SubdivisionDetached,
	SubdivisionSemiDetached,
	SubdivisionTerraced,
	SubdivisionApartment,
	SubdivisionDevelopmentPlot,
}

// Ground is a plot of land offered by a provider.
type Ground struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Location        string          `gorm:"size:200;not null" json:"location"`
	Address         string          `gorm:"size:300" json:"address"`
	M2              int             `gorm:"column:m2;not null" json:"m2"`
	Budget          float64         `gorm:"not null" json:"budget"`
	SubdivisionType SubdivisionType `gorm:"size:120;not null" json:"subdivision_type"`
	Provider        string          `gorm:"size:200;index:idx_ground_provider" json:"provider"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ProviderGrant restricts the grounds a company can see to those of the
// granted providers. A company without grants sees every ground.
type ProviderGrant struct {
	CompanyID uint   `gorm:"primaryKey" json:"company_id"`
	Provider  string `gorm:"primaryKey;size:200" json:"provider"`
}

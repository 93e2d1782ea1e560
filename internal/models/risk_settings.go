package models

import "gorm.io/gorm"

// RiskSettings holds the account-wide risk management settings.
// There should only ever be one row in this table; it supplies the default
// tax and margin rates snapshotted onto new trades.
type RiskSettings struct {
	gorm.Model
	DefaultRSize       float64 `json:"defaultRSize"`
	MaxOpenRisk        float64 `json:"maxOpenRisk"`
	MaxOpenPositions   int     `json:"maxOpenPositions"`
	MaxDailyLoss       float64 `json:"maxDailyLoss"`
	StateTaxRate       float64 `json:"stateTaxRate"`       // percentage, e.g. 9.2
	FederalTaxRate     float64 `json:"federalTaxRate"`     // percentage, e.g. 24
	MarginInterestRate float64 `json:"marginInterestRate"` // annual percentage, e.g. 8
	EnableAlerts       bool    `gorm:"default:true" json:"enableAlerts"`
}

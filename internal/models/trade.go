package models

import (
	"time"

	"gorm.io/gorm"
)

// Trade directions.
const (
	TypeLong  = "LONG"
	TypeShort = "SHORT"
)

// Trade statuses.
const (
	StatusOpen      = "OPEN"
	StatusClosed    = "CLOSED"
	StatusCancelled = "CANCELLED"
)

// Trade represents a single journaled stock trade.
//
// The tax and margin rates are snapshotted from the risk settings when the
// trade is created so later settings changes never alter historical results.
// ProfitLoss, TaxAmount, MarginInterest and NetProfit are derived once at
// close time and persisted.
type Trade struct {
	gorm.Model
	Symbol       string   `gorm:"not null;index" json:"symbol"`
	Type         string   `gorm:"not null" json:"type"` // LONG or SHORT
	Quantity     float64  `gorm:"not null" json:"quantity"`
	EntryPrice   float64  `gorm:"not null" json:"entryPrice"`
	ExitPrice    *float64 `json:"exitPrice"`
	StopLoss     *float64 `json:"stopLoss"`
	TargetPrice1 *float64 `json:"targetPrice1"`
	TargetPrice2 *float64 `json:"targetPrice2"`
	Status       string   `gorm:"not null;default:OPEN;index" json:"status"`

	RiskAmount *float64 `json:"riskAmount"` // 1R in dollars
	RSize      *float64 `json:"rSize"`

	EntryTime time.Time  `json:"entryTime"`
	ExitTime  *time.Time `json:"exitTime"`

	Notes    string `json:"notes,omitempty"`
	Strategy string `json:"strategy,omitempty"`

	// Rates snapshotted from the risk settings at creation time, percentages.
	StateTaxRate       float64 `json:"stateTaxRate"`
	FederalTaxRate     float64 `json:"federalTaxRate"`
	MarginInterestRate float64 `json:"marginInterestRate"`

	// Derived on close.
	PositionSize   *float64 `json:"positionSize"`
	ProfitLoss     *float64 `json:"profitLoss"`
	TaxAmount      *float64 `json:"taxAmount"`
	MarginInterest *float64 `json:"marginInterest"`
	NetProfit      *float64 `json:"netProfit"`
}

// IsOpen reports whether the trade is still open.
func (t *Trade) IsOpen() bool {
	return t.Status == StatusOpen
}

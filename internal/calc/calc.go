// Package calc contains the financial calculations used across the trading
// journal. Every function is pure and side-effect free; degenerate inputs
// (zero or missing prices, quantities, rates) yield a zero result rather
// than an error, so callers never have to special-case partial trades.
//
// All rounding is half-away-from-zero at two decimal places, applied only
// to the final result of a calculation, never to intermediate terms.
package calc

import (
	"math"
	"strings"
	"time"
)

// Win/loss statuses for a closed trade.
const (
	StatusWin       = "WIN"
	StatusLoss      = "LOSS"
	StatusBreakeven = "BREAKEVEN"
)

// round2 rounds half away from zero to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func isLong(tradeType string) bool {
	return strings.EqualFold(tradeType, "LONG")
}

// RiskPerShare returns the dollar risk per share between entry and stop.
// Returns 0 when either price is absent: risk is simply unknown.
func RiskPerShare(entryPrice, stopLoss float64) float64 {
	if entryPrice == 0 || stopLoss == 0 {
		return 0
	}
	return math.Abs(entryPrice - stopLoss)
}

// PositionSize returns the whole number of shares that keeps the dollar risk
// at rSize given the per-share risk.
func PositionSize(rSize, riskPerShare float64) int {
	if riskPerShare == 0 {
		return 0
	}
	return int(math.Floor(rSize / riskPerShare))
}

// TotalRisk returns the dollar risk of a position.
func TotalRisk(riskPerShare, quantity float64) float64 {
	return riskPerShare * quantity
}

// PositionValue returns the dollar value of a position at the entry price.
func PositionValue(entryPrice, quantity float64) float64 {
	if entryPrice == 0 || quantity == 0 {
		return 0
	}
	return entryPrice * quantity
}

// ProfitLoss returns the gross profit or loss of a trade in dollars,
// rounded to the cent. The trade type comparison is case-insensitive.
func ProfitLoss(tradeType string, entryPrice, exitPrice, quantity float64) float64 {
	if entryPrice == 0 || exitPrice == 0 || quantity == 0 {
		return 0
	}

	priceDiff := exitPrice - entryPrice
	if !isLong(tradeType) {
		priceDiff = entryPrice - exitPrice
	}

	return round2(priceDiff * quantity)
}

// ProfitLossPercent returns the profit or loss as a percentage of the
// position value at entry.
func ProfitLossPercent(profitLoss, entryPrice, quantity float64) float64 {
	positionValue := entryPrice * quantity
	if positionValue == 0 {
		return 0
	}
	return (profitLoss / positionValue) * 100
}

// RMultiple expresses a profit or loss as a multiple of the initial risk.
func RMultiple(profitLoss, riskAmount float64) float64 {
	if riskAmount == 0 {
		return 0
	}
	return profitLoss / riskAmount
}

// TargetPrice returns the exit price that realizes the given R-multiple,
// rounded to the cent. LONG targets sit above the entry, SHORT below.
func TargetPrice(tradeType string, entryPrice, riskPerShare, rMultiple float64) float64 {
	if entryPrice == 0 || riskPerShare == 0 {
		return 0
	}

	target := entryPrice + riskPerShare*rMultiple
	if !isLong(tradeType) {
		target = entryPrice - riskPerShare*rMultiple
	}

	return round2(target)
}

// TaxAmount returns the combined state and federal tax on a profitable
// trade, rounded to the cent. Losses are never taxed.
func TaxAmount(profitLoss, stateTaxRate, federalTaxRate float64) float64 {
	if profitLoss <= 0 {
		return 0
	}

	combinedRate := (stateTaxRate + federalTaxRate) / 100
	return round2(profitLoss * combinedRate)
}

// MarginInterest returns the interest accrued on a position held on margin,
// rounded to the cent. Positions held one day or less are interest free.
// Uses the 360-day banker's year convention.
func MarginInterest(positionSize, marginInterestRate float64, daysHeld int) float64 {
	if daysHeld <= 1 {
		return 0
	}

	marginRate := marginInterestRate / 100
	return round2(positionSize * marginRate / 360 * float64(daysHeld))
}

// DaysHeld returns the number of days between entry and exit. Partial days
// round up, so a position held 25 hours counts as 2 days.
func DaysHeld(entryTime, exitTime time.Time) int {
	diff := exitTime.Sub(entryTime)
	if diff < 0 {
		diff = -diff
	}
	return int(math.Ceil(float64(diff.Milliseconds()) / float64(24*time.Hour/time.Millisecond)))
}

// NetProfit returns the profit remaining after taxes and margin interest,
// rounded to the cent.
func NetProfit(profitLoss, taxAmount, marginInterest float64) float64 {
	return round2(profitLoss - taxAmount - marginInterest)
}

// WinLossStatus classifies a closed trade. Exactly zero is a breakeven.
func WinLossStatus(profitLoss float64) string {
	switch {
	case profitLoss > 0:
		return StatusWin
	case profitLoss < 0:
		return StatusLoss
	default:
		return StatusBreakeven
	}
}

// RiskPercentage returns the risk amount as a percentage of total capital.
func RiskPercentage(riskAmount, totalCapital float64) float64 {
	if totalCapital == 0 {
		return 0
	}
	return (riskAmount / totalCapital) * 100
}

// RemainingRisk returns the unused portion of the risk limit, floored at 0.
func RemainingRisk(maxRisk, usedRisk float64) float64 {
	return math.Max(0, maxRisk-usedRisk)
}

// DollarsToR converts a dollar amount to R-multiples given the size of 1R.
func DollarsToR(dollarAmount, rSize float64) float64 {
	if rSize == 0 {
		return 0
	}
	return dollarAmount / rSize
}

// RToDollars converts an R-multiple to a dollar amount given the size of 1R.
func RToDollars(rMultiple, rSize float64) float64 {
	return rMultiple * rSize
}

// RProgressPosition maps the current R-multiple into a 0-100 range between
// minR (typically -1, the stop) and maxR (typically 2, the second target),
// clamping values outside the range. Used for progress visualizations.
func RProgressPosition(currentRMultiple, minR, maxR float64) float64 {
	rangeR := maxR - minR
	if rangeR == 0 {
		return 0
	}
	clamped := math.Max(minR, math.Min(maxR, currentRMultiple))
	return (clamped - minR) / rangeR * 100
}

// RiskWarning describes how close the account is to its risk limit.
type RiskWarning struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// RiskWarningLevel bands a risk-usage percentage into warning levels.
// Band lower bounds are inclusive: exactly 50 is caution, not safe.
func RiskWarningLevel(riskPercentage float64) RiskWarning {
	switch {
	case riskPercentage >= 100:
		return RiskWarning{Level: "danger", Message: "Risk limit exceeded!"}
	case riskPercentage >= 80:
		return RiskWarning{Level: "warning", Message: "High risk usage"}
	case riskPercentage >= 50:
		return RiskWarning{Level: "caution", Message: "Moderate risk usage"}
	default:
		return RiskWarning{Level: "safe", Message: "Safe risk level"}
	}
}

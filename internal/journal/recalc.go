package journal

import (
	"fmt"

	"trade-journal-go/internal/calc"
	"trade-journal-go/internal/models"

	"go.uber.org/zap"
)

// RecalculateClosedTrades re-derives taxAmount, marginInterest and
// netProfit for every closed trade. This is the one sanctioned way to
// touch persisted settlement figures, used after correcting rates.
//
// Trades keep their own snapshotted rates; only trades recorded before
// rate snapshotting exist fall back to the current risk settings. Days
// held is floored at 1 so legacy rows without a usable exit time never
// produce negative holding periods.
func (s *Service) RecalculateClosedTrades() (int, error) {
	settings, err := s.GetRiskSettings()
	if err != nil {
		return 0, err
	}

	trades, err := s.ClosedTrades()
	if err != nil {
		return 0, err
	}

	updated := 0
	for i := range trades {
		t := &trades[i]
		if t.ExitPrice == nil || t.ExitTime == nil {
			s.logger.Warn("Skipping closed trade without exit data", zap.Uint("id", t.ID))
			continue
		}

		stateRate := t.StateTaxRate
		federalRate := t.FederalTaxRate
		marginRate := t.MarginInterestRate
		if stateRate == 0 && federalRate == 0 && marginRate == 0 {
			stateRate = settings.StateTaxRate
			federalRate = settings.FederalTaxRate
			marginRate = settings.MarginInterestRate
		}

		pnl := calc.ProfitLoss(t.Type, t.EntryPrice, *t.ExitPrice, t.Quantity)
		tax := calc.TaxAmount(pnl, stateRate, federalRate)

		positionValue := calc.PositionValue(t.EntryPrice, t.Quantity)
		daysHeld := calc.DaysHeld(t.EntryTime, *t.ExitTime)
		if daysHeld < 1 {
			daysHeld = 1
		}
		interest := calc.MarginInterest(positionValue, marginRate, daysHeld)
		net := calc.NetProfit(pnl, tax, interest)

		t.StateTaxRate = stateRate
		t.FederalTaxRate = federalRate
		t.MarginInterestRate = marginRate
		t.ProfitLoss = &pnl
		t.TaxAmount = &tax
		t.MarginInterest = &interest
		t.NetProfit = &net
		t.PositionSize = &positionValue

		if err := s.db.Model(&models.Trade{}).Where("id = ?", t.ID).Updates(map[string]any{
			"state_tax_rate":       stateRate,
			"federal_tax_rate":     federalRate,
			"margin_interest_rate": marginRate,
			"profit_loss":          pnl,
			"tax_amount":           tax,
			"margin_interest":      interest,
			"net_profit":           net,
			"position_size":        positionValue,
		}).Error; err != nil {
			return updated, fmt.Errorf("failed to update trade %d: %w", t.ID, err)
		}
		updated++
	}

	s.logger.Info("Recalculated closed trades", zap.Int("updated", updated))
	return updated, nil
}

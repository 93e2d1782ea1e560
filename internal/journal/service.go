package journal

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"trade-journal-go/internal/calc"
	"trade-journal-go/internal/models"
	"trade-journal-go/internal/quote"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a trade id does not exist.
	ErrNotFound = errors.New("trade not found")
	// ErrValidation wraps all input validation failures.
	ErrValidation = errors.New("validation failed")
)

var symbolPattern = regexp.MustCompile(`^[A-Z]+$`)

// Service implements the trade journal: creating and closing trades,
// valuing open positions against live quotes, and aggregating closed
// trades into performance metrics.
type Service struct {
	db        *gorm.DB
	quotes    *quote.Service
	logger    *zap.Logger
	batchSize int
	now       func() time.Time
}

// NewService creates a journal service. batchSize bounds how many open
// positions are priced concurrently so a single caller cannot starve the
// shared quote rate-limit window.
func NewService(db *gorm.DB, quotes *quote.Service, batchSize int, logger *zap.Logger) *Service {
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Service{
		db:        db,
		quotes:    quotes,
		logger:    logger,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// CreateTradeInput carries the caller-supplied fields for a new trade.
type CreateTradeInput struct {
	Symbol       string   `json:"symbol"`
	Type         string   `json:"type"`
	Quantity     float64  `json:"quantity"`
	EntryPrice   float64  `json:"entryPrice"`
	StopLoss     *float64 `json:"stopLoss"`
	TargetPrice1 *float64 `json:"targetPrice1"`
	TargetPrice2 *float64 `json:"targetPrice2"`
	RiskAmount   *float64 `json:"riskAmount"`
	RSize        *float64 `json:"rSize"`
	Notes        string   `json:"notes"`
	Strategy     string   `json:"strategy"`
}

func (in *CreateTradeInput) validate() error {
	in.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))
	in.Type = strings.ToUpper(in.Type)

	switch {
	case in.Symbol == "" || len(in.Symbol) > 10 || !symbolPattern.MatchString(in.Symbol):
		return fmt.Errorf("%w: symbol must be 1-10 uppercase letters", ErrValidation)
	case in.Type != models.TypeLong && in.Type != models.TypeShort:
		return fmt.Errorf("%w: type must be LONG or SHORT", ErrValidation)
	case in.Quantity <= 0 || in.Quantity != float64(int64(in.Quantity)):
		return fmt.Errorf("%w: quantity must be a positive whole number", ErrValidation)
	case in.EntryPrice <= 0:
		return fmt.Errorf("%w: entry price must be positive", ErrValidation)
	case in.StopLoss != nil && *in.StopLoss <= 0:
		return fmt.Errorf("%w: stop loss must be positive", ErrValidation)
	case in.StopLoss != nil && *in.StopLoss == in.EntryPrice:
		return fmt.Errorf("%w: stop loss must be different from entry price", ErrValidation)
	case in.RiskAmount != nil && *in.RiskAmount < 0:
		return fmt.Errorf("%w: risk amount cannot be negative", ErrValidation)
	}
	return nil
}

// CreateTrade validates the input, snapshots the current tax and margin
// rates from the risk settings, derives the risk amount when a stop is set,
// and records the trade as OPEN.
func (s *Service) CreateTrade(in CreateTradeInput) (*models.Trade, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	settings, err := s.GetRiskSettings()
	if err != nil {
		return nil, fmt.Errorf("could not load risk settings: %w", err)
	}

	riskAmount := in.RiskAmount
	if riskAmount == nil && in.StopLoss != nil {
		derived := calc.TotalRisk(calc.RiskPerShare(in.EntryPrice, *in.StopLoss), in.Quantity)
		riskAmount = &derived
	}

	positionValue := calc.PositionValue(in.EntryPrice, in.Quantity)

	trade := models.Trade{
		Symbol:             in.Symbol,
		Type:               in.Type,
		Quantity:           in.Quantity,
		EntryPrice:         in.EntryPrice,
		StopLoss:           in.StopLoss,
		TargetPrice1:       in.TargetPrice1,
		TargetPrice2:       in.TargetPrice2,
		Status:             models.StatusOpen,
		RiskAmount:         riskAmount,
		RSize:              in.RSize,
		EntryTime:          s.now(),
		Notes:              in.Notes,
		Strategy:           in.Strategy,
		StateTaxRate:       settings.StateTaxRate,
		FederalTaxRate:     settings.FederalTaxRate,
		MarginInterestRate: settings.MarginInterestRate,
		PositionSize:       &positionValue,
	}

	if err := s.db.Create(&trade).Error; err != nil {
		return nil, fmt.Errorf("failed to create trade: %w", err)
	}

	s.logger.Info("Trade opened",
		zap.Uint("id", trade.ID),
		zap.String("symbol", trade.Symbol),
		zap.String("type", trade.Type),
		zap.Float64("entry_price", trade.EntryPrice),
		zap.Float64("quantity", trade.Quantity))

	return &trade, nil
}

// GetTrade returns a trade by id.
func (s *Service) GetTrade(id uint) (*models.Trade, error) {
	var trade models.Trade
	if err := s.db.First(&trade, id).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to load trade %d: %w", id, err)
	}
	return &trade, nil
}

// ListTrades returns all trades, most recent entries first.
func (s *Service) ListTrades() ([]models.Trade, error) {
	var trades []models.Trade
	if err := s.db.Order("entry_time DESC").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// UpdateTradeInput carries the updatable fields of an open trade. Nil
// fields are left unchanged.
type UpdateTradeInput struct {
	StopLoss     *float64 `json:"stopLoss"`
	TargetPrice1 *float64 `json:"targetPrice1"`
	TargetPrice2 *float64 `json:"targetPrice2"`
	RiskAmount   *float64 `json:"riskAmount"`
	Notes        *string  `json:"notes"`
	Strategy     *string  `json:"strategy"`
}

// UpdateTrade applies the non-nil fields of in to the trade.
func (s *Service) UpdateTrade(id uint, in UpdateTradeInput) (*models.Trade, error) {
	trade, err := s.GetTrade(id)
	if err != nil {
		return nil, err
	}

	if in.StopLoss != nil {
		if *in.StopLoss <= 0 {
			return nil, fmt.Errorf("%w: stop loss must be positive", ErrValidation)
		}
		trade.StopLoss = in.StopLoss
	}
	if in.TargetPrice1 != nil {
		trade.TargetPrice1 = in.TargetPrice1
	}
	if in.TargetPrice2 != nil {
		trade.TargetPrice2 = in.TargetPrice2
	}
	if in.RiskAmount != nil {
		if *in.RiskAmount < 0 {
			return nil, fmt.Errorf("%w: risk amount cannot be negative", ErrValidation)
		}
		trade.RiskAmount = in.RiskAmount
	}
	if in.Notes != nil {
		trade.Notes = *in.Notes
	}
	if in.Strategy != nil {
		trade.Strategy = *in.Strategy
	}

	if err := s.db.Save(trade).Error; err != nil {
		return nil, fmt.Errorf("failed to update trade %d: %w", id, err)
	}
	return trade, nil
}

// DeleteTrade removes a trade from the journal.
func (s *Service) DeleteTrade(id uint) error {
	res := s.db.Delete(&models.Trade{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete trade %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CloseTrade closes an open trade at exitPrice and persists the derived
// settlement figures. They are computed exactly once here; the stored
// values are never recomputed except by an explicit recalculation run.
func (s *Service) CloseTrade(id uint, exitPrice float64) (*models.Trade, error) {
	if exitPrice <= 0 {
		return nil, fmt.Errorf("%w: exit price must be positive", ErrValidation)
	}

	trade, err := s.GetTrade(id)
	if err != nil {
		return nil, err
	}
	if !trade.IsOpen() {
		return nil, fmt.Errorf("%w: trade %d is already %s", ErrValidation, id, trade.Status)
	}

	exitTime := s.now()
	daysHeld := calc.DaysHeld(trade.EntryTime, exitTime)

	pnl := calc.ProfitLoss(trade.Type, trade.EntryPrice, exitPrice, trade.Quantity)
	tax := calc.TaxAmount(pnl, trade.StateTaxRate, trade.FederalTaxRate)

	positionValue := calc.PositionValue(trade.EntryPrice, trade.Quantity)
	interest := calc.MarginInterest(positionValue, trade.MarginInterestRate, daysHeld)
	net := calc.NetProfit(pnl, tax, interest)

	trade.Status = models.StatusClosed
	trade.ExitPrice = &exitPrice
	trade.ExitTime = &exitTime
	trade.ProfitLoss = &pnl
	trade.TaxAmount = &tax
	trade.MarginInterest = &interest
	trade.NetProfit = &net
	trade.PositionSize = &positionValue

	if err := s.db.Save(trade).Error; err != nil {
		return nil, fmt.Errorf("failed to close trade %d: %w", id, err)
	}

	s.logger.Info("Trade closed",
		zap.Uint("id", trade.ID),
		zap.String("symbol", trade.Symbol),
		zap.Float64("exit_price", exitPrice),
		zap.Int("days_held", daysHeld),
		zap.Float64("pnl", pnl),
		zap.Float64("net_profit", net),
		zap.String("result", calc.WinLossStatus(pnl)))

	return trade, nil
}

// Position is an open trade merged with its live valuation. CurrentPrice,
// PnL and PnLPercent are nil when no quote is available; consumers must
// render that as unknown, not as zero.
type Position struct {
	models.Trade
	CurrentPrice *float64 `json:"currentPrice"`
	PnL          *float64 `json:"pnl"`
	PnLPercent   *float64 `json:"pnlPercent"`
}

// OpenPositions returns all open trades valued at current market prices.
// Quotes are requested in bounded batches to share the rate-limit window
// fairly with other callers.
func (s *Service) OpenPositions(ctx context.Context) ([]Position, error) {
	var trades []models.Trade
	if err := s.db.Where("status = ?", models.StatusOpen).
		Order("entry_time DESC").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to load open positions: %w", err)
	}

	positions := make([]Position, len(trades))
	for i := range trades {
		positions[i] = Position{Trade: trades[i]}
	}

	for start := 0; start < len(positions); start += s.batchSize {
		end := start + s.batchSize
		if end > len(positions) {
			end = len(positions)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(p *Position) {
				defer wg.Done()
				price, err := s.quotes.GetPrice(ctx, p.Symbol)
				if err != nil {
					s.logger.Warn("No quote for open position",
						zap.String("symbol", p.Symbol), zap.Error(err))
					return
				}
				pnl := calc.ProfitLoss(p.Type, p.EntryPrice, price, p.Quantity)
				pct := calc.ProfitLossPercent(pnl, p.EntryPrice, p.Quantity)
				p.CurrentPrice = &price
				p.PnL = &pnl
				p.PnLPercent = &pct
			}(&positions[i])
		}
		wg.Wait()
	}

	return positions, nil
}

// ClosedTrades returns all closed trades, most recent exits first.
func (s *Service) ClosedTrades() ([]models.Trade, error) {
	var trades []models.Trade
	if err := s.db.Where("status = ?", models.StatusClosed).
		Order("exit_time DESC").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to load closed trades: %w", err)
	}
	return trades, nil
}

// Analytics aggregates all closed trades into performance metrics.
func (s *Service) Analytics() (calc.Metrics, error) {
	trades, err := s.ClosedTrades()
	if err != nil {
		return calc.Metrics{}, err
	}

	closed := make([]calc.ClosedTrade, 0, len(trades))
	for _, t := range trades {
		var pnl float64
		if t.ProfitLoss != nil {
			pnl = *t.ProfitLoss
		}
		closed = append(closed, calc.ClosedTrade{
			Symbol:     t.Symbol,
			ProfitLoss: pnl,
			NetProfit:  t.NetProfit,
			RiskAmount: t.RiskAmount,
		})
	}

	return calc.CalculateMetrics(closed), nil
}

// GetRiskSettings returns the single risk settings row.
func (s *Service) GetRiskSettings() (*models.RiskSettings, error) {
	var settings models.RiskSettings
	if err := s.db.Order("id DESC").First(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to load risk settings: %w", err)
	}
	return &settings, nil
}

// UpdateRiskSettingsInput carries the updatable risk settings. Nil fields
// are left unchanged. Updates only affect trades created afterwards.
type UpdateRiskSettingsInput struct {
	DefaultRSize       *float64 `json:"defaultRSize"`
	MaxOpenRisk        *float64 `json:"maxOpenRisk"`
	MaxOpenPositions   *int     `json:"maxOpenPositions"`
	MaxDailyLoss       *float64 `json:"maxDailyLoss"`
	StateTaxRate       *float64 `json:"stateTaxRate"`
	FederalTaxRate     *float64 `json:"federalTaxRate"`
	MarginInterestRate *float64 `json:"marginInterestRate"`
	EnableAlerts       *bool    `json:"enableAlerts"`
}

func validRatePct(v float64) bool { return v >= 0 && v <= 100 }

// UpdateRiskSettings applies the non-nil fields of in to the settings row.
func (s *Service) UpdateRiskSettings(in UpdateRiskSettingsInput) (*models.RiskSettings, error) {
	settings, err := s.GetRiskSettings()
	if err != nil {
		return nil, err
	}

	for _, rate := range []*float64{in.StateTaxRate, in.FederalTaxRate, in.MarginInterestRate} {
		if rate != nil && !validRatePct(*rate) {
			return nil, fmt.Errorf("%w: rates must be between 0 and 100", ErrValidation)
		}
	}

	if in.DefaultRSize != nil {
		settings.DefaultRSize = *in.DefaultRSize
	}
	if in.MaxOpenRisk != nil {
		settings.MaxOpenRisk = *in.MaxOpenRisk
	}
	if in.MaxOpenPositions != nil {
		settings.MaxOpenPositions = *in.MaxOpenPositions
	}
	if in.MaxDailyLoss != nil {
		settings.MaxDailyLoss = *in.MaxDailyLoss
	}
	if in.StateTaxRate != nil {
		settings.StateTaxRate = *in.StateTaxRate
	}
	if in.FederalTaxRate != nil {
		settings.FederalTaxRate = *in.FederalTaxRate
	}
	if in.MarginInterestRate != nil {
		settings.MarginInterestRate = *in.MarginInterestRate
	}
	if in.EnableAlerts != nil {
		settings.EnableAlerts = *in.EnableAlerts
	}

	if err := s.db.Save(settings).Error; err != nil {
		return nil, fmt.Errorf("failed to update risk settings: %w", err)
	}
	return settings, nil
}

// OpenRiskSummary describes how much of the account risk budget the open
// positions currently consume.
type OpenRiskSummary struct {
	TotalOpenRisk float64          `json:"totalOpenRisk"`
	MaxOpenRisk   float64          `json:"maxOpenRisk"`
	RemainingRisk float64          `json:"remainingRisk"`
	RiskPercent   float64          `json:"riskPercent"`
	Warning       calc.RiskWarning `json:"warning"`
}

// OpenRisk sums the risk amounts of all open trades against the configured
// open-risk limit.
func (s *Service) OpenRisk() (*OpenRiskSummary, error) {
	settings, err := s.GetRiskSettings()
	if err != nil {
		return nil, err
	}

	var trades []models.Trade
	if err := s.db.Where("status = ?", models.StatusOpen).Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to load open positions: %w", err)
	}

	var total float64
	for _, t := range trades {
		if t.RiskAmount != nil {
			total += *t.RiskAmount
		}
	}

	pct := calc.RiskPercentage(total, settings.MaxOpenRisk)
	return &OpenRiskSummary{
		TotalOpenRisk: total,
		MaxOpenRisk:   settings.MaxOpenRisk,
		RemainingRisk: calc.RemainingRisk(settings.MaxOpenRisk, total),
		RiskPercent:   pct,
		Warning:       calc.RiskWarningLevel(pct),
	}, nil
}
